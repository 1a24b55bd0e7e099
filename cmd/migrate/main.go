package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"sms-campaign/config"
	"sms-campaign/internal/repository"
	"sms-campaign/pkg/database"
)

const usage = `
SMS Campaign - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Create extensions, tables and indexes
  status      Show database connection and table status

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	database.Connect(cfg)
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp()
	case "status":
		showStatus()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp() {
	log.Println("Running migrations...")

	if err := repository.InitSchema(database.DB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully")
}

func showStatus() {
	if err := database.HealthCheck(); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	tables := []string{"sms_messages", "sms_trackables", "sms_message_stats", "audit_logs"}
	for _, table := range tables {
		if !database.DB.Migrator().HasTable(table) {
			log.Printf("Table %-20s does not exist", table)
			continue
		}
		var count int64
		if err := database.DB.Table(table).Count(&count).Error; err != nil {
			log.Printf("Table %-20s exists (count failed: %v)", table, err)
			continue
		}
		log.Printf("Table %-20s exists (%d rows)", table, count)
	}
}
