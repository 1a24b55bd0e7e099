package repository

import (
	"fmt"

	"sms-campaign/internal/domain/audit"
	"sms-campaign/internal/domain/sms"

	"gorm.io/gorm"
)

// InitSchema creates the extensions and tables the service needs.
func InitSchema(db *gorm.DB) error {
	// Creating extensions may require elevated privileges.
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	}
	for _, ext := range extensions {
		if err := db.Exec(ext).Error; err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	if err := db.AutoMigrate(
		&sms.Sms{},
		&sms.TrackableLink{},
		&sms.MessageStat{},
		&audit.Log{},
	); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_sms_messages_checked_out_by ON sms_messages (checked_out_by) WHERE checked_out_by IS NOT NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_sms_message_stats_sms_date ON sms_message_stats (sms_id, date_sent);`,
	}
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
