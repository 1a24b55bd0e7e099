package audit

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Log represents audit_logs
type Log struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EntityType string    `gorm:"size:50;not null;index:idx_audit_logs_object"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_logs_object"`
	Action     string    `gorm:"size:50;not null"`
	Details    string    `gorm:"type:text"`
	UserID     uuid.UUID `gorm:"type:uuid"`
	UserName   string    `gorm:"size:191"`
	DateAdded  time.Time `gorm:"not null;index"`
}

func (Log) TableName() string {
	return "audit_logs"
}
