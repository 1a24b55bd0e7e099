package repository

import (
	"context"
	"time"

	"sms-campaign/internal/domain/audit"
	sms_errors "sms-campaign/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresAuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &PostgresAuditRepository{db: db}
}

func (r *PostgresAuditRepository) Create(ctx context.Context, entry *audit.Log) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.DateAdded.IsZero() {
		entry.DateAdded = time.Now()
	}
	res := r.db.WithContext(ctx).Create(entry)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return sms_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

// ForObject returns the newest entries first. A zero since returns the full history.
func (r *PostgresAuditRepository) ForObject(ctx context.Context, entityType string, entityID uuid.UUID, since time.Time, limit int) ([]audit.Log, error) {
	var logs []audit.Log
	q := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	if !since.IsZero() {
		q = q.Where("date_added >= ?", since)
	}
	q = q.Order("date_added DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
