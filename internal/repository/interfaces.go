package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sms-campaign/internal/domain/audit"
	"sms-campaign/internal/domain/sms"
)

// Condition is a column/operator/value triple ANDed into a list query.
type Condition struct {
	Column   string
	Operator string
	Value    any
}

type Filter struct {
	Search string
	Force  []Condition
}

type ListQuery struct {
	Filter     Filter
	OrderBy    string
	OrderByDir string
	Offset     int
	Limit      int
}

type SmsRepository interface {
	List(ctx context.Context, q ListQuery) ([]sms.Sms, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (sms.Sms, error)
	Create(ctx context.Context, s *sms.Sms) error
	// Update never writes created_by. With unlock set the lock columns are
	// cleared in the same statement.
	Update(ctx context.Context, s *sms.Sms, unlock bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) ([]sms.Sms, error)

	Lock(ctx context.Context, id, holder uuid.UUID, holderName string, ttl time.Duration) error
	Unlock(ctx context.Context, id uuid.UUID) error
	IncrementSentCount(ctx context.Context, id uuid.UUID) error
}

type StatsRepository interface {
	ClickStats(ctx context.Context, smsID uuid.UUID) ([]sms.TrackableLink, error)
	RecipientStats(ctx context.Context, smsID uuid.UUID, offset, limit int) ([]sms.MessageStat, int64, error)
	HitsSeries(ctx context.Context, smsID uuid.UUID, from, to time.Time) ([]sms.HitPoint, error)
	RecordStat(ctx context.Context, stat *sms.MessageStat) error
	SyncTrackables(ctx context.Context, smsID uuid.UUID, urls []string) error
}

type AuditRepository interface {
	Create(ctx context.Context, entry *audit.Log) error
	ForObject(ctx context.Context, entityType string, entityID uuid.UUID, since time.Time, limit int) ([]audit.Log, error)
}
