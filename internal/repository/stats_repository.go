package repository

import (
	"context"
	"fmt"
	"time"

	"sms-campaign/internal/domain/sms"
	sms_errors "sms-campaign/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresStatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &PostgresStatsRepository{db: db}
}

func (r *PostgresStatsRepository) ClickStats(ctx context.Context, smsID uuid.UUID) ([]sms.TrackableLink, error) {
	var links []sms.TrackableLink
	err := r.db.WithContext(ctx).
		Where("sms_id = ?", smsID).
		Order("hits DESC, url ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *PostgresStatsRepository) RecipientStats(ctx context.Context, smsID uuid.UUID, offset, limit int) ([]sms.MessageStat, int64, error) {
	var stats []sms.MessageStat
	var total int64

	q := r.db.WithContext(ctx).Model(&sms.MessageStat{}).Where("sms_id = ?", smsID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if offset < 0 {
		offset = 0
	}
	q = q.Order("date_sent DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&stats).Error; err != nil {
		return nil, 0, err
	}
	return stats, total, nil
}

func (r *PostgresStatsRepository) HitsSeries(ctx context.Context, smsID uuid.UUID, from, to time.Time) ([]sms.HitPoint, error) {
	if n := SeriesDays(from, to); n > MaxSeriesDays {
		return nil, fmt.Errorf("%w: hits window spans %d days, at most %d allowed", sms_errors.ErrInvalidInput, n, MaxSeriesDays)
	}

	var rows []dayCount
	err := r.db.WithContext(ctx).
		Raw(`SELECT date_trunc('day', date_sent) AS day, COUNT(*) AS count
			FROM sms_message_stats
			WHERE sms_id = ? AND date_sent >= ? AND date_sent < ?
			GROUP BY 1 ORDER BY 1`,
			smsID, truncateDay(from), truncateDay(to).AddDate(0, 0, 1)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return fillDays(rows, from, to), nil
}

func (r *PostgresStatsRepository) RecordStat(ctx context.Context, stat *sms.MessageStat) error {
	if stat.ID == uuid.Nil {
		stat.ID = uuid.New()
	}
	if stat.DateSent.IsZero() {
		stat.DateSent = time.Now()
	}
	return r.db.WithContext(ctx).Create(stat).Error
}

// SyncTrackables registers every url for the message, keeping counters of
// urls that are already known.
func (r *PostgresStatsRepository) SyncTrackables(ctx context.Context, smsID uuid.UUID, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	links := make([]sms.TrackableLink, 0, len(urls))
	for _, u := range urls {
		links = append(links, sms.TrackableLink{ID: uuid.New(), SmsID: smsID, URL: u})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sms_id"}, {Name: "url"}},
			DoNothing: true,
		}).
		Create(&links).Error
}
