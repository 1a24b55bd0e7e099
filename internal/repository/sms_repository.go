package repository

import (
	"context"
	"errors"
	"time"

	"sms-campaign/internal/domain/sms"
	sms_errors "sms-campaign/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresSmsRepository struct {
	db *gorm.DB
}

func NewSmsRepository(db *gorm.DB) SmsRepository {
	return &PostgresSmsRepository{db: db}
}

// contentColumns are written on every update. created_by is never among them.
var contentColumns = []string{
	"name", "description", "message", "sms_type", "language", "category",
	"list_ids", "is_published", "publish_up", "publish_down",
	"modified_by", "updated_at",
}

var lockColumns = []string{"checked_out", "checked_out_by", "checked_out_by_user"}

func (r *PostgresSmsRepository) List(ctx context.Context, q ListQuery) ([]sms.Sms, int64, error) {
	var items []sms.Sms
	var total int64

	order, err := orderClause(q.OrderBy, q.OrderByDir)
	if err != nil {
		return nil, 0, err
	}
	filtered, err := filterScope(q.Filter)
	if err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).Model(&sms.Sms{}).Scopes(filtered).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	tx := r.db.WithContext(ctx).Model(&sms.Sms{}).Scopes(filtered).
		Order(order).Order("id").Offset(max(q.Offset, 0))
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if err := tx.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// filterScope applies force conditions and the free-text search.
func filterScope(f Filter) (func(*gorm.DB) *gorm.DB, error) {
	where, args, err := buildConditions(f.Force)
	if err != nil {
		return nil, err
	}
	return func(tx *gorm.DB) *gorm.DB {
		if where != "" {
			tx = tx.Where(where, args...)
		}
		if f.Search != "" {
			p := likePattern(f.Search)
			tx = tx.Where("(name ILIKE ? OR description ILIKE ? OR message ILIKE ?)", p, p, p)
		}
		return tx
	}, nil
}

func (r *PostgresSmsRepository) GetByID(ctx context.Context, id uuid.UUID) (sms.Sms, error) {
	var s sms.Sms
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return sms.Sms{}, sms_errors.ErrNotFound
		}
		return sms.Sms{}, err
	}
	return s, nil
}

func (r *PostgresSmsRepository) Create(ctx context.Context, s *sms.Sms) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).Create(s)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return sms_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresSmsRepository) Update(ctx context.Context, s *sms.Sms, unlock bool) error {
	s.UpdatedAt = time.Now()
	cols := contentColumns
	if unlock {
		s.CheckedOut = nil
		s.CheckedOutBy = nil
		s.CheckedOutByUser = ""
		cols = append(append([]string{}, contentColumns...), lockColumns...)
	}
	res := r.db.WithContext(ctx).
		Model(&sms.Sms{ID: s.ID}).
		Select(cols).
		Updates(s)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sms_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresSmsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&sms.Sms{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sms_errors.ErrNotFound
	}
	return nil
}

// DeleteMany removes every existing id and returns the removed rows. Ids
// that do not exist are ignored.
func (r *PostgresSmsRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) ([]sms.Sms, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var deleted []sms.Sms
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id IN ?", ids).Find(&deleted).Error; err != nil {
			return err
		}
		if len(deleted) == 0 {
			return nil
		}
		found := make([]uuid.UUID, 0, len(deleted))
		for _, s := range deleted {
			found = append(found, s.ID)
		}
		return tx.Delete(&sms.Sms{}, "id IN ?", found).Error
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Lock takes the edit lock when it is free, already held by holder, or
// expired. Otherwise it returns a LockedError naming the current holder.
// Lock and Unlock leave updated_at untouched.
func (r *PostgresSmsRepository) Lock(ctx context.Context, id, holder uuid.UUID, holderName string, ttl time.Duration) error {
	now := time.Now()
	tx := r.db.WithContext(ctx).Model(&sms.Sms{}).Where("id = ?", id)
	if ttl > 0 {
		tx = tx.Where("(checked_out_by IS NULL OR checked_out_by = ? OR checked_out < ?)", holder, now.Add(-ttl))
	} else {
		tx = tx.Where("(checked_out_by IS NULL OR checked_out_by = ?)", holder)
	}
	res := tx.UpdateColumns(map[string]any{
		"checked_out":         now,
		"checked_out_by":      holder,
		"checked_out_by_user": holderName,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	locked := &sms_errors.LockedError{HolderName: current.CheckedOutByUser}
	if current.CheckedOutBy != nil {
		locked.HolderID = *current.CheckedOutBy
	}
	if current.CheckedOut != nil {
		locked.Since = *current.CheckedOut
	}
	return locked
}

func (r *PostgresSmsRepository) Unlock(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&sms.Sms{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"checked_out":         nil,
			"checked_out_by":      nil,
			"checked_out_by_user": "",
		}).Error
}

func (r *PostgresSmsRepository) IncrementSentCount(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&sms.Sms{}).
		Where("id = ?", id).
		UpdateColumn("sent_count", gorm.Expr("sent_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return sms_errors.ErrNotFound
	}
	return nil
}
