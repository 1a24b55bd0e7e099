package sms

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeTemplate Type = "template"
	TypeList     Type = "list"
)

// Sms represents sms_messages
type Sms struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name        string     `gorm:"size:191;not null;index"`
	Description string     `gorm:"type:text"`
	Message     string     `gorm:"type:text;not null"`
	SmsType     Type       `gorm:"column:sms_type;size:16;not null;default:template;check:sms_type IN ('template','list')"`
	Language    string     `gorm:"size:10;not null;default:en"`
	Category    string     `gorm:"size:191"`
	ListIDs     []string   `gorm:"column:list_ids;serializer:json"`
	IsPublished bool       `gorm:"not null;default:true"`
	PublishUp   *time.Time
	PublishDown *time.Time
	SentCount   int        `gorm:"not null;default:0"`

	CreatedBy     uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedByUser string    `gorm:"size:191"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ModifiedBy    *uuid.UUID `gorm:"type:uuid"`

	CheckedOut       *time.Time
	CheckedOutBy     *uuid.UUID `gorm:"type:uuid"`
	CheckedOutByUser string     `gorm:"size:191"`
}

func (Sms) TableName() string {
	return "sms_messages"
}

// New returns an unsaved message with defaults applied.
func New() *Sms {
	return &Sms{
		SmsType:     TypeTemplate,
		Language:    "en",
		IsPublished: true,
	}
}

// IsNew reports whether the entity has not been persisted yet.
func (s *Sms) IsNew() bool {
	return s.ID == uuid.Nil
}

// IsLockedFor reports whether someone other than subject holds an unexpired lock.
// A zero ttl means locks never expire.
func (s *Sms) IsLockedFor(subject uuid.UUID, now time.Time, ttl time.Duration) bool {
	if s.CheckedOutBy == nil || *s.CheckedOutBy == subject {
		return false
	}
	if ttl > 0 && s.CheckedOut != nil && now.Sub(*s.CheckedOut) > ttl {
		return false
	}
	return true
}

// Clone copies the content of s into a new transient entity. Identity, owner,
// lock and send stats are not carried over and the clone starts unpublished.
func (s *Sms) Clone() *Sms {
	c := &Sms{
		Name:        s.Name,
		Description: s.Description,
		Message:     s.Message,
		SmsType:     s.SmsType,
		Language:    s.Language,
		Category:    s.Category,
		IsPublished: false,
	}
	if s.ListIDs != nil {
		c.ListIDs = append([]string(nil), s.ListIDs...)
	}
	if s.PublishUp != nil {
		up := *s.PublishUp
		c.PublishUp = &up
	}
	if s.PublishDown != nil {
		down := *s.PublishDown
		c.PublishDown = &down
	}
	return c
}

// IsSendable reports whether the message is published and inside its publish window.
func (s *Sms) IsSendable(now time.Time) bool {
	if !s.IsPublished {
		return false
	}
	if s.PublishUp != nil && now.Before(*s.PublishUp) {
		return false
	}
	if s.PublishDown != nil && now.After(*s.PublishDown) {
		return false
	}
	return true
}
