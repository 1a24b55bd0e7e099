package sms

import (
	"time"

	"github.com/google/uuid"
)

// TrackableLink represents sms_trackables: a URL found in a message body
// together with its click counters.
type TrackableLink struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	SmsID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_sms_trackables_sms_url"`
	URL        string    `gorm:"type:text;not null;uniqueIndex:uk_sms_trackables_sms_url"`
	Hits       int64     `gorm:"not null;default:0"`
	UniqueHits int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time
}

func (TrackableLink) TableName() string {
	return "sms_trackables"
}

// MessageStat represents sms_message_stats: one outbound send to one recipient.
type MessageStat struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SmsID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	ContactID    *uuid.UUID `gorm:"type:uuid;index"`
	CampaignID   string     `gorm:"size:64"`
	PhoneNumber  string     `gorm:"size:20;not null"`
	DateSent     time.Time  `gorm:"not null;index"`
	IsFailed     bool       `gorm:"not null;default:false"`
	Status       string     `gorm:"type:text"`
	TrackingHash string     `gorm:"size:64;index"`
}

func (MessageStat) TableName() string {
	return "sms_message_stats"
}

// HitPoint is one bucket of the sends-per-day series.
type HitPoint struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
}
