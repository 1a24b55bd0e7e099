package sms

import "github.com/google/uuid"

// CampaignTrigger is one campaign step asking for an sms to be sent to a contact.
type CampaignTrigger struct {
	CampaignID  string            `json:"campaign_id"`
	EventID     string            `json:"event_id"`
	SmsID       uuid.UUID         `json:"sms_id"`
	ContactID   *uuid.UUID        `json:"contact_id,omitempty"`
	PhoneNumber string            `json:"phone_number"`
	Tokens      map[string]string `json:"tokens,omitempty"`
}
