package services

import (
	"time"

	"sms-campaign/internal/domain/sms"
)

// FormState is where a workflow left the caller.
type FormState string

const (
	StateNotFound     FormState = "not_found"
	StateAccessDenied FormState = "access_denied"
	StateLocked       FormState = "locked"
	StateEditing      FormState = "editing"
	StateSaved        FormState = "saved"
	StateCancelled    FormState = "cancelled"
)

type FormAction string

const (
	ActionSave   FormAction = "save"
	ActionApply  FormAction = "apply"
	ActionCancel FormAction = "cancel"
)

func ParseFormAction(s string) (FormAction, bool) {
	switch FormAction(s) {
	case ActionSave, ActionApply, ActionCancel:
		return FormAction(s), true
	case "":
		return ActionSave, true
	}
	return "", false
}

// Outcome is the result of a workflow step.
type Outcome struct {
	State      FormState         `json:"state,omitempty"`
	Sms        *sms.Sms          `json:"-"`
	Redirect   *Redirect         `json:"redirect,omitempty"`
	Flashes    []Flash           `json:"flashes,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Draft      *SmsForm          `json:"draft,omitempty"`
	CloseModal bool              `json:"close_modal,omitempty"`
}

// SmsForm is the editable content of a message.
type SmsForm struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Message     string     `json:"message"`
	SmsType     string     `json:"sms_type"`
	Language    string     `json:"language"`
	Category    string     `json:"category"`
	ListIDs     []string   `json:"list_ids"`
	IsPublished *bool      `json:"is_published"`
	PublishUp   *time.Time `json:"publish_up"`
	PublishDown *time.Time `json:"publish_down"`
}

// applyTo copies the form onto s. Publishing fields are only copied when
// canPublish is set.
func (f SmsForm) applyTo(s *sms.Sms, canPublish bool) {
	s.Name = f.Name
	s.Description = f.Description
	s.Message = f.Message
	if f.SmsType != "" {
		s.SmsType = sms.Type(f.SmsType)
	}
	if f.Language != "" {
		s.Language = f.Language
	}
	s.Category = f.Category
	s.ListIDs = append([]string(nil), f.ListIDs...)
	if s.SmsType == sms.TypeTemplate {
		s.ListIDs = nil
	}
	if canPublish {
		if f.IsPublished != nil {
			s.IsPublished = *f.IsPublished
		}
		s.PublishUp = f.PublishUp
		s.PublishDown = f.PublishDown
	}
}
