package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"sms-campaign/internal/domain/sms"
	sms_errors "sms-campaign/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// smsRules mirrors the persisted fields that carry input constraints.
type smsRules struct {
	Name     string `json:"name" validate:"required,max=191"`
	Message  string `json:"message" validate:"required,max=1600"`
	SmsType  string `json:"sms_type" validate:"required,oneof=template list"`
	Language string `json:"language" validate:"required,bcp47_language_tag"`
	Category string `json:"category" validate:"max=191"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateSms returns a *ValidationError listing every failing field.
func validateSms(s *sms.Sms) error {
	fields := map[string]string{}

	err := validate.Struct(smsRules{
		Name:     strings.TrimSpace(s.Name),
		Message:  strings.TrimSpace(s.Message),
		SmsType:  string(s.SmsType),
		Language: s.Language,
		Category: s.Category,
	})
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = describe(fe)
		}
	} else if err != nil {
		return err
	}

	if s.SmsType == sms.TypeList && len(s.ListIDs) == 0 {
		fields["list_ids"] = "at least one contact segment is required"
	}
	if s.PublishUp != nil && s.PublishDown != nil && !s.PublishDown.After(*s.PublishUp) {
		fields["publish_down"] = "must be after publish_up"
	}

	if len(fields) > 0 {
		return sms_errors.NewValidationError(fields)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "bcp47_language_tag":
		return "must be a valid language tag"
	default:
		return "is invalid"
	}
}
