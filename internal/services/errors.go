package services

import (
	"errors"
	"net/http"

	sms_errors "sms-campaign/pkg/errors"
)

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, sms_errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, sms_errors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, sms_errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, sms_errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sms_errors.ErrAlreadyExists), errors.Is(err, sms_errors.ErrConflict), errors.Is(err, sms_errors.ErrVetoed):
		return http.StatusConflict
	case errors.Is(err, sms_errors.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, sms_errors.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sms_errors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, sms_errors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode is the machine readable code placed in error envelopes.
func ErrorCode(err error) string {
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return "INVALID_INPUT"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusLocked:
		return "LOCKED"
	case http.StatusUnprocessableEntity:
		return "VALIDATION_FAILED"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
