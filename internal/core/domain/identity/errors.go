package identity

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a user-facing confirmation failure.
type ErrorKind string

const (
	ErrKindNotFound          ErrorKind = "not_found"
	ErrKindBlank             ErrorKind = "blank"
	ErrKindNoPhoneAssociated ErrorKind = "no_phone_associated"
	ErrKindAlreadyConfirmed  ErrorKind = "already_confirmed"
	ErrKindPeriodExpired     ErrorKind = "confirmation_period_expired"
	ErrKindValidationFailed  ErrorKind = "validation_failed"
)

var defaultMessages = map[ErrorKind]string{
	ErrKindNotFound:          "not found",
	ErrKindBlank:             "can't be blank",
	ErrKindNoPhoneAssociated: "no phone number associated",
	ErrKindAlreadyConfirmed:  "was already confirmed, please try signing in",
	ErrKindPeriodExpired:     "needs to be confirmed within the confirmation period, please request a new one",
	ErrKindValidationFailed:  "is invalid",
}

// FieldError is a failure attached to a single field of an identity.
type FieldError struct {
	Field   string    `json:"field"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewFieldError builds a FieldError with the default message for kind.
func NewFieldError(field string, kind ErrorKind) *FieldError {
	return &FieldError{Field: field, Kind: kind, Message: defaultMessages[kind]}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// FieldErrors is the ordered list of failures recorded on an identity.
type FieldErrors []FieldError

// Add records a failure of kind on field.
func (fe *FieldErrors) Add(field string, kind ErrorKind) {
	*fe = append(*fe, *NewFieldError(field, kind))
}

// Append records an existing field error.
func (fe *FieldErrors) Append(err *FieldError) {
	*fe = append(*fe, *err)
}

// Has reports whether any recorded error is of kind.
func (fe FieldErrors) Has(kind ErrorKind) bool {
	for _, e := range fe {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// On returns the errors recorded for field.
func (fe FieldErrors) On(field string) []FieldError {
	var out []FieldError
	for _, e := range fe {
		if e.Field == field {
			out = append(out, e)
		}
	}
	return out
}

// Empty reports whether no error was recorded.
func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for i := range fe {
		parts = append(parts, fe[i].Error())
	}
	return strings.Join(parts, "; ")
}
