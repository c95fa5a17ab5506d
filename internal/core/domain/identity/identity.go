package identity

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the confirmable entity. The confirmation core only mutates the phone and
// confirmation columns; everything else belongs to the host application.
type Identity struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	Phone              string     `json:"phone" db:"phone"`
	UnconfirmedPhone   *string    `json:"unconfirmed_phone,omitempty" db:"unconfirmed_phone"`
	ConfirmationToken  *string    `json:"-" db:"confirmation_token"`
	ConfirmationSentAt *time.Time `json:"confirmation_sent_at,omitempty" db:"confirmation_sent_at"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`

	// Errors holds field-level failures of the last operation. Never persisted.
	Errors FieldErrors `json:"errors,omitempty" db:"-"`
}

// Unique field names understood by the identity store.
const (
	FieldID                = "id"
	FieldPhone             = "phone"
	FieldUnconfirmedPhone  = "unconfirmed_phone"
	FieldConfirmationToken = "confirmation_token"
)

// LookupFields are the attributes a resend request may carry to locate an identity.
var LookupFields = []string{FieldPhone, FieldID}

// IsLookupField reports whether field can be configured as a resend lookup key.
func IsLookupField(field string) bool {
	for _, f := range LookupFields {
		if f == field {
			return true
		}
	}
	return false
}

// IsPersisted reports whether the identity was loaded from (or written to) the store.
func (i *Identity) IsPersisted() bool {
	return i.ID != uuid.Nil
}

// IsConfirmed reports whether confirmation has succeeded at least once.
func (i *Identity) IsConfirmed() bool {
	return i.ConfirmedAt != nil
}

// HasPendingPhoneChange reports whether a phone change awaits reconfirmation.
func (i *Identity) HasPendingPhoneChange() bool {
	return i.UnconfirmedPhone != nil && *i.UnconfirmedPhone != ""
}

// HasOutstandingToken reports whether a confirmation token has been issued and not yet consumed.
func (i *Identity) HasOutstandingToken() bool {
	return i.ConfirmationToken != nil && *i.ConfirmationToken != ""
}

// NotificationTarget is the number a confirmation message goes to: the pending phone when a
// change is outstanding, the current phone otherwise.
func (i *Identity) NotificationTarget() string {
	if i.HasPendingPhoneChange() {
		return *i.UnconfirmedPhone
	}
	return i.Phone
}

// Attribute returns the value of a lookup field by its store name.
func (i *Identity) Attribute(field string) (string, bool) {
	switch field {
	case FieldID:
		if !i.IsPersisted() {
			return "", false
		}
		return i.ID.String(), true
	case FieldPhone:
		return i.Phone, true
	case FieldUnconfirmedPhone:
		if i.UnconfirmedPhone == nil {
			return "", false
		}
		return *i.UnconfirmedPhone, true
	case FieldConfirmationToken:
		if i.ConfirmationToken == nil {
			return "", false
		}
		return *i.ConfirmationToken, true
	default:
		return "", false
	}
}

// State is the confirmation state of an identity at a point in time.
type State string

const (
	StateUnconfirmed           State = "unconfirmed"
	StateTokenPending          State = "token_pending"
	StateTokenExpired          State = "token_expired"
	StateConfirmed             State = "confirmed"
	StateReconfirmationPending State = "reconfirmation_pending"
)

func (s State) String() string {
	return string(s)
}

// RegisterRequest represents the request to create a new identity
type RegisterRequest struct {
	Phone            string `json:"phone" validate:"required,e164"`
	SkipConfirmation bool   `json:"skip_confirmation"`
	SkipNotification bool   `json:"skip_notification"`
}

// ChangePhoneRequest represents the request to change an identity's phone number
type ChangePhoneRequest struct {
	Phone              string `json:"phone" validate:"required,e164"`
	SkipReconfirmation bool   `json:"skip_reconfirmation"`
	SkipNotification   bool   `json:"skip_notification"`
}

// RequestConfirmationRequest carries the lookup attributes for a resend request
type RequestConfirmationRequest struct {
	Phone string `json:"phone" validate:"omitempty,e164"`
	ID    string `json:"id" validate:"omitempty,uuid"`
}

// ConfirmRequest represents the request to confirm a phone number
type ConfirmRequest struct {
	Token string `json:"token" query:"token" form:"token"`
}

// StatusResponse is the externally visible confirmation status of an identity
type StatusResponse struct {
	ID                 uuid.UUID `json:"id"`
	State              State     `json:"state"`
	Confirmed          bool      `json:"confirmed"`
	Active             bool      `json:"active"`
	PhoneChangePending bool      `json:"phone_change_pending"`
	InactiveMessage    string    `json:"inactive_message,omitempty"`
}
