package ports

import (
	"context"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
)

// NotificationDispatcher delivers a rendered message to a phone number.
// Transport failures are returned unchanged; implementations do not retry.
type NotificationDispatcher interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// MessageRenderer renders the confirmation message body for an identity and raw token.
type MessageRenderer interface {
	RenderConfirmation(ident *identity.Identity, token string) (string, error)
}
