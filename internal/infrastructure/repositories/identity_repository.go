package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
	"github.com/avatarctic/phone-confirmation/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const identityColumns = `id, phone, unconfirmed_phone, confirmation_token, confirmation_sent_at,
	confirmed_at, created_at, updated_at`

// lookupColumns whitelists the fields usable in FindByUniqueField / ExistsWithValue.
var lookupColumns = map[string]string{
	identity.FieldID:                "id",
	identity.FieldPhone:             "phone",
	identity.FieldUnconfirmedPhone:  "unconfirmed_phone",
	identity.FieldConfirmationToken: "confirmation_token",
}

// IdentityRepository implements ports.IdentityStore on postgres
type IdentityRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(database *db.Database, logger *logrus.Logger) *IdentityRepository {
	return &IdentityRepository{
		db:     database,
		logger: logger,
	}
}

var _ ports.IdentityStore = (*IdentityRepository)(nil)

// Create inserts a new identity
func (r *IdentityRepository) Create(ctx context.Context, i *identity.Identity) error {
	// postgres keeps microseconds; truncate so the optimistic check in Save matches
	i.CreatedAt = i.CreatedAt.UTC().Truncate(time.Microsecond)
	i.UpdatedAt = i.UpdatedAt.UTC().Truncate(time.Microsecond)

	query := `
		INSERT INTO identities (id, phone, unconfirmed_phone, confirmation_token, confirmation_sent_at, confirmed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.DB.ExecContext(ctx, query,
		i.ID, i.Phone, i.UnconfirmedPhone, i.ConfirmationToken, i.ConfirmationSentAt,
		i.ConfirmedAt, i.CreatedAt, i.UpdatedAt)
	if err != nil {
		if fe := fieldErrorFromViolation(err); fe != nil {
			return fe
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"identity_id": i.ID}).WithError(err).Error("db: failed to create identity")
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"identity_id": i.ID}).Info("db: identity created")
	}

	return nil
}

// GetByID retrieves an identity by ID
func (r *IdentityRepository) GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	return r.FindByUniqueField(ctx, identity.FieldID, id.String())
}

// FindByUniqueField retrieves the identity whose field equals value
func (r *IdentityRepository) FindByUniqueField(ctx context.Context, field, value string) (*identity.Identity, error) {
	column, ok := lookupColumns[field]
	if !ok {
		return nil, fmt.Errorf("unsupported lookup field %q", field)
	}

	var i identity.Identity
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE %s = $1 LIMIT 1`, identityColumns, column)

	err := r.db.DB.GetContext(ctx, &i, query, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"field": field}).Debug("db: identity not found")
			}
			return nil, ports.ErrIdentityNotFound
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"field": field}).WithError(err).Error("db: failed to find identity")
		}
		return nil, fmt.Errorf("failed to find identity by %s: %w", field, err)
	}

	return &i, nil
}

// ExistsWithValue reports whether any identity has field equal to value
func (r *IdentityRepository) ExistsWithValue(ctx context.Context, field, value string) (bool, error) {
	column, ok := lookupColumns[field]
	if !ok {
		return false, fmt.Errorf("unsupported lookup field %q", field)
	}

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM identities WHERE %s = $1)`, column)
	if err := r.db.DB.GetContext(ctx, &exists, query, value); err != nil {
		return false, fmt.Errorf("failed to probe identities by %s: %w", field, err)
	}
	return exists, nil
}

// Save updates an existing identity. The write only applies when updated_at still matches
// the loaded value, so a concurrent writer's changes are never overwritten.
func (r *IdentityRepository) Save(ctx context.Context, i *identity.Identity, validatePhoneUniqueness bool) error {
	if validatePhoneUniqueness && i.Phone != "" {
		var taken bool
		query := `SELECT EXISTS (SELECT 1 FROM identities WHERE phone = $1 AND id <> $2)`
		if err := r.db.DB.GetContext(ctx, &taken, query, i.Phone, i.ID); err != nil {
			return fmt.Errorf("failed to validate phone uniqueness: %w", err)
		}
		if taken {
			return identity.NewFieldError(identity.FieldPhone, identity.ErrKindValidationFailed)
		}
	}

	updatedAt := time.Now().UTC().Truncate(time.Microsecond)
	query := `
		UPDATE identities
		SET phone = $2, unconfirmed_phone = $3, confirmation_token = $4, confirmation_sent_at = $5,
			confirmed_at = $6, updated_at = $7
		WHERE id = $1 AND updated_at = $8`

	result, err := r.db.DB.ExecContext(ctx, query,
		i.ID, i.Phone, i.UnconfirmedPhone, i.ConfirmationToken, i.ConfirmationSentAt,
		i.ConfirmedAt, updatedAt, i.UpdatedAt)
	if err != nil {
		if fe := fieldErrorFromViolation(err); fe != nil {
			return fe
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"identity_id": i.ID}).WithError(err).Error("db: failed to update identity")
		}
		return fmt.Errorf("failed to update identity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"identity_id": i.ID}).Warn("db: update affected 0 rows - stale or missing identity")
		}
		return ports.ErrStaleIdentity
	}

	i.UpdatedAt = updatedAt
	return nil
}

// fieldErrorFromViolation maps unique index violations to validation field errors.
func fieldErrorFromViolation(err error) *identity.FieldError {
	constraint, ok := db.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(constraint, "confirmation_token"):
		return identity.NewFieldError(identity.FieldConfirmationToken, identity.ErrKindValidationFailed)
	default:
		return identity.NewFieldError(identity.FieldPhone, identity.ErrKindValidationFailed)
	}
}
