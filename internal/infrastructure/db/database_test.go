package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/phone-confirmation/configs"
)

func TestUniqueViolation(t *testing.T) {
	constraint, ok := UniqueViolation(fmt.Errorf("exec: %w", &pq.Error{Code: "23505", Constraint: "identities_phone_key"}))
	assert.True(t, ok)
	assert.Equal(t, "identities_phone_key", constraint)

	_, ok = UniqueViolation(&pq.Error{Code: "23502"})
	assert.False(t, ok)

	_, ok = UniqueViolation(errors.New("boom"))
	assert.False(t, ok)
}

func TestApplyPool(t *testing.T) {
	dbx, err := sqlx.Open(driverName, "host=localhost dbname=phone_confirmation sslmode=disable")
	require.NoError(t, err)
	defer dbx.Close()

	applyPool(dbx, &configs.DatabaseConfig{MaxOpenConns: 7})

	assert.Equal(t, 7, dbx.Stats().MaxOpenConnections)
}
