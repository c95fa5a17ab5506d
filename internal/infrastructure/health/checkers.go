package health

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/phone-confirmation/internal/core/ports"
	"github.com/avatarctic/phone-confirmation/internal/infrastructure/db"
)

// probe adapts a named check function to ports.HealthChecker.
type probe struct {
	name  string
	check func(ctx context.Context) error
}

func (p probe) Name() string                    { return p.name }
func (p probe) Check(ctx context.Context) error { return p.check(ctx) }

// NewPostgresChecker pings the identity database.
func NewPostgresChecker(database *db.Database) ports.HealthChecker {
	return probe{name: "postgres", check: database.DB.PingContext}
}

// NewRedisChecker pings the cache and rate limit backend.
func NewRedisChecker(client redis.Cmdable) ports.HealthChecker {
	return probe{name: "redis", check: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

// Checkers returns the probes for every configured dependency.
func Checkers(database *db.Database, client redis.Cmdable) []ports.HealthChecker {
	var out []ports.HealthChecker
	if database != nil {
		out = append(out, NewPostgresChecker(database))
	}
	if client != nil {
		out = append(out, NewRedisChecker(client))
	}
	return out
}
