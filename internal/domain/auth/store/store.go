// Package store keeps the volatile per-user session state consulted on every
// token verification: last activity time and whether the current session has
// passed an MFA challenge. The state is keyed by user ID, so a fresh sign-in
// replaces whatever session the user had before.
package store

import (
	"context"
	"time"
)

// State is the live session state for one signed-in user.
type State struct {
	UserID             uint      `json:"user_id"`
	LastActivity       time.Time `json:"last_activity"`
	PassedMFAChallenge bool      `json:"passed_mfa_challenge"`
}

// Store defines the behaviour required by the session authority.
type Store interface {
	Put(ctx context.Context, state State) error
	// Get returns the state for userID. The second result is false when no
	// state exists.
	Get(ctx context.Context, userID uint) (State, bool, error)
	Remove(ctx context.Context, userID uint) error
	// Count returns the number of live sessions.
	Count(ctx context.Context) (int, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters. TTL bounds how
// long an untouched state survives; it should comfortably exceed the
// inactivity budget since staleness is judged by the authority, not here.
type Config struct {
	Driver string
	TTL    time.Duration
	Memory *MemoryConfig
	Redis  *RedisConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
