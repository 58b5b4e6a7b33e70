// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/phishplay/phishplay/internal/domain"
	"github.com/phishplay/phishplay/internal/telemetry"
)

// Repository defines the interface for persisting users, telemetry events,
// and completed phase summaries.
type Repository interface {
	// GetUser retrieves a user by their user ID. Returns nil when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// UpdateProfile updates the user's training preferences.
	UpdateProfile(ctx context.Context, userID string, theme domain.Theme, difficulty domain.Difficulty, phase domain.Phase) error

	// AddPoints adds earned points to the user's running total.
	AddPoints(ctx context.Context, userID string, points int) error

	// SaveEvent persists one telemetry event.
	SaveEvent(ctx context.Context, ev telemetry.Event) error

	// ListEvents returns the most recent events for a user, newest first.
	ListEvents(ctx context.Context, userID string, limit int) ([]telemetry.Event, error)

	// SavePhaseSummary records the aggregate of a completed session for the
	// given measurement phase, replacing any previous summary for it.
	SavePhaseSummary(ctx context.Context, userID string, phase domain.Phase, summary domain.PhaseSummary) error

	// GetPhaseSummary retrieves the summary for a phase. Returns nil when
	// the user has not completed a session in that phase.
	GetPhaseSummary(ctx context.Context, userID string, phase domain.Phase) (*domain.PhaseSummary, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
