// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/thrivelabs/thrive/internal/domain"
)

// Repository defines the interface for persisting sessions and snapshots.
type Repository interface {
	// GetSession retrieves the live session for a user. Returns (nil, nil)
	// when the user has no stored session yet.
	GetSession(ctx context.Context, userID string) (*domain.Session, error)

	// SaveSession creates or replaces the live session for a user.
	SaveSession(ctx context.Context, userID string, session *domain.Session) error

	// AppendSnapshot appends a saved-session snapshot for a user. Snapshots
	// are append-only and never hard-deleted.
	AppendSnapshot(ctx context.Context, userID string, snap *domain.Snapshot) error

	// ListSnapshots returns the most recent limit snapshots for a user in
	// chronological order (oldest first). limit <= 0 returns all.
	ListSnapshots(ctx context.Context, userID string, limit int) ([]*domain.Snapshot, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
