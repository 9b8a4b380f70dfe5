// Package cache defines the user cache consulted in front of the identity store.
package cache

import (
	"context"
	"errors"

	"social-graph/internal/domain"
)

// ErrMiss is returned by UserCache.Get when no entry exists.
var ErrMiss = errors.New("cache: miss")

// UserCache stores user documents by id.
//
// Every Invalidate bumps a per-user generation. A reader that misses takes
// the generation with Generation before loading from the store and fills
// with SetIfGeneration, which stores nothing when a write invalidated the
// user in between.
type UserCache interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	Generation(ctx context.Context, id string) (int64, error)
	// SetIfGeneration reports whether user was stored.
	SetIfGeneration(ctx context.Context, user *domain.User, generation int64) (bool, error)
	Invalidate(ctx context.Context, ids ...string) error
}
