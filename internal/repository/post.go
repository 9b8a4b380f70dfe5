package repository

import (
	"context"

	"social-graph/internal/domain"
)

// PostRepository defines persistence operations for Post entities.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) error
	// GetByID returns the post with its Owner expanded. Owner is nil when
	// the owning user no longer exists.
	GetByID(ctx context.Context, id string) (*domain.Post, error)
}
