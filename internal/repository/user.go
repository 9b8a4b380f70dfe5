package repository

import (
	"context"

	"social-graph/internal/domain"
)

// UserRepository defines persistence operations for User documents.
//
// Implementations return apperror.ErrNotFound for missing users,
// apperror.ErrConflict for uniqueness violations and
// apperror.ErrStoreUnavailable for timeouts and lost connections.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	// WithinTx runs fn against a repository bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, users UserRepository) error) error
}
