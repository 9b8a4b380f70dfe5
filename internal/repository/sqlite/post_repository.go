package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-graph/internal/apperror"
	"social-graph/internal/domain"
	"social-graph/internal/repository"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	description TEXT NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);
`

type PostRepository struct {
	db dbtx
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

var _ repository.PostRepository = (*PostRepository)(nil)

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return storeError("create posts table", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	if _, err := r.db.ExecContext(ctx, `
INSERT INTO posts (id, user_id, description, image, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.UserID,
		post.Description,
		post.Image,
		post.CreatedAt,
		post.UpdatedAt,
	); err != nil {
		return storeError("insert post", err)
	}
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, description, image, created_at, updated_at
FROM posts
WHERE id = ?`,
		id,
	).Scan(
		&post.ID,
		&post.UserID,
		&post.Description,
		&post.Image,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Post not found.")
		}
		return nil, storeError("scan post", err)
	}
	post.CreatedAt = post.CreatedAt.UTC()
	post.UpdatedAt = post.UpdatedAt.UTC()

	owner, err := scanUser(r.db.QueryRowContext(ctx, selectUser+`
WHERE id = ?`,
		post.UserID,
	))
	switch {
	case err == nil:
		post.Owner = owner.Sanitized()
	case errors.Is(err, apperror.ErrNotFound):
	default:
		return nil, err
	}
	return &post, nil
}
