package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-graph/internal/apperror"
	"social-graph/internal/domain"
	"social-graph/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	profile_img TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	followings TEXT NOT NULL DEFAULT '[]',
	followers TEXT NOT NULL DEFAULT '[]',
	bookmarked_posts TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const selectUser = `
SELECT id, username, email, password_hash, profile_img, bio, followings, followers, bookmarked_posts, created_at, updated_at
FROM users`

// UserRepository stores users as documents whose id sets are JSON arrays.
type UserRepository struct {
	db   dbtx
	conn *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, conn: db}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return storeError("create users table", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	followings, followers, bookmarks, err := encodeSets(user)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO users (id, username, email, password_hash, profile_img, bio, followings, followers, bookmarked_posts, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.ProfileImage,
		user.Bio,
		followings,
		followers,
		bookmarks,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			return conflict
		}
		return storeError("insert user", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`
WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`
WHERE email = ?`,
		email,
	)
	return scanUser(row)
}

// List returns every user in insertion order.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+`
ORDER BY rowid ASC`)
	if err != nil {
		return nil, storeError("query users", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate users", err)
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	followings, followers, bookmarks, err := encodeSets(user)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET username=?, email=?, password_hash=?, profile_img=?, bio=?, followings=?, followers=?, bookmarked_posts=?, updated_at=?
WHERE id=?`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.ProfileImage,
		user.Bio,
		followings,
		followers,
		bookmarks,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			return conflict
		}
		return storeError("update user", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return storeError("user update rows affected", err)
	}
	if aff == 0 {
		return apperror.NotFound("User not found.")
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return storeError("delete user", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return storeError("user delete rows affected", err)
	}
	if aff == 0 {
		return apperror.NotFound("User not found.")
	}
	return nil
}

// WithinTx runs fn inside a transaction. Calls on a repository that is
// already bound to a transaction reuse it.
func (r *UserRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, users repository.UserRepository) error) error {
	if _, inTx := r.db.(*sql.Tx); inTx {
		return fn(ctx, r)
	}
	return withTx(ctx, r.conn, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &UserRepository{db: tx, conn: r.conn})
	})
}

func encodeSets(user *domain.User) (followings, followers, bookmarks string, err error) {
	if followings, err = encodeIDs(user.Followings); err != nil {
		return "", "", "", fmt.Errorf("encode followings: %w", err)
	}
	if followers, err = encodeIDs(user.Followers); err != nil {
		return "", "", "", fmt.Errorf("encode followers: %w", err)
	}
	if bookmarks, err = encodeIDs(user.BookmarkedPosts); err != nil {
		return "", "", "", fmt.Errorf("encode bookmarks: %w", err)
	}
	return followings, followers, bookmarks, nil
}

func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeIDs(raw string) ([]string, error) {
	ids := []string{}
	if strings.TrimSpace(raw) == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// uniqueViolation maps a UNIQUE constraint failure to a conflict error.
func uniqueViolation(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique") {
		return nil
	}
	switch {
	case strings.Contains(msg, "users.email"):
		return apperror.Wrap(err, apperror.CodeConflict, "Email is already registered.")
	case strings.Contains(msg, "users.username"):
		return apperror.Wrap(err, apperror.CodeConflict, "Username is already taken.")
	default:
		return apperror.Wrap(err, apperror.CodeConflict, "Resource already exists.")
	}
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user                             domain.User
		followings, followers, bookmarks string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.ProfileImage,
		&user.Bio,
		&followings,
		&followers,
		&bookmarks,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User not found.")
		}
		return nil, storeError("scan user", err)
	}

	var err error
	if user.Followings, err = decodeIDs(followings); err != nil {
		return nil, fmt.Errorf("decode followings of %s: %w", user.ID, err)
	}
	if user.Followers, err = decodeIDs(followers); err != nil {
		return nil, fmt.Errorf("decode followers of %s: %w", user.ID, err)
	}
	if user.BookmarkedPosts, err = decodeIDs(bookmarks); err != nil {
		return nil, fmt.Errorf("decode bookmarks of %s: %w", user.ID, err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}
