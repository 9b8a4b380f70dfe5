package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"social-graph/internal/auth"
	"social-graph/internal/domain"
	"social-graph/internal/repository/sqlite"
)

type fixture struct {
	users  *sqlite.UserRepository
	posts  *sqlite.PostRepository
	hasher *auth.BcryptHasher
	tokens *auth.JWTService
	locks  *KeyLocks
	logger *logrus.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	users := sqlite.NewUserRepository(db)
	posts := sqlite.NewPostRepository(db)
	require.NoError(t, users.Init(ctx))
	require.NoError(t, posts.Init(ctx))

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return &fixture{
		users:  users,
		posts:  posts,
		hasher: auth.NewBcryptHasher(bcrypt.MinCost),
		tokens: auth.NewJWTService("test-secret", time.Hour),
		locks:  NewKeyLocks(),
		logger: logger,
	}
}

func (f *fixture) graph() GraphService {
	return NewGraphService(f.users, f.posts, f.locks, f.logger)
}

func (f *fixture) userService() UserService {
	return NewUserService(f.users, f.hasher, f.locks, f.logger)
}

func (f *fixture) authService() AuthService {
	return NewAuthService(f.users, f.hasher, f.tokens)
}

func (f *fixture) addUser(t *testing.T, name string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           uuid.NewString(),
		Username:     name,
		Email:        name + "@x.com",
		PasswordHash: "digest",
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) addPost(t *testing.T, owner *domain.User) *domain.Post {
	t.Helper()
	p := &domain.Post{ID: uuid.NewString(), UserID: owner.ID, Description: "post by " + owner.Username}
	require.NoError(t, f.posts.Create(context.Background(), p))
	return p
}

func (f *fixture) reload(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}
