package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-graph/internal/apperror"
)

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.authService().Register(ctx, "  alice ", " alice@x.com ", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "alice", res.User.Username)
	assert.Equal(t, "alice@x.com", res.User.Email)
	assert.Empty(t, res.User.PasswordHash)

	uid, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, uid)

	stored := f.reload(t, res.User.ID)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, f.hasher.Verify("secret1", stored.PasswordHash))
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	svc := f.authService()
	ctx := context.Background()

	cases := []struct{ username, email, password string }{
		{"", "a@x.com", "secret1"},
		{"alice", " ", "secret1"},
		{"alice", "a@x.com", ""},
		{"alice", "a@x.com", "12345"},
	}
	for _, tc := range cases {
		_, err := svc.Register(ctx, tc.username, tc.email, tc.password)
		assert.True(t, errors.Is(err, apperror.ErrValidation), "%+v: %v", tc, err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	svc := f.authService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@x.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice2", "alice@x.com", "secret1")
	require.True(t, errors.Is(err, apperror.ErrConflict))
	assert.Equal(t, "Email is already registered.", apperror.PublicMessage(err))
}

func TestRegister_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	svc := f.authService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@x.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other@x.com", "secret1")
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	svc := f.authService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "alice@x.com", "secret1")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "alice@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.Empty(t, res.User.PasswordHash)
	assert.NotEmpty(t, res.Token)

	_, err = svc.Login(ctx, "alice@x.com", "wrong-password")
	require.True(t, errors.Is(err, apperror.ErrUnauthorized))
	wrongPassword := apperror.PublicMessage(err)

	_, err = svc.Login(ctx, "nobody@x.com", "secret1")
	require.True(t, errors.Is(err, apperror.ErrUnauthorized))
	assert.Equal(t, wrongPassword, apperror.PublicMessage(err))
	assert.Equal(t, "Invalid credentials.", wrongPassword)

	_, err = svc.Login(ctx, "", "secret1")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestRegister_PasswordTooLong(t *testing.T) {
	f := newFixture(t)

	_, err := f.authService().Register(context.Background(), "alice", "alice@x.com", strings.Repeat("p", 80))
	require.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Equal(t, "Password must be at most 72 bytes long.", apperror.PublicMessage(err))

	_, err = f.users.GetByEmail(context.Background(), "alice@x.com")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
