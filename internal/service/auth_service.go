package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"social-graph/internal/apperror"
	"social-graph/internal/domain"
	"social-graph/internal/repository"
)

// MinPasswordLength is the shortest password accepted at registration and update.
const MinPasswordLength = 6

var (
	// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = apperror.Unauthorized("Invalid credentials.")
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// TokenIssuer issues bearer tokens bound to a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// AuthResult is the sanitized user together with a freshly issued token.
type AuthResult struct {
	User  *domain.User
	Token string
}

// AuthService describes registration and login.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

type authService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewAuthService(users repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer) AuthService {
	return &authService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

func (s *authService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" {
		return nil, apperror.Validation("Username, email, and password are required.")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperror.Validation(fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength))
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.Conflict("Email is already registered.")
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:              uuid.NewString(),
		Username:        username,
		Email:           email,
		PasswordHash:    digest,
		Followings:      []string{},
		Followers:       []string{},
		BookmarkedPosts: []string{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.Validation("Email and password are required.")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *authService) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: user.Sanitized(), Token: token}, nil
}
