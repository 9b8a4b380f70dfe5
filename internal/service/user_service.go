package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"social-graph/internal/apperror"
	"social-graph/internal/domain"
	"social-graph/internal/repository"
)

// ProfilePatch lists the user fields a caller may change. Nil fields are
// left untouched.
type ProfilePatch struct {
	Username     *string
	Email        *string
	Bio          *string
	ProfileImage *string
	Password     *string
}

// UserService describes user lookups and self-scoped profile mutation.
type UserService interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListSummaries(ctx context.Context) ([]domain.UserSummary, error)
	Update(ctx context.Context, callerID, targetID string, patch ProfilePatch) (*domain.User, error)
	Delete(ctx context.Context, callerID, targetID string) error
}

type userService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	locks  *KeyLocks
	logger *logrus.Logger
}

func NewUserService(users repository.UserRepository, hasher PasswordHasher, locks *KeyLocks, logger *logrus.Logger) UserService {
	if locks == nil {
		locks = NewKeyLocks()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		users:  users,
		hasher: hasher,
		locks:  locks,
		logger: logger,
	}
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ValidateID(id, "Invalid user ID format."); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "No such user. Invalid ID!")
	}
	return user.Sanitized(), nil
}

func (s *userService) ListSummaries(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperror.NotFound("No users found.")
	}

	summaries := make([]domain.UserSummary, len(users))
	for i := range users {
		summaries[i] = users[i].Summary()
	}
	return summaries, nil
}

func (s *userService) Update(ctx context.Context, callerID, targetID string, patch ProfilePatch) (*domain.User, error) {
	if err := RequireSelf(callerID, targetID, "You can update only your own profile!"); err != nil {
		s.logger.WithField("caller_id", callerID).WithField("target_id", targetID).Warn("unauthorized update attempt")
		return nil, err
	}

	var digest string
	if patch.Password != nil {
		if utf8.RuneCountInString(*patch.Password) < MinPasswordLength {
			return nil, apperror.Validation(fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength))
		}
		hashed, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		digest = hashed
	}

	unlock := s.locks.Lock(callerID)
	defer unlock()

	var updated *domain.User
	err := s.users.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository) error {
		user, err := users.GetByID(ctx, targetID)
		if err != nil {
			return notFoundAs(err, "User not found.")
		}
		if err := applyPatch(user, patch); err != nil {
			return err
		}
		if digest != "" {
			user.PasswordHash = digest
		}
		if err := users.Update(ctx, user); err != nil {
			return err
		}
		updated = user.Sanitized()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", targetID).Info("user updated")
	return updated, nil
}

func applyPatch(user *domain.User, patch ProfilePatch) error {
	if patch.Username != nil {
		v := strings.TrimSpace(*patch.Username)
		if v == "" {
			return apperror.Validation("Username cannot be empty.")
		}
		user.Username = v
	}
	if patch.Email != nil {
		v := strings.TrimSpace(*patch.Email)
		if v == "" {
			return apperror.Validation("Email cannot be empty.")
		}
		user.Email = v
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	if patch.ProfileImage != nil {
		v := strings.TrimSpace(*patch.ProfileImage)
		if err := validateImageURL(v); err != nil {
			return err
		}
		user.ProfileImage = v
	}
	return nil
}

// validateImageURL accepts an empty value or an absolute http(s) URL.
// Object storage locations are only written by the upload endpoint.
func validateImageURL(v string) error {
	if v == "" {
		return nil
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.Validation("Profile image must be an http or https URL.")
	}
	return nil
}

// Delete removes the caller's own document and, in the same transaction,
// the follow edges other users hold towards it. Bookmarks are untouched.
func (s *userService) Delete(ctx context.Context, callerID, targetID string) error {
	if err := RequireSelf(callerID, targetID, "You can delete only your own profile!"); err != nil {
		s.logger.WithField("caller_id", callerID).WithField("target_id", targetID).Warn("unauthorized delete attempt")
		return err
	}

	unlock := s.locks.Lock(callerID)
	defer unlock()

	err := s.users.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository) error {
		user, err := users.GetByID(ctx, targetID)
		if err != nil {
			return notFoundAs(err, "User not found.")
		}

		for _, id := range user.Followings {
			if err := detach(ctx, users, id, func(u *domain.User) {
				u.Followers = domain.RemoveID(u.Followers, targetID)
			}); err != nil {
				return err
			}
		}
		for _, id := range user.Followers {
			if err := detach(ctx, users, id, func(u *domain.User) {
				u.Followings = domain.RemoveID(u.Followings, targetID)
			}); err != nil {
				return err
			}
		}

		return users.Delete(ctx, targetID)
	})
	if err != nil {
		return err
	}

	s.logger.WithField("user_id", targetID).Info("user deleted")
	return nil
}

// detach applies edit to the user with the given id and persists it.
// Users that no longer exist are skipped.
func detach(ctx context.Context, users repository.UserRepository, id string, edit func(*domain.User)) error {
	other, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}
	edit(other)
	return users.Update(ctx, other)
}
