package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"social-graph/internal/apperror"
	"social-graph/internal/domain"
	"social-graph/internal/repository"
	"social-graph/internal/storage"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ProfileImageConfig locates profile images in object storage.
type ProfileImageConfig struct {
	Bucket    string
	KeyPrefix string
	URLTTL    time.Duration
}

// ProfileImageService uploads profile images and hands out download URLs.
type ProfileImageService interface {
	Upload(ctx context.Context, callerID string, body io.Reader, contentType string) (*domain.User, error)
	URL(ctx context.Context, userID string) (string, error)
	// Purge removes every stored image of userID.
	Purge(ctx context.Context, userID string) error
}

type profileImageService struct {
	users   repository.UserRepository
	storage storage.Service
	cfg     ProfileImageConfig
	locks   *KeyLocks
	logger  *logrus.Logger
}

func NewProfileImageService(users repository.UserRepository, store storage.Service, cfg ProfileImageConfig, locks *KeyLocks, logger *logrus.Logger) ProfileImageService {
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = 15 * time.Minute
	}
	if locks == nil {
		locks = NewKeyLocks()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &profileImageService{
		users:   users,
		storage: store,
		cfg:     cfg,
		locks:   locks,
		logger:  logger,
	}
}

func (s *profileImageService) userPrefix(userID string) string {
	return path.Join(strings.Trim(s.cfg.KeyPrefix, "/"), userID) + "/"
}

func (s *profileImageService) Upload(ctx context.Context, callerID string, body io.Reader, contentType string) (*domain.User, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := allowedImageTypes[mediaType]
	if !ok {
		return nil, apperror.Validation("Profile image must be a JPEG, PNG, GIF or WebP file.")
	}

	if _, err := s.users.GetByID(ctx, callerID); err != nil {
		return nil, notFoundAs(err, "User not found.")
	}

	key := s.userPrefix(callerID) + uuid.NewString() + ext
	location, err := s.storage.UploadObject(ctx, body, storage.UploadOptions{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		ContentType: mediaType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload profile image: %w", err)
	}

	unlock := s.locks.Lock(callerID)
	defer unlock()

	var updated *domain.User
	err = s.users.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository) error {
		user, err := users.GetByID(ctx, callerID)
		if err != nil {
			return notFoundAs(err, "User not found.")
		}
		user.ProfileImage = location
		if err := users.Update(ctx, user); err != nil {
			return err
		}
		updated = user.Sanitized()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": callerID, "location": location}).Info("profile image uploaded")
	return updated, nil
}

func (s *profileImageService) URL(ctx context.Context, userID string) (string, error) {
	if err := ValidateID(userID, "Invalid user ID format."); err != nil {
		return "", err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", notFoundAs(err, "No such user. Invalid ID!")
	}
	if user.ProfileImage == "" {
		return "", apperror.NotFound("User has no profile image.")
	}

	// only objects this service uploaded for userID are ever presigned
	bucket, key, err := storage.ParseLocation(user.ProfileImage, s.cfg.Bucket)
	if err != nil || !strings.HasPrefix(key, s.userPrefix(userID)) {
		return "", apperror.NotFound("User has no uploaded profile image.")
	}
	return s.storage.GetObjectURL(ctx, bucket, key, s.cfg.URLTTL)
}

func (s *profileImageService) Purge(ctx context.Context, userID string) error {
	return s.storage.DeletePrefix(ctx, s.cfg.Bucket, s.userPrefix(userID))
}
