package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-graph/internal/apperror"
	"social-graph/internal/storage"
)

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) UploadObject(_ context.Context, body io.Reader, opts storage.UploadOptions) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[opts.Key] = data
	return storage.Location(opts.Bucket, opts.Key), nil
}

func (s *fakeStorage) DeletePrefix(_ context.Context, _, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
		}
	}
	s.deleted = append(s.deleted, prefix)
	return nil
}

func (s *fakeStorage) GetObjectURL(_ context.Context, bucket, key string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://%s.example/%s?ttl=%d", bucket, key, int(expires.Seconds())), nil
}

func newImageService(f *fixture, store storage.Service) ProfileImageService {
	return NewProfileImageService(f.users, store, ProfileImageConfig{
		Bucket:    "media",
		KeyPrefix: "profile-images/",
		URLTTL:    time.Minute,
	}, f.locks, f.logger)
}

func TestProfileImage_UploadAndURL(t *testing.T) {
	f := newFixture(t)
	store := newFakeStorage()
	svc := newImageService(f, store)
	ctx := context.Background()
	alice := f.addUser(t, "alice")

	user, err := svc.Upload(ctx, alice.ID, strings.NewReader("png-bytes"), "image/png; charset=binary")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(user.ProfileImage, "s3://media/profile-images/"+alice.ID+"/"))
	assert.True(t, strings.HasSuffix(user.ProfileImage, ".png"))
	assert.Empty(t, user.PasswordHash)
	assert.Len(t, store.objects, 1)

	url, err := svc.URL(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://media.example/profile-images/"+alice.ID+"/"))
	assert.True(t, strings.HasSuffix(url, "?ttl=60"))

	require.NoError(t, svc.Purge(ctx, alice.ID))
	assert.Empty(t, store.objects)
	assert.Equal(t, []string{"profile-images/" + alice.ID + "/"}, store.deleted)
}

func TestProfileImage_RejectsNonImages(t *testing.T) {
	f := newFixture(t)
	store := newFakeStorage()
	alice := f.addUser(t, "alice")

	_, err := newImageService(f, store).Upload(context.Background(), alice.ID, strings.NewReader("x"), "text/plain")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Empty(t, store.objects)
}

func TestProfileImage_URLCases(t *testing.T) {
	f := newFixture(t)
	svc := newImageService(f, newFakeStorage())
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	_, err := svc.URL(ctx, alice.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = svc.URL(ctx, "bad-id")
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))

	_, err = svc.URL(ctx, uuid.NewString())
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = svc.Upload(ctx, bob.ID, strings.NewReader("img"), "image/jpeg")
	require.NoError(t, err)
	bobImage := f.reload(t, bob.ID).ProfileImage

	// stored values outside the user's own upload prefix are never served
	for _, stored := range []string{
		"https://evil.example/phish",
		"s3://media/private/backup.tar",
		"s3://other-bucket/profile-images/" + alice.ID + "/a.png",
		bobImage,
	} {
		alice.ProfileImage = stored
		require.NoError(t, f.users.Update(ctx, alice))
		_, err = svc.URL(ctx, alice.ID)
		assert.True(t, errors.Is(err, apperror.ErrNotFound), stored)
	}

	url, err := svc.URL(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://media.example/profile-images/"+bob.ID+"/"))
}

func TestProfileImage_UnknownUser(t *testing.T) {
	f := newFixture(t)
	store := newFakeStorage()

	_, err := newImageService(f, store).Upload(context.Background(), uuid.NewString(), strings.NewReader("x"), "image/jpeg")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.Empty(t, store.objects)
}
