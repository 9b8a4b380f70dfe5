// Package cached decorates a UserRepository with a read-through user cache.
package cached

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"social-graph/internal/cache"
	"social-graph/internal/domain"
	"social-graph/internal/repository"
)

// UserRepository serves GetByID from the cache and invalidates entries on
// every write. Misses are filled only when no write landed since the fill
// started. Cache failures are logged and never fail the operation.
type UserRepository struct {
	repository.UserRepository
	cache  cache.UserCache
	logger *logrus.Logger
}

func NewUserRepository(next repository.UserRepository, c cache.UserCache, logger *logrus.Logger) *UserRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return &UserRepository{UserRepository: next, cache: c, logger: logger}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := r.cache.Get(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		r.logger.WithError(err).WithField("user_id", id).Warn("user cache read failed")
	}

	// the generation is read before the row so a write committed in between
	// makes the fill below a no-op
	gen, genErr := r.cache.Generation(ctx, id)
	if genErr != nil {
		r.logger.WithError(genErr).WithField("user_id", id).Warn("user cache generation read failed")
	}

	user, err = r.UserRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return user, nil
	}
	stored, err := r.cache.SetIfGeneration(ctx, user, gen)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", id).Warn("user cache write failed")
	} else if !stored {
		r.logger.WithField("user_id", id).Debug("user changed during cache fill, entry skipped")
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := r.UserRepository.Update(ctx, user); err != nil {
		return err
	}
	r.invalidate(ctx, user.ID)
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := r.UserRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// WithinTx bypasses the cache for reads inside the transaction and
// invalidates every user written once the transaction has finished.
func (r *UserRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, users repository.UserRepository) error) error {
	touched := &touchedUsers{}
	err := r.UserRepository.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository) error {
		return fn(ctx, &txUserRepository{UserRepository: users, touched: touched})
	})
	r.invalidate(ctx, touched.list()...)
	return err
}

func (r *UserRepository) invalidate(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	if err := r.cache.Invalidate(ctx, ids...); err != nil {
		r.logger.WithError(err).WithField("user_ids", ids).Warn("user cache invalidation failed")
	}
}

type touchedUsers struct {
	mu  sync.Mutex
	ids []string
}

func (t *touchedUsers) add(id string) {
	t.mu.Lock()
	t.ids = domain.AddID(t.ids, id)
	t.mu.Unlock()
}

func (t *touchedUsers) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.ids...)
}

// txUserRepository records the ids written inside a transaction.
type txUserRepository struct {
	repository.UserRepository
	touched *touchedUsers
}

func (r *txUserRepository) Update(ctx context.Context, user *domain.User) error {
	r.touched.add(user.ID)
	return r.UserRepository.Update(ctx, user)
}

func (r *txUserRepository) Delete(ctx context.Context, id string) error {
	r.touched.add(id)
	return r.UserRepository.Delete(ctx, id)
}

func (r *txUserRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, users repository.UserRepository) error) error {
	return r.UserRepository.WithinTx(ctx, func(ctx context.Context, _ repository.UserRepository) error {
		return fn(ctx, r)
	})
}
