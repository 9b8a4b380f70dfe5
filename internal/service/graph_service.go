package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"social-graph/internal/apperror"
	"social-graph/internal/domain"
	"social-graph/internal/repository"
)

// MaxSuggestions caps the non-followed suggestion list.
const MaxSuggestions = 5

// FollowResult reports the relationship after a follow toggle.
type FollowResult struct {
	Following     bool
	Target        *domain.User
	FollowerCount int
}

// BookmarkResult reports the bookmark state after a toggle.
type BookmarkResult struct {
	Bookmarked bool
	User       *domain.User
	Post       *domain.Post
}

// GraphService maintains follow edges and bookmarks.
type GraphService interface {
	ToggleFollow(ctx context.Context, callerID, targetID string) (*FollowResult, error)
	Friends(ctx context.Context, callerID string) ([]domain.User, error)
	NonFollowed(ctx context.Context, callerID string) ([]domain.User, error)
	ToggleBookmark(ctx context.Context, callerID, postID string) (*BookmarkResult, error)
}

type graphService struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	locks  *KeyLocks
	logger *logrus.Logger
}

func NewGraphService(users repository.UserRepository, posts repository.PostRepository, locks *KeyLocks, logger *logrus.Logger) GraphService {
	if locks == nil {
		locks = NewKeyLocks()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &graphService{
		users:  users,
		posts:  posts,
		locks:  locks,
		logger: logger,
	}
}

// ToggleFollow flips the follow edge from caller to target. Both user
// documents are rewritten in one transaction while holding both user locks.
func (s *graphService) ToggleFollow(ctx context.Context, callerID, targetID string) (*FollowResult, error) {
	if callerID == targetID {
		return nil, apperror.BadRequest("You can't follow yourself.")
	}

	unlock := s.locks.Lock(callerID, targetID)
	defer unlock()

	var result FollowResult
	err := s.users.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository) error {
		caller, err := users.GetByID(ctx, callerID)
		if err != nil {
			return notFoundAs(err, "User(s) not found.")
		}
		target, err := users.GetByID(ctx, targetID)
		if err != nil {
			return notFoundAs(err, "User(s) not found.")
		}

		if caller.IsFollowing(targetID) {
			caller.Followings = domain.RemoveID(caller.Followings, targetID)
			target.Followers = domain.RemoveID(target.Followers, callerID)
		} else {
			caller.Followings = domain.AddID(caller.Followings, targetID)
			target.Followers = domain.AddID(target.Followers, callerID)
			result.Following = true
		}

		if err := users.Update(ctx, caller); err != nil {
			return err
		}
		if err := users.Update(ctx, target); err != nil {
			return err
		}

		result.Target = target.Sanitized()
		result.FollowerCount = len(target.Followers)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"caller_id": callerID,
		"target_id": targetID,
		"following": result.Following,
	}).Info("follow toggled")
	return &result, nil
}

// Friends resolves the caller's followings in order. Ids that no longer
// resolve to a user are skipped.
func (s *graphService) Friends(ctx context.Context, callerID string) ([]domain.User, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, notFoundAs(err, "Current user not found.")
	}

	friends := make([]domain.User, 0, len(caller.Followings))
	for _, id := range caller.Followings {
		friend, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				s.logger.WithFields(logrus.Fields{
					"user_id":   callerID,
					"friend_id": id,
				}).Warn("friend not found")
				continue
			}
			return nil, err
		}
		friends = append(friends, *friend.Sanitized())
	}
	return friends, nil
}

// NonFollowed returns up to MaxSuggestions users the caller does not follow,
// in store order.
func (s *graphService) NonFollowed(ctx context.Context, callerID string) ([]domain.User, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, notFoundAs(err, "Current user not found.")
	}

	all, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	suggestions := make([]domain.User, 0, MaxSuggestions)
	for i := range all {
		if len(suggestions) == MaxSuggestions {
			break
		}
		if all[i].ID == caller.ID || caller.IsFollowing(all[i].ID) {
			continue
		}
		suggestions = append(suggestions, *all[i].Sanitized())
	}
	return suggestions, nil
}

// ToggleBookmark flips postID in the caller's bookmarks. Only the caller's
// document is written.
func (s *graphService) ToggleBookmark(ctx context.Context, callerID, postID string) (*BookmarkResult, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, notFoundAs(err, "Post not found.")
	}

	unlock := s.locks.Lock(callerID)
	defer unlock()

	var result BookmarkResult
	err = s.users.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository) error {
		user, err := users.GetByID(ctx, callerID)
		if err != nil {
			return notFoundAs(err, "User not found.")
		}

		if user.HasBookmarked(postID) {
			user.BookmarkedPosts = domain.RemoveID(user.BookmarkedPosts, postID)
		} else {
			user.BookmarkedPosts = domain.AddID(user.BookmarkedPosts, postID)
			result.Bookmarked = true
		}

		if err := users.Update(ctx, user); err != nil {
			return err
		}
		result.User = user.Sanitized()
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Post = post
	s.logger.WithFields(logrus.Fields{
		"user_id":    callerID,
		"post_id":    postID,
		"bookmarked": result.Bookmarked,
	}).Info("bookmark toggled")
	return &result, nil
}

// notFoundAs replaces the message of a not-found error and passes other
// errors through.
func notFoundAs(err error, message string) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.Wrap(err, apperror.CodeNotFound, message)
	}
	return err
}
