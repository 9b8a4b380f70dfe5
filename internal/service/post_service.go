package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"social-graph/internal/apperror"
	"social-graph/internal/domain"
	"social-graph/internal/repository"
)

// PostService creates and fetches posts.
type PostService interface {
	Create(ctx context.Context, callerID, description, image string) (*domain.Post, error)
	Get(ctx context.Context, postID string) (*domain.Post, error)
}

type postService struct {
	posts repository.PostRepository
	users repository.UserRepository
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository) PostService {
	return &postService{posts: posts, users: users}
}

func (s *postService) Create(ctx context.Context, callerID, description, image string) (*domain.Post, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperror.Validation("Description is required.")
	}

	owner, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, notFoundAs(err, "User not found.")
	}

	post := &domain.Post{
		ID:          uuid.NewString(),
		UserID:      owner.ID,
		Owner:       owner.Sanitized(),
		Description: description,
		Image:       strings.TrimSpace(image),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Get(ctx context.Context, postID string) (*domain.Post, error) {
	if err := ValidateID(postID, "Invalid post ID format."); err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, notFoundAs(err, "Post not found.")
	}
	return post, nil
}
