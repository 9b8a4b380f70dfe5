package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"social-graph/internal/apperror"
	"social-graph/internal/domain"
)

// UserResponse is the public JSON form of a user. It has no password field.
type UserResponse struct {
	ID              string   `json:"_id"`
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	ProfileImage    string   `json:"profileImg"`
	Bio             string   `json:"bio"`
	Followings      []string `json:"followings"`
	Followers       []string `json:"followers"`
	BookmarkedPosts []string `json:"bookmarkedPosts"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
}

type UserSummaryResponse struct {
	ID        string `json:"_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

type PostResponse struct {
	ID          string        `json:"_id"`
	User        *UserResponse `json:"user"`
	Description string        `json:"description"`
	Image       string        `json:"image"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   string        `json:"updatedAt"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		ProfileImage:    u.ProfileImage,
		Bio:             u.Bio,
		Followings:      nonNil(u.Followings),
		Followers:       nonNil(u.Followers),
		BookmarkedPosts: nonNil(u.BookmarkedPosts),
		CreatedAt:       u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       u.UpdatedAt.Format(time.RFC3339),
	}
}

func usersToResponse(users []domain.User) []UserResponse {
	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(&users[i])
	}
	return resp
}

func summaryToResponse(s domain.UserSummary) UserSummaryResponse {
	return UserSummaryResponse{
		ID:        s.ID,
		Username:  s.Username,
		Email:     s.Email,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

func postToResponse(p *domain.Post) PostResponse {
	resp := PostResponse{
		ID:          p.ID,
		Description: p.Description,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Owner != nil {
		owner := userToResponse(p.Owner)
		resp.User = &owner
	}
	return resp
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// success writes {success: true, message, ...payload}.
func success(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// fail writes {success: false, error} for err. Causes of server-side
// failures are logged and never sent.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"path":       c.Request.URL.Path,
		}).WithError(err).Error("request error")
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   apperror.PublicMessage(err),
	})
}

func (h *Handler) abort(c *gin.Context, err error) {
	h.fail(c, err)
	c.Abort()
}
