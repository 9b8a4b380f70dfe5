package domain

import (
	"slices"
	"time"
)

// User is a member of the social graph. Followings, Followers and
// BookmarkedPosts are id sets kept in insertion order.
type User struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string
	ProfileImage    string
	Bio             string
	Followings      []string
	Followers       []string
	BookmarkedPosts []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserSummary is the public projection returned by the user directory.
type UserSummary struct {
	ID        string
	Username  string
	Email     string
	CreatedAt time.Time
}

// IsFollowing reports whether u follows the user with the given id.
func (u *User) IsFollowing(id string) bool {
	return slices.Contains(u.Followings, id)
}

// HasBookmarked reports whether postID is in u's bookmarks.
func (u *User) HasBookmarked(postID string) bool {
	return slices.Contains(u.BookmarkedPosts, postID)
}

// Sanitized returns a copy of u without the password digest.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	out.Followings = slices.Clone(u.Followings)
	out.Followers = slices.Clone(u.Followers)
	out.BookmarkedPosts = slices.Clone(u.BookmarkedPosts)
	return &out
}

// Summary projects u onto the fields listed by the public directory.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// AddID appends id to set unless already present.
func AddID(set []string, id string) []string {
	if slices.Contains(set, id) {
		return set
	}
	return append(set, id)
}

// RemoveID returns set without any occurrence of id.
func RemoveID(set []string, id string) []string {
	out := make([]string, 0, len(set))
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
