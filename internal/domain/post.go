package domain

import "time"

// Post is a piece of content owned by a user and bookmarkable by others.
type Post struct {
	ID          string
	UserID      string
	Owner       *User
	Description string
	Image       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
