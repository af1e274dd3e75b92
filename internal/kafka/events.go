package kafka

import "time"

const (
	EventBookmarkSaved  = "bookmark.saved"
	EventUserRegistered = "user.registered"
)

// BookmarkSaved is emitted after a user bookmarks a disaster.
type BookmarkSaved struct {
	Type      string    `json:"type"`
	UserID    int64     `json:"user_id"`
	EventID   int64     `json:"event_id"`
	FemaID    int       `json:"fema_id"`
	EventName string    `json:"event_name"`
	SavedAt   time.Time `json:"saved_at"`
}

// UserRegistered is emitted after an account is created.
type UserRegistered struct {
	Type         string    `json:"type"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	Occupation   string    `json:"occupation,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}
