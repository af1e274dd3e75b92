package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	Username     string    `bun:"username,notnull,unique" json:"username"`
	Email        string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Occupation   string    `bun:"occupation" json:"occupation,omitempty"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// SavedSearch links a user to a bookmarked event. The (users_id, events_id)
// pair is unique at the storage layer.
type SavedSearch struct {
	bun.BaseModel `bun:"table:user_searches,alias:us"`

	ID       int64 `bun:"id,pk,autoincrement"`
	UsersID  int64 `bun:"users_id,notnull,unique:user_event"`
	EventsID int64 `bun:"events_id,notnull,unique:user_event"`
}

type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	Occupation string
}

// BookmarkResult is the JSON body returned after a successful save.
type BookmarkResult struct {
	EventName string `json:"event_name"`
	FemaID    int    `json:"fema_id"`
}
