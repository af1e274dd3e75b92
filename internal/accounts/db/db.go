package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fema-catalog/internal/database"
	"fema-catalog/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// CreateUser inserts the user and fills in its id. A username or email
// collision that slips past the service pre-check surfaces as ErrConflict.
func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := d.Bun.NewInsert().Model(user).Exec(ctx)
	if database.IsUniqueViolation(err) {
		switch {
		case strings.Contains(err.Error(), "email"):
			return models.ErrEmailTaken
		case strings.Contains(err.Error(), "username"):
			return models.ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", models.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (d *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("u.id = ?", id).
		Limit(1).
		Scan(ctx)
	return userResult(&user, err)
}

func (d *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("u.username = ?", username).
		Limit(1).
		Scan(ctx)
	return userResult(&user, err)
}

func userResult(user *models.User, err error) (*models.User, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (d *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Where("u.username = ?", username).
		Exists(ctx)
}

func (d *DB) EmailExists(ctx context.Context, email string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Where("LOWER(u.email) = LOWER(?)", email).
		Exists(ctx)
}

func (d *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0)
	err := d.Bun.NewSelect().
		Model(&users).
		OrderExpr("u.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SaveEvent links a user to an event in a single insert. The unique
// (users_id, events_id) constraint rejects a second link atomically.
func (d *DB) SaveEvent(ctx context.Context, userID, eventID int64) error {
	link := &models.SavedSearch{UsersID: userID, EventsID: eventID}
	_, err := d.Bun.NewInsert().Model(link).Exec(ctx)
	if database.IsUniqueViolation(err) {
		return models.ErrAlreadySaved
	}
	if err != nil {
		return fmt.Errorf("save event %d for user %d: %w", eventID, userID, err)
	}
	return nil
}

func (d *DB) IsSaved(ctx context.Context, userID, eventID int64) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.SavedSearch)(nil)).
		Where("us.users_id = ?", userID).
		Where("us.events_id = ?", eventID).
		Exists(ctx)
}

// GetSavedEvents returns the user's bookmarked events in the order they
// were saved.
func (d *DB) GetSavedEvents(ctx context.Context, userID int64) ([]models.Event, error) {
	events := make([]models.Event, 0)
	err := d.Bun.NewSelect().
		Model(&events).
		Join("JOIN user_searches AS us ON us.events_id = e.id").
		Where("us.users_id = ?", userID).
		OrderExpr("us.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get saved events for user %d: %w", userID, err)
	}
	return events, nil
}
