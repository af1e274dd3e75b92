package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrNoResults          = errors.New("no matching events")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidCriteria    = errors.New("invalid search criteria")

	// Conflict flavours; errors.Is(err, ErrConflict) holds for each.
	ErrUsernameTaken = fmt.Errorf("username is taken: %w", ErrConflict)
	ErrEmailTaken    = fmt.Errorf("email is already in use: %w", ErrConflict)
	ErrAlreadySaved  = fmt.Errorf("event already saved: %w", ErrConflict)
)
