package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"fema-catalog/internal/kafka"
	"fema-catalog/internal/logger"
	"fema-catalog/internal/models"
	"fema-catalog/internal/observability"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AccountDBLayer interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SaveEvent(ctx context.Context, userID, eventID int64) error
	IsSaved(ctx context.Context, userID, eventID int64) (bool, error)
	GetSavedEvents(ctx context.Context, userID int64) ([]models.Event, error)
}

// EventLookup resolves a FEMA id to the row that represents the disaster.
type EventLookup interface {
	GetEventByFemaID(ctx context.Context, femaID int) (*models.Event, error)
}

type AccountService struct {
	DB         AccountDBLayer
	Events     EventLookup
	Publisher  kafka.Publisher
	Metrics    *observability.Metrics
	Logger     *logger.Logger
	BcryptCost int
}

func NewAccountService(db AccountDBLayer, events EventLookup, publisher kafka.Publisher, metrics *observability.Metrics, log *logger.Logger) *AccountService {
	return &AccountService{
		DB:         db,
		Events:     events,
		Publisher:  publisher,
		Metrics:    metrics,
		Logger:     log,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// ValidationError carries a message fit to show the user as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validateRegistration(in models.RegisterInput) error {
	if strings.TrimSpace(in.Username) == "" {
		return &ValidationError{Message: "Username is required."}
	}
	if len(in.Username) > 64 {
		return &ValidationError{Message: "Username must be at most 64 characters."}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return &ValidationError{Message: "Please enter a valid email address."}
	}
	if len(in.Password) < minPasswordLength {
		return &ValidationError{Message: fmt.Sprintf("Password must be at least %d characters.", minPasswordLength)}
	}
	return nil
}

// Register creates an account with a bcrypt-hashed password.
func (s *AccountService) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	taken, err := s.DB.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, s.registrationFailed(err)
	}
	if taken {
		s.Metrics.Registrations.WithLabelValues("conflict").Inc()
		return nil, models.ErrUsernameTaken
	}
	taken, err = s.DB.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, s.registrationFailed(err)
	}
	if taken {
		s.Metrics.Registrations.WithLabelValues("conflict").Inc()
		return nil, models.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.BcryptCost)
	if err != nil {
		return nil, s.registrationFailed(fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Occupation:   strings.TrimSpace(in.Occupation),
	}
	if err := s.DB.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.Metrics.Registrations.WithLabelValues("conflict").Inc()
			return nil, err
		}
		return nil, s.registrationFailed(err)
	}

	s.Metrics.Registrations.WithLabelValues("created").Inc()
	s.Logger.Info("ACCOUNTS", fmt.Sprintf("Registered user %d (%s)", user.ID, user.Username))

	err = s.Publisher.PublishUserRegistered(ctx, kafka.UserRegistered{
		UserID:       user.ID,
		Username:     user.Username,
		Occupation:   user.Occupation,
		RegisteredAt: time.Now().UTC(),
	})
	if err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish registration of user %d: %v", user.ID, err))
	}
	return user, nil
}

func (s *AccountService) registrationFailed(err error) error {
	s.Metrics.Registrations.WithLabelValues("error").Inc()
	s.Logger.Error("ACCOUNTS", fmt.Sprintf("Registration failed: %v", err))
	return err
}

// Authenticate verifies a username and password. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.DB.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, models.ErrNotFound) {
		s.Metrics.Logins.WithLabelValues("failure").Inc()
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("unknown user %q", username))
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.Metrics.Logins.WithLabelValues("failure").Inc()
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("bad password for user %d", user.ID))
		return nil, models.ErrInvalidCredentials
	}

	s.Metrics.Logins.WithLabelValues("success").Inc()
	return user, nil
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.DB.GetUserByID(ctx, id)
}

func (s *AccountService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.DB.ListUsers(ctx)
}

func (s *AccountService) SavedEvents(ctx context.Context, userID int64) ([]models.Event, error) {
	return s.DB.GetSavedEvents(ctx, userID)
}

// SavedFemaIDs returns the set of disasters the user has bookmarked, used to
// mark rows on listing pages.
func (s *AccountService) SavedFemaIDs(ctx context.Context, userID int64) (map[int]bool, error) {
	events, err := s.DB.GetSavedEvents(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[int]bool, len(events))
	for _, e := range events {
		ids[e.FemaID] = true
	}
	return ids, nil
}

// SaveEvent bookmarks the disaster identified by femaID for the user.
func (s *AccountService) SaveEvent(ctx context.Context, userID int64, femaID int) (*models.BookmarkResult, error) {
	event, err := s.Events.GetEventByFemaID(ctx, femaID)
	if errors.Is(err, models.ErrNotFound) {
		s.Metrics.Bookmarks.WithLabelValues("not_found").Inc()
		return nil, err
	}
	if err != nil {
		s.Metrics.Bookmarks.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := s.DB.SaveEvent(ctx, userID, event.ID); err != nil {
		if errors.Is(err, models.ErrAlreadySaved) {
			s.Metrics.Bookmarks.WithLabelValues("duplicate").Inc()
			s.Logger.LogBookmark("DUPLICATE", userID, femaID, "already saved")
			return nil, err
		}
		s.Metrics.Bookmarks.WithLabelValues("error").Inc()
		s.Logger.Error("BOOKMARK", fmt.Sprintf("Failed to save fema %d for user %d: %v", femaID, userID, err))
		return nil, err
	}

	s.Metrics.Bookmarks.WithLabelValues("saved").Inc()
	s.Logger.LogBookmark("SAVE", userID, femaID, event.Name)

	err = s.Publisher.PublishBookmarkSaved(ctx, kafka.BookmarkSaved{
		UserID:    userID,
		EventID:   event.ID,
		FemaID:    event.FemaID,
		EventName: event.Name,
		SavedAt:   time.Now().UTC(),
	})
	if err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish bookmark of fema %d: %v", femaID, err))
	}

	return &models.BookmarkResult{EventName: event.Name, FemaID: event.FemaID}, nil
}
