// Package useraccount manages the user account and its lifecycle.
package useraccount

import (
	"errors"

	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/config"
	"github.com/quizgenius/backend/internal/events"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("quizgenius.useraccount")

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrEmailTaken               = errors.New("email is already registered")
	ErrInvalidEmail             = errors.New("email is not valid")
	ErrNameRequired             = errors.New("name is required")
	ErrWeakPassword             = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong          = errors.New("password must be at most 72 bytes")
	ErrInvalidRole              = errors.New("role must be instructor or student")
	ErrInstructorSignupDisabled = errors.New("instructor sign-up is disabled")
	ErrInvalidCredentials       = errors.New("invalid email or password")
)

const (
	// MinPasswordLength is the minimum length of a password.
	MinPasswordLength = 8
	// MaxPasswordLength is the longest password bcrypt accepts, in bytes.
	MaxPasswordLength = 72
)

type Context struct {
	db           *gorm.DB
	auth         auth.Storage
	eventService *events.EventService
	config       config.AuthConfig
}

func NewContext(db *gorm.DB, authStorage auth.Storage, eventService *events.EventService, cfg config.AuthConfig) *Context {
	return &Context{
		db:           db,
		auth:         authStorage,
		eventService: eventService,
		config:       cfg,
	}
}
