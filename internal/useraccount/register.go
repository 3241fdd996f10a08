package useraccount

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/events"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Email    string
	Name     string
	Password string
	Role     database.Role
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail reports whether email is a bare address, without a display name or brackets.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}

	return addr.Name == "" && addr.Address == email
}

func (r RegisterRequest) validate(allowInstructor bool) error {
	if !validEmail(r.Email) {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrNameRequired
	}
	if len(r.Password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if len(r.Password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	if !r.Role.Valid() {
		return ErrInvalidRole
	}
	if r.Role == database.RoleInstructor && !allowInstructor {
		return ErrInstructorSignupDisabled
	}

	return nil
}

// Register creates a user with a password.
func (c *Context) Register(ctx context.Context, req RegisterRequest) (*database.User, error) {
	ctx, span := tracer.Start(ctx, "Register",
		trace.WithAttributes(attribute.String("user.role", string(req.Role))))
	defer span.End()

	req.Email = NormalizeEmail(req.Email)
	if err := req.validate(c.config.AllowInstructorSignup); err != nil {
		span.SetStatus(otelcodes.Error, "Invalid request")
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to hash password")
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &database.User{
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		PasswordHash: string(hash),
	}
	if err := c.createUser(ctx, user); err != nil {
		span.SetStatus(otelcodes.Error, "Failed to create user")
		return nil, err
	}

	c.eventService.TriggerEvent(ctx, events.Event{
		Type:    events.EventTypeRegister,
		UserID:  user.ID,
		Payload: map[string]any{"role": string(user.Role), "method": "password"},
	})

	span.SetStatus(otelcodes.Ok, "User registered")
	return user, nil
}

func (c *Context) createUser(ctx context.Context, user *database.User) error {
	var count int64
	if err := c.db.WithContext(ctx).Model(&database.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("check user existence: %w", err)
	}
	if count > 0 {
		return ErrEmailTaken
	}

	if err := c.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsDuplicate(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// OAuthProfile is the profile returned by an external identity provider.
type OAuthProfile struct {
	Email  string
	Name   string
	Avatar string
}

// GetOrRegister returns the user with the profile's email, creating a student if there is none.
func (c *Context) GetOrRegister(ctx context.Context, profile OAuthProfile) (*database.User, error) {
	ctx, span := tracer.Start(ctx, "GetOrRegister")
	defer span.End()

	email := NormalizeEmail(profile.Email)
	if !validEmail(email) {
		span.SetStatus(otelcodes.Error, "Invalid email")
		return nil, ErrInvalidEmail
	}

	user, err := c.GetUserByEmail(ctx, email)
	if err == nil {
		span.SetStatus(otelcodes.Ok, "Existing user")
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		span.SetStatus(otelcodes.Error, "Failed to look up user")
		span.RecordError(err)
		return nil, err
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	user = &database.User{
		Email:  email,
		Name:   name,
		Role:   database.RoleStudent,
		Avatar: profile.Avatar,
	}
	if err := c.createUser(ctx, user); err != nil {
		span.SetStatus(otelcodes.Error, "Failed to create user")
		return nil, err
	}

	c.eventService.TriggerEvent(ctx, events.Event{
		Type:    events.EventTypeRegister,
		UserID:  user.ID,
		Payload: map[string]any{"role": string(user.Role), "method": "google"},
	})

	span.SetStatus(otelcodes.Ok, "User registered")
	return user, nil
}
