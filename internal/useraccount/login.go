package useraccount

import (
	"context"
	"errors"

	"github.com/quizgenius/backend/internal/database"
	otelcodes "go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

// Authenticate checks the password of the user with the given email.
//
// Users who signed up with Google have no password and can never authenticate here.
func (c *Context) Authenticate(ctx context.Context, email, password string) (*database.User, error) {
	ctx, span := tracer.Start(ctx, "Authenticate")
	defer span.End()

	user, err := c.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			span.SetStatus(otelcodes.Error, "Unknown email")
			return nil, ErrInvalidCredentials
		}

		span.SetStatus(otelcodes.Error, "Failed to look up user")
		span.RecordError(err)
		return nil, err
	}

	if user.PasswordHash == "" {
		span.SetStatus(otelcodes.Error, "User has no password")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		span.SetStatus(otelcodes.Error, "Wrong password")
		return nil, ErrInvalidCredentials
	}

	span.SetStatus(otelcodes.Ok, "Authenticated")
	return user, nil
}
