package useraccount

import (
	"context"
	"fmt"

	"github.com/quizgenius/backend/internal/database"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PromoteInstructor turns the user with email into an instructor.
//
// Existing tokens carry the old scopes, so they are revoked.
func (c *Context) PromoteInstructor(ctx context.Context, email string) (*database.User, error) {
	ctx, span := tracer.Start(ctx, "PromoteInstructor",
		trace.WithAttributes(attribute.String("user.email", email)))
	defer span.End()

	user, err := c.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to get user")
		return nil, err
	}

	if user.Role == database.RoleInstructor {
		span.SetStatus(otelcodes.Ok, "Already an instructor")
		return user, nil
	}

	if err := c.db.WithContext(ctx).Model(user).Update("role", database.RoleInstructor).Error; err != nil {
		span.SetStatus(otelcodes.Error, "Failed to update role")
		span.RecordError(err)
		return nil, fmt.Errorf("update role: %w", err)
	}
	user.Role = database.RoleInstructor

	if c.auth != nil {
		if err := c.RevokeAllTokens(ctx, user.ID); err != nil {
			span.SetStatus(otelcodes.Error, "Failed to revoke tokens")
			span.RecordError(err)
			return nil, err
		}
	}

	span.SetStatus(otelcodes.Ok, "User promoted")
	return user, nil
}
