package useraccount

import (
	"context"
	"fmt"

	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/scope"
)

type grantTokenOptions struct {
	flow string
}

type GrantTokenOption func(*grantTokenOptions)

// WithFlow records the sign-in flow that issued the token.
func WithFlow(flow string) GrantTokenOption {
	return func(o *grantTokenOptions) {
		o.flow = flow
	}
}

// GrantToken creates a new token for the user with the scopes of their role.
func (c *Context) GrantToken(ctx context.Context, user *database.User, machine string, opts ...GrantTokenOption) (string, error) {
	options := &grantTokenOptions{
		flow: "undefined",
	}
	for _, opt := range opts {
		opt(options)
	}

	token, err := c.auth.Create(ctx, auth.TokenInfo{
		UserID:    user.ID,
		UserEmail: user.Email,
		Role:      user.Role,
		Machine:   machine,
		Scopes:    scope.ForRole(user.Role),
		Meta: map[string]string{
			"initiate_from_flow": options.flow,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create token: %w", err)
	}

	c.eventService.TriggerEvent(ctx, events.Event{
		Type:    events.EventTypeLogin,
		UserID:  user.ID,
		Payload: map[string]any{"machine": machine, "flow": options.flow},
	})

	return token, nil
}

// RevokeToken revokes a token.
func (c *Context) RevokeToken(ctx context.Context, token string) error {
	return c.auth.Delete(ctx, token)
}

// Logout revokes the token the caller is authenticated with.
func (c *Context) Logout(ctx context.Context, info auth.TokenInfo, token string) error {
	if err := c.auth.Delete(ctx, token); err != nil {
		return err
	}

	c.eventService.TriggerEvent(ctx, events.Event{
		Type:   events.EventTypeLogout,
		UserID: info.UserID,
	})

	return nil
}

// RevokeAllTokens revokes all tokens for a user.
func (c *Context) RevokeAllTokens(ctx context.Context, userID int) error {
	if err := c.auth.DeleteByUser(ctx, userID); err != nil {
		return err
	}

	c.eventService.TriggerEvent(ctx, events.Event{
		Type:   events.EventTypeLogoutAll,
		UserID: userID,
	})

	return nil
}
