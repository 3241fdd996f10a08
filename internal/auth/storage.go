// Package auth stores opaque access tokens and authenticates API requests with them.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/quizgenius/backend/internal/database"
)

var ErrNotFound = errors.New("no such token")

// Storage is the storage for access tokens.
type Storage interface {
	// Get returns the token info of token and extends its expiration.
	//
	// ErrNotFound is returned when the token does not exist or has expired.
	Get(ctx context.Context, token string) (TokenInfo, error)

	// Peek returns the token info of token without extending its expiration.
	//
	// ErrNotFound is returned when the token does not exist or has expired.
	Peek(ctx context.Context, token string) (TokenInfo, error)

	// Create issues a new token carrying info.
	Create(ctx context.Context, info TokenInfo) (string, error)

	// Delete revokes token.
	//
	// ErrNotFound is returned when the token does not exist.
	Delete(ctx context.Context, token string) error

	// DeleteByUser revokes every token of the user.
	DeleteByUser(ctx context.Context, userID int) error
}

// TokenInfo is what an access token stands for.
type TokenInfo struct {
	UserID    int           `json:"user_id"`
	UserEmail string        `json:"user_email"`
	Role      database.Role `json:"role"`
	Machine   string        `json:"machine"` // the User-Agent the token was issued to

	Scopes []string          `json:"scopes"`
	Meta   map[string]string `json:"meta,omitempty"`
}

var (
	ErrValidationPositiveUserID   = errors.New("user ID must be positive")
	ErrValidationRequireUserEmail = errors.New("user email is required")
	ErrValidationInvalidRole      = errors.New("role must be instructor or student")
	ErrValidationRequireMachine   = errors.New("machine is required")
	ErrValidationAtLeastOneScope  = errors.New("at least one scope is required")
)

func (t TokenInfo) Validate() error {
	if t.UserID <= 0 {
		return ErrValidationPositiveUserID
	}

	if t.UserEmail == "" {
		return ErrValidationRequireUserEmail
	}

	if !t.Role.Valid() {
		return ErrValidationInvalidRole
	}

	if t.Machine == "" {
		return ErrValidationRequireMachine
	}

	if len(t.Scopes) == 0 {
		return ErrValidationAtLeastOneScope
	}

	return nil
}

// DefaultTokenExpire is the lifetime of an idle token.
const DefaultTokenExpire = 8 * time.Hour
