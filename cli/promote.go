package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/useraccount"
)

func (c *Context) PromoteInstructor(ctx context.Context, email string) (*database.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	user, err := c.useraccount.PromoteInstructor(ctx, email)
	if err != nil {
		if errors.Is(err, useraccount.ErrUserNotFound) {
			return nil, fmt.Errorf("user with email %q not found", email)
		}

		return nil, err
	}

	return user, nil
}
