package useraccount

import (
	"context"

	"github.com/quizgenius/backend/internal/database"
)

func (c *Context) GetUser(ctx context.Context, userID int) (*database.User, error) {
	var user database.User
	if err := c.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// GetUserByEmail finds a user by the normalized email.
func (c *Context) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	var user database.User
	if err := c.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}
