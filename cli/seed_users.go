package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/useraccount"
)

// SeedUsers creates the users of the records. Existing users are skipped.
//
// Records with a password are registered like a sign-up; the others can only sign in with Google.
func (c *Context) SeedUsers(ctx context.Context, userSeedRecords []UserSeedRecord) error {
	for i, record := range userSeedRecords {
		if err := record.Validate(); err != nil {
			return fmt.Errorf("user seed record #%d: %w", i, err)
		}
	}

	for _, record := range userSeedRecords {
		email := useraccount.NormalizeEmail(record.Email)

		_, err := c.useraccount.GetUserByEmail(ctx, email)
		if err == nil {
			log.Printf("⚠️ User %q already exists, skipping creation", email)
			continue
		}
		if !errors.Is(err, useraccount.ErrUserNotFound) {
			return fmt.Errorf("query user %q: %w", email, err)
		}

		var user *database.User
		if record.Password != "" {
			user, err = c.useraccount.Register(ctx, useraccount.RegisterRequest{
				Email:    email,
				Name:     record.GetName(),
				Password: record.Password,
				Role:     record.GetRole(),
			})
			if err != nil {
				return fmt.Errorf("user record %q: %w", email, err)
			}
		} else {
			user = &database.User{
				Email: email,
				Name:  record.GetName(),
				Role:  record.GetRole(),
			}
			if err := c.db.WithContext(ctx).Create(user).Error; err != nil {
				return fmt.Errorf("user record %q: %w", email, err)
			}
		}

		log.Printf("✅ User %q (%s, %d) is created", user.Email, user.Role, user.ID)
	}

	return nil
}

type UserSeedRecord struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// GetName returns the name, falling back to the email.
func (r UserSeedRecord) GetName() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}

	return useraccount.NormalizeEmail(r.Email)
}

// GetRole returns the role, defaulting to student.
func (r UserSeedRecord) GetRole() database.Role {
	if r.Role == "" {
		return database.RoleStudent
	}

	return database.Role(r.Role)
}

func (r UserSeedRecord) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if !r.GetRole().Valid() {
		return fmt.Errorf("role %q is not valid", r.Role)
	}

	return nil
}
