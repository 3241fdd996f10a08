package useraccount_test

import (
	"context"
	"strings"
	"testing"

	"github.com/quizgenius/backend/internal/config"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/testhelper"
	"github.com/quizgenius/backend/internal/useraccount"
	"github.com/quizgenius/backend/internal/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newContext(t *testing.T, cfg config.AuthConfig) (*useraccount.Context, *gorm.DB, *testhelper.MemoryAuthStorage) {
	t.Helper()

	db := testhelper.NewSqliteDB(t)
	storage := testhelper.NewMemoryAuthStorage()
	eventService := events.NewEventService(db)

	return useraccount.NewContext(db, storage, eventService, cfg), db, storage
}

func defaultAuthConfig() config.AuthConfig {
	return config.AuthConfig{AllowInstructorSignup: true}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes the email and hashes the password", func(t *testing.T) {
		c, _, _ := newContext(t, defaultAuthConfig())

		user, err := c.Register(ctx, useraccount.RegisterRequest{
			Email:    "  Alice@Example.COM ",
			Name:     "Alice",
			Password: "correct horse",
			Role:     database.RoleStudent,
		})
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, database.RoleStudent, user.Role)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEqual(t, "correct horse", user.PasswordHash)
	})

	t.Run("duplicate email", func(t *testing.T) {
		c, _, _ := newContext(t, defaultAuthConfig())

		req := useraccount.RegisterRequest{Email: "bob@example.com", Name: "Bob", Password: "password1", Role: database.RoleStudent}
		_, err := c.Register(ctx, req)
		require.NoError(t, err)

		req.Email = "BOB@example.com"
		_, err = c.Register(ctx, req)
		assert.ErrorIs(t, err, useraccount.ErrEmailTaken)
	})

	t.Run("validation", func(t *testing.T) {
		c, _, _ := newContext(t, config.AuthConfig{AllowInstructorSignup: false})

		cases := []struct {
			name string
			req  useraccount.RegisterRequest
			want error
		}{
			{"invalid email", useraccount.RegisterRequest{Email: "not-an-email", Name: "x", Password: "password1", Role: database.RoleStudent}, useraccount.ErrInvalidEmail},
			{"empty name", useraccount.RegisterRequest{Email: "a@example.com", Name: " ", Password: "password1", Role: database.RoleStudent}, useraccount.ErrNameRequired},
			{"display name in email", useraccount.RegisterRequest{Email: "Bob <bob@example.com>", Name: "Bob", Password: "password1", Role: database.RoleStudent}, useraccount.ErrInvalidEmail},
			{"bracketed email", useraccount.RegisterRequest{Email: "<bob@example.com>", Name: "Bob", Password: "password1", Role: database.RoleStudent}, useraccount.ErrInvalidEmail},
			{"short password", useraccount.RegisterRequest{Email: "a@example.com", Name: "a", Password: "short", Role: database.RoleStudent}, useraccount.ErrWeakPassword},
			{"password over 72 bytes", useraccount.RegisterRequest{Email: "a@example.com", Name: "a", Password: strings.Repeat("x", 80), Role: database.RoleStudent}, useraccount.ErrPasswordTooLong},
			{"unknown role", useraccount.RegisterRequest{Email: "a@example.com", Name: "a", Password: "password1", Role: "admin"}, useraccount.ErrInvalidRole},
			{"instructor sign-up disabled", useraccount.RegisterRequest{Email: "a@example.com", Name: "a", Password: "password1", Role: database.RoleInstructor}, useraccount.ErrInstructorSignupDisabled},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := c.Register(ctx, tc.req)
				assert.ErrorIs(t, err, tc.want)
			})
		}
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	c, db, _ := newContext(t, defaultAuthConfig())

	_, err := c.Register(ctx, useraccount.RegisterRequest{
		Email:    "carol@example.com",
		Name:     "Carol",
		Password: "s3cret-pass",
		Role:     database.RoleInstructor,
	})
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := c.Authenticate(ctx, "Carol@example.com", "s3cret-pass")
		require.NoError(t, err)
		assert.Equal(t, "carol@example.com", user.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := c.Authenticate(ctx, "carol@example.com", "wrong-pass")
		assert.ErrorIs(t, err, useraccount.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := c.Authenticate(ctx, "nobody@example.com", "s3cret-pass")
		assert.ErrorIs(t, err, useraccount.ErrInvalidCredentials)
	})

	t.Run("user without password", func(t *testing.T) {
		testhelper.CreateUser(t, db, "google@example.com", database.RoleStudent)

		_, err := c.Authenticate(ctx, "google@example.com", "")
		assert.ErrorIs(t, err, useraccount.ErrInvalidCredentials)
	})
}

func TestGetOrRegister(t *testing.T) {
	ctx := context.Background()
	c, db, _ := newContext(t, defaultAuthConfig())

	user, err := c.GetOrRegister(ctx, useraccount.OAuthProfile{
		Email:  "Dave@Example.com",
		Avatar: "https://example.com/dave.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "dave@example.com", user.Email)
	assert.Equal(t, "dave", user.Name)
	assert.Equal(t, database.RoleStudent, user.Role)

	again, err := c.GetOrRegister(ctx, useraccount.OAuthProfile{Email: "dave@example.com", Name: "Dave"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&database.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	_, err = c.GetOrRegister(ctx, useraccount.OAuthProfile{Email: ""})
	assert.ErrorIs(t, err, useraccount.ErrInvalidEmail)

	_, err = c.GetOrRegister(ctx, useraccount.OAuthProfile{Email: "Dave <dave@example.com>"})
	assert.ErrorIs(t, err, useraccount.ErrInvalidEmail)
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	c, db, _ := newContext(t, defaultAuthConfig())

	created := testhelper.CreateUser(t, db, "erin@example.com", database.RoleStudent)

	user, err := c.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, user.Email)

	_, err = c.GetUser(ctx, created.ID+100)
	assert.ErrorIs(t, err, useraccount.ErrUserNotFound)
}

func TestPromoteInstructor(t *testing.T) {
	ctx := context.Background()
	c, db, storage := newContext(t, defaultAuthConfig())

	student := testhelper.CreateUser(t, db, "frank@example.com", database.RoleStudent)
	_, err := c.GrantToken(ctx, student, "test-machine")
	require.NoError(t, err)
	require.Equal(t, 1, storage.Len())

	promoted, err := c.PromoteInstructor(ctx, "FRANK@example.com")
	require.NoError(t, err)
	assert.Equal(t, database.RoleInstructor, promoted.Role)
	assert.Equal(t, 0, storage.Len(), "tokens with student scopes must be revoked")

	stored, err := c.GetUser(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, database.RoleInstructor, stored.Role)

	_, err = c.PromoteInstructor(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, useraccount.ErrUserNotFound)
}

func TestGrantToken(t *testing.T) {
	ctx := context.Background()
	c, db, storage := newContext(t, defaultAuthConfig())

	instructor := testhelper.CreateUser(t, db, "grace@example.com", database.RoleInstructor)

	token, err := c.GrantToken(ctx, instructor, "test-machine", useraccount.WithFlow("password"))
	require.NoError(t, err)

	info, err := storage.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, instructor.ID, info.UserID)
	assert.Equal(t, instructor.Email, info.UserEmail)
	assert.Equal(t, database.RoleInstructor, info.Role)
	assert.Equal(t, "test-machine", info.Machine)
	assert.Contains(t, info.Scopes, "test:*")
	assert.Equal(t, "password", info.Meta["initiate_from_flow"])

	workers.Global.Wait()

	var logins int64
	require.NoError(t, db.Model(&database.Event{}).Where("type = ? AND user_id = ?", events.EventTypeLogin, instructor.ID).Count(&logins).Error)
	assert.EqualValues(t, 1, logins)
}

func TestGrantToken_DefaultFlow(t *testing.T) {
	ctx := context.Background()
	c, db, storage := newContext(t, defaultAuthConfig())

	student := testhelper.CreateUser(t, db, "heidi@example.com", database.RoleStudent)

	token, err := c.GrantToken(ctx, student, "test-machine")
	require.NoError(t, err)

	info, err := storage.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "undefined", info.Meta["initiate_from_flow"])
	assert.Contains(t, info.Scopes, "attempt:*")
}

func TestLogoutAndRevoke(t *testing.T) {
	ctx := context.Background()
	c, db, storage := newContext(t, defaultAuthConfig())

	user := testhelper.CreateUser(t, db, "ivan@example.com", database.RoleStudent)

	first, err := c.GrantToken(ctx, user, "laptop")
	require.NoError(t, err)
	second, err := c.GrantToken(ctx, user, "phone")
	require.NoError(t, err)

	info, err := storage.Get(ctx, first)
	require.NoError(t, err)
	require.NoError(t, c.Logout(ctx, info, first))

	_, err = storage.Get(ctx, first)
	assert.Error(t, err)
	_, err = storage.Get(ctx, second)
	assert.NoError(t, err)

	require.NoError(t, c.RevokeAllTokens(ctx, user.ID))
	assert.Equal(t, 0, storage.Len())
}
