package auth_test

import (
	"context"
	"testing"

	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContext(t *testing.T) {
	ctx := context.Background()

	_, ok := auth.GetUser(ctx)
	assert.False(t, ok, "an empty context carries no user")

	ctx = auth.WithUser(ctx, auth.TokenInfo{
		UserID:    7,
		UserEmail: "student@example.com",
		Role:      database.RoleStudent,
		Scopes:    scope.ForRole(database.RoleStudent),
	})

	info, ok := auth.GetUser(ctx)
	require.True(t, ok)
	assert.Equal(t, 7, info.UserID)
	assert.Equal(t, "student@example.com", info.UserEmail)
	assert.Equal(t, database.RoleStudent, info.Role)
	assert.Contains(t, info.Scopes, "attempt:*")
}
