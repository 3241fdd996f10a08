package auth_test

import (
	"testing"

	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/database"
	"github.com/stretchr/testify/assert"
)

func TestTokenInfo_Validate(t *testing.T) {
	valid := func() auth.TokenInfo {
		return auth.TokenInfo{
			UserID:    1,
			UserEmail: "test@example.com",
			Role:      database.RoleStudent,
			Machine:   "test",
			Scopes:    []string{"*"},
		}
	}

	t.Run("valid token info", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	cases := []struct {
		name   string
		modify func(*auth.TokenInfo)
		want   error
	}{
		{"user id is zero", func(i *auth.TokenInfo) { i.UserID = 0 }, auth.ErrValidationPositiveUserID},
		{"user id is negative", func(i *auth.TokenInfo) { i.UserID = -1 }, auth.ErrValidationPositiveUserID},
		{"user email is empty", func(i *auth.TokenInfo) { i.UserEmail = "" }, auth.ErrValidationRequireUserEmail},
		{"role is unknown", func(i *auth.TokenInfo) { i.Role = "admin" }, auth.ErrValidationInvalidRole},
		{"machine is empty", func(i *auth.TokenInfo) { i.Machine = "" }, auth.ErrValidationRequireMachine},
		{"scopes are empty", func(i *auth.TokenInfo) { i.Scopes = nil }, auth.ErrValidationAtLeastOneScope},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := valid()
			tc.modify(&info)
			assert.ErrorIs(t, info.Validate(), tc.want)
		})
	}
}
