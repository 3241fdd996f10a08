package authutil_test

import (
	"encoding/base64"
	"testing"

	"github.com/quizgenius/backend/internal/authutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := authutil.GenerateToken(authutil.DefaultTokenBytes)
	require.NoError(t, err)

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, decoded, authutil.DefaultTokenBytes)

	other, err := authutil.GenerateToken(authutil.DefaultTokenBytes)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
