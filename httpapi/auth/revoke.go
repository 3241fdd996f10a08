package authservice

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/httputils"
)

// RevokeToken implements OAuth 2.0 Token Revocation (RFC 7009)
// POST /api/auth/revoke
func (s *AuthService) RevokeToken(c *gin.Context) {
	token := c.PostForm("token")
	tokenTypeHint := c.PostForm("token_type_hint")

	if token == "" {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "Missing required parameter: token")
		return
	}
	if tokenTypeHint != "" && tokenTypeHint != "access_token" {
		httputils.Abort(c, http.StatusBadRequest, "unsupported_token_type", "Only access_token is supported for token_type_hint")
		return
	}

	err := s.useraccount.RevokeToken(c.Request.Context(), token)
	if err != nil && !errors.Is(err, auth.ErrNotFound) {
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to revoke the token. Please try again later.")
		return
	}

	// unknown tokens count as revoked
	c.Status(http.StatusOK)
}
