package authservice

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/quizgenius/backend/internal/useraccount"
)

// Logout revokes the token of the request.
// POST /api/auth/logout
func (s *AuthService) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	info, _ := auth.GetUser(ctx)

	token, _, _ := auth.BearerToken(c.Request)
	if err := s.useraccount.Logout(ctx, info, token); err != nil && !errors.Is(err, auth.ErrNotFound) {
		slog.Error("failed to revoke token", "error", err, "user_id", info.UserID)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to revoke the token. Please try again later.")
		return
	}

	c.Status(http.StatusResetContent)
}

// LogoutAll revokes every token of the user of the request.
// POST /api/auth/logout-all
func (s *AuthService) LogoutAll(c *gin.Context) {
	ctx := c.Request.Context()
	info, _ := auth.GetUser(ctx)

	if err := s.useraccount.RevokeAllTokens(ctx, info.UserID); err != nil {
		slog.Error("failed to revoke tokens", "error", err, "user_id", info.UserID)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to revoke the tokens. Please try again later.")
		return
	}

	c.Status(http.StatusResetContent)
}

// Me returns the user of the request.
// GET /api/auth/me
func (s *AuthService) Me(c *gin.Context) {
	ctx := c.Request.Context()
	info, _ := auth.GetUser(ctx)

	user, err := s.useraccount.GetUser(ctx, info.UserID)
	if err != nil {
		if errors.Is(err, useraccount.ErrUserNotFound) {
			httputils.Abort(c, http.StatusUnauthorized, httputils.CodeUnauthorized, "the user of this token no longer exists")
			return
		}
		slog.Error("failed to get user", "error", err, "user_id", info.UserID)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to get the user. Please try again later.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   NewUserResponse(user),
		"scopes": info.Scopes,
	})
}
