package authservice

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/quizgenius/backend/internal/useraccount"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// IntrospectionResponse represents the OAuth 2.0 token introspection response (RFC 7662)
type IntrospectionResponse struct {
	Active   bool   `json:"active"`
	Username string `json:"username,omitempty"` // user email
	Scope    string `json:"scope,omitempty"`    // space-separated scopes
	Sub      string `json:"sub,omitempty"`      // user ID
	Role     string `json:"role,omitempty"`
	Azp      string `json:"azp,omitempty"` // machine name
}

// IntrospectToken implements OAuth 2.0 Token Introspection (RFC 7662)
// POST /api/auth/introspect
func (s *AuthService) IntrospectToken(c *gin.Context) {
	token := c.PostForm("token")
	tokenTypeHint := c.PostForm("token_type_hint")

	ctx, span := tracer.Start(c.Request.Context(), "IntrospectToken",
		trace.WithAttributes(attribute.String("oauth2.token_type_hint", tokenTypeHint)))
	defer span.End()

	if token == "" {
		span.SetStatus(otelcodes.Error, "Missing token parameter")
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "Missing required parameter: token")
		return
	}
	if tokenTypeHint != "" && tokenTypeHint != "access_token" {
		span.SetStatus(otelcodes.Error, "Unsupported token type")
		httputils.Abort(c, http.StatusBadRequest, "unsupported_token_type", "Only access_token is supported for token_type_hint")
		return
	}

	// peek, so introspection does not extend the token
	info, err := s.storage.Peek(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			span.SetStatus(otelcodes.Ok, "Token not found or expired")
			c.JSON(http.StatusOK, IntrospectionResponse{Active: false})
			return
		}

		span.SetStatus(otelcodes.Error, "Storage error")
		span.RecordError(err)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to introspect the token. Please try again later.")
		return
	}

	user, err := s.useraccount.GetUser(ctx, info.UserID)
	if err != nil {
		if errors.Is(err, useraccount.ErrUserNotFound) {
			span.SetStatus(otelcodes.Ok, "User not found, token is invalid")
			c.JSON(http.StatusOK, IntrospectionResponse{Active: false})
			return
		}

		span.SetStatus(otelcodes.Error, "Failed to get user")
		span.RecordError(err)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to introspect the token. Please try again later.")
		return
	}

	span.SetAttributes(attribute.Int("user.id", info.UserID))
	span.SetStatus(otelcodes.Ok, "Token introspected")
	c.JSON(http.StatusOK, IntrospectionResponse{
		Active:   true,
		Username: user.Email,
		Scope:    strings.Join(info.Scopes, " "),
		Sub:      strconv.Itoa(info.UserID),
		Role:     string(user.Role),
		Azp:      info.Machine,
	})
}
