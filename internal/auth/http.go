package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/quizgenius/backend/internal/scope"
)

// ErrBadTokenFormat is returned when the Authorization header is not in the Bearer format.
var ErrBadTokenFormat = errors.New("bad token format")

// Middleware decodes the Authorization header and packs the token info into the request context.
//
// Requests without the header pass through anonymously. It responds 401 if the token is invalid.
func Middleware(storage Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		newCtx, err := ExtractToken(c.Request, storage)
		if err != nil {
			if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrBadTokenFormat) {
				slog.Error("failed to look up token", "error", err)
			}
			httputils.Abort(c, http.StatusUnauthorized, httputils.CodeUnauthorized, err.Error())
			return
		}

		c.Request = c.Request.WithContext(newCtx)
		c.Next()
	}
}

// ExtractToken extracts the token from the Authorization header and returns a context with the token info.
//
// It adds nothing to the context if the header is absent.
func ExtractToken(r *http.Request, storage Storage) (context.Context, error) {
	token, ok, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return r.Context(), nil
	}

	info, err := storage.Get(r.Context(), token)
	if err != nil {
		return nil, err
	}

	return WithUser(r.Context(), info), nil
}

// BearerToken returns the bearer token of r. ok is false if there is no Authorization header.
func BearerToken(r *http.Request) (token string, ok bool, err error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false, nil
	}

	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false, ErrBadTokenFormat
	}

	return token, true, nil
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUser(c.Request.Context()); !ok {
			httputils.Abort(c, http.StatusUnauthorized, httputils.CodeUnauthorized, "authentication required")
			return
		}

		c.Next()
	}
}

// RequireScope rejects anonymous requests with 401 and callers lacking fnScope with 403.
func RequireScope(fnScope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c.Request.Context())
		if !ok {
			httputils.Abort(c, http.StatusUnauthorized, httputils.CodeUnauthorized, "authentication required")
			return
		}

		if !scope.ShouldAllow(fnScope, user.Scopes) {
			httputils.Abort(c, http.StatusForbidden, httputils.CodeForbidden, "missing scope "+fnScope)
			return
		}

		c.Next()
	}
}
