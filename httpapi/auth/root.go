// Package authservice provides the sign-up, sign-in and token endpoints.
package authservice

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/httpapi"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/useraccount"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("quizgenius.httpapi.auth")

type AuthService struct {
	storage     auth.Storage
	useraccount *useraccount.Context
	tokenExpire time.Duration
	google      *GoogleHandler
}

// NewAuthService creates the service. google may be nil when Google sign-in is disabled.
func NewAuthService(storage auth.Storage, useraccount *useraccount.Context, tokenExpire time.Duration, google *GoogleHandler) *AuthService {
	return &AuthService{
		storage:     storage,
		useraccount: useraccount,
		tokenExpire: tokenExpire,
		google:      google,
	}
}

func (s *AuthService) Register(router gin.IRouter) {
	group := router.Group("/auth")

	group.POST("/register", s.RegisterUser)
	group.POST("/login", s.Login)
	group.POST("/revoke", s.RevokeToken)
	group.POST("/introspect", s.IntrospectToken)

	group.POST("/logout", auth.RequireUser(), s.Logout)
	group.POST("/logout-all", auth.RequireUser(), s.LogoutAll)
	group.GET("/me", auth.RequireScope("me:read"), s.Me)

	if s.google != nil {
		group.GET("/google/login", s.google.Login)
		group.GET("/google/callback", s.google.Callback)
	}
}

var _ httpapi.Service = (*AuthService)(nil)

type UserResponse struct {
	ID     int           `json:"id"`
	Email  string        `json:"email"`
	Name   string        `json:"name"`
	Role   database.Role `json:"role"`
	Avatar string        `json:"avatar,omitempty"`
}

func NewUserResponse(user *database.User) UserResponse {
	return UserResponse{
		ID:     user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
		Avatar: user.Avatar,
	}
}

// TokenResponse is the OAuth 2.0 style access token response.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        UserResponse `json:"user"`
}

func (s *AuthService) tokenResponse(token string, user *database.User) TokenResponse {
	return TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokenExpire.Seconds()),
		User:        NewUserResponse(user),
	}
}
