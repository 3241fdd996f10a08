package authservice

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/quizgenius/backend/internal/useraccount"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type RegisterBody struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// RegisterUser creates an account and signs it in.
// POST /api/auth/register
func (s *AuthService) RegisterUser(c *gin.Context) {
	var body RegisterBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "email, name, password and role are required")
		return
	}

	ctx, span := tracer.Start(c.Request.Context(), "RegisterUser",
		trace.WithAttributes(attribute.String("user.role", body.Role)))
	defer span.End()

	user, err := s.useraccount.Register(ctx, useraccount.RegisterRequest{
		Email:    body.Email,
		Name:     body.Name,
		Password: body.Password,
		Role:     database.Role(body.Role),
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to register")
		switch {
		case errors.Is(err, useraccount.ErrEmailTaken):
			httputils.Abort(c, http.StatusConflict, httputils.CodeConflict, err.Error())
		case errors.Is(err, useraccount.ErrInstructorSignupDisabled):
			httputils.Abort(c, http.StatusForbidden, httputils.CodeForbidden, err.Error())
		case errors.Is(err, useraccount.ErrInvalidEmail),
			errors.Is(err, useraccount.ErrNameRequired),
			errors.Is(err, useraccount.ErrWeakPassword),
			errors.Is(err, useraccount.ErrPasswordTooLong),
			errors.Is(err, useraccount.ErrInvalidRole):
			httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, err.Error())
		default:
			span.RecordError(err)
			httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to register. Please try again later.")
		}
		return
	}

	token, err := s.useraccount.GrantToken(ctx, user, httputils.GetMachineName(ctx), useraccount.WithFlow("register"))
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to grant token")
		span.RecordError(err)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to sign in. Please try again later.")
		return
	}

	span.SetStatus(otelcodes.Ok, "User registered")
	c.JSON(http.StatusCreated, s.tokenResponse(token, user))
}

type LoginBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login signs in with email and password.
// POST /api/auth/login
func (s *AuthService) Login(c *gin.Context) {
	var body LoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "email and password are required")
		return
	}

	ctx, span := tracer.Start(c.Request.Context(), "Login")
	defer span.End()

	user, err := s.useraccount.Authenticate(ctx, body.Email, body.Password)
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to authenticate")
		if errors.Is(err, useraccount.ErrInvalidCredentials) {
			httputils.Abort(c, http.StatusUnauthorized, httputils.CodeUnauthorized, err.Error())
			return
		}
		span.RecordError(err)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to sign in. Please try again later.")
		return
	}

	token, err := s.useraccount.GrantToken(ctx, user, httputils.GetMachineName(ctx), useraccount.WithFlow("password"))
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to grant token")
		span.RecordError(err)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to sign in. Please try again later.")
		return
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	span.SetStatus(otelcodes.Ok, "User signed in")
	c.JSON(http.StatusOK, s.tokenResponse(token, user))
}
