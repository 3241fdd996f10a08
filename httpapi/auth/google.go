package authservice

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/internal/gauth"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/quizgenius/backend/internal/useraccount"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
)

// GoogleHandler signs users in with Google.
type GoogleHandler struct {
	exchanger   gauth.Exchanger
	states      gauth.StateStorage
	useraccount *useraccount.Context
	frontendURL string
	tokenExpire time.Duration
}

func NewGoogleHandler(exchanger gauth.Exchanger, states gauth.StateStorage, useraccount *useraccount.Context, frontendURL string, tokenExpire time.Duration) *GoogleHandler {
	return &GoogleHandler{
		exchanger:   exchanger,
		states:      states,
		useraccount: useraccount,
		frontendURL: frontendURL,
		tokenExpire: tokenExpire,
	}
}

// Login redirects to the Google consent screen.
// GET /api/auth/google/login
func (h *GoogleHandler) Login(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GoogleLogin")
	defer span.End()

	verifier := oauth2.GenerateVerifier()
	data, err := gauth.LoginState{Verifier: verifier}.Marshal()
	if err == nil {
		var state string
		state, err = h.states.New(ctx, data)
		if err == nil {
			span.SetStatus(otelcodes.Ok, "Redirecting to Google")
			c.Redirect(http.StatusFound, h.exchanger.AuthCodeURL(state, verifier))
			return
		}
	}

	span.SetStatus(otelcodes.Error, "Failed to store state")
	span.RecordError(err)
	httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to start the sign-in. Please try again later.")
}

// Callback finishes the sign-in and redirects to the frontend with the access token in the fragment.
// GET /api/auth/google/callback
func (h *GoogleHandler) Callback(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GoogleCallback")
	defer span.End()

	if reason := c.Query("error"); reason != "" {
		span.SetStatus(otelcodes.Error, "Sign-in denied")
		h.redirect(c, url.Values{"error": {reason}})
		return
	}

	data, err := h.states.Use(ctx, c.Query("state"))
	if err != nil {
		span.SetStatus(otelcodes.Error, "Bad state")
		if errors.Is(err, gauth.ErrBadState) {
			httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "the sign-in state is invalid or expired")
			return
		}
		span.RecordError(err)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to check the sign-in state. Please try again later.")
		return
	}

	state, err := gauth.UnmarshalLoginState(data)
	if err != nil {
		span.SetStatus(otelcodes.Error, "Bad state")
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "the sign-in state is invalid or expired")
		return
	}

	code := c.Query("code")
	if code == "" {
		span.SetStatus(otelcodes.Error, "Missing code")
		httputils.Abort(c, http.StatusBadRequest, httputils.CodeInvalidRequest, "Missing required parameter: code")
		return
	}

	profile, err := h.exchanger.Exchange(ctx, code, state.Verifier)
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to exchange code")
		span.RecordError(err)
		slog.Warn("google code exchange failed", "error", err)
		httputils.Abort(c, http.StatusBadGateway, httputils.CodeUnavailable, "Failed to sign in with Google. Please try again.")
		return
	}
	if !profile.VerifiedEmail {
		span.SetStatus(otelcodes.Error, "Unverified email")
		httputils.Abort(c, http.StatusForbidden, httputils.CodeForbidden, "the Google account has no verified email")
		return
	}

	user, err := h.useraccount.GetOrRegister(ctx, useraccount.OAuthProfile{
		Email:  profile.Email,
		Name:   profile.Name,
		Avatar: profile.Picture,
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to get or register user")
		if errors.Is(err, useraccount.ErrInvalidEmail) {
			httputils.Abort(c, http.StatusForbidden, httputils.CodeForbidden, err.Error())
			return
		}
		span.RecordError(err)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to sign in. Please try again later.")
		return
	}

	token, err := h.useraccount.GrantToken(ctx, user, httputils.GetMachineName(ctx), useraccount.WithFlow("google"))
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to grant token")
		span.RecordError(err)
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "Failed to sign in. Please try again later.")
		return
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	span.SetStatus(otelcodes.Ok, "User signed in")
	h.redirect(c, url.Values{
		"access_token": {token},
		"token_type":   {"Bearer"},
		"expires_in":   {strconv.FormatInt(int64(h.tokenExpire.Seconds()), 10)},
	})
}

// redirect sends the browser to the frontend with values in the URL fragment.
func (h *GoogleHandler) redirect(c *gin.Context, values url.Values) {
	target, err := url.Parse(h.frontendURL)
	if err != nil {
		httputils.Abort(c, http.StatusInternalServerError, httputils.CodeServerError, "the frontend URL is misconfigured")
		return
	}

	target.Fragment = ""
	target.RawFragment = ""
	c.Redirect(http.StatusFound, target.String()+"#"+values.Encode())
}
