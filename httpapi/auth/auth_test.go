package authservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizgenius/backend/internal/auth"
	"github.com/quizgenius/backend/internal/config"
	"github.com/quizgenius/backend/internal/database"
	"github.com/quizgenius/backend/internal/events"
	"github.com/quizgenius/backend/internal/gauth"
	"github.com/quizgenius/backend/internal/httputils"
	"github.com/quizgenius/backend/internal/testhelper"
	"github.com/quizgenius/backend/internal/useraccount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeExchanger struct {
	profile gauth.Profile
	err     error

	gotCode     string
	gotVerifier string
}

func (f *fakeExchanger) AuthCodeURL(state, verifier string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f *fakeExchanger) Exchange(ctx context.Context, code, verifier string) (gauth.Profile, error) {
	f.gotCode = code
	f.gotVerifier = verifier
	return f.profile, f.err
}

type fixture struct {
	db        *gorm.DB
	storage   *testhelper.MemoryAuthStorage
	states    *testhelper.MemoryStateStorage
	exchanger *fakeExchanger
	router    *gin.Engine
}

func setupAuthService(t *testing.T, allowInstructorSignup bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelper.NewSqliteDB(t)
	storage := testhelper.NewMemoryAuthStorage()
	states := testhelper.NewMemoryStateStorage()
	exchanger := &fakeExchanger{}

	accounts := useraccount.NewContext(db, storage, events.NewEventService(db), config.AuthConfig{
		TokenExpire:           time.Hour,
		AllowInstructorSignup: allowInstructorSignup,
	})

	google := NewGoogleHandler(exchanger, states, accounts, "https://quiz.example.com/signed-in", time.Hour)
	service := NewAuthService(storage, accounts, time.Hour, google)

	router := gin.New()
	router.Use(httputils.MachineMiddleware(), auth.Middleware(storage))
	service.Register(router.Group("/api"))

	return &fixture{db: db, storage: storage, states: states, exchanger: exchanger, router: router}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func withToken(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) httputils.ErrorResponse {
	t.Helper()
	var resp httputils.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func (f *fixture) register(t *testing.T, email, role string) TokenResponse {
	t.Helper()

	rr := f.do(t, jsonRequest(http.MethodPost, "/api/auth/register",
		`{"email":"`+email+`","name":"Ada","password":"correct-horse","role":"`+role+`"}`))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestAuthService_Register(t *testing.T) {
	f := setupAuthService(t, true)

	resp := f.register(t, "Ada@Example.com", "instructor")
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, database.RoleInstructor, resp.User.Role)

	t.Run("duplicate email", func(t *testing.T) {
		rr := f.do(t, jsonRequest(http.MethodPost, "/api/auth/register",
			`{"email":"ada@example.com","name":"Ada","password":"correct-horse","role":"student"}`))
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, httputils.CodeConflict, decodeError(t, rr).Error)
	})

	t.Run("weak password", func(t *testing.T) {
		rr := f.do(t, jsonRequest(http.MethodPost, "/api/auth/register",
			`{"email":"bob@example.com","name":"Bob","password":"short","role":"student"}`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, useraccount.ErrWeakPassword.Error(), decodeError(t, rr).ErrorDescription)
	})

	t.Run("password over 72 bytes", func(t *testing.T) {
		rr := f.do(t, jsonRequest(http.MethodPost, "/api/auth/register",
			`{"email":"bob@example.com","name":"Bob","password":"`+strings.Repeat("x", 80)+`","role":"student"}`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, useraccount.ErrPasswordTooLong.Error(), decodeError(t, rr).ErrorDescription)
	})

	t.Run("email with display name", func(t *testing.T) {
		rr := f.do(t, jsonRequest(http.MethodPost, "/api/auth/register",
			`{"email":"Bob <bob@example.com>","name":"Bob","password":"correct-horse","role":"student"}`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, useraccount.ErrInvalidEmail.Error(), decodeError(t, rr).ErrorDescription)
	})

	t.Run("missing fields", func(t *testing.T) {
		rr := f.do(t, jsonRequest(http.MethodPost, "/api/auth/register", `{"email":"bob@example.com"}`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthService_Register_InstructorSignupDisabled(t *testing.T) {
	f := setupAuthService(t, false)

	rr := f.do(t, jsonRequest(http.MethodPost, "/api/auth/register",
		`{"email":"ada@example.com","name":"Ada","password":"correct-horse","role":"instructor"}`))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	f.register(t, "ada@example.com", "student")
}

func TestAuthService_Login(t *testing.T) {
	f := setupAuthService(t, true)
	f.register(t, "ada@example.com", "student")

	t.Run("success", func(t *testing.T) {
		rr := f.do(t, jsonRequest(http.MethodPost, "/api/auth/login",
			`{"email":"ADA@example.com","password":"correct-horse"}`))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, database.RoleStudent, resp.User.Role)

		info, err := f.storage.Peek(context.Background(), resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "password", info.Meta["initiate_from_flow"])
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := f.do(t, jsonRequest(http.MethodPost, "/api/auth/login",
			`{"email":"ada@example.com","password":"wrong-horse"}`))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, httputils.CodeUnauthorized, decodeError(t, rr).Error)
	})

	t.Run("unknown email", func(t *testing.T) {
		rr := f.do(t, jsonRequest(http.MethodPost, "/api/auth/login",
			`{"email":"nobody@example.com","password":"correct-horse"}`))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAuthService_Me(t *testing.T) {
	f := setupAuthService(t, true)
	token := f.register(t, "ada@example.com", "instructor").AccessToken

	rr := f.do(t, withToken(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), token))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		User   UserResponse `json:"user"`
		Scopes []string     `json:"scopes"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Contains(t, resp.Scopes, "test:*")

	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(t, withToken(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), "unknown"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthService_Logout(t *testing.T) {
	f := setupAuthService(t, true)
	token := f.register(t, "ada@example.com", "student").AccessToken

	rr := f.do(t, withToken(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), token))
	assert.Equal(t, http.StatusResetContent, rr.Code)

	_, err := f.storage.Peek(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	rr = f.do(t, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthService_LogoutAll(t *testing.T) {
	f := setupAuthService(t, true)
	first := f.register(t, "ada@example.com", "student").AccessToken

	rr := f.do(t, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"correct-horse"}`))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 2, f.storage.Len())

	rr = f.do(t, withToken(httptest.NewRequest(http.MethodPost, "/api/auth/logout-all", nil), first))
	assert.Equal(t, http.StatusResetContent, rr.Code)
	assert.Equal(t, 0, f.storage.Len())
}

func TestAuthService_RevokeToken(t *testing.T) {
	f := setupAuthService(t, true)
	token := f.register(t, "ada@example.com", "student").AccessToken

	rr := f.do(t, formRequest("/api/auth/revoke", url.Values{"token": {token}}))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, f.storage.Len())

	t.Run("unknown token", func(t *testing.T) {
		rr := f.do(t, formRequest("/api/auth/revoke", url.Values{"token": {"unknown"}}))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rr := f.do(t, formRequest("/api/auth/revoke", url.Values{}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unsupported hint", func(t *testing.T) {
		rr := f.do(t, formRequest("/api/auth/revoke", url.Values{"token": {"x"}, "token_type_hint": {"refresh_token"}}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "unsupported_token_type", decodeError(t, rr).Error)
	})
}

func TestAuthService_IntrospectToken(t *testing.T) {
	f := setupAuthService(t, true)
	resp := f.register(t, "ada@example.com", "student")

	rr := f.do(t, formRequest("/api/auth/introspect", url.Values{"token": {resp.AccessToken}}))
	require.Equal(t, http.StatusOK, rr.Code)

	var introspection IntrospectionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &introspection))
	assert.True(t, introspection.Active)
	assert.Equal(t, "ada@example.com", introspection.Username)
	assert.Equal(t, "student", introspection.Role)
	assert.Equal(t, "me:* catalog:read attempt:*", introspection.Scope)

	rr = f.do(t, formRequest("/api/auth/introspect", url.Values{"token": {"unknown"}}))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"active":false}`, rr.Body.String())
}

func TestGoogleHandler_Flow(t *testing.T) {
	f := setupAuthService(t, true)
	f.exchanger.profile = gauth.Profile{
		Email:         "grace@example.com",
		VerifiedEmail: true,
		Name:          "Grace",
		Picture:       "https://example.com/grace.png",
	}

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/google/login", nil))
	require.Equal(t, http.StatusFound, rr.Code)

	location, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=abc&state="+state, nil))
	require.Equal(t, http.StatusFound, rr.Code, rr.Body.String())
	assert.Equal(t, "abc", f.exchanger.gotCode)
	assert.NotEmpty(t, f.exchanger.gotVerifier)

	redirect, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "quiz.example.com", redirect.Host)
	assert.Equal(t, "/signed-in", redirect.Path)

	fragment, err := url.ParseQuery(redirect.Fragment)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", fragment.Get("token_type"))
	assert.Equal(t, "3600", fragment.Get("expires_in"))

	info, err := f.storage.Peek(context.Background(), fragment.Get("access_token"))
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", info.UserEmail)
	assert.Equal(t, database.RoleStudent, info.Role)
	assert.Equal(t, "google", info.Meta["initiate_from_flow"])

	t.Run("state is single use", func(t *testing.T) {
		rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=abc&state="+state, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGoogleHandler_Callback_Errors(t *testing.T) {
	f := setupAuthService(t, true)

	newState := func(t *testing.T) string {
		t.Helper()
		data, err := gauth.LoginState{Verifier: "verifier"}.Marshal()
		require.NoError(t, err)
		state, err := f.states.New(context.Background(), data)
		require.NoError(t, err)
		return state
	}

	t.Run("unknown state", func(t *testing.T) {
		rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=abc&state=bogus", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("exchange failure", func(t *testing.T) {
		f.exchanger.err = errors.New("google is down")
		defer func() { f.exchanger.err = nil }()

		rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=abc&state="+newState(t), nil))
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("unverified email", func(t *testing.T) {
		f.exchanger.profile = gauth.Profile{Email: "grace@example.com"}

		rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=abc&state="+newState(t), nil))
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, 0, f.storage.Len())
	})

	t.Run("denied by user", func(t *testing.T) {
		rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?error=access_denied", nil))
		require.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "https://quiz.example.com/signed-in#error=access_denied", rr.Header().Get("Location"))
	})
}
