package gauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quizgenius/backend/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// BuildOAuthConfig builds the oauth2.Config of the Google client.
func BuildOAuthConfig(cfg config.GAuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// LoginState is kept in the StateStorage between the login redirect and the callback.
type LoginState struct {
	Verifier string `json:"verifier"`
}

func (s LoginState) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

func UnmarshalLoginState(data []byte) (LoginState, error) {
	var state LoginState
	if err := json.Unmarshal(data, &state); err != nil {
		return LoginState{}, fmt.Errorf("decode login state: %w", err)
	}
	if state.Verifier == "" {
		return LoginState{}, ErrBadState
	}

	return state, nil
}

// Profile is the part of the Google profile used for sign-in.
type Profile struct {
	Email         string
	VerifiedEmail bool
	Name          string
	Picture       string
}

// Exchanger turns an authorization code into the profile of the signed-in user.
type Exchanger interface {
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (Profile, error)
}

// GoogleExchanger is the Exchanger talking to Google.
type GoogleExchanger struct {
	config *oauth2.Config
}

func NewGoogleExchanger(cfg *oauth2.Config) *GoogleExchanger {
	return &GoogleExchanger{config: cfg}
}

func (e *GoogleExchanger) AuthCodeURL(state, verifier string) string {
	return e.config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

func (e *GoogleExchanger) Exchange(ctx context.Context, code, verifier string) (Profile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)})

	token, err := e.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Profile{}, fmt.Errorf("exchange code: %w", err)
	}

	service, err := googleoauth2.NewService(ctx, option.WithHTTPClient(e.config.Client(ctx, token)))
	if err != nil {
		return Profile{}, fmt.Errorf("create google client: %w", err)
	}

	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Profile{}, fmt.Errorf("get user info: %w", err)
	}

	return Profile{
		Email:         info.Email,
		VerifiedEmail: info.VerifiedEmail != nil && *info.VerifiedEmail,
		Name:          info.Name,
		Picture:       info.Picture,
	}, nil
}

var _ Exchanger = (*GoogleExchanger)(nil)
