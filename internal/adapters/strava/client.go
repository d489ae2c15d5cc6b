// Package strava relays OAuth token calls and activity listing to the Strava API.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/okian/logbook/pkg/logger"
)

const (
	DefaultAPIURL   = "https://www.strava.com/api/v3"
	DefaultTokenURL = "https://www.strava.com/oauth/token"

	defaultPerPage = 50
	maxPerPage     = 200
)

// Token is what the logbook returns to the browser after an exchange or refresh.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresAt    int64  `json:"expires_at"`
	Athlete      any    `json:"athlete,omitempty"`
}

// Client talks to Strava on behalf of a single OAuth application.
type Client struct {
	oauth  oauth2.Config
	apiURL string
	http   *http.Client
	log    logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport used for token and API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithAPIURL overrides the Strava API base URL.
func WithAPIURL(u string) Option {
	return func(cl *Client) {
		if u != "" {
			cl.apiURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) Option {
	return func(cl *Client) {
		if u != "" {
			cl.oauth.Endpoint.TokenURL = u
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) {
		cl.log = l
	}
}

// NewClient creates a client for the given application credentials.
func NewClient(clientID, clientSecret, redirectURL string, opts ...Option) *Client {
	c := &Client{
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint: oauth2.Endpoint{
				TokenURL:  DefaultTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL: DefaultAPIURL,
		http:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ctx(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func (c *Client) configured() error {
	if c.oauth.ClientID == "" || c.oauth.ClientSecret == "" {
		return ErrNotConfigured
	}
	return nil
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (Token, error) {
	if strings.TrimSpace(code) == "" {
		return Token{}, fmt.Errorf("%w: authorization code required", ErrMissingInput)
	}
	if err := c.configured(); err != nil {
		return Token{}, err
	}
	tok, err := c.oauth.Exchange(c.ctx(ctx), code)
	if err != nil {
		return Token{}, fmt.Errorf("%w: exchange: %w", ErrUpstream, err)
	}
	return toToken(tok), nil
}

// Refresh trades a refresh token for a fresh access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Token{}, fmt.Errorf("%w: refresh token required", ErrMissingInput)
	}
	if err := c.configured(); err != nil {
		return Token{}, err
	}
	// an empty access token forces the source to refresh
	src := c.oauth.TokenSource(c.ctx(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return Token{}, fmt.Errorf("%w: refresh: %w", ErrUpstream, err)
	}
	return toToken(tok), nil
}

// ListActivities fetches one page of the athlete's activities.
func (c *Client) ListActivities(ctx context.Context, accessToken string, perPage, page int) ([]Activity, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, fmt.Errorf("%w: access token required", ErrMissingInput)
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)
	if page <= 0 {
		page = 1
	}

	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	endpoint := c.apiURL + "/athlete/activities?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	hc := oauth2.NewClient(c.ctx(ctx), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: list activities: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if c.log != nil {
			c.log.Warn(ctx, "strava rejected activity listing",
				logger.Int("status", resp.StatusCode), logger.String("body", string(body)))
		}
		return nil, fmt.Errorf("%w: list activities: status %d", ErrUpstream, resp.StatusCode)
	}

	var out []Activity
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode activities: %w", ErrUpstream, err)
	}
	return out, nil
}

func toToken(t *oauth2.Token) Token {
	out := Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Athlete:      t.Extra("athlete"),
	}
	if !t.Expiry.IsZero() {
		out.ExpiresAt = t.Expiry.Unix()
	}
	return out
}
