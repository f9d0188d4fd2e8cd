// Package dashboard is the client side of the portfolio API: a typed HTTP
// client plus local mirrors of the four collections that keep working when
// the API is unreachable (fallback and offline modes).
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/devfolio/portfolio-api/internal/models"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
}

// IsAPIError reports whether the API answered (as opposed to a transport failure).
func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

// TokenPair is the body returned by /auth/login and /auth/refresh.
type TokenPair struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int          `json:"expiresIn"`
	User         models.Admin `json:"user"`
}

// Client talks JSON to the portfolio API.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends one request. body is JSON encoded when non-nil and out is decoded
// from a non-empty 2xx answer when non-nil.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Login exchanges admin credentials for a token pair and keeps the access
// token for later requests.
func (c *Client) Login(ctx context.Context, username, password string) (TokenPair, error) {
	var tp TokenPair
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{"username": username, "password": password}, &tp)
	if err != nil {
		return TokenPair{}, err
	}
	c.SetToken(tp.AccessToken)
	return tp, nil
}

// Refresh rotates the refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var tp TokenPair
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, map[string]string{"refreshToken": refreshToken}, &tp); err != nil {
		return TokenPair{}, err
	}
	c.SetToken(tp.AccessToken)
	return tp, nil
}

// Logout revokes both tokens server side and forgets the access token.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, map[string]string{"refreshToken": refreshToken}, nil)
	c.SetToken("")
	return err
}
