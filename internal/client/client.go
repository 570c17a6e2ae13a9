// Package client talks to a running focuslock server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/focuslock/internal/api"
	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
	"github.com/eliteGoblin/focusd/focuslock/internal/logbuf"
	"github.com/eliteGoblin/focusd/focuslock/internal/usecase"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client is an HTTP client for the focuslock API.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// New creates a client for the server at addr (host:port or a URL).
func New(addr, token string) *Client {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		baseURL: strings.TrimRight(base, "/"),
		token:   token,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
			return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("server returned status %d", resp.StatusCode)}
		}
		return &APIError{Status: resp.StatusCode, Kind: errResp.Kind, Message: errResp.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Health checks the server is up.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartSession creates a running session.
func (c *Client) StartSession(ctx context.Context, duration time.Duration) (*api.SessionResponse, error) {
	var out api.SessionResponse
	req := api.CreateSessionRequest{DurationSecs: int64(duration / time.Second)}
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentSession returns the active session, or nil when idle.
func (c *Client) CurrentSession(ctx context.Context) (*api.SessionResponse, error) {
	var out *api.SessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions/current", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sessions returns the session history, newest first.
func (c *Client) Sessions(ctx context.Context) ([]api.SessionResponse, error) {
	var out []api.SessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SessionAction runs pause, resume, complete or cancel on a session.
func (c *Client) SessionAction(ctx context.Context, id, action string) (*api.SessionResponse, error) {
	var out api.SessionResponse
	path := "/api/sessions/" + url.PathEscape(id) + "/" + action
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rules lists block rules.
func (c *Client) Rules(ctx context.Context) ([]domain.BlockRule, error) {
	var out []domain.BlockRule
	if err := c.do(ctx, http.MethodGet, "/api/block-rules", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddRule creates a block rule.
func (c *Client) AddRule(ctx context.Context, in usecase.RuleInput) (*domain.BlockRule, error) {
	var out domain.BlockRule
	if err := c.do(ctx, http.MethodPost, "/api/block-rules", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRule changes the given fields of a rule.
func (c *Client) UpdateRule(ctx context.Context, id string, patch usecase.RulePatch) (*domain.BlockRule, error) {
	var out domain.BlockRule
	if err := c.do(ctx, http.MethodPatch, "/api/block-rules/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveRule deletes a rule.
func (c *Client) RemoveRule(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/block-rules/"+url.PathEscape(id), nil, nil)
}

// Favorites lists pinned applications.
func (c *Client) Favorites(ctx context.Context) ([]domain.Favorite, error) {
	var out []domain.Favorite
	if err := c.do(ctx, http.MethodGet, "/api/favorites", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddFavorite pins an application.
func (c *Client) AddFavorite(ctx context.Context, in usecase.FavoriteInput) (*domain.Favorite, error) {
	var out domain.Favorite
	if err := c.do(ctx, http.MethodPost, "/api/favorites", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveFavorite unpins an application.
func (c *Client) RemoveFavorite(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/favorites/"+url.PathEscape(id), nil, nil)
}

// Blocks returns the effective block set.
func (c *Client) Blocks(ctx context.Context) (*domain.BlockSetSnapshot, error) {
	var out domain.BlockSetSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/blocks", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Apps lists running applications, or searches them when query is set.
func (c *Client) Apps(ctx context.Context, query string) ([]domain.AppSummary, error) {
	path := "/api/apps"
	if query != "" {
		path = "/api/apps/search?q=" + url.QueryEscape(query)
	}
	var out []domain.AppSummary
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Settings lists every setting.
func (c *Client) Settings(ctx context.Context) ([]domain.Setting, error) {
	var out []domain.Setting
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Setting returns one setting.
func (c *Client) Setting(ctx context.Context, key string) (*domain.Setting, error) {
	var out domain.Setting
	if err := c.do(ctx, http.MethodGet, "/api/settings/"+url.PathEscape(key), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetSetting stores a setting.
func (c *Client) SetSetting(ctx context.Context, key, value string) (*domain.Setting, error) {
	var out domain.Setting
	if err := c.do(ctx, http.MethodPost, "/api/settings", domain.Setting{Key: key, Value: value}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logs returns recent server log entries.
func (c *Client) Logs(ctx context.Context) ([]logbuf.Entry, error) {
	var out []logbuf.Entry
	if err := c.do(ctx, http.MethodGet, "/api/logs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClearLogs empties the server log buffer.
func (c *Client) ClearLogs(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/logs", nil, nil)
}
