// Package restclient implements the RestClient external-collaborator
// contract of spec §4.7: plain HTTPS calls against the relay's REST
// surface, with bearer-token attach, a proactive refresh once the
// current access token's exp claim is imminent, transparent
// refresh-and-retry-once on a reactive 401, and ErrAuthExpired on a
// second 401.
//
// Grounded on MKhiriev-GoPassKeeper's internal/adapter/http_client.go:
// a resty.Client base, a mutex-guarded current token, and a
// mapHTTPError-style status mapping. The account-management CRUD
// surface spec §6 lists (signup, invitations, self, backups, Ecowatt)
// stays an external, uncalled contract per the spec's own Non-goals —
// only the endpoints the core itself drives (SRP login rounds, token
// refresh, instance/peer listing) get typed helpers here.
package restclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gladysassistant/gateway-client/errs"
)

// tokenRefreshSkew is how far ahead of its exp claim do() proactively
// refreshes the access token, so a burst of requests doesn't each race
// the same imminent expiry into a reactive 401/refresh/retry.
const tokenRefreshSkew = 30 * time.Second

// Role distinguishes which access-token-refresh endpoint a Client uses.
type Role string

const (
	RoleUser     Role = "user"
	RoleInstance Role = "instance"
)

// Config configures a Client.
type Config struct {
	ServerURL     string
	ClientVersion string
	RequestTimeout time.Duration
}

// Client is the RestClient collaborator: plain HTTPS calls plus
// bearer-token lifecycle management.
type Client struct {
	http *resty.Client
	role Role

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

// New creates a Client for role talking to cfg.ServerURL, tagged with
// the "Gladys/<version>" user agent spec §6 requires.
func New(cfg Config, role Role) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.ServerURL, "/")).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("User-Agent", "Gladys/"+cfg.ClientVersion)

	return &Client{http: http, role: role}
}

// SetTokens installs the access/refresh token pair, e.g. after a
// successful SRP login or a manual restore from persisted client state.
func (c *Client) SetTokens(accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
	c.refreshToken = refreshToken
}

// AccessToken returns the current access token.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// RefreshToken returns the current refresh token.
func (c *Client) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshToken
}

// AccessTokenExpiry decodes (without verifying — the relay is the only
// party that can verify its own token) the access token's exp claim, so
// callers can decide whether a proactive refresh is worthwhile before a
// burst of calls.
func AccessTokenExpiry(accessToken string) (time.Time, error) {
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("restclient: parse access token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}, fmt.Errorf("restclient: access token has no claims")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("restclient: access token has no exp claim")
	}
	return exp.Time, nil
}

// Get performs a GET request against path, decoding the JSON response
// body into out (nil to discard it).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request, encoding body as the JSON request body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodDelete, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.ensureFreshToken(ctx); err != nil {
		return err
	}

	resp, err := c.execute(ctx, method, path, body, false)
	if err != nil {
		return err
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		if refreshErr := c.refresh(ctx); refreshErr != nil {
			return fmt.Errorf("%w: %v", errs.ErrAuthExpired, refreshErr)
		}
		resp, err = c.execute(ctx, method, path, body, false)
		if err != nil {
			return err
		}
		if resp.StatusCode() == http.StatusUnauthorized {
			return errs.ErrAuthExpired
		}
	}

	if err := mapHTTPError(resp); err != nil {
		return err
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("restclient: decode response body: %w", err)
	}
	return nil
}

// ensureFreshToken proactively refreshes the access token when its exp
// claim is within tokenRefreshSkew of now, so do() does not have to
// learn about an expired token via a reactive 401. A token do() cannot
// parse (not yet set, or opaque) is left to the reactive 401 path.
func (c *Client) ensureFreshToken(ctx context.Context) error {
	token := c.AccessToken()
	if token == "" {
		return nil
	}
	exp, err := AccessTokenExpiry(token)
	if err != nil {
		return nil
	}
	if time.Until(exp) > tokenRefreshSkew {
		return nil
	}
	if err := c.refresh(ctx); err != nil {
		return fmt.Errorf("%w: proactive refresh: %v", errs.ErrAuthExpired, err)
	}
	return nil
}

// doAnonymous issues one request without an authorization header, for
// the unauthenticated SRP rounds (spec §4.2) where no access token
// exists yet to attach.
func (c *Client) doAnonymous(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.execute(ctx, method, path, body, true)
	if err != nil {
		return err
	}
	if err := mapHTTPError(resp); err != nil {
		return err
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("restclient: decode response body: %w", err)
	}
	return nil
}

// execute issues one HTTP round trip. anonymous=true skips the
// authorization header, for the unauthenticated SRP rounds.
func (c *Client) execute(ctx context.Context, method, path string, body any, anonymous bool) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if !anonymous {
		if token := c.AccessToken(); token != "" {
			req.SetHeader("authorization", token)
		}
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", errs.ErrTransport, method, path, err)
	}
	return resp, nil
}

// RefreshAccessToken exchanges the refresh token for a fresh access
// token via the role-appropriate endpoint and returns it, for
// transport.SocketSession's connect-time exchange (spec §4.5 step 1).
func (c *Client) RefreshAccessToken(ctx context.Context) (string, error) {
	if err := c.refresh(ctx); err != nil {
		return "", err
	}
	return c.AccessToken(), nil
}

// refresh exchanges the refresh token for a new access token via the
// role-appropriate endpoint (spec §6 "Refresh (user)"/"Refresh
// (instance)").
func (c *Client) refresh(ctx context.Context) error {
	path := "/users/access-token"
	if c.role == RoleInstance {
		path = "/instances/access-token"
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("authorization", c.RefreshToken()).
		Get(path)
	if err != nil {
		return fmt.Errorf("%w: refresh: %v", errs.ErrTransport, err)
	}
	if err := mapHTTPError(resp); err != nil {
		return err
	}

	var result struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return fmt.Errorf("restclient: decode refresh response: %w", err)
	}

	c.mu.Lock()
	c.accessToken = result.AccessToken
	c.mu.Unlock()
	return nil
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	return fmt.Errorf("%w: http %d: %s", errs.ErrTransport, resp.StatusCode(), body)
}
