// Package api is the HTTP client for the café POS REST API. A Client owns the transport;
// a Conn binds it to one staff session and replays a request once after a token refresh.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"kafe-pos/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 8 << 20
	requestIDKey   = "X-Request-ID"
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64 // requests per second; 0 disables limiting
	RateBurst  int
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Client sends requests to the POS API. It holds no credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logrus.Entry
}

// New creates a client. The base URL keeps its path prefix (e.g. ".../api/").
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/") + "/",
		httpClient: httpClient,
		limiter:    limiter,
		log:        logger.WithField("component", "api"),
	}, nil
}

// BaseURL returns the normalized base URL, always ending in "/".
func (c *Client) BaseURL() string { return c.baseURL }

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Login exchanges credentials for a new Session.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	status, raw, err := c.send(ctx, http.MethodPost, "auth/login/", nil, loginRequest{Username: username, Password: password}, "")
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, newError(status, raw)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if s.Access == "" {
		return nil, fmt.Errorf("login response has no access token")
	}
	return &s, nil
}

// Refresh exchanges the refresh token of s for a new access token. The returned Session
// keeps s.Refresh unless the server rotated it.
func (c *Client) Refresh(ctx context.Context, s *Session) (*Session, error) {
	if s == nil || s.Refresh == "" {
		return nil, ErrSessionExpired
	}
	status, raw, err := c.send(ctx, http.MethodPost, "auth/refresh/", nil, refreshRequest{Refresh: s.Refresh}, "")
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, newError(status, raw)
	}
	var out Session
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if out.Access == "" {
		return nil, fmt.Errorf("refresh response has no access token")
	}
	if out.Refresh == "" {
		out.Refresh = s.Refresh
	}
	return &out, nil
}

// DailyPDFURL is the server-rendered daily report; the client only links to it.
func (c *Client) DailyPDFURL(date string) string {
	return c.baseURL + "reports/daily-pdf/?" + url.Values{"date": {date}}.Encode()
}

func (c *Client) MonthlyPDFURL(year, month int) string {
	q := url.Values{}
	q.Set("year", fmt.Sprint(year))
	q.Set("month", fmt.Sprint(month))
	return c.baseURL + "reports/monthly-pdf/?" + q.Encode()
}

// send performs one HTTP round trip. Transport failures are wrapped in ErrUnreachable;
// any HTTP status is returned to the caller together with the body.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}, token string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
	}

	reqURL := c.baseURL + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set(requestIDKey, reqID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.WithFields(logrus.Fields{"method": method, "path": path, "request_id": reqID})
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(method, path, 0, time.Since(start))
		log.WithError(err).Debug("request failed")
		return 0, nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	metrics.ObserveAPIRequest(method, path, resp.StatusCode, time.Since(start))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response body: %w", ErrUnreachable, err)
	}
	log.WithField("status", resp.StatusCode).Debug("request done")
	return resp.StatusCode, raw, nil
}

// Conn is a Client bound to one staff session. It is safe for concurrent use; all
// requests of a chat share it, and a refresh by one request is seen by the others.
type Conn struct {
	client *Client

	mu   sync.RWMutex
	sess *Session

	refreshGroup singleflight.Group
}

// Connect binds the client to s. s may be nil; the Conn then needs Login first.
func (c *Client) Connect(s *Session) *Conn {
	return &Conn{client: c, sess: s}
}

func (c *Conn) Client() *Client { return c.client }

func (c *Conn) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess
}

func (c *Conn) LoggedIn() bool { return c.Session() != nil }

func (c *Conn) setSession(s *Session) {
	c.mu.Lock()
	c.sess = s
	c.mu.Unlock()
}

// Login replaces the Conn's session with a fresh one.
func (c *Conn) Login(ctx context.Context, username, password string) error {
	s, err := c.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	c.setSession(s)
	return nil
}

// Logout drops both tokens.
func (c *Conn) Logout() { c.setSession(nil) }

// clearIf drops the session only if it is still the one the failing request used,
// so a concurrent re-login is not undone.
func (c *Conn) clearIf(s *Session) {
	c.mu.Lock()
	if c.sess == s {
		c.sess = nil
	}
	c.mu.Unlock()
}

// refresh runs at most one refresh per stale session even when several requests hit
// 401 at the same time.
func (c *Conn) refresh(ctx context.Context, stale *Session) (*Session, error) {
	v, err, _ := c.refreshGroup.Do(stale.Refresh, func() (interface{}, error) {
		if cur := c.Session(); cur != nil && cur != stale {
			return cur, nil
		}
		fresh, err := c.client.Refresh(ctx, stale)
		metrics.RecordTokenRefresh(err == nil)
		if err != nil {
			c.clearIf(stale)
			return nil, err
		}
		c.mu.Lock()
		if c.sess == stale {
			c.sess = fresh
		}
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// call sends an authenticated request. On 401 it refreshes once and replays once; a
// failed refresh or a second 401 clears the session and returns ErrSessionExpired.
func (c *Conn) call(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	sess := c.Session()
	if sess == nil {
		return nil, ErrNotLoggedIn
	}

	status, raw, err := c.client.send(ctx, method, path, query, body, sess.Access)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		fresh, rerr := c.refresh(ctx, sess)
		if rerr != nil {
			c.client.log.WithError(rerr).Info("token refresh failed, session cleared")
			return nil, &Error{Status: status, Body: raw, Message: normalize(raw), err: ErrSessionExpired}
		}
		status, raw, err = c.client.send(ctx, method, path, query, body, fresh.Access)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			c.clearIf(fresh)
			return nil, &Error{Status: status, Body: raw, Message: normalize(raw), err: ErrSessionExpired}
		}
	}

	if status >= 400 {
		return nil, newError(status, raw)
	}
	return raw, nil
}

func (c *Conn) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	raw, err := c.call(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Conn) getList(ctx context.Context, path string, query url.Values, out interface{}) error {
	raw, err := c.call(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(unwrapList(raw), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Conn) sendJSON(ctx context.Context, method, path string, body, out interface{}) error {
	raw, err := c.call(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
