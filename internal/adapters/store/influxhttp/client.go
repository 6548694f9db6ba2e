// Package influxhttp is a REST client for the time-series store's session,
// setup, and authorization surface. The write path lives in influxwrite; this
// client covers the calls that run under a session cookie before any API
// token exists.
package influxhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/akosarev/hostflux/internal/domain"
	"github.com/akosarev/hostflux/internal/misc"
	"github.com/akosarev/hostflux/internal/ports"
)

// requestTimeout is the fixed timeout applied to session/setup/auth calls.
const requestTimeout = 10 * time.Second

// Client talks to the store's /api/v2 REST surface.
type Client struct {
	base    *url.URL
	hc      *http.Client
	backoff []time.Duration
}

var _ ports.StoreSession = (*Client)(nil)

// New normalizes the endpoint URL and configures the HTTP client.
func New(endpoint string, hc *http.Client) (*Client, error) {
	if hc == nil {
		hc = &http.Client{Timeout: requestTimeout}
	}
	u, err := url.Parse(normalizeBase(endpoint))
	if err != nil {
		return nil, err
	}
	return &Client{base: u, hc: hc, backoff: misc.DefaultBackoff}, nil
}

func normalizeBase(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return strings.TrimRight(s, "/")
	}
	return "http://" + strings.TrimRight(s, "/")
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// Ping is the liveness check. It uses its own bounded timeout and is not
// retried here; callers decide whether "not ready" is worth waiting for.
func (c *Client) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/ping"), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer closeBody(resp)
	return checkHTTPStatus(resp)
}

// SetupAllowed reports whether the store still accepts first-time onboarding.
func (c *Client) SetupAllowed(ctx context.Context) (bool, error) {
	var out struct {
		Allowed bool `json:"allowed"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v2/setup", "", nil, &out); err != nil {
		return false, err
	}
	return out.Allowed, nil
}

// Setup performs first-time onboarding with the initial user/org/bucket.
func (c *Client) Setup(ctx context.Context, req domain.SetupRequest) error {
	body := map[string]string{
		"username": req.Username,
		"password": req.Password,
		"org":      req.Org,
		"bucket":   req.Bucket,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/v2/setup", "", body, nil)
}

// Signin exchanges credentials for a session cookie. The store may answer
// with one Set-Cookie header or several; both forms yield the same "; "
// delimited cookie string.
func (c *Client) Signin(ctx context.Context, username, password string) (string, error) {
	resp, err := c.send(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/v2/signin"), nil)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		req.SetBasicAuth(username, password)
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer closeBody(resp)
	session := sessionCookie(resp.Header.Values("Set-Cookie"))
	if session == "" {
		return "", errors.New("signin: no session cookie in response")
	}
	return session, nil
}

// Signout invalidates the session server-side.
func (c *Client) Signout(ctx context.Context, session string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v2/signout", session, nil, nil)
}

// Authorizations lists the existing API tokens.
func (c *Client) Authorizations(ctx context.Context, session string) ([]domain.Authorization, error) {
	var out struct {
		Authorizations []authorizationJSON `json:"authorizations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v2/authorizations", session, nil, &out); err != nil {
		return nil, err
	}
	auths := make([]domain.Authorization, 0, len(out.Authorizations))
	for _, a := range out.Authorizations {
		auths = append(auths, a.toDomain())
	}
	return auths, nil
}

// CreateAuthorization mints a token with read and write permissions on the
// organization's buckets.
func (c *Client) CreateAuthorization(ctx context.Context, session, orgID, description string) (domain.Authorization, error) {
	type resource struct {
		Type  string `json:"type"`
		OrgID string `json:"orgID"`
	}
	type permission struct {
		Action   string   `json:"action"`
		Resource resource `json:"resource"`
	}
	body := struct {
		OrgID       string       `json:"orgID"`
		Description string       `json:"description"`
		Permissions []permission `json:"permissions"`
	}{
		OrgID:       orgID,
		Description: description,
		Permissions: []permission{
			{Action: "read", Resource: resource{Type: "buckets", OrgID: orgID}},
			{Action: "write", Resource: resource{Type: "buckets", OrgID: orgID}},
		},
	}
	var out authorizationJSON
	if err := c.doJSON(ctx, http.MethodPost, "/api/v2/authorizations", session, body, &out); err != nil {
		return domain.Authorization{}, err
	}
	return out.toDomain(), nil
}

// DeleteAuthorization revokes a token by ID.
func (c *Client) DeleteAuthorization(ctx context.Context, session, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v2/authorizations/"+url.PathEscape(id), session, nil, nil)
}

// OrganizationByName resolves an organization; zero matches yield
// domain.ErrNotFound.
func (c *Client) OrganizationByName(ctx context.Context, session, name string) (domain.Organization, error) {
	var out struct {
		Orgs []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"orgs"`
	}
	path := "/api/v2/orgs?org=" + url.QueryEscape(name)
	if err := c.doJSON(ctx, http.MethodGet, path, session, nil, &out); err != nil {
		return domain.Organization{}, err
	}
	for _, o := range out.Orgs {
		if o.Name == name {
			return domain.Organization{ID: o.ID, Name: o.Name}, nil
		}
	}
	return domain.Organization{}, fmt.Errorf("organization %q: %w", name, domain.ErrNotFound)
}

type authorizationJSON struct {
	ID          string `json:"id"`
	Token       string `json:"token"`
	Description string `json:"description"`
	OrgID       string `json:"orgID"`
}

func (a authorizationJSON) toDomain() domain.Authorization {
	return domain.Authorization{ID: a.ID, Token: a.Token, Description: a.Description, OrgID: a.OrgID}
}

// sessionCookie joins the cookie pairs of every Set-Cookie value with "; ",
// dropping attributes such as Path or Expires.
func sessionCookie(setCookies []string) string {
	pairs := make([]string, 0, len(setCookies))
	for _, sc := range setCookies {
		pair, _, _ := strings.Cut(sc, ";")
		pair = strings.TrimSpace(pair)
		if pair != "" {
			pairs = append(pairs, pair)
		}
	}
	return strings.Join(pairs, "; ")
}

func (c *Client) doJSON(ctx context.Context, method, path, session string, body, out any) (retErr error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		payload = b
	}

	resp, err := c.send(ctx, func() (*http.Request, error) {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), rd)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		if session != "" {
			req.Header.Set("Cookie", session)
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close response body: %w", cerr)
		}
	}()

	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		if err != nil {
			return fmt.Errorf("drain body: %w", err)
		}
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send issues the request with retry. The status check runs inside the
// retried op so gateway-class responses (502/503/504/429) are retried along
// with transport failures; a failed attempt's body is drained before the next
// attempt reuses the connection.
func (c *Client) send(ctx context.Context, mkReq func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	op := func() error {
		req, err := mkReq()
		if err != nil {
			return err
		}
		r, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		if err := checkHTTPStatus(r); err != nil {
			closeBody(r)
			return err
		}
		resp = r
		return nil
	}
	if err := misc.Retry(ctx, c.backoff, IsRetryable, op); err != nil {
		return nil, err
	}
	return resp, nil
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func checkHTTPStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &StatusError{Code: resp.StatusCode, msg: fmt.Sprintf("store status: %s", resp.Status)}
}

// StatusError is an HTTP-level failure from the store.
type StatusError struct {
	msg  string
	Code int
}

func (e *StatusError) Error() string {
	return e.msg
}

// IsRetryable classifies transient failures: gateway-class statuses, broken
// connections, and timeouts. Everything else, including domain.ErrNotFound,
// is permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusBadGateway, http.StatusServiceUnavailable,
			http.StatusGatewayTimeout, http.StatusTooManyRequests:
			return true
		default:
			return false
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
