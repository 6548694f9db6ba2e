// Package session manages the store authentication lifecycle: connect,
// one-time bootstrap, signin, token rotation, and logout.
package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akosarev/hostflux/internal/domain"
	"github.com/akosarev/hostflux/internal/ports"
)

// TokenDescription identifies the agent's authorization token. At most one
// token with this description exists per organization; every Authorize cycle
// revokes a prior match before minting a new one.
const TokenDescription = "telemetry-api"

// pingTimeout bounds the liveness check at connect time.
const pingTimeout = 5 * time.Second

// State is the session lifecycle position.
type State int

const (
	Unauthenticated State = iota
	SignedIn
	Authorized
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case SignedIn:
		return "signed-in"
	case Authorized:
		return "authorized"
	case LoggedOut:
		return "logged-out"
	}
	return "unknown"
}

// Credentials are the store account and tenancy parameters.
type Credentials struct {
	Username string
	Password string
	Org      string
	Bucket   string
}

// Manager owns one session instance. LoggedOut is terminal: a new Manager is
// needed for another cycle. Manager is not safe for concurrent use; it has a
// single owner (the startup/shutdown path).
type Manager struct {
	api   ports.StoreSession
	log   *zap.Logger
	creds Credentials

	session string
	token   string
	state   State
}

// New wires the store client and credentials into a fresh session instance.
func New(api ports.StoreSession, creds Credentials, log *zap.Logger) *Manager {
	return &Manager{api: api, creds: creds, log: log}
}

// State reports the lifecycle position.
func (m *Manager) State() State {
	return m.state
}

// Connect verifies store reachability with a bounded liveness check. A
// failure means "not ready", not broken: the error is transient-classified
// and callers may retry.
func (m *Manager) Connect(ctx context.Context) error {
	if err := m.api.Ping(ctx, pingTimeout); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}
	return nil
}

// Bootstrap performs idempotent one-time store initialization. If the store
// is already set up the call is a no-op.
func (m *Manager) Bootstrap(ctx context.Context) error {
	allowed, err := m.api.SetupAllowed(ctx)
	if err != nil {
		return fmt.Errorf("query setup state: %w", err)
	}
	if !allowed {
		m.log.Info("store already set up")
		return nil
	}
	req := domain.SetupRequest{
		Username: m.creds.Username,
		Password: m.creds.Password,
		Org:      m.creds.Org,
		Bucket:   m.creds.Bucket,
	}
	if err := m.api.Setup(ctx, req); err != nil {
		return fmt.Errorf("first-time setup: %w", err)
	}
	m.log.Info("store initialized",
		zap.String("org", m.creds.Org),
		zap.String("bucket", m.creds.Bucket))
	return nil
}

// Signin exchanges credentials for a session cookie.
func (m *Manager) Signin(ctx context.Context) error {
	if m.state == LoggedOut {
		return domain.ErrSessionClosed
	}
	s, err := m.api.Signin(ctx, m.creds.Username, m.creds.Password)
	if err != nil {
		return fmt.Errorf("signin: %w", err)
	}
	m.session = s
	m.state = SignedIn
	return nil
}

// Authorize runs the full token-rotation flow and returns the fresh token.
// Rotation order: signin, list existing tokens, resolve the organization,
// revoke any prior token carrying TokenDescription, mint a new read/write
// token on the organization's buckets.
func (m *Manager) Authorize(ctx context.Context) (string, error) {
	if err := m.Signin(ctx); err != nil {
		return "", err
	}
	auths, err := m.api.Authorizations(ctx, m.session)
	if err != nil {
		return "", fmt.Errorf("list authorizations: %w", err)
	}
	org, err := m.api.OrganizationByName(ctx, m.session, m.creds.Org)
	if err != nil {
		return "", fmt.Errorf("resolve organization: %w", err)
	}
	for _, a := range auths {
		if a.Description != TokenDescription {
			continue
		}
		if err := m.api.DeleteAuthorization(ctx, m.session, a.ID); err != nil {
			return "", fmt.Errorf("revoke stale token %s: %w", a.ID, err)
		}
		m.log.Info("revoked stale authorization", zap.String("id", a.ID))
	}
	fresh, err := m.api.CreateAuthorization(ctx, m.session, org.ID, TokenDescription)
	if err != nil {
		return "", fmt.Errorf("create authorization: %w", err)
	}
	m.token = fresh.Token
	m.state = Authorized
	m.log.Info("authorization token rotated", zap.String("org", org.Name))
	return fresh.Token, nil
}

// Logout invalidates the session server-side and clears local state. Local
// state is cleared even when the signout call fails; the instance is done
// either way.
func (m *Manager) Logout(ctx context.Context) error {
	if m.state == LoggedOut {
		return nil
	}
	session := m.session
	m.session, m.token = "", ""
	m.state = LoggedOut
	if session == "" {
		return nil
	}
	if err := m.api.Signout(ctx, session); err != nil {
		return fmt.Errorf("signout: %w", err)
	}
	m.log.Info("session logged out")
	return nil
}
