// Package session owns the authentication lifecycle: it is the single
// source of truth for "is there a valid authenticated user" and the only
// writer of the durable token pair.
package session

import (
	"context"
	"net/http"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// State is the session lifecycle state. Exactly one value holds at a time.
type State int

const (
	StateChecking State = iota // initial, startup check in flight
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Identity is the authenticated user's profile, fetched fresh from the
// backend on every session check and never mutated locally.
type Identity struct {
	ID          int      `json:"id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Mailbox     string   `json:"mailbox,omitempty"`
}

// Gateway is the slice of the request gateway the manager needs. The
// manager's own auth calls flow through the same chokepoint as data calls.
type Gateway interface {
	Call(ctx context.Context, method, path string, body, out any) error
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Manager drives the session state machine. Not safe for concurrent use;
// the client is single-flow by contract.
type Manager struct {
	gateway  Gateway
	store    Store
	state    State
	identity *Identity
	logger   zerolog.Logger
}

// Option modifies a Manager instance.
type Option func(*Manager)

// WithLogger sets the transition logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager initializes a session manager in the Checking state.
func NewManager(gateway Gateway, store Store, options ...Option) (*Manager, error) {
	if gateway == nil {
		return nil, errors.New("[NewManager] gateway is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}

	manager := &Manager{
		gateway: gateway,
		store:   store,
		state:   StateChecking,
		logger:  zerolog.Nop(),
	}

	for _, opt := range options {
		opt(manager)
	}

	return manager, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// Identity returns the current user profile, or nil outside Authenticated.
func (m *Manager) Identity() *Identity {
	return m.identity
}

// Login authenticates with the given credentials. Returns true only when
// both the login and the identity fetch succeed; any failure clears the
// token pair, settles the state to Unauthenticated and returns false.
// Errors are never propagated to the caller.
func (m *Manager) Login(ctx context.Context, username, password string) bool {
	m.state = StateChecking

	var tokens tokenResponse
	err := m.gateway.Call(ctx, http.MethodPost, "/auth/login", loginRequest{Username: username, Password: password}, &tokens)
	if err != nil {
		m.logger.Debug().Err(err).Str("username", username).Msg("login rejected")
		m.forceLogout()
		return false
	}

	if !m.persistPair(tokens) {
		m.forceLogout()
		return false
	}

	identity, err := m.fetchIdentity(ctx)
	if err != nil {
		// A missing profile after a successful login counts as a
		// failed login, not a separate state.
		m.logger.Debug().Err(err).Msg("identity fetch after login failed")
		m.forceLogout()
		return false
	}

	m.state = StateAuthenticated
	m.identity = identity
	m.logger.Info().Str("username", identity.Username).Str("role", identity.Role).Msg("logged in")
	return true
}

// Logout clears the token pair unconditionally. Idempotent, never fails
// from the caller's point of view, and makes no backend call.
func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		m.logger.Debug().Err(err).Msg("clearing token store on logout")
	}
	m.state = StateUnauthenticated
	m.identity = nil
	m.logger.Info().Msg("logged out")
}

// CheckSession performs the startup sequence: store read, identity check,
// at most one refresh attempt, one retry of the identity check. Steps are
// strictly ordered. The terminal state is always Authenticated or
// Unauthenticated; failures are absorbed, never returned.
func (m *Manager) CheckSession(ctx context.Context) {
	m.state = StateChecking

	accessToken, errAccess := m.store.Get(SlotAccessToken)
	refreshToken, errRefresh := m.store.Get(SlotRefreshToken)
	if errAccess != nil || errRefresh != nil || accessToken == "" || refreshToken == "" {
		// A half-present pair is treated as absent and removed.
		if accessToken != "" || refreshToken != "" {
			_ = m.store.Clear()
		}
		m.settleUnauthenticated()
		return
	}

	if identity, err := m.fetchIdentity(ctx); err == nil {
		m.state = StateAuthenticated
		m.identity = identity
		m.logger.Info().Str("username", identity.Username).Msg("session restored")
		return
	}

	// The access token is presumed expired. One refresh, no retry loop.
	var tokens tokenResponse
	err := m.gateway.Call(ctx, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: refreshToken}, &tokens)
	if err != nil {
		m.logger.Debug().Err(err).Msg("token refresh failed")
		m.forceLogout()
		return
	}
	if !m.persistPair(tokens) {
		m.forceLogout()
		return
	}

	identity, err := m.fetchIdentity(ctx)
	if err != nil {
		m.logger.Debug().Err(err).Msg("identity fetch after refresh failed")
		m.forceLogout()
		return
	}

	m.state = StateAuthenticated
	m.identity = identity
	m.logger.Info().Str("username", identity.Username).Msg("session restored after refresh")
}

// TokenExpiry returns the stored access token's exp claim via an unverified
// parse, or the zero time when no token is stored or it is not a JWT. Used
// for display and logging only; expiry decisions stay with the backend.
func (m *Manager) TokenExpiry() time.Time {
	token, err := m.store.Get(SlotAccessToken)
	if err != nil || token == "" {
		return time.Time{}
	}

	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (m *Manager) fetchIdentity(ctx context.Context) (*Identity, error) {
	var identity Identity
	if err := m.gateway.Call(ctx, http.MethodGet, "/auth/me", nil, &identity); err != nil {
		return nil, errors.Wrap(err, "[fetchIdentity] GET /auth/me")
	}
	return &identity, nil
}

// persistPair validates and stores a token response. A response missing
// either token is treated as a failed exchange.
func (m *Manager) persistPair(tokens tokenResponse) bool {
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		m.logger.Debug().Msg("token response missing a token")
		return false
	}
	if err := m.store.SetPair(tokens.AccessToken, tokens.RefreshToken); err != nil {
		m.logger.Debug().Err(err).Msg("persisting token pair")
		return false
	}
	return true
}

// forceLogout clears the pair and settles Unauthenticated after a failed
// login or an irrecoverable refresh chain failure.
func (m *Manager) forceLogout() {
	if err := m.store.Clear(); err != nil {
		m.logger.Debug().Err(err).Msg("clearing token store")
	}
	m.settleUnauthenticated()
}

func (m *Manager) settleUnauthenticated() {
	m.state = StateUnauthenticated
	m.identity = nil
}
