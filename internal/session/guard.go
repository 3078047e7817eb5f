package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultVerifyInterval = 5 * time.Minute
	authPathPrefix        = "/auth/"
)

type State int

const (
	StateUnchecked State = iota
	StateVerifying
	StateAuthenticated
	StateUnauthenticated
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateError:
		return "error"
	}
	return "unknown"
}

var ErrInvalidIdentity = errors.New("invalid user data received")

// Guard keeps a client-held session honest: it drops expired or revoked
// tokens and caches the identity the server vouches for.
type Guard struct {
	client            *Client
	now               func() time.Time
	onUnauthenticated func()
	logger            *slog.Logger

	mu     sync.Mutex
	state  State
	user   *Identity
	tenant *Tenant
	err    error
}

type GuardOption func(*Guard)

// WithClock replaces time.Now for the local expiry check.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

// WithOnUnauthenticated registers the callback run whenever the session is
// dropped, typically a redirect to the login page.
func WithOnUnauthenticated(fn func()) GuardOption {
	return func(g *Guard) { g.onUnauthenticated = fn }
}

func WithLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) { g.logger = logger }
}

func NewGuard(client *Client, opts ...GuardOption) *Guard {
	g := &Guard{
		client:            client,
		now:               time.Now,
		onUnauthenticated: func() {},
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Verify checks the stored session for a client currently at path. Paths
// under /auth/ are never verified. The returned error is set only in the
// error state.
func (g *Guard) Verify(ctx context.Context, path string) (State, error) {
	if strings.HasPrefix(path, authPathPrefix) {
		return g.State(), nil
	}

	g.mu.Lock()
	g.state = StateVerifying
	g.err = nil
	g.mu.Unlock()

	store := g.client.Store()
	sess, err := store.Load()
	if err != nil {
		g.logger.Warn("stored session unreadable", "error", err)
		sess = nil
	}

	if sess == nil || TokenExpired(sess.JWT, g.now()) {
		g.logger.Info("token is missing or expired")
		return g.drop(), nil
	}

	user, err := g.client.TenantMe(ctx, sess.JWT)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) &&
			(apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			g.logger.Info("session rejected by server", "status", apiErr.Status)
			return g.drop(), nil
		}
		return g.fail(err)
	}

	if user == nil || user.ID == 0 {
		return g.fail(ErrInvalidIdentity)
	}

	g.mu.Lock()
	g.state = StateAuthenticated
	g.user = user
	g.tenant = user.Tenant
	g.mu.Unlock()

	return StateAuthenticated, nil
}

// drop clears the stored session and fires the unauthenticated callback.
func (g *Guard) drop() State {
	if err := g.client.Store().Clear(); err != nil {
		g.logger.Error("failed to clear session", "error", err)
	}

	g.mu.Lock()
	g.state = StateUnauthenticated
	g.user = nil
	g.tenant = nil
	g.mu.Unlock()

	g.onUnauthenticated()
	return StateUnauthenticated
}

// fail records a verification failure. The stored session is kept so a
// later verification can succeed.
func (g *Guard) fail(err error) (State, error) {
	g.logger.Warn("session verification failed", "error", err)

	g.mu.Lock()
	g.state = StateError
	g.err = err
	g.mu.Unlock()

	return StateError, err
}

// Run verifies immediately and then every interval until ctx is done.
func (g *Guard) Run(ctx context.Context, path string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultVerifyInterval
	}

	g.Verify(ctx, path)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Verify(ctx, path)
		}
	}
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Guard) User() *Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.user
}

func (g *Guard) Tenant() *Tenant {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tenant
}

func (g *Guard) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// IsAuthenticated reports a verified identity whose stored token has not
// expired since.
func (g *Guard) IsAuthenticated() bool {
	if g.User() == nil {
		return false
	}
	sess, err := g.client.Store().Load()
	if err != nil || sess == nil {
		return false
	}
	return !TokenExpired(sess.JWT, g.now())
}
