// Package navigation maps session state to the top-level navigation tree the
// UI should mount. Route selection is push-based: the Gate subscribes to the
// session and re-evaluates synchronously on every change.
package navigation

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ventamovil/session-core/internal/core/domain"
)

// Session is the slice of the session surface the gate consumes.
type Session interface {
	Snapshot() domain.Snapshot
	Subscribe(fn func(domain.Snapshot)) (cancel func())
}

// Route identifies one of the disjoint top-level navigation trees.
type Route int

const (
	RouteLoading Route = iota
	RouteLogin
	RouteAdministrator
	RouteCustomer
)

func (r Route) String() string {
	switch r {
	case RouteLoading:
		return "loading"
	case RouteLogin:
		return "login"
	case RouteAdministrator:
		return "administrator"
	case RouteCustomer:
		return "customer"
	default:
		return "unknown"
	}
}

// Resolve maps a session snapshot to a route. An authenticated session whose
// profile yields no resolvable role is inconsistent and falls back to the
// login flow.
func Resolve(s domain.Snapshot) Route {
	if s.IsLoading {
		return RouteLoading
	}
	if !s.IsAuthenticated {
		return RouteLogin
	}
	switch s.Role {
	case domain.RoleAdmin:
		return RouteAdministrator
	case domain.RoleCustomer:
		return RouteCustomer
	default:
		return RouteLogin
	}
}

// Gate tracks the active route for the lifetime of the app. Bind it once to
// the session service; Current is safe from any goroutine.
type Gate struct {
	log zerolog.Logger

	mu      sync.RWMutex
	current Route

	cancel func()
}

func NewGate(log zerolog.Logger) *Gate {
	return &Gate{log: log, current: RouteLoading}
}

// Bind applies the session's current snapshot and subscribes for changes.
func (g *Gate) Bind(session Session) {
	g.apply(session.Snapshot())
	g.cancel = session.Subscribe(g.apply)
}

// Current returns the route selected by the latest session snapshot.
func (g *Gate) Current() Route {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current
}

// Close detaches the gate from the session.
func (g *Gate) Close() {
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

func (g *Gate) apply(s domain.Snapshot) {
	if s.IsAuthenticated && !s.IsLoading && s.Role == domain.RoleNone {
		g.log.Error().Str("state", s.State.String()).Msg("authenticated session has no resolvable role, routing to login")
	}

	route := Resolve(s)

	g.mu.Lock()
	changed := route != g.current
	g.current = route
	g.mu.Unlock()

	if changed {
		g.log.Debug().Str("route", route.String()).Msg("route changed")
	}
}
