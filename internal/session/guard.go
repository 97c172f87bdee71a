// Package session gates protected views on the caller's authentication state.
package session

import (
	"sync"

	"github.com/baechuer/forgot-password/internal/domain"
)

type State int

const (
	Pending State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// Session is what the guard knows about a signed-in visitor.
type Session struct {
	User    domain.User
	Session domain.Session
}

// Status is one observation of the session source. Session is nil when no
// valid session exists; Pending is true while it is still being resolved.
type Status struct {
	Pending bool
	Session *Session
}

// View tells the caller what to render.
type View struct {
	State    State
	Redirect string // set only for Unauthenticated
	Session  *Session
}

// Guard is a small state machine. The redirect callback fires once per
// transition into Unauthenticated, never again while the state holds.
type Guard struct {
	mu         sync.Mutex
	state      State
	observed   bool
	onRedirect func(path string)
}

func NewGuard(onRedirect func(path string)) *Guard {
	if onRedirect == nil {
		onRedirect = func(string) {}
	}
	return &Guard{state: Pending, onRedirect: onRedirect}
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func evaluate(st Status) State {
	switch {
	case st.Pending:
		return Pending
	case st.Session == nil:
		return Unauthenticated
	default:
		return Authenticated
	}
}

func (g *Guard) Observe(st Status) View {
	next := evaluate(st)

	g.mu.Lock()
	entering := next == Unauthenticated && (g.state != Unauthenticated || !g.observed)
	g.state = next
	g.observed = true
	g.mu.Unlock()

	// callback runs outside the lock so it may call back into the guard
	if entering {
		g.onRedirect(LoginPath)
	}

	switch next {
	case Unauthenticated:
		return View{State: next, Redirect: LoginPath}
	case Authenticated:
		return View{State: next, Session: st.Session}
	default:
		return View{State: next}
	}
}
