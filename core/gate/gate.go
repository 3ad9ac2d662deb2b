// Package gate decides, once per signed-in session, whether the user is admitted and where to.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
	"github.com/Shyamyemuka/goldenspire-learn/core/session"
)

const (
	MsgPendingApproval = "account pending approval"
	MsgUnknownRole     = "unknown role"
)

var ErrAlreadyMounted = errors.New("gate already mounted")

var decisionsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gate_decisions_total",
	Help: "Gate decisions taken on signed-in sessions, by outcome.",
}, []string{"outcome"})

type Area string

const (
	AreaNone    Area = ""
	AreaStudent Area = "student"
	AreaStaff   Area = "staff"
)

// Path is where the client is sent for the area.
func (a Area) Path() string {
	switch a {
	case AreaStudent:
		return "/student/dashboard"
	case AreaStaff:
		return "/teacher/dashboard"
	}
	return "/"
}

type Outcome int

const (
	// OutcomeNeutral means no profile could be read yet: nothing happens.
	OutcomeNeutral Outcome = iota
	OutcomeStudent
	OutcomeStaff
	OutcomeDenied
	OutcomeUnknownRole
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStudent:
		return "student"
	case OutcomeStaff:
		return "staff"
	case OutcomeDenied:
		return "denied"
	case OutcomeUnknownRole:
		return "unknown_role"
	}
	return "neutral"
}

// Admitted reports whether the outcome lets the user in.
func (o Outcome) Admitted() bool {
	return o == OutcomeStudent || o == OutcomeStaff
}

type Decision struct {
	Session auth.Session
	Outcome Outcome
	Area    Area
	// Message is shown to the user on denial.
	Message string
	Role    profile.Role
	Err     error
}

type (
	// Navigator carries decisions to the client. It is called once per admission or denial, never
	// for neutral or unknown-role outcomes.
	Navigator interface {
		Navigate(ctx context.Context, d Decision)
	}

	NavigatorFunc func(ctx context.Context, d Decision)

	ProfileFinder interface {
		GetProfile(ctx context.Context, id string, exec ...core.DBExecutor) (profile.Profile, error)
	}
)

func (f NavigatorFunc) Navigate(ctx context.Context, d Decision) { f(ctx, d) }

type Gate struct {
	sub      auth.Subscriber
	auth     auth.SignOuter
	sessions session.Accessor
	profiles ProfileFinder
	nav      Navigator
	logger   core.Logger

	mu      sync.Mutex
	handled map[string]Outcome
	dispose func()
}

func New(
	sub auth.Subscriber,
	signOuter auth.SignOuter,
	sessions session.Accessor,
	profiles ProfileFinder,
	nav Navigator,
	logger core.Logger,
) *Gate {
	return &Gate{
		sub:      sub,
		auth:     signOuter,
		sessions: sessions,
		profiles: profiles,
		nav:      nav,
		logger:   logger,
		handled:  make(map[string]Outcome),
	}
}

// Mount registers the gate's only subscription. The session holder must be attached first so that
// signed-in sessions are already held when the gate sees them.
func (g *Gate) Mount() (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dispose != nil {
		return nil, ErrAlreadyMounted
	}

	unsubscribe := g.sub.Subscribe(func(ctx context.Context, ev auth.Event) {
		g.Handle(ctx, ev)
	})
	var once sync.Once
	g.dispose = func() {
		once.Do(func() {
			unsubscribe()
			g.mu.Lock()
			g.dispose = nil
			g.handled = make(map[string]Outcome)
			g.mu.Unlock()
		})
	}
	return g.dispose, nil
}

// Outcome returns the decision taken for a session that is still signed in.
func (g *Gate) Outcome(sessionID string) (Outcome, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.handled[sessionID]
	return o, ok
}

// Handle reacts to one auth event. It returns the decision and whether one was taken; re-delivered
// and non sign-in events return false.
func (g *Gate) Handle(ctx context.Context, ev auth.Event) (Decision, bool) {
	switch ev.Kind {
	case auth.SignedOut:
		g.mu.Lock()
		delete(g.handled, ev.Session.ID)
		g.mu.Unlock()
		return Decision{}, false
	case auth.SignedIn:
	default:
		return Decision{}, false
	}

	sess := ev.Session
	if !g.sessions.Active(sess.ID) {
		return Decision{}, false
	}

	g.mu.Lock()
	if _, done := g.handled[sess.ID]; done {
		g.mu.Unlock()
		return Decision{}, false
	}
	g.handled[sess.ID] = OutcomeNeutral // claims the session against concurrent re-delivery
	g.mu.Unlock()

	d := g.decide(ctx, sess)
	decisionsCounter.WithLabelValues(d.Outcome.String()).Inc()

	g.mu.Lock()
	if d.Outcome == OutcomeNeutral {
		// a later delivery may find the profile
		delete(g.handled, sess.ID)
	} else if _, ok := g.handled[sess.ID]; ok {
		g.handled[sess.ID] = d.Outcome
	}
	g.mu.Unlock()

	switch d.Outcome {
	case OutcomeDenied:
		if err := g.auth.SignOut(ctx, sess.ID); err != nil {
			g.logger.Error(fmt.Sprintf("signing out unapproved session %s: %v", sess.ID, err), err)
			// the session is still active; a later delivery retries
			g.mu.Lock()
			delete(g.handled, sess.ID)
			g.mu.Unlock()
		}
		g.nav.Navigate(ctx, d)
	case OutcomeStudent, OutcomeStaff:
		g.nav.Navigate(ctx, d)
	case OutcomeUnknownRole:
		g.logger.Warn(fmt.Sprintf("session %s: no area for role %q", sess.ID, d.Role))
	}
	return d, true
}

func (g *Gate) decide(ctx context.Context, sess auth.Session) Decision {
	d := Decision{Session: sess}

	p, err := g.profiles.GetProfile(ctx, sess.UserID)
	if err != nil {
		if pkgerrors.Cause(err) != profile.ErrNotFound {
			d.Err = core.NewLookupError("profile", err)
			g.logger.Warn(fmt.Sprintf("gate: %v", d.Err), d.Err)
		}
		return d
	}

	d.Role = p.Role
	switch {
	case !p.IsApproved:
		d.Outcome = OutcomeDenied
		d.Message = MsgPendingApproval
	case p.Role.IsStudent():
		d.Outcome, d.Area = OutcomeStudent, AreaStudent
	case p.Role.IsStaff():
		d.Outcome, d.Area = OutcomeStaff, AreaStaff
	default:
		d.Outcome = OutcomeUnknownRole
		d.Message = MsgUnknownRole
	}
	return d
}
