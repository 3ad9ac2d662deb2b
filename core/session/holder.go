// Package session keeps the process's view of the active sessions.
//
// A Holder is written only by its subscription to the auth service; everything else reads it
// through the Accessor methods.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
)

var ErrAlreadyAttached = errors.New("session holder already attached")

type ctxKey struct{}

// NewContext returns a copy of ctx carrying the id of the session acting in it.
func NewContext(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, sessionID)
}

// IDFromContext returns the session id stored by NewContext.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Accessor is the read side of a Holder.
type Accessor interface {
	Get(id string) (auth.Session, bool)
	Active(id string) bool
	// Session resolves the session whose id is carried by ctx.
	Session(ctx context.Context) (auth.Session, bool)
	// Current is the most recently signed-in session that is still held.
	Current() (auth.Session, bool)
}

type Holder struct {
	mu       sync.RWMutex
	sessions map[string]auth.Session
	current  string
	detach   func()
}

var _ Accessor = (*Holder)(nil)

func NewHolder() *Holder {
	return &Holder{sessions: make(map[string]auth.Session)}
}

// Attach subscribes the holder to sub. The holder can only be attached once at a time;
// the returned disposer detaches it.
func (h *Holder) Attach(sub auth.Subscriber) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.detach != nil {
		return nil, ErrAlreadyAttached
	}

	dispose := sub.Subscribe(h.apply)
	var once sync.Once
	h.detach = func() {
		once.Do(func() {
			dispose()
			h.mu.Lock()
			h.detach = nil
			h.mu.Unlock()
		})
	}
	return h.detach, nil
}

// apply is the only writer.
func (h *Holder) apply(_ context.Context, ev auth.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch ev.Kind {
	case auth.SignedIn:
		h.sessions[ev.Session.ID] = ev.Session
		h.current = ev.Session.ID
	case auth.TokenRefreshed, auth.SessionRestored:
		h.sessions[ev.Session.ID] = ev.Session
	case auth.SignedOut:
		delete(h.sessions, ev.Session.ID)
		if h.current == ev.Session.ID {
			h.current = ""
		}
	}
}

// Get returns the held session, ignoring expiry.
func (h *Holder) Get(id string) (auth.Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sess, ok := h.sessions[id]
	return sess, ok
}

func (h *Holder) Active(id string) bool {
	sess, ok := h.Get(id)
	return ok && sess.Active(core.NowFunc())
}

func (h *Holder) Session(ctx context.Context) (auth.Session, bool) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return auth.Session{}, false
	}
	sess, ok := h.Get(id)
	if !ok || !sess.Active(core.NowFunc()) {
		return auth.Session{}, false
	}
	return sess, true
}

func (h *Holder) Current() (auth.Session, bool) {
	h.mu.RLock()
	id := h.current
	h.mu.RUnlock()
	if id == "" {
		return auth.Session{}, false
	}
	sess, ok := h.Get(id)
	if !ok || !sess.Active(core.NowFunc()) {
		return auth.Session{}, false
	}
	return sess, true
}

// Len reports how many sessions are held, expired ones included.
func (h *Holder) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
