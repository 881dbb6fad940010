package session

import (
	"context"
	"net/http"
	"time"
)

// HeaderName carries the session id for API clients without cookies.
const HeaderName = "X-Session-ID"

type CookieOptions struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// Manager binds requests to sessions.
type Manager struct {
	store Store
	opts  CookieOptions
}

func NewManager(store Store, opts CookieOptions) *Manager {
	if opts.Name == "" {
		opts.Name = "ease_session"
	}
	return &Manager{store: store, opts: opts}
}

func (m *Manager) Store() Store { return m.store }

// Middleware resolves the caller's session, issuing a new one when the
// request carries no id or an expired one.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderName)
		if c, err := r.Cookie(m.opts.Name); err == nil && c.Value != "" {
			id = c.Value
		}

		sess, ok := m.store.Lookup(id)
		if !ok {
			sess = m.store.Open("")
		}
		if sess.ID != id {
			m.issue(w, sess)
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
	})
}

// Renew drops the request's current session and issues a fresh one.
func (m *Manager) Renew(w http.ResponseWriter, r *http.Request) *Session {
	if cur, ok := FromContext(r.Context()); ok {
		m.store.Delete(cur.ID)
	}
	sess := m.store.Open("")
	m.issue(w, sess)
	return sess
}

func (m *Manager) issue(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.Name,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(m.opts.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(HeaderName, s.ID)
}
