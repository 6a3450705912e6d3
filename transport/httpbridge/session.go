package httpbridge

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/injectfactory"
	"github.com/xraph/injectfactory/logger"
)

const (
	// DefaultSessionCookie is the cookie that carries the session id.
	DefaultSessionCookie = "INJSESSIONID"
	// DefaultIdleTimeout is how long an unused session is kept.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultMaxSessions caps the live sessions; the least recently used
	// one is evicted to make room.
	DefaultMaxSessions = 10000
)

type session struct {
	store    *injectfactory.Attributes
	lastSeen time.Time
}

// SessionManager keeps one attribute store per client session in memory.
// Sessions idle for longer than the idle timeout are swept lazily when new
// sessions are created. Evicted or invalidated sessions close the stored
// objects that implement io.Closer.
type SessionManager struct {
	cookie      string
	idleTimeout time.Duration
	maxSessions int
	now         func() time.Time

	mu        sync.Mutex
	sessions  map[string]*session
	lastSweep time.Time
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithIdleTimeout sets how long an unused session survives. Zero or less
// keeps sessions until they are invalidated or evicted by the cap.
func WithIdleTimeout(d time.Duration) SessionOption {
	return func(m *SessionManager) { m.idleTimeout = d }
}

// WithMaxSessions caps the number of live sessions. Zero or less disables
// the cap.
func WithMaxSessions(n int) SessionOption {
	return func(m *SessionManager) { m.maxSessions = n }
}

// NewSessionManager creates a manager that tracks sessions with cookie. An
// empty name selects DefaultSessionCookie.
func NewSessionManager(cookie string, opts ...SessionOption) *SessionManager {
	if cookie == "" {
		cookie = DefaultSessionCookie
	}

	m := &SessionManager{
		cookie:      cookie,
		idleTimeout: DefaultIdleTimeout,
		maxSessions: DefaultMaxSessions,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSweep = m.now()

	return m
}

// CookieName returns the session cookie name.
func (m *SessionManager) CookieName() string { return m.cookie }

// Session returns the live store for id.
func (m *SessionManager) Session(id string) (*injectfactory.Attributes, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || m.expired(s, m.now()) {
		return nil, false
	}
	return s.store, true
}

// Invalidate drops session id and closes what was stored in it.
func (m *SessionManager) Invalidate(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	closeSession(s)
	return true
}

// Len returns the number of tracked sessions, including expired ones not
// yet swept.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops every expired session and returns how many were dropped.
func (m *SessionManager) Sweep() int {
	m.mu.Lock()
	dropped := m.sweepLocked(m.now())
	m.mu.Unlock()

	for _, s := range dropped {
		closeSession(s)
	}
	return len(dropped)
}

func (m *SessionManager) expired(s *session, now time.Time) bool {
	return m.idleTimeout > 0 && now.Sub(s.lastSeen) > m.idleTimeout
}

func (m *SessionManager) sweepLocked(now time.Time) []*session {
	m.lastSweep = now

	var dropped []*session
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			dropped = append(dropped, s)
		}
	}
	return dropped
}

// evictOldestLocked removes the least recently used session.
func (m *SessionManager) evictOldestLocked() *session {
	var (
		oldestID string
		oldest   *session
	)
	for id, s := range m.sessions {
		if oldest == nil || s.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, s
		}
	}
	if oldest != nil {
		delete(m.sessions, oldestID)
	}
	return oldest
}

func (m *SessionManager) getOrCreate(id string) (string, *injectfactory.Attributes, bool) {
	now := m.now()

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok && id != "" {
		if !m.expired(s, now) {
			s.lastSeen = now
			m.mu.Unlock()
			return id, s.store, false
		}
	}

	var dropped []*session
	if m.idleTimeout > 0 && now.Sub(m.lastSweep) >= m.idleTimeout/2 {
		dropped = m.sweepLocked(now)
	}
	if old, ok := m.sessions[id]; ok && id != "" {
		// expired but not yet swept
		delete(m.sessions, id)
		dropped = append(dropped, old)
	}
	for m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		dropped = append(dropped, m.evictOldestLocked())
	}

	id = uuid.NewString()
	s := &session{store: injectfactory.NewAttributes(), lastSeen: now}
	m.sessions[id] = s
	m.mu.Unlock()

	for _, d := range dropped {
		closeSession(d)
	}
	return id, s.store, true
}

func closeSession(s *session) {
	for _, name := range s.store.AttributeNames() {
		if v, ok := s.store.Attribute(name); ok {
			if c, ok := v.(io.Closer); ok {
				_ = c.Close()
			}
		}
	}
}

// Middleware attaches the caller's session to the request context,
// starting a new one when the cookie is missing, unknown or expired.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var current string
		if c, err := r.Cookie(m.cookie); err == nil {
			current = c.Value
		}

		id, store, created := m.getOrCreate(current)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     m.cookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := injectfactory.WithSession(r.Context(), store)
		ctx = logger.WithSessionID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
