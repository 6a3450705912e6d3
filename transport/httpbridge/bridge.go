// Package httpbridge exposes the destinations of a registry over HTTP.
//
// Every request gets a session (see SessionManager) so session scoped
// destinations keep their object across calls from the same client. A
// destination whose object is an http.Handler serves the requests under
// /destinations/{id}/.
package httpbridge

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/json-iterator/go"

	"github.com/xraph/injectfactory"
	"github.com/xraph/injectfactory/destination"
	"github.com/xraph/injectfactory/errors"
	"github.com/xraph/injectfactory/logger"
)

// DestinationInfo is the JSON view of a configured destination.
type DestinationInfo struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Scope       string `json:"scope"`
	AttributeID string `json:"attribute_id"`
}

func infoOf(inst *injectfactory.FactoryInstance) DestinationInfo {
	return DestinationInfo{
		ID:          inst.ID(),
		Source:      inst.Source(),
		Scope:       inst.Scope().String(),
		AttributeID: inst.AttributeID(),
	}
}

// Bridge routes HTTP requests to destinations.
type Bridge struct {
	registry *destination.Registry
	sessions *SessionManager
	logger   logger.Logger
	router   chi.Router
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithSessionManager replaces the default in-memory session manager.
func WithSessionManager(m *SessionManager) Option {
	return func(b *Bridge) {
		if m != nil {
			b.sessions = m
		}
	}
}

// New creates a bridge over registry.
func New(registry *destination.Registry, opts ...Option) *Bridge {
	b := &Bridge{
		registry: registry,
		sessions: NewSessionManager(""),
		logger:   logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("httpbridge")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(b.sessions.Middleware)

	r.Get("/destinations", b.handleList)
	r.Get("/destinations/{id}", b.handleDescribe)
	r.Handle("/destinations/{id}/*", http.HandlerFunc(b.handleForward))

	b.router = r
	return b
}

// Sessions returns the session manager.
func (b *Bridge) Sessions() *SessionManager { return b.sessions }

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (b *Bridge) handleList(w http.ResponseWriter, r *http.Request) {
	list := b.registry.List()

	out := make([]DestinationInfo, 0, len(list))
	for _, inst := range list {
		out = append(out, infoOf(inst))
	}

	b.writeJSON(w, r, http.StatusOK, out)
}

func (b *Bridge) handleDescribe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inst, ok := b.registry.Get(id)
	if !ok {
		b.writeError(w, r, errors.ErrDestinationNotFound(id))
		return
	}

	b.writeJSON(w, r, http.StatusOK, infoOf(inst))
}

func (b *Bridge) handleForward(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	obj, err := b.registry.Resolve(r.Context(), id)
	if err != nil {
		b.writeError(w, r, err)
		return
	}

	h, ok := obj.(http.Handler)
	if !ok {
		b.writeError(w, r, errors.NotImplemented("destination "+id+" does not serve HTTP"))
		return
	}

	prefix := "/destinations/" + id
	if !strings.HasPrefix(r.URL.Path, prefix) {
		// chi matched an escaped form of the id
		prefix = strings.TrimSuffix(r.URL.Path, "/"+chi.URLParam(r, "*"))
	}

	http.StripPrefix(prefix, h).ServeHTTP(w, r)
}

type errorResponse struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

func (b *Bridge) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.GetHTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		b.logger.WithContext(r.Context()).Error("destination request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}

	b.writeJSON(w, r, status, errorResponse{Code: errors.CodeOf(err), Error: err.Error()})
}

func (b *Bridge) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		b.logger.WithContext(r.Context()).Warn("failed to write response", logger.Error(err))
	}
}
