package injectfactory

import (
	"context"
	"sort"
	"sync"
)

// AttributeStore is a named-object store owned by the host: the application
// context or a client session. Lock and Unlock guard check-then-act
// sequences spanning several calls; single calls are safe on their own.
type AttributeStore interface {
	sync.Locker

	Attribute(name string) (any, bool)
	SetAttribute(name string, value any)
	RemoveAttribute(name string)
	AttributeNames() []string
}

// Attributes is the in-memory AttributeStore.
type Attributes struct {
	monitor sync.Mutex

	mu    sync.RWMutex
	attrs map[string]any
}

var _ AttributeStore = (*Attributes)(nil)

// NewAttributes creates an empty store.
func NewAttributes() *Attributes {
	return &Attributes{attrs: make(map[string]any)}
}

func (a *Attributes) Lock()   { a.monitor.Lock() }
func (a *Attributes) Unlock() { a.monitor.Unlock() }

// Attribute returns the value stored under name. A nil value counts as
// absent.
func (a *Attributes) Attribute(name string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	v, ok := a.attrs[name]
	return v, ok && v != nil
}

func (a *Attributes) SetAttribute(name string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.attrs[name] = value
}

func (a *Attributes) RemoveAttribute(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.attrs, name)
}

func (a *Attributes) AttributeNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.attrs))
	for name := range a.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type sessionContextKey struct{}

// WithSession attaches the client session store to ctx.
func WithSession(ctx context.Context, session AttributeStore) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// SessionFrom returns the session store carried by ctx.
func SessionFrom(ctx context.Context) (AttributeStore, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(AttributeStore)
	return s, ok && s != nil
}
