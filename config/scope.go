package config

import (
	"strings"

	"github.com/xraph/injectfactory/errors"
)

// Scope is the lifetime policy of the objects behind a destination.
type Scope string

const (
	// ScopeRequest builds a fresh object for every lookup.
	ScopeRequest Scope = "request"
	// ScopeSession keeps one object per client session.
	ScopeSession Scope = "session"
	// ScopeApplication keeps one object per attribute id for the whole
	// application context.
	ScopeApplication Scope = "application"
)

// ParseScope parses a scope keyword. Matching ignores case and surrounding
// whitespace; the empty string is request scope.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ScopeRequest):
		return ScopeRequest, nil
	case string(ScopeSession):
		return ScopeSession, nil
	case string(ScopeApplication):
		return ScopeApplication, nil
	default:
		return "", errors.ErrInvalidScope(s)
	}
}

func (s Scope) String() string { return string(s) }

// Shared reports whether objects of this scope outlive a single request and
// are therefore reference counted on the broker.
func (s Scope) Shared() bool {
	return s == ScopeSession || s == ScopeApplication
}
