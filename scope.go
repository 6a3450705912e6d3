package injectfactory

import (
	"github.com/xraph/injectfactory/config"
)

// Scope is the lifetime policy of the objects behind a destination.
type Scope = config.Scope

const (
	ScopeRequest     = config.ScopeRequest
	ScopeSession     = config.ScopeSession
	ScopeApplication = config.ScopeApplication
)

// ParseScope parses a scope keyword, see config.ParseScope.
func ParseScope(s string) (Scope, error) {
	return config.ParseScope(s)
}
