package injectfactory

import (
	"github.com/xraph/injectfactory/config"
)

// Settings are the construction settings of one destination after
// defaults are applied.
type Settings struct {
	Source      string
	Scope       Scope
	AttributeID string
}

// ResolveSettings applies the destination defaults. Without properties the
// destination id is both the source and the attribute id and the scope is
// request. The attribute id defaults to the destination id so unrelated
// destinations never share a cached object by accident.
func ResolveSettings(id string, properties config.Map) (Settings, error) {
	if properties == nil {
		return Settings{Source: id, Scope: ScopeRequest, AttributeID: id}, nil
	}

	scope, err := ParseScope(properties.String(config.PropertyScope, string(ScopeRequest)))
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Source:      properties.String(config.PropertySource, id),
		Scope:       scope,
		AttributeID: properties.String(config.PropertyAttributeID, id),
	}, nil
}
