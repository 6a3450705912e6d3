package injectfactory

import (
	"context"

	"github.com/xraph/injectfactory/config"
)

// Injector builds the object for a class. It is the one seam an adopting
// application fills in, typically by delegating to its DI container. It
// must return a non-nil object or an error.
type Injector interface {
	CreateInjectedObject(ctx context.Context, class Class) (any, error)
}

// InjectorFunc adapts a function to Injector.
type InjectorFunc func(ctx context.Context, class Class) (any, error)

func (f InjectorFunc) CreateInjectedObject(ctx context.Context, class Class) (any, error) {
	return f(ctx, class)
}

// Configurable is implemented by objects that want the destination id and
// properties after construction.
type Configurable interface {
	Initialize(id string, properties config.Map) error
}
