package injectfactory

import (
	"context"
	"fmt"

	"github.com/xraph/go-utils/di"
	"github.com/xraph/vessel"

	"github.com/xraph/injectfactory/errors"
)

type vesselScopeKey struct{}

// WithVesselScope makes VesselInjector resolve from scope instead of the
// root container for the lifetime of ctx, so scoped services follow the
// request.
func WithVesselScope(ctx context.Context, scope vessel.Scope) context.Context {
	return context.WithValue(ctx, vesselScopeKey{}, scope)
}

// VesselScopeFrom returns the vessel scope carried by ctx.
func VesselScopeFrom(ctx context.Context) (vessel.Scope, bool) {
	s, ok := ctx.Value(vesselScopeKey{}).(vessel.Scope)
	return s, ok && s != nil
}

// VesselInjector resolves classes by name from a vessel container.
type VesselInjector struct {
	container vessel.Vessel
}

var _ Injector = (*VesselInjector)(nil)

// NewVesselInjector creates an injector backed by container.
func NewVesselInjector(container vessel.Vessel) *VesselInjector {
	return &VesselInjector{container: container}
}

// Container returns the backing container.
func (v *VesselInjector) Container() vessel.Vessel { return v.container }

// CreateInjectedObject resolves class.Name and checks the result against
// the class type.
func (v *VesselInjector) CreateInjectedObject(ctx context.Context, class Class) (any, error) {
	var (
		obj any
		err error
	)

	if scope, ok := VesselScopeFrom(ctx); ok {
		obj, err = scope.Resolve(class.Name)
	} else {
		obj, err = v.container.Resolve(class.Name)
	}
	if err != nil {
		return nil, err
	}

	if obj != nil && class.Type != nil && !class.Accepts(obj) {
		return nil, fmt.Errorf("%w: service %s is %T, expected %s", errors.ErrTypeMismatch, class.Name, obj, class.Type)
	}

	return obj, nil
}

// Provide registers factory in the container under name and records T in
// the class registry under the same name, so destinations can use name as
// their source.
func Provide[T any](container vessel.Vessel, classes *ClassRegistry, name string, factory func(vessel.Vessel) (T, error), opts ...di.RegisterOption) error {
	if err := RegisterClass[T](classes, name); err != nil {
		return err
	}

	return container.Register(name, func(c vessel.Vessel) (any, error) {
		return factory(c)
	}, opts...)
}
