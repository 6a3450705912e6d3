package injectfactory

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/injectfactory/config"
	"github.com/xraph/injectfactory/errors"
)

// FactoryInstance is the construction policy of one configured destination.
// It is created by Factory.CreateFactoryInstance and owned by the host.
type FactoryInstance struct {
	factory     *Factory
	id          string
	properties  config.Map
	source      string
	scope       Scope
	attributeID string

	mu                  sync.RWMutex
	class               *Class
	applicationInstance any
}

func newFactoryInstance(f *Factory, id string, properties config.Map, s Settings) *FactoryInstance {
	return &FactoryInstance{
		factory:     f,
		id:          id,
		properties:  properties,
		source:      s.Source,
		scope:       s.Scope,
		attributeID: s.AttributeID,
	}
}

func (i *FactoryInstance) ID() string             { return i.id }
func (i *FactoryInstance) Properties() config.Map { return i.properties }
func (i *FactoryInstance) Source() string         { return i.source }
func (i *FactoryInstance) Scope() Scope           { return i.scope }
func (i *FactoryInstance) AttributeID() string    { return i.attributeID }
func (i *FactoryInstance) Factory() *Factory      { return i.factory }

// InstanceClass resolves the source against the factory's class registry.
// The result is cached after the first successful lookup.
func (i *FactoryInstance) InstanceClass() (Class, error) {
	i.mu.RLock()
	if i.class != nil {
		class := *i.class
		i.mu.RUnlock()
		return class, nil
	}
	i.mu.RUnlock()

	class, err := i.factory.classes.Lookup(i.source)
	if err != nil {
		return Class{}, err
	}

	i.mu.Lock()
	i.class = &class
	i.mu.Unlock()

	return class, nil
}

// ApplicationInstance returns the object bound to an application scoped
// destination, or nil.
func (i *FactoryInstance) ApplicationInstance() any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.applicationInstance
}

func (i *FactoryInstance) setApplicationInstance(obj any) {
	i.mu.Lock()
	i.applicationInstance = obj
	i.mu.Unlock()
}

// CreateInstance builds a new object through the factory's injection hook.
// If the object is Configurable it is initialized with the destination id
// and properties. Errors from the injector or from Initialize are returned
// unchanged. Nothing is cached here.
func (i *FactoryInstance) CreateInstance(ctx context.Context) (any, error) {
	ctx, span := i.factory.tracer.Start(ctx, "injectfactory.CreateInstance",
		trace.WithAttributes(
			attribute.String("destination", i.id),
			attribute.String("source", i.source),
		))
	defer span.End()

	obj, err := i.createInstance(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	i.factory.metrics.InstanceCreated(i.scope.String())
	return obj, nil
}

func (i *FactoryInstance) createInstance(ctx context.Context) (any, error) {
	class, err := i.InstanceClass()
	if err != nil {
		return nil, err
	}

	obj, err := i.factory.CreateInjectedObject(ctx, class)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.ErrNilInstance(class.Name)
	}

	if c, ok := obj.(Configurable); ok {
		if err := c.Initialize(i.id, i.properties); err != nil {
			return nil, err
		}
	}

	return obj, nil
}

func (i *FactoryInstance) String() string {
	return fmt.Sprintf("FactoryInstance{id=%s source=%s scope=%s attribute-id=%s}",
		i.id, i.source, i.scope, i.attributeID)
}
