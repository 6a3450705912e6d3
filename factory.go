package injectfactory

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/injectfactory/config"
	"github.com/xraph/injectfactory/errors"
	"github.com/xraph/injectfactory/logger"
	"github.com/xraph/injectfactory/metrics"
)

const tracerName = "github.com/xraph/injectfactory"

// Factory turns destination definitions into FactoryInstances whose objects
// are built by an Injector.
type Factory struct {
	injector Injector
	classes  *ClassRegistry
	appCtx   AttributeStore
	broker   Broker
	logger   logger.Logger
	metrics  *metrics.Collector
	tracer   trace.Tracer
}

// NewFactory creates a factory that delegates construction to injector.
func NewFactory(injector Injector, opts ...Option) (*Factory, error) {
	if injector == nil {
		return nil, errors.ErrNilInjector
	}

	f := &Factory{
		injector: injector,
		classes:  NewClassRegistry(),
		logger:   logger.NewNoopLogger(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named("injectfactory")

	return f, nil
}

// Classes returns the registry used to resolve sources.
func (f *Factory) Classes() *ClassRegistry { return f.classes }

// ApplicationContext returns the application context, or nil.
func (f *Factory) ApplicationContext() AttributeStore { return f.appCtx }

// Broker returns the reference counting broker, or nil.
func (f *Factory) Broker() Broker { return f.broker }

// CreateInjectedObject is the injection hook; it hands class to the
// injector.
func (f *Factory) CreateInjectedObject(ctx context.Context, class Class) (any, error) {
	return f.injector.CreateInjectedObject(ctx, class)
}

// CreateFactoryInstance configures destination id.
//
// Application scoped destinations get their object now: the application
// context is locked, the object cached under the attribute id is reused
// (after a type check) or created and stored, and the broker reference
// count for the attribute id is incremented. Session scoped destinations
// only increment the reference count.
func (f *Factory) CreateFactoryInstance(ctx context.Context, id string, properties config.Map) (*FactoryInstance, error) {
	ctx, span := f.tracer.Start(ctx, "injectfactory.CreateFactoryInstance",
		trace.WithAttributes(attribute.String("destination", id)))
	defer span.End()

	inst, err := f.createFactoryInstance(ctx, id, properties)
	if err != nil {
		f.metrics.Error(errors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("scope", inst.scope.String()),
		attribute.String("attribute_id", inst.attributeID),
	)
	return inst, nil
}

func (f *Factory) createFactoryInstance(ctx context.Context, id string, properties config.Map) (*FactoryInstance, error) {
	if id == "" {
		return nil, errors.ErrConfigError("invalid destination", errors.ErrEmptyID)
	}

	settings, err := ResolveSettings(id, properties)
	if err != nil {
		return nil, err
	}

	inst := newFactoryInstance(f, id, properties, settings)

	switch inst.scope {
	case ScopeApplication:
		if err := f.bindApplicationInstance(ctx, inst); err != nil {
			return nil, err
		}
	case ScopeSession:
		if err := f.incrementRefCount(ctx, inst); err != nil {
			return nil, err
		}
	}

	f.logger.Debug("destination configured",
		logger.DestinationID(id),
		logger.Source(inst.source),
		logger.Scope(inst.scope.String()),
		logger.AttributeID(inst.attributeID),
	)

	return inst, nil
}

// bindApplicationInstance runs the check/create/store sequence for an
// application scoped destination under the application context lock. The
// reference count is incremented on cache hits as well.
func (f *Factory) bindApplicationInstance(ctx context.Context, inst *FactoryInstance) error {
	if f.appCtx == nil {
		return f.singletonError(inst, errors.ErrNoApplicationContext())
	}

	f.appCtx.Lock()
	defer f.appCtx.Unlock()

	obj, ok := f.appCtx.Attribute(inst.attributeID)
	if !ok {
		created, err := inst.CreateInstance(ctx)
		if err != nil {
			return f.singletonError(inst, err)
		}
		f.appCtx.SetAttribute(inst.attributeID, created)
		obj = created
	} else {
		class, err := inst.InstanceClass()
		if err != nil {
			return f.singletonError(inst, err)
		}
		if !class.Accepts(obj) {
			err := errors.ErrInvalidClassFound(inst.attributeID, ScopeApplication.String(), inst.id,
				class.String(), fmt.Sprintf("%T", obj))
			f.logger.Error("application scoped attribute has incompatible type",
				logger.DestinationID(inst.id),
				logger.AttributeID(inst.attributeID),
				logger.Error(err),
			)
			return err
		}
		f.metrics.ApplicationCacheHit()
	}

	inst.setApplicationInstance(obj)

	if err := f.incrementRefCount(ctx, inst); err != nil {
		return f.singletonError(inst, err)
	}

	return nil
}

func (f *Factory) incrementRefCount(ctx context.Context, inst *FactoryInstance) error {
	if f.broker == nil {
		return nil
	}

	count, err := f.broker.IncrementAttributeIDRefCount(ctx, inst.attributeID)
	if err != nil {
		return err
	}

	f.metrics.RefCountIncremented(inst.scope.String())
	f.logger.Debug("attribute reference count incremented",
		logger.AttributeID(inst.attributeID),
		logger.Int("count", count),
	)
	return nil
}

func (f *Factory) singletonError(inst *FactoryInstance, cause error) error {
	err := errors.ErrSingletonError(inst.source, inst.id, cause)
	f.logger.Error("failed to create application scoped instance",
		logger.DestinationID(inst.id),
		logger.Source(inst.source),
		logger.AttributeID(inst.attributeID),
		logger.Error(cause),
	)
	return err
}

// Lookup returns the object inst stands for in the current request.
//
// Application scope returns the object bound when inst was configured.
// Session scope reuses or creates the object in the session carried by ctx
// (see WithSession). Request scope builds a new object every call.
func (f *Factory) Lookup(ctx context.Context, inst *FactoryInstance) (any, error) {
	switch inst.scope {
	case ScopeApplication:
		obj := inst.ApplicationInstance()
		if obj == nil {
			return nil, errors.ErrNilInstance(inst.source)
		}
		return obj, nil

	case ScopeSession:
		session, ok := SessionFrom(ctx)
		if !ok {
			return nil, errors.ErrNoSession(inst.id)
		}
		return f.lookupSession(ctx, session, inst)

	default:
		return inst.CreateInstance(ctx)
	}
}

func (f *Factory) lookupSession(ctx context.Context, session AttributeStore, inst *FactoryInstance) (any, error) {
	session.Lock()
	defer session.Unlock()

	if obj, ok := session.Attribute(inst.attributeID); ok {
		class, err := inst.InstanceClass()
		if err != nil {
			return nil, err
		}
		if !class.Accepts(obj) {
			return nil, errors.ErrInvalidClassFound(inst.attributeID, ScopeSession.String(), inst.id,
				class.String(), fmt.Sprintf("%T", obj))
		}
		return obj, nil
	}

	obj, err := inst.CreateInstance(ctx)
	if err != nil {
		return nil, err
	}
	session.SetAttribute(inst.attributeID, obj)

	return obj, nil
}
