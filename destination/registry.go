package destination

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/xraph/injectfactory"
	"github.com/xraph/injectfactory/config"
	"github.com/xraph/injectfactory/errors"
	"github.com/xraph/injectfactory/logger"
	"github.com/xraph/injectfactory/metrics"
)

// Registry owns the configured destinations of a host. It creates their
// FactoryInstances through a Factory and gives their broker references back
// when they are unloaded.
type Registry struct {
	factory *injectfactory.Factory
	logger  logger.Logger
	metrics *metrics.Collector

	mu        sync.RWMutex
	instances map[string]*injectfactory.FactoryInstance
}

// Option configures a Registry.
type Option func(*Registry)

func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(r *Registry) { r.metrics = c }
}

// NewRegistry creates an empty registry backed by factory.
func NewRegistry(factory *injectfactory.Factory, opts ...Option) *Registry {
	r := &Registry{
		factory:   factory,
		logger:    logger.NewNoopLogger(),
		instances: make(map[string]*injectfactory.FactoryInstance),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("destinations")

	return r
}

// Factory returns the backing factory.
func (r *Registry) Factory() *injectfactory.Factory { return r.factory }

// Add configures destination id. The factory runs without the registry
// lock held, so injectors may call back into Get and Resolve.
func (r *Registry) Add(ctx context.Context, id string, properties config.Map) (*injectfactory.FactoryInstance, error) {
	if _, exists := r.Get(id); exists {
		return nil, errors.ErrDestinationExists(id)
	}

	inst, err := r.factory.CreateFactoryInstance(ctx, id, properties)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, exists := r.instances[id]; exists {
		r.mu.Unlock()
		return nil, errors.Join(errors.ErrDestinationExists(id), r.release(ctx, inst))
	}
	r.instances[id] = inst
	r.mu.Unlock()

	return inst, nil
}

// build configures every destination of file in order. If one fails, the
// ones already built are released again and the joined errors returned.
func (r *Registry) build(ctx context.Context, file *config.File) ([]*injectfactory.FactoryInstance, error) {
	built := make([]*injectfactory.FactoryInstance, 0, len(file.Destinations))
	for _, d := range file.Destinations {
		inst, err := r.factory.CreateFactoryInstance(ctx, d.ID, d.Properties)
		if err != nil {
			return nil, errors.Join(err, r.releaseAll(ctx, built))
		}
		built = append(built, inst)
	}

	return built, nil
}

// releaseAll releases insts in reverse order.
func (r *Registry) releaseAll(ctx context.Context, insts []*injectfactory.FactoryInstance) error {
	var errs []error
	for i := len(insts) - 1; i >= 0; i-- {
		if err := r.release(ctx, insts[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load validates file and configures each of its destinations next to the
// ones already registered. It is all or nothing: on failure the
// destinations built by this call are released and the registry is left as
// it was.
func (r *Registry) Load(ctx context.Context, file *config.File) error {
	if err := file.Validate(); err != nil {
		return err
	}
	if err := r.checkAbsent(file); err != nil {
		return err
	}

	built, err := r.build(ctx, file)
	if err != nil {
		return err
	}

	r.mu.Lock()
	for _, inst := range built {
		if _, exists := r.instances[inst.ID()]; exists {
			r.mu.Unlock()
			return errors.Join(errors.ErrDestinationExists(inst.ID()), r.releaseAll(ctx, built))
		}
	}
	for _, inst := range built {
		r.instances[inst.ID()] = inst
	}
	r.mu.Unlock()

	r.logger.Info("destinations loaded", logger.Int("count", len(built)))
	return nil
}

func (r *Registry) checkAbsent(file *config.File) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, d := range file.Destinations {
		if _, exists := r.instances[d.ID]; exists {
			errs = append(errs, errors.ErrDestinationExists(d.ID))
		}
	}
	return errors.Join(errs...)
}

// Reload replaces every destination with those of file.
//
// The new set is built before the old one is released, so a failing reload
// leaves the current destinations in place. Application scoped objects
// whose attribute id appears in both sets are reused rather than rebuilt.
// Pointing a live application attribute id at an incompatible source
// therefore fails; Remove the old destination first.
func (r *Registry) Reload(ctx context.Context, file *config.File) error {
	if err := file.Validate(); err != nil {
		return err
	}

	built, err := r.build(ctx, file)
	if err != nil {
		return err
	}

	next := make(map[string]*injectfactory.FactoryInstance, len(built))
	for _, inst := range built {
		next[inst.ID()] = inst
	}

	r.mu.Lock()
	old := r.instances
	r.instances = next
	r.mu.Unlock()

	r.logger.Info("destinations reloaded",
		logger.Int("count", len(built)),
		logger.Int("released", len(old)),
	)

	return r.releaseAll(ctx, sortedInstances(old))
}

// Remove unloads destination id.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	inst, ok := r.instances[id]
	delete(r.instances, id)
	r.mu.Unlock()

	if !ok {
		return errors.ErrDestinationNotFound(id)
	}
	return r.release(ctx, inst)
}

// UnloadAll unloads every destination and returns the joined release
// errors.
func (r *Registry) UnloadAll(ctx context.Context) error {
	r.mu.Lock()
	old := r.instances
	r.instances = make(map[string]*injectfactory.FactoryInstance)
	r.mu.Unlock()

	return r.releaseAll(ctx, sortedInstances(old))
}

// release gives back the broker reference held by a shared destination.
// When an application scoped attribute id drops to zero references its
// object leaves the application context and is closed if it is an
// io.Closer.
func (r *Registry) release(ctx context.Context, inst *injectfactory.FactoryInstance) error {
	if !inst.Scope().Shared() {
		return nil
	}

	releaser, ok := r.factory.Broker().(injectfactory.RefCountReleaser)
	if !ok {
		return nil
	}

	count, err := releaser.DecrementAttributeIDRefCount(ctx, inst.AttributeID())
	if err != nil {
		return err
	}
	r.metrics.RefCountReleased()

	if count > 0 || inst.Scope() != injectfactory.ScopeApplication {
		return nil
	}

	appCtx := r.factory.ApplicationContext()
	if appCtx == nil {
		return nil
	}

	appCtx.Lock()
	obj, found := appCtx.Attribute(inst.AttributeID())
	if found {
		appCtx.RemoveAttribute(inst.AttributeID())
	}
	appCtx.Unlock()

	if closer, ok := obj.(io.Closer); found && ok {
		if err := closer.Close(); err != nil {
			r.logger.Warn("failed to close application scoped instance",
				logger.DestinationID(inst.ID()),
				logger.AttributeID(inst.AttributeID()),
				logger.Error(err),
			)
		}
	}

	r.logger.Debug("application scoped instance released",
		logger.DestinationID(inst.ID()),
		logger.AttributeID(inst.AttributeID()),
	)
	return nil
}

// Get returns destination id.
func (r *Registry) Get(id string) (*injectfactory.FactoryInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	return inst, ok
}

// Resolve returns the object destination id stands for in the current
// request, see Factory.Lookup.
func (r *Registry) Resolve(ctx context.Context, id string) (any, error) {
	inst, ok := r.Get(id)
	if !ok {
		return nil, errors.ErrDestinationNotFound(id)
	}

	return r.factory.Lookup(ctx, inst)
}

// List returns the destinations sorted by id.
func (r *Registry) List() []*injectfactory.FactoryInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedInstances(r.instances)
}

// Len returns the number of destinations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

func sortedInstances(m map[string]*injectfactory.FactoryInstance) []*injectfactory.FactoryInstance {
	out := make([]*injectfactory.FactoryInstance, 0, len(m))
	for _, inst := range m {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
