package injectfactory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"

	"github.com/xraph/injectfactory"
	"github.com/xraph/injectfactory/broker"
	"github.com/xraph/injectfactory/config"
	ferrors "github.com/xraph/injectfactory/errors"
	"github.com/xraph/injectfactory/logger"
	"github.com/xraph/injectfactory/metrics"
)

type OrderService struct{ n int64 }

type UserService struct{}

type Greeter interface{ Greet() string }

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

type configurableService struct {
	calls      int
	id         string
	properties config.Map
	err        error
}

func (c *configurableService) Initialize(id string, properties config.Map) error {
	c.calls++
	c.id = id
	c.properties = properties
	return c.err
}

// countingInjector builds objects from per-class constructors and counts
// invocations.
type countingInjector struct {
	calls atomic.Int64
	build map[string]func() (any, error)
}

func (c *countingInjector) CreateInjectedObject(_ context.Context, class injectfactory.Class) (any, error) {
	c.calls.Add(1)
	fn, ok := c.build[class.Name]
	if !ok {
		return nil, errors.New("no constructor for " + class.Name)
	}
	return fn()
}

type testEnv struct {
	factory  *injectfactory.Factory
	injector *countingInjector
	classes  *injectfactory.ClassRegistry
	appCtx   *injectfactory.Attributes
	broker   *broker.Memory
}

func newTestEnv(t *testing.T, opts ...injectfactory.Option) *testEnv {
	t.Helper()

	classes := injectfactory.NewClassRegistry()
	injectfactory.MustRegisterClass[*OrderService](classes, "OrderService")
	injectfactory.MustRegisterClass[*UserService](classes, "UserService")
	injectfactory.MustRegisterClass[Greeter](classes, "Greeter")
	injectfactory.MustRegisterClass[*configurableService](classes, "Configurable")

	var seq atomic.Int64
	inj := &countingInjector{build: map[string]func() (any, error){
		"OrderService": func() (any, error) { return &OrderService{n: seq.Add(1)}, nil },
		"UserService":  func() (any, error) { return &UserService{}, nil },
		"Greeter":      func() (any, error) { return englishGreeter{}, nil },
		"Configurable": func() (any, error) { return &configurableService{}, nil },
	}}

	env := &testEnv{
		injector: inj,
		classes:  classes,
		appCtx:   injectfactory.NewAttributes(),
		broker:   broker.NewMemory(),
	}

	base := []injectfactory.Option{
		injectfactory.WithClassRegistry(classes),
		injectfactory.WithApplicationContext(env.appCtx),
		injectfactory.WithBroker(env.broker),
	}

	f, err := injectfactory.NewFactory(inj, append(base, opts...)...)
	require.NoError(t, err)
	env.factory = f

	return env
}

func TestNewFactory_NilInjector(t *testing.T) {
	_, err := injectfactory.NewFactory(nil)
	assert.ErrorIs(t, err, ferrors.ErrNilInjector)
}

func TestCreateFactoryInstance_Defaults(t *testing.T) {
	env := newTestEnv(t)

	inst, err := env.factory.CreateFactoryInstance(context.Background(), "orders", nil)
	require.NoError(t, err)

	assert.Equal(t, "orders", inst.ID())
	assert.Equal(t, "orders", inst.Source())
	assert.Equal(t, "orders", inst.AttributeID())
	assert.Equal(t, injectfactory.ScopeRequest, inst.Scope())
	assert.Nil(t, inst.Properties())
	assert.Same(t, env.factory, inst.Factory())

	assert.Zero(t, env.injector.calls.Load(), "request scope must not build eagerly")
	assert.Empty(t, env.broker.Snapshot())
}

func TestCreateFactoryInstance_EmptyPropertiesUseDefaults(t *testing.T) {
	env := newTestEnv(t)

	inst, err := env.factory.CreateFactoryInstance(context.Background(), "orders", config.Map{})
	require.NoError(t, err)

	assert.Equal(t, "orders", inst.Source())
	assert.Equal(t, "orders", inst.AttributeID())
	assert.Equal(t, injectfactory.ScopeRequest, inst.Scope())
}

func TestCreateFactoryInstance_ExplicitProperties(t *testing.T) {
	tests := []struct {
		name  string
		scope string
		want  injectfactory.Scope
	}{
		{"lower case", "session", injectfactory.ScopeSession},
		{"upper case", "SESSION", injectfactory.ScopeSession},
		{"mixed case application", "Application", injectfactory.ScopeApplication},
		{"request", "Request", injectfactory.ScopeRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			props := config.Map{
				"source":       "OrderService",
				"scope":        tt.scope,
				"attribute-id": "shared-orders",
			}

			inst, err := env.factory.CreateFactoryInstance(context.Background(), "orders", props)
			require.NoError(t, err)

			assert.Equal(t, "OrderService", inst.Source())
			assert.Equal(t, "shared-orders", inst.AttributeID())
			assert.Equal(t, tt.want, inst.Scope())
			assert.Equal(t, props, inst.Properties())
		})
	}
}

func TestCreateFactoryInstance_InvalidScope(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.factory.CreateFactoryInstance(context.Background(), "orders", config.Map{"scope": "galaxy"})
	require.Error(t, err)
	assert.ErrorIs(t, err, injectfactory.ErrInvalidScopeSentinel)
}

func TestCreateFactoryInstance_EmptyID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.factory.CreateFactoryInstance(context.Background(), "", nil)
	assert.ErrorIs(t, err, injectfactory.ErrConfigErrorSentinel)
}

func TestApplicationScope_Singleton(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	props := config.Map{"source": "OrderService", "scope": "application", "attribute-id": "orders"}

	first, err := env.factory.CreateFactoryInstance(ctx, "orders-a", props)
	require.NoError(t, err)
	require.EqualValues(t, 1, env.injector.calls.Load())

	second, err := env.factory.CreateFactoryInstance(ctx, "orders-b", props)
	require.NoError(t, err)

	assert.EqualValues(t, 1, env.injector.calls.Load(), "cache hit must not call the injection hook")
	assert.Same(t, first.ApplicationInstance(), second.ApplicationInstance())

	cached, ok := env.appCtx.Attribute("orders")
	require.True(t, ok)
	assert.Same(t, cached, first.ApplicationInstance())

	obj, err := env.factory.Lookup(ctx, second)
	require.NoError(t, err)
	assert.Same(t, cached, obj)
	assert.EqualValues(t, 1, env.injector.calls.Load())
}

func TestApplicationScope_AssignableClassAccepted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.appCtx.SetAttribute("greeter", englishGreeter{})

	inst, err := env.factory.CreateFactoryInstance(ctx, "greeter",
		config.Map{"source": "Greeter", "scope": "application"})
	require.NoError(t, err)

	assert.Equal(t, englishGreeter{}, inst.ApplicationInstance())
	assert.Zero(t, env.injector.calls.Load())
}

func TestApplicationScope_ClassMismatch(t *testing.T) {
	log, logs := logger.NewTestLogger()
	env := newTestEnv(t, injectfactory.WithLogger(log))
	ctx := context.Background()

	orders, err := env.factory.CreateFactoryInstance(ctx, "orders",
		config.Map{"source": "OrderService", "scope": "application", "attribute-id": "shared"})
	require.NoError(t, err)

	_, err = env.factory.CreateFactoryInstance(ctx, "users",
		config.Map{"source": "UserService", "scope": "application", "attribute-id": "shared"})
	require.Error(t, err)
	assert.True(t, ferrors.IsProcessingError(err))
	assert.False(t, ferrors.IsConfigError(err))

	cached, _ := env.appCtx.Attribute("shared")
	assert.Same(t, orders.ApplicationInstance(), cached, "cached instance must not be replaced")
	assert.Equal(t, 1, env.broker.RefCount("shared"), "failed binding must not count a reference")
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestApplicationScope_InjectorFailureWrappedAndLogged(t *testing.T) {
	log, logs := logger.NewTestLogger()
	env := newTestEnv(t, injectfactory.WithLogger(log))
	boom := errors.New("container exploded")
	env.injector.build["OrderService"] = func() (any, error) { return nil, boom }

	_, err := env.factory.CreateFactoryInstance(context.Background(), "orders",
		config.Map{"source": "OrderService", "scope": "application"})
	require.Error(t, err)

	assert.True(t, ferrors.IsConfigError(err))
	assert.ErrorIs(t, err, boom, "root cause must be preserved")

	_, ok := env.appCtx.Attribute("orders")
	assert.False(t, ok)
	assert.Zero(t, env.broker.RefCount("orders"))

	entries := logs.FilterMessage("failed to create application scoped instance").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "container exploded", entries[0].ContextMap()["error"])
	assert.Equal(t, "orders", entries[0].ContextMap()["destination"])
}

func TestApplicationScope_UnknownClassWrapped(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.factory.CreateFactoryInstance(context.Background(), "orders",
		config.Map{"source": "NoSuchService", "scope": "application"})
	require.Error(t, err)
	assert.True(t, ferrors.IsConfigError(err))
	assert.ErrorIs(t, err, injectfactory.ErrClassNotFoundSentinel)
}

func TestApplicationScope_NoApplicationContext(t *testing.T) {
	env := newTestEnv(t, injectfactory.WithApplicationContext(nil))

	_, err := env.factory.CreateFactoryInstance(context.Background(), "orders",
		config.Map{"source": "OrderService", "scope": "application"})
	require.Error(t, err)
	assert.True(t, ferrors.IsConfigError(err))
	assert.ErrorIs(t, err, injectfactory.ErrNoApplicationContextSentinel)
}

// The reference count is incremented on every application scope
// resolution, cache hits included, so repeated resolutions of the same
// destination add up. This mirrors the host behaviour the factory plugs
// into and is kept deliberately.
func TestRefCount_ApplicationCountsCacheHits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	props := config.Map{"source": "OrderService", "scope": "application", "attribute-id": "orders"}

	for i := 1; i <= 3; i++ {
		_, err := env.factory.CreateFactoryInstance(ctx, "orders", props)
		require.NoError(t, err)
		assert.Equal(t, i, env.broker.RefCount("orders"))
	}
}

func TestRefCount_Session(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		_, err := env.factory.CreateFactoryInstance(ctx, "cart",
			config.Map{"source": "UserService", "scope": "session", "attribute-id": "cart"})
		require.NoError(t, err)
		assert.Equal(t, i, env.broker.RefCount("cart"))
	}

	assert.Zero(t, env.injector.calls.Load(), "session scope must not build eagerly")
	_, ok := env.appCtx.Attribute("cart")
	assert.False(t, ok)
}

func TestRefCount_RequestNeverCounted(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.factory.CreateFactoryInstance(context.Background(), "ping",
		config.Map{"source": "UserService", "scope": "request"})
	require.NoError(t, err)
	assert.Empty(t, env.broker.Snapshot())
}

type failingBroker struct{ err error }

func (b failingBroker) IncrementAttributeIDRefCount(context.Context, string) (int, error) {
	return 0, b.err
}

func TestRefCount_BrokerFailure(t *testing.T) {
	boom := errors.New("broker down")
	env := newTestEnv(t, injectfactory.WithBroker(failingBroker{err: boom}))
	ctx := context.Background()

	_, err := env.factory.CreateFactoryInstance(ctx, "cart", config.Map{"source": "UserService", "scope": "session"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, ferrors.IsConfigError(err))

	_, err = env.factory.CreateFactoryInstance(ctx, "orders", config.Map{"source": "OrderService", "scope": "application"})
	assert.ErrorIs(t, err, boom)
	assert.True(t, ferrors.IsConfigError(err))
}

func TestRefCount_NoBroker(t *testing.T) {
	env := newTestEnv(t, injectfactory.WithBroker(nil))

	_, err := env.factory.CreateFactoryInstance(context.Background(), "orders",
		config.Map{"source": "OrderService", "scope": "application"})
	assert.NoError(t, err)
}

func TestApplicationScope_ConcurrentSingleton(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	props := config.Map{"source": "OrderService", "scope": "application", "attribute-id": "orders"}

	const workers = 32
	results := make([]any, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst, err := env.factory.CreateFactoryInstance(ctx, "orders", props)
			if assert.NoError(t, err) {
				results[i] = inst.ApplicationInstance()
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, env.injector.calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.Equal(t, workers, env.broker.RefCount("orders"))
}

func TestCreateInstance_Delegation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	props := config.Map{"source": "Configurable", "max": 5}

	inst, err := env.factory.CreateFactoryInstance(ctx, "conf", props)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		obj, err := inst.CreateInstance(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, i, env.injector.calls.Load())

		svc := obj.(*configurableService)
		assert.Equal(t, 1, svc.calls)
		assert.Equal(t, "conf", svc.id)
		assert.Equal(t, props, svc.properties)
	}
}

func TestCreateInstance_NotConfigurable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inst, err := env.factory.CreateFactoryInstance(ctx, "orders", config.Map{"source": "OrderService"})
	require.NoError(t, err)

	a, err := inst.CreateInstance(ctx)
	require.NoError(t, err)
	b, err := inst.CreateInstance(ctx)
	require.NoError(t, err)

	assert.NotSame(t, a, b, "CreateInstance must not cache")
}

func TestCreateInstance_ErrorsPropagateUnchanged(t *testing.T) {
	ctx := context.Background()

	t.Run("injector", func(t *testing.T) {
		env := newTestEnv(t)
		boom := errors.New("boom")
		env.injector.build["OrderService"] = func() (any, error) { return nil, boom }

		inst, err := env.factory.CreateFactoryInstance(ctx, "orders", config.Map{"source": "OrderService"})
		require.NoError(t, err)

		_, err = inst.CreateInstance(ctx)
		assert.Same(t, boom, err)
	})

	t.Run("initialize", func(t *testing.T) {
		env := newTestEnv(t)
		boom := errors.New("bad config")
		env.injector.build["Configurable"] = func() (any, error) { return &configurableService{err: boom}, nil }

		inst, err := env.factory.CreateFactoryInstance(ctx, "conf", config.Map{"source": "Configurable"})
		require.NoError(t, err)

		_, err = inst.CreateInstance(ctx)
		assert.Same(t, boom, err)
	})

	t.Run("nil instance", func(t *testing.T) {
		env := newTestEnv(t)
		env.injector.build["OrderService"] = func() (any, error) { return nil, nil }

		inst, err := env.factory.CreateFactoryInstance(ctx, "orders", config.Map{"source": "OrderService"})
		require.NoError(t, err)

		_, err = inst.CreateInstance(ctx)
		assert.ErrorIs(t, err, injectfactory.ErrNilInstanceSentinel)
	})
}

func TestLookup_Request(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inst, err := env.factory.CreateFactoryInstance(ctx, "orders", config.Map{"source": "OrderService"})
	require.NoError(t, err)

	a, err := env.factory.Lookup(ctx, inst)
	require.NoError(t, err)
	b, err := env.factory.Lookup(ctx, inst)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.EqualValues(t, 2, env.injector.calls.Load())
}

func TestLookup_Session(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inst, err := env.factory.CreateFactoryInstance(ctx, "cart",
		config.Map{"source": "OrderService", "scope": "session"})
	require.NoError(t, err)

	_, err = env.factory.Lookup(ctx, inst)
	assert.ErrorIs(t, err, injectfactory.ErrNoSessionSentinel)

	alice := injectfactory.WithSession(ctx, injectfactory.NewAttributes())
	bob := injectfactory.WithSession(ctx, injectfactory.NewAttributes())

	a1, err := env.factory.Lookup(alice, inst)
	require.NoError(t, err)
	a2, err := env.factory.Lookup(alice, inst)
	require.NoError(t, err)
	b1, err := env.factory.Lookup(bob, inst)
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b1)
	assert.EqualValues(t, 2, env.injector.calls.Load())
}

func TestLookup_SessionClassMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session := injectfactory.NewAttributes()
	session.SetAttribute("cart", &UserService{})

	inst, err := env.factory.CreateFactoryInstance(ctx, "cart",
		config.Map{"source": "OrderService", "scope": "session"})
	require.NoError(t, err)

	_, err = env.factory.Lookup(injectfactory.WithSession(ctx, session), inst)
	assert.True(t, ferrors.IsProcessingError(err))
}

func TestFactory_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.MustNew(reg)
	env := newTestEnv(t, injectfactory.WithMetrics(collector))
	ctx := context.Background()
	props := config.Map{"source": "OrderService", "scope": "application"}

	_, err := env.factory.CreateFactoryInstance(ctx, "orders", props)
	require.NoError(t, err)
	_, err = env.factory.CreateFactoryInstance(ctx, "orders", props)
	require.NoError(t, err)
	_, err = env.factory.CreateFactoryInstance(ctx, "bad", config.Map{"scope": "nope"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.InstancesCreated().WithLabelValues("application")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.ApplicationCacheHits()))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.RefCountIncrements().WithLabelValues("application")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Errors().WithLabelValues(ferrors.CodeInvalidScope)))
}

func TestFactory_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	env := newTestEnv(t, injectfactory.WithTracerProvider(tp))

	_, err := env.factory.CreateFactoryInstance(context.Background(), "orders",
		config.Map{"source": "OrderService", "scope": "application"})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "injectfactory.CreateInstance", spans[0].Name())
	assert.Equal(t, "injectfactory.CreateFactoryInstance", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}
