package injectfactory

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/injectfactory/logger"
	"github.com/xraph/injectfactory/metrics"
)

// Option configures a Factory.
type Option func(*Factory)

// WithClassRegistry sets the registry used to resolve destination sources.
func WithClassRegistry(r *ClassRegistry) Option {
	return func(f *Factory) {
		if r != nil {
			f.classes = r
		}
	}
}

// WithApplicationContext sets the host's application context, which holds
// application scoped objects. Without it application scoped destinations
// fail to configure.
func WithApplicationContext(store AttributeStore) Option {
	return func(f *Factory) { f.appCtx = store }
}

// WithBroker sets the broker that keeps attribute id reference counts.
// Without one, reference counting is skipped.
func WithBroker(b Broker) Option {
	return func(f *Factory) { f.broker = b }
}

func WithLogger(l logger.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(f *Factory) { f.metrics = c }
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Factory) {
		if tp != nil {
			f.tracer = tp.Tracer(tracerName)
		}
	}
}
