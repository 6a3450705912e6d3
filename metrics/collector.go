package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "injectfactory"

// Collector holds the factory's Prometheus series. A nil *Collector is a
// valid no-op.
type Collector struct {
	instancesCreated   *prometheus.CounterVec
	applicationHits    prometheus.Counter
	refCountIncrements *prometheus.CounterVec
	refCountReleases   prometheus.Counter
	errors             *prometheus.CounterVec
}

// New creates a collector and registers it on reg. A nil reg skips
// registration, which is handy when the caller registers the collector
// itself.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		instancesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_created_total",
			Help:      "Objects built through the injector, by destination scope.",
		}, []string{"scope"}),
		applicationHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "application_cache_hits_total",
			Help:      "Application scoped destinations bound to an already cached object.",
		}),
		refCountIncrements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refcount_increments_total",
			Help:      "Attribute id reference count increments sent to the broker.",
		}, []string{"scope"}),
		refCountReleases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refcount_releases_total",
			Help:      "Attribute id reference count decrements sent on unload.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Factory failures by error code.",
		}, []string{"code"}),
	}

	if reg != nil {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// MustNew is New that panics on registration failure.
func MustNew(reg prometheus.Registerer) *Collector {
	c, err := New(reg)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Collector) InstanceCreated(scope string) {
	if c == nil {
		return
	}
	c.instancesCreated.WithLabelValues(scope).Inc()
}

func (c *Collector) ApplicationCacheHit() {
	if c == nil {
		return
	}
	c.applicationHits.Inc()
}

func (c *Collector) RefCountIncremented(scope string) {
	if c == nil {
		return
	}
	c.refCountIncrements.WithLabelValues(scope).Inc()
}

func (c *Collector) RefCountReleased() {
	if c == nil {
		return
	}
	c.refCountReleases.Inc()
}

// Error counts a failure. An empty code is recorded as "unknown".
func (c *Collector) Error(code string) {
	if c == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	c.errors.WithLabelValues(code).Inc()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.instancesCreated.Describe(ch)
	c.applicationHits.Describe(ch)
	c.refCountIncrements.Describe(ch)
	c.refCountReleases.Describe(ch)
	c.errors.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.instancesCreated.Collect(ch)
	c.applicationHits.Collect(ch)
	c.refCountIncrements.Collect(ch)
	c.refCountReleases.Collect(ch)
	c.errors.Collect(ch)
}

// Series accessors, mainly for tests and custom exporters.

func (c *Collector) InstancesCreated() *prometheus.CounterVec   { return c.instancesCreated }
func (c *Collector) ApplicationCacheHits() prometheus.Counter   { return c.applicationHits }
func (c *Collector) RefCountIncrements() *prometheus.CounterVec { return c.refCountIncrements }
func (c *Collector) RefCountReleases() prometheus.Counter       { return c.refCountReleases }
func (c *Collector) Errors() *prometheus.CounterVec             { return c.errors }
