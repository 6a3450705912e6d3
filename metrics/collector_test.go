package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/injectfactory/metrics"
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := metrics.New(reg)
	require.NoError(t, err)

	c.InstanceCreated("application")
	c.InstanceCreated("application")
	c.InstanceCreated("request")
	c.ApplicationCacheHit()
	c.RefCountIncremented("session")
	c.RefCountReleased()
	c.Error("CONFIG_ERROR")
	c.Error("")

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	got, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestCollector_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)

	_, err = metrics.New(reg)
	assert.Error(t, err)
	assert.Panics(t, func() { metrics.MustNew(reg) })
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *metrics.Collector
	assert.NotPanics(t, func() {
		c.InstanceCreated("request")
		c.ApplicationCacheHit()
		c.RefCountIncremented("session")
		c.RefCountReleased()
		c.Error("X")
	})
}
