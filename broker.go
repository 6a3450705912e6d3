package injectfactory

import "context"

// Broker tracks how many destinations share an attribute id. The factory
// only ever increments.
type Broker interface {
	IncrementAttributeIDRefCount(ctx context.Context, attributeID string) (int, error)
}

// RefCountReleaser is implemented by brokers that let the host give
// references back when destinations are unloaded.
type RefCountReleaser interface {
	DecrementAttributeIDRefCount(ctx context.Context, attributeID string) (int, error)
}
