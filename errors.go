package injectfactory

import (
	"github.com/xraph/injectfactory/errors"
)

// Re-export sentinels for errors.Is comparisons.
var (
	ErrConfigErrorSentinel          = errors.ErrConfigErrorSentinel
	ErrProcessingErrorSentinel      = errors.ErrProcessingErrorSentinel
	ErrInvalidScopeSentinel         = errors.ErrInvalidScopeSentinel
	ErrClassNotFoundSentinel        = errors.ErrClassNotFoundSentinel
	ErrNoApplicationContextSentinel = errors.ErrNoApplicationContextSentinel
	ErrNoSessionSentinel            = errors.ErrNoSessionSentinel
	ErrNilInstanceSentinel          = errors.ErrNilInstanceSentinel
)

// FactoryError is the structured error returned by the factory.
type FactoryError = errors.FactoryError
