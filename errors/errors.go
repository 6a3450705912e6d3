package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/go-utils/errs"
)

// =============================================================================
// ERROR CODES
// =============================================================================

// Error code constants for structured errors.
const (
	CodeConfigError          = "CONFIG_ERROR"
	CodeProcessingError      = "SERVER_PROCESSING"
	CodeInvalidScope         = "INVALID_SCOPE"
	CodeClassNotFound        = "CLASS_NOT_FOUND"
	CodeClassAlreadyExists   = "CLASS_ALREADY_EXISTS"
	CodeNoApplicationContext = "NO_APPLICATION_CONTEXT"
	CodeNoSession            = "NO_SESSION"
	CodeNilInstance          = "NIL_INSTANCE"
	CodeDestinationNotFound  = "DESTINATION_NOT_FOUND"
	CodeDestinationExists    = "DESTINATION_EXISTS"
	CodeValidationError      = "VALIDATION_ERROR"
)

// =============================================================================
// PLAIN ERRORS
// =============================================================================

var (
	ErrNilInjector  = errs.New("injector cannot be nil")
	ErrEmptyID      = errs.New("destination id cannot be empty")
	ErrEmptyClass   = errs.New("class name cannot be empty")
	ErrTypeMismatch = errs.New("instance type mismatch")
)

// =============================================================================
// FACTORY ERROR (STRUCTURED ERROR)
// =============================================================================

// FactoryError represents a structured error with context.
type FactoryError struct {
	Code      string
	Message   string
	Cause     error
	Timestamp time.Time
	Context   map[string]any
}

func (e *FactoryError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}

	return e.Message
}

func (e *FactoryError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is interface for FactoryError.
// Compares by error code, allowing matching against sentinel errors.
func (e *FactoryError) Is(target error) bool {
	t, ok := target.(*FactoryError)
	if !ok {
		return false
	}

	return e.Code != "" && e.Code == t.Code
}

// WithContext adds context to the error.
func (e *FactoryError) WithContext(key string, value any) *FactoryError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}

	e.Context[key] = value

	return e
}

func newError(code, message string, cause error, ctx map[string]any) *FactoryError {
	if ctx == nil {
		ctx = make(map[string]any)
	}

	return &FactoryError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
		Context:   ctx,
	}
}

// ErrConfigError wraps a failure raised while configuring a destination.
func ErrConfigError(message string, cause error) *FactoryError {
	return newError(CodeConfigError, message, cause, nil)
}

// ErrSingletonError wraps a failure raised while creating or caching the
// application scoped instance of a destination.
func ErrSingletonError(source, id string, cause error) *FactoryError {
	return newError(CodeConfigError,
		fmt.Sprintf("unable to create application scoped instance of '%s' for destination '%s'", source, id),
		cause,
		map[string]any{"source": source, "destination": id},
	)
}

// ErrInvalidClassFound reports an existing scoped attribute whose type is
// incompatible with the configured class.
func ErrInvalidClassFound(attributeID, scope, id, configured, found string) *FactoryError {
	return newError(CodeProcessingError,
		fmt.Sprintf("attribute '%s' in %s scope for destination '%s' holds %s, expected %s",
			attributeID, scope, id, found, configured),
		nil,
		map[string]any{
			"attribute_id": attributeID,
			"scope":        scope,
			"destination":  id,
			"configured":   configured,
			"found":        found,
		},
	)
}

// ErrNilInstance reports an injector that returned neither a value nor an error.
func ErrNilInstance(class string) *FactoryError {
	return newError(CodeNilInstance, "injector returned nil instance for '"+class+"'", nil,
		map[string]any{"class": class})
}

func ErrInvalidScope(scope string) *FactoryError {
	return newError(CodeInvalidScope, "invalid scope '"+scope+"'", nil,
		map[string]any{"scope": scope})
}

func ErrClassNotFound(name string) *FactoryError {
	return newError(CodeClassNotFound, "class '"+name+"' not registered", nil,
		map[string]any{"class": name})
}

func ErrClassAlreadyExists(name string) *FactoryError {
	return newError(CodeClassAlreadyExists, "class '"+name+"' already registered", nil,
		map[string]any{"class": name})
}

func ErrNoApplicationContext() *FactoryError {
	return newError(CodeNoApplicationContext, "no application context configured", nil, nil)
}

func ErrNoSession(id string) *FactoryError {
	return newError(CodeNoSession, "no session available for destination '"+id+"'", nil,
		map[string]any{"destination": id})
}

func ErrDestinationNotFound(id string) *FactoryError {
	return newError(CodeDestinationNotFound, "destination '"+id+"' not found", nil,
		map[string]any{"destination": id})
}

func ErrDestinationExists(id string) *FactoryError {
	return newError(CodeDestinationExists, "destination '"+id+"' already defined", nil,
		map[string]any{"destination": id})
}

// ErrValidationError creates a validation error.
func ErrValidationError(field string, cause error) *FactoryError {
	return newError(CodeValidationError, fmt.Sprintf("validation error for field '%s'", field), cause,
		map[string]any{"field": field})
}

// =============================================================================
// HTTP ERRORS
// =============================================================================

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return http.StatusText(e.Code)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Is compares by HTTP status code.
func (e *HTTPError) Is(target error) bool {
	t, ok := target.(*HTTPError)
	if !ok {
		return false
	}

	return e.Code == t.Code
}

func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

func NotFound(message string) *HTTPError {
	return &HTTPError{Code: http.StatusNotFound, Message: message}
}

func NotImplemented(message string) *HTTPError {
	return &HTTPError{Code: http.StatusNotImplemented, Message: message}
}

func InternalError(err error) *HTTPError {
	return &HTTPError{Code: http.StatusInternalServerError, Err: err}
}

// =============================================================================
// STANDARD ERRORS PACKAGE INTEGRATION
// =============================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errs.New(text)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// =============================================================================
// SENTINEL ERRORS (for use with Is)
// =============================================================================

var (
	ErrConfigErrorSentinel          = &FactoryError{Code: CodeConfigError}
	ErrProcessingErrorSentinel      = &FactoryError{Code: CodeProcessingError}
	ErrInvalidScopeSentinel         = &FactoryError{Code: CodeInvalidScope}
	ErrClassNotFoundSentinel        = &FactoryError{Code: CodeClassNotFound}
	ErrClassAlreadyExistsSentinel   = &FactoryError{Code: CodeClassAlreadyExists}
	ErrNoApplicationContextSentinel = &FactoryError{Code: CodeNoApplicationContext}
	ErrNoSessionSentinel            = &FactoryError{Code: CodeNoSession}
	ErrNilInstanceSentinel          = &FactoryError{Code: CodeNilInstance}
	ErrDestinationNotFoundSentinel  = &FactoryError{Code: CodeDestinationNotFound}
	ErrDestinationExistsSentinel    = &FactoryError{Code: CodeDestinationExists}
	ErrValidationErrorSentinel      = &FactoryError{Code: CodeValidationError}
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError checks if the error is a configuration error.
func IsConfigError(err error) bool {
	return Is(err, ErrConfigErrorSentinel)
}

// IsProcessingError checks if the error is a processing error.
func IsProcessingError(err error) bool {
	return Is(err, ErrProcessingErrorSentinel)
}

// IsDestinationNotFound checks if the error is a destination not found error.
func IsDestinationNotFound(err error) bool {
	return Is(err, ErrDestinationNotFoundSentinel)
}

// CodeOf returns the code of the first FactoryError in err's chain, or "".
func CodeOf(err error) string {
	var fe *FactoryError
	if As(err, &fe) {
		return fe.Code
	}

	return ""
}

// GetHTTPStatusCode extracts an HTTP status code from err.
// Returns 500 if no mapping applies.
func GetHTTPStatusCode(err error) int {
	var httpErr *HTTPError
	if As(err, &httpErr) {
		return httpErr.Code
	}

	switch CodeOf(err) {
	case CodeDestinationNotFound:
		return http.StatusNotFound
	case CodeNoSession:
		return http.StatusUnauthorized
	}

	return http.StatusInternalServerError
}
