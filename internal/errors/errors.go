// Package errors provides centralized error definitions and error handling utilities
// for duet. It defines domain-specific errors, semantic error types, error
// constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures inside the conversation engine:
//   - RequestFailedError: the completion endpoint could not produce a reply
//   - InvalidTranscriptStateError: an internal invariant of the transcript or
//     turn pointer was violated (a programming defect)
//   - SpeechError: speech playback could not run (always swallowed by callers)
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewRequestFailedError("http://localhost:1234/v1/chat/completions", "API error: 503 Service Unavailable").
//	    WithStatusCode(503)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrRequestFailed) { ... }
//
//	var reqErr *errors.RequestFailedError
//	if errors.As(err, &reqErr) { ... }
//
// # Error Classification
//
// None of these errors is retryable. A failed turn stops the session and the
// user restarts it explicitly.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Conversation sentinel errors
var (
	// ErrRequestFailed indicates that a completion request produced no usable reply.
	ErrRequestFailed = New("completion request failed")
	// ErrInvalidTranscriptState indicates a violated transcript or turn invariant.
	ErrInvalidTranscriptState = New("invalid transcript state")
	// ErrAlreadyRunning indicates that a conversation is already running.
	ErrAlreadyRunning = New("conversation already running")
	// ErrNotRunning indicates that an operation requires a running conversation.
	ErrNotRunning = New("conversation not running")
	// ErrNotPaused indicates that an operation requires a paused conversation.
	ErrNotPaused = New("conversation not paused")
	// ErrClosed indicates that the controller has been shut down.
	ErrClosed = New("controller closed")
)

// Speech sentinel errors
var (
	// ErrSpeechUnavailable indicates that no speech engine could be used.
	ErrSpeechUnavailable = New("speech unavailable")
)

// General sentinel errors
var (
	// ErrNotFound indicates that a resource could not be found.
	ErrNotFound = New("not found")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// DuetError is the base interface for all duet errors.
type DuetError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// RequestFailedError reports that the completion client could not obtain a
// valid response: a non-success HTTP status, a transport failure, or a
// malformed body.
//
// Example:
//
//	err := errors.NewRequestFailedError(endpoint, "API error: 500 Internal Server Error").WithStatusCode(500)
//	fmt.Println(err) // "request failed [endpoint=..., status=500]: API error: 500 Internal Server Error"
type RequestFailedError struct {
	baseError
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	Endpoint   string
	Message    string
}

// NewRequestFailedError creates a new RequestFailedError.
func NewRequestFailedError(endpoint, message string) *RequestFailedError {
	return &RequestFailedError{
		baseError: baseError{
			message:    message,
			severity:   SeverityError,
			userFacing: true,
		},
		Endpoint: endpoint,
		Message:  message,
	}
}

// WithStatusCode records the HTTP status returned by the endpoint.
func (e *RequestFailedError) WithStatusCode(code int) *RequestFailedError {
	e.StatusCode = code
	return e
}

// WithCause adds a cause to the error.
func (e *RequestFailedError) WithCause(cause error) *RequestFailedError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *RequestFailedError) Error() string {
	var parts []string
	if e.Endpoint != "" {
		parts = append(parts, fmt.Sprintf("endpoint=%s", e.Endpoint))
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}

	prefix := "request failed"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("request failed [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *RequestFailedError) Is(target error) bool {
	if _, ok := target.(*RequestFailedError); ok {
		return true
	}
	if target == ErrRequestFailed {
		return true
	}
	return e.baseError.Is(target)
}

// InvalidTranscriptStateError reports a broken internal invariant, such as
// building history for an agent the registry does not know. It should never
// occur in correct operation.
type InvalidTranscriptStateError struct {
	baseError
	Agent string
}

// NewInvalidTranscriptStateError creates a new InvalidTranscriptStateError.
func NewInvalidTranscriptStateError(message string) *InvalidTranscriptStateError {
	return &InvalidTranscriptStateError{
		baseError: baseError{
			message:    message,
			severity:   SeverityCritical,
			userFacing: false,
		},
	}
}

// WithAgent adds the agent involved to the error context.
func (e *InvalidTranscriptStateError) WithAgent(agent string) *InvalidTranscriptStateError {
	e.Agent = agent
	return e
}

// Error returns the formatted error message.
func (e *InvalidTranscriptStateError) Error() string {
	prefix := "invalid transcript state"
	if e.Agent != "" {
		prefix = fmt.Sprintf("invalid transcript state [agent=%s]", e.Agent)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *InvalidTranscriptStateError) Is(target error) bool {
	if _, ok := target.(*InvalidTranscriptStateError); ok {
		return true
	}
	if target == ErrInvalidTranscriptState {
		return true
	}
	return e.baseError.Is(target)
}

// SpeechError reports a playback failure. Callers log it and carry on.
type SpeechError struct {
	baseError
	Engine string
}

// NewSpeechError creates a new SpeechError.
func NewSpeechError(message string, cause error) *SpeechError {
	return &SpeechError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: false,
		},
	}
}

// WithEngine records the speech engine that failed.
func (e *SpeechError) WithEngine(engine string) *SpeechError {
	e.Engine = engine
	return e
}

// Error returns the formatted error message.
func (e *SpeechError) Error() string {
	prefix := "speech error"
	if e.Engine != "" {
		prefix = fmt.Sprintf("speech error [engine=%s]", e.Engine)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SpeechError) Is(target error) bool {
	if _, ok := target.(*SpeechError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("persona", "C")
//	fmt.Println(err) // "persona not found: C"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s not found", resourceType),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	base := fmt.Sprintf("%s not found: %s", e.ResourceType, e.ResourceID)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if target == ErrNotFound {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("system prompt cannot be empty").WithField("personas.a.system_prompt")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrInvalidInput {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsUserFacing returns true if the error message is safe to display to end users.
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    displayToUser(err.Error())
//	} else {
//	    displayToUser("An internal error occurred")
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var duetErr DuetError
	if As(err, &duetErr) {
		return duetErr.IsUserFacing()
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement DuetError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var duetErr DuetError
	if As(err, &duetErr) {
		return duetErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to load personas")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
