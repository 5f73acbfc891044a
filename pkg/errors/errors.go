package errors

import (
	"errors"
	"fmt"
)

// Generic error types

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrExternal indicates an upstream API returned an unusable response
	ErrExternal = errors.New("external service error")

	// ErrNotImplemented indicates a code path that is not supported
	ErrNotImplemented = errors.New("not implemented")
)

// Tool errors. These never abort an agent run.

var (
	// ErrToolUnavailable indicates a search provider failed with a network or auth error
	ErrToolUnavailable = errors.New("tool unavailable")

	// ErrToolTimeout indicates a search provider did not answer within the bounded wait
	ErrToolTimeout = errors.New("tool timeout")

	// ErrToolForbidden indicates the caller is not allowed to use the requested provider
	ErrToolForbidden = errors.New("tool not permitted for caller")
)

// Inference errors. These abort the owning agent run.

var (
	// ErrInferenceQuotaExceeded indicates the model provider rejected the call for quota or rate reasons
	ErrInferenceQuotaExceeded = errors.New("inference quota exceeded")

	// ErrInferenceTimeout indicates the model call did not complete in time
	ErrInferenceTimeout = errors.New("inference timeout")

	// ErrInferenceAuth indicates the model provider rejected the credentials
	ErrInferenceAuth = errors.New("inference auth error")
)

// Pipeline errors

var (
	// ErrAgentRunFailed indicates an agent could not produce its section
	ErrAgentRunFailed = errors.New("agent run failed")

	// ErrPipelineFailed indicates the pipeline stopped before completing every stage
	ErrPipelineFailed = errors.New("pipeline failed")
)

// AgentRunError reports which agent failed and why.
type AgentRunError struct {
	Agent string
	Err   error
}

func (e *AgentRunError) Error() string {
	return fmt.Sprintf("agent %s failed: %v", e.Agent, e.Err)
}

func (e *AgentRunError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrAgentRunFailed) match.
func (e *AgentRunError) Is(target error) bool { return target == ErrAgentRunFailed }

// PipelineError is the terminal error surfaced to the CLI.
type PipelineError struct {
	Agent string
	Index int
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s (stage %d): %v", e.Agent, e.Index+1, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPipelineFailed) match.
func (e *PipelineError) Is(target error) bool { return target == ErrPipelineFailed }

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap makes every validation error match ErrInvalidInput
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Unwrap exposes every collected error to errors.Is / errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// IsToolError reports whether err belongs to the tool taxonomy.
func IsToolError(err error) bool {
	return Is(err, ErrToolUnavailable) || Is(err, ErrToolTimeout) || Is(err, ErrToolForbidden)
}

// IsInferenceError reports whether err belongs to the inference taxonomy.
func IsInferenceError(err error) bool {
	return Is(err, ErrInferenceQuotaExceeded) || Is(err, ErrInferenceTimeout) || Is(err, ErrInferenceAuth)
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join combines errors, dropping nils
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}
