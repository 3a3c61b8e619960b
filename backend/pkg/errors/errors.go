package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeLLM represents chat-completion failures
	ErrorTypeLLM ErrorType = "llm"
	// ErrorTypeStore represents document store and topic graph failures
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeTool represents tool dispatch and argument errors
	ErrorTypeTool ErrorType = "tool"
	// ErrorTypeTopic represents topic resolution failures
	ErrorTypeTopic ErrorType = "topic"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Category reports the error category. Embedding types inherit it.
func (e *BaseError) Category() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// LLM Errors

// ErrLLMFailed is returned when the chat-completion endpoint could not produce a response
type ErrLLMFailed struct {
	*BaseError
	Model     string
	Attempts  int
	Retryable bool
}

func NewLLMFailed(model string, attempts int, retryable bool, err error) *ErrLLMFailed {
	return &ErrLLMFailed{
		BaseError: NewBaseError(ErrorTypeLLM, fmt.Sprintf("chat completion failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
		Retryable: retryable,
	}
}

// ErrLLMNoChoices is returned when the endpoint answers without any choice
var ErrLLMNoChoices = NewBaseError(ErrorTypeLLM, "no choices in LLM response", nil)

// Store Errors

// ErrStoreFailed is returned when a storage operation fails
type ErrStoreFailed struct {
	*BaseError
	Operation string
}

func NewStoreFailed(operation string, err error) *ErrStoreFailed {
	return &ErrStoreFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store operation failed: %s", operation), err),
		Operation: operation,
	}
}

// Tool Errors

// ErrToolNotFound is returned when the model requests a tool that is not registered
type ErrToolNotFound struct {
	*BaseError
	ToolName string
}

func NewToolNotFound(toolName string) *ErrToolNotFound {
	return &ErrToolNotFound{
		BaseError: NewBaseError(ErrorTypeTool, fmt.Sprintf("tool not found: %s", toolName), nil),
		ToolName:  toolName,
	}
}

// ErrToolArguments is returned when tool arguments cannot be decoded
type ErrToolArguments struct {
	*BaseError
	ToolName string
}

func NewToolArguments(toolName string, err error) *ErrToolArguments {
	return &ErrToolArguments{
		BaseError: NewBaseError(ErrorTypeTool, fmt.Sprintf("malformed arguments for %s", toolName), err),
		ToolName:  toolName,
	}
}

// Topic Errors

// ErrTopicResolution is returned when the similarity check itself fails
type ErrTopicResolution struct {
	*BaseError
	Candidate string
}

func NewTopicResolution(candidate string, err error) *ErrTopicResolution {
	return &ErrTopicResolution{
		BaseError: NewBaseError(ErrorTypeTopic, fmt.Sprintf("could not resolve topic %q", candidate), err),
		Candidate: candidate,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigInvalid is returned when a configuration value is out of range
type ErrConfigInvalid struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigInvalid(field, reason string) *ErrConfigInvalid {
	return &ErrConfigInvalid{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("invalid config %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type categorized interface {
	Category() ErrorType
}

// IsErrorType reports whether any error in err's chain belongs to errType
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if c, ok := err.(categorized); ok && c.Category() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsRetryable checks if an error is worth another attempt
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	var llmErr *ErrLLMFailed
	if stderrors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return IsErrorType(err, ErrorTypeStore)
}
