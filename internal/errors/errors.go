package errors

import (
	"errors"
	"fmt"
)

// VaultError is the structured error type for Lorekeep.
// It provides rich context for error handling, logging, and user presentation.
type VaultError struct {
	// Code is the unique error code (e.g., "ERR_201_COLLECTION_MISSING").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Collection, Provider, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *VaultError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with VaultError.
func (e *VaultError) Is(target error) bool {
	if t, ok := target.(*VaultError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *VaultError) WithDetail(key, value string) *VaultError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *VaultError) WithSuggestion(suggestion string) *VaultError {
	e.Suggestion = suggestion
	return e
}

// New creates a new VaultError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *VaultError {
	return &VaultError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a VaultError from an existing error.
// The error's message becomes the VaultError message.
func Wrap(code string, err error) *VaultError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ProviderFailure creates an error for a provider call that threw during execution.
// These are isolated per strategy and never surfaced to search callers.
func ProviderFailure(provider string, cause error) *VaultError {
	e := New(ErrCodeProviderFailure, fmt.Sprintf("provider %s failed", provider), cause)
	return e.WithDetail("provider", provider)
}

// ProviderUnavailable creates an error for a capability absent at selection time.
func ProviderUnavailable(provider string) *VaultError {
	e := New(ErrCodeProviderUnavailable, fmt.Sprintf("provider %s unavailable", provider), nil)
	return e.WithDetail("provider", provider)
}

// StrategyTimeout creates an error for a strategy exceeding its execution budget.
func StrategyTimeout(provider string) *VaultError {
	e := New(ErrCodeStrategyTimeout, fmt.Sprintf("provider %s timed out", provider), nil)
	return e.WithDetail("provider", provider)
}

// FusionFailure creates an error for a fusion algorithm that threw.
// Recovered internally by falling back to simple concat+dedupe.
func FusionFailure(strategy string, cause error) *VaultError {
	e := New(ErrCodeFusionFailure, fmt.Sprintf("fusion strategy %s failed", strategy), cause)
	return e.WithDetail("strategy", strategy)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a VaultError with Retryable flag set.
func IsRetryable(err error) bool {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve.Retryable
	}
	return false
}

// CodeOf returns the error code if err is a VaultError, empty string otherwise.
func CodeOf(err error) string {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}
