// Package errors provides structured error handling for Lorekeep.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Collection / backing store errors
//   - 3XX: Provider errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryCollection indicates backing collection errors.
	CategoryCollection Category = "COLLECTION"
	// CategoryProvider indicates search provider errors.
	CategoryProvider Category = "PROVIDER"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Collection errors (200-299)
	ErrCodeCollectionMissing     = "ERR_201_COLLECTION_MISSING"
	ErrCodeCollectionCorrupted   = "ERR_202_COLLECTION_CORRUPTED"
	ErrCodeCollectionUnavailable = "ERR_203_COLLECTION_UNAVAILABLE"

	// Provider errors (300-399)
	ErrCodeProviderUnavailable = "ERR_301_PROVIDER_UNAVAILABLE"
	ErrCodeProviderFailure     = "ERR_302_PROVIDER_FAILURE"
	ErrCodeStrategyTimeout     = "ERR_303_STRATEGY_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeInvalidQuery  = "ERR_401_INVALID_QUERY"
	ErrCodeQueryEmpty    = "ERR_402_QUERY_EMPTY"
	ErrCodeInvalidOption = "ERR_403_INVALID_OPTION"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeFusionFailure = "ERR_502_FUSION_FAILURE"
	ErrCodeCacheFailure  = "ERR_503_CACHE_FAILURE"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryCollection
	case '3':
		return CategoryProvider
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives the default severity from the code.
// Provider and fusion failures are recoverable by design (the coordinator
// degrades instead of aborting), so they default to WARNING.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeProviderFailure, ErrCodeStrategyTimeout, ErrCodeFusionFailure:
		return SeverityWarning
	case ErrCodeConfigNotFound, ErrCodeConfigInvalid:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether operations failing with this code can be retried.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeProviderFailure, ErrCodeStrategyTimeout, ErrCodeCollectionUnavailable:
		return true
	}
	return false
}
