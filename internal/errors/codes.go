// Package errors provides structured error handling for docpack.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, pack store)
//   - 3XX: Network errors (extraction, embedding services)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

import "strings"

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and pack store I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates extraction or embedding service errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort the run.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the document failed but the run can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Configuration errors (1XX).
	ErrCodeConfigInvalid = "ERR_101_CONFIG_INVALID"

	// IO errors (2XX).
	ErrCodeFileNotFound = "ERR_201_FILE_NOT_FOUND"
	ErrCodeStoreOpen    = "ERR_210_STORE_OPEN"
	ErrCodeStoreWrite   = "ERR_211_STORE_WRITE"
	ErrCodeStoreLocked  = "ERR_212_STORE_LOCKED"

	// Network errors (3XX).
	ErrCodeExtractFailed  = "ERR_301_EXTRACT_FAILED"
	ErrCodeExtractTimeout = "ERR_302_EXTRACT_TIMEOUT"
	ErrCodeExtractEmpty   = "ERR_303_EXTRACT_EMPTY"
	ErrCodeEmbedFailed    = "ERR_310_EMBED_FAILED"
	ErrCodeEmbedTimeout   = "ERR_311_EMBED_TIMEOUT"

	// Validation errors (4XX).
	ErrCodeEmptyText       = "ERR_401_EMPTY_TEXT"
	ErrCodeNoChunks        = "ERR_402_NO_CHUNKS"
	ErrCodeEmbedCount      = "ERR_410_EMBED_COUNT_MISMATCH"
	ErrCodeEmbedDimension  = "ERR_411_EMBED_DIMENSION_MISMATCH"
	ErrCodeEmbedShape      = "ERR_412_EMBED_SHAPE_UNRECOGNIZED"
	ErrCodeStoreValidation = "ERR_420_STORE_VALIDATION"

	// Internal errors (5XX).
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode derives the category from the numeric range in the code.
func categoryFromCode(code string) Category {
	switch {
	case strings.HasPrefix(code, "ERR_1"):
		return CategoryConfig
	case strings.HasPrefix(code, "ERR_2"):
		return CategoryIO
	case strings.HasPrefix(code, "ERR_3"):
		return CategoryNetwork
	case strings.HasPrefix(code, "ERR_4"):
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives a default severity from the code.
// Config errors abort the whole run; everything else is fatal only for the
// document being processed.
func severityFromCode(code string) Severity {
	if strings.HasPrefix(code, "ERR_1") {
		return SeverityFatal
	}
	return SeverityError
}

// retryableCodes are errors where a later attempt could succeed
// (transient service conditions, lock contention).
var retryableCodes = map[string]bool{
	ErrCodeExtractTimeout: true,
	ErrCodeEmbedTimeout:   true,
	ErrCodeStoreLocked:    true,
}

func isRetryableCode(code string) bool {
	return retryableCodes[code]
}
