// Package errors provides standardized error handling for the audit harness.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeMetadataNotFound     ErrorCode = "METADATA_NOT_FOUND"
	ErrCodeMetadataLoadFailed   ErrorCode = "METADATA_LOAD_FAILED"
	ErrCodeSchemaCheckFailed    ErrorCode = "SCHEMA_CHECK_FAILED"
	ErrCodeRecordAssemblyFailed ErrorCode = "RECORD_ASSEMBLY_FAILED"

	ErrCodeTargetUnreachable    ErrorCode = "TARGET_UNREACHABLE"
	ErrCodeTargetTimeout        ErrorCode = "TARGET_TIMEOUT"
	ErrCodeTargetInvalidPayload ErrorCode = "TARGET_INVALID_PAYLOAD"

	ErrCodeLedgerAppendFailed ErrorCode = "LEDGER_APPEND_FAILED"
	ErrCodeLedgerReadFailed   ErrorCode = "LEDGER_READ_FAILED"
	ErrCodeLedgerCorrupt      ErrorCode = "LEDGER_CORRUPT"

	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeIndexWriteFailed              ErrorCode = "INDEX_WRITE_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMetadataNotFoundError creates a non-retryable metadata lookup error.
// Missing audit metadata is a configuration fault, never worked around.
func NewMetadataNotFoundError(kind, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMetadataNotFound,
		Message:   fmt.Sprintf("No %s metadata registered", kind),
		Details:   fmt.Sprintf("%s: %s", kind, id),
		Retryable: false,
		Metadata:  map[string]interface{}{"kind": kind, "id": id},
		Timestamp: time.Now().UTC(),
	}
}

// NewMetadataLoadError creates a non-retryable metadata parse error.
func NewMetadataLoadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMetadataLoadFailed,
		Message:   "Failed to load audit metadata",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaCheckError creates a non-retryable evidence schema error.
func NewSchemaCheckError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaCheckFailed,
		Message:   "Evidence record failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTargetUnreachableError creates a retryable target transport error.
func NewTargetUnreachableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTargetUnreachable,
		Message:   "Target system unreachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTargetTimeoutError creates a retryable target timeout error.
func NewTargetTimeoutError(endpoint string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTargetTimeout,
		Message:   "Target system did not respond in time",
		Details:   fmt.Sprintf("endpoint: %s", endpoint),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTargetInvalidPayloadError creates a non-retryable target response error.
func NewTargetInvalidPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTargetInvalidPayload,
		Message:   "Target system returned an unparseable response",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLedgerAppendError creates a retryable ledger write error.
func NewLedgerAppendError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerAppendFailed,
		Message:   "Failed to append evidence record to ledger",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLedgerReadError creates a retryable ledger read error.
func NewLedgerReadError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerReadFailed,
		Message:   "Failed to read evidence ledger",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLedgerCorruptError creates a non-retryable ledger integrity error.
func NewLedgerCorruptError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerCorrupt,
		Message:   "Ledger integrity check failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreError creates a retryable session store error.
func NewSessionStoreError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Session store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeElasticsearchConnectionFailed,
		Message:   "Elasticsearch connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexWriteError creates a retryable search index write error.
func NewIndexWriteError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexWriteFailed,
		Message:   "Failed to index evidence record",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Helpers
// ==========================

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}

// CodeOf extracts the ErrorCode from err, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Code
	}
	return ""
}

// IsTimeout reports whether the error text looks like a timeout. Used when
// classifying raw transport errors before normalization.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}
