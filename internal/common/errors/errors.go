// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// not-found
const (
	ErrCodeSessionNotFound      ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeEstimateNotFound     ErrorCode = "ESTIMATE_NOT_FOUND"
	ErrCodeItemNotFound         ErrorCode = "ITEM_NOT_FOUND"
	ErrCodeCatalogEntryNotFound ErrorCode = "CATALOG_ENTRY_NOT_FOUND"
)

// state-conflict
const (
	ErrCodeStateConflict           ErrorCode = "STATE_CONFLICT"
	ErrCodeEstimateAlreadyAttached ErrorCode = "ESTIMATE_ALREADY_ATTACHED"
	ErrCodeIdentityConflict        ErrorCode = "IDENTITY_CONFLICT"
)

// upstream / persistence / input
const (
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodePersistenceFailure  ErrorCode = "PERSISTENCE_FAILURE"
	ErrCodeInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidResponse     ErrorCode = "INVALID_RESPONSE"
	ErrCodeAuthentication      ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

var knownCodes = map[ErrorCode]struct{}{
	ErrCodeSessionNotFound:         {},
	ErrCodeEstimateNotFound:        {},
	ErrCodeItemNotFound:            {},
	ErrCodeCatalogEntryNotFound:    {},
	ErrCodeStateConflict:           {},
	ErrCodeEstimateAlreadyAttached: {},
	ErrCodeIdentityConflict:        {},
	ErrCodeUpstreamUnavailable:     {},
	ErrCodePersistenceFailure:      {},
	ErrCodeInvalidInput:            {},
	ErrCodeInvalidResponse:         {},
	ErrCodeAuthentication:          {},
	ErrCodeInternal:                {},
}

// IsKnownErrorCode reports whether code is one of the codes above.
func IsKnownErrorCode(code ErrorCode) bool {
	_, ok := knownCodes[code]
	return ok
}

// StandardError is the error shape that crosses a worker boundary.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError unwraps err looking for a StandardError.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 2. BPMN Error
// ==========================

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Session not found", fmt.Sprintf("sessionId: %s", sessionID), false, nil)
}

func NewEstimateNotFoundError(ref string) *StandardError {
	return newError(ErrCodeEstimateNotFound, "Estimate not found", ref, false, nil)
}

func NewItemNotFoundError(estimateID, itemID string) *StandardError {
	return newError(ErrCodeItemNotFound, "Estimate item not found",
		fmt.Sprintf("estimateId: %s, itemId: %s", estimateID, itemID), false, nil)
}

func NewCatalogEntryNotFoundError(catalogID int64) *StandardError {
	return newError(ErrCodeCatalogEntryNotFound, "Catalog entry not found",
		fmt.Sprintf("catalogId: %d", catalogID), false, nil)
}

func NewStateConflictError(details string, cause error) *StandardError {
	return newError(ErrCodeStateConflict, "Operation not allowed in current state", details, false, cause)
}

func NewEstimateAlreadyAttachedError(sessionID string) *StandardError {
	return newError(ErrCodeEstimateAlreadyAttached, "Session already has an estimate",
		fmt.Sprintf("sessionId: %s", sessionID), false, nil)
}

func NewIdentityConflictError(sessionID string) *StandardError {
	return newError(ErrCodeIdentityConflict, "Session is linked to a different identity",
		fmt.Sprintf("sessionId: %s", sessionID), false, nil)
}

func NewUpstreamUnavailableError(service string, err error) *StandardError {
	return newError(ErrCodeUpstreamUnavailable, fmt.Sprintf("Upstream '%s' unavailable", service), err.Error(), true, err)
}

func NewPersistenceFailureError(operation string, err error) *StandardError {
	return newError(ErrCodePersistenceFailure, "Persistence failure",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true, err)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false, nil)
}

func NewInvalidResponseError(details string) *StandardError {
	return newError(ErrCodeInvalidResponse, "Unsupported estimate response", details, false, nil)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false, nil)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. BPMN Mapping
// ==========================

// BPMNErrorMapping maps internal codes to the error codes caught by boundary events.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeSessionNotFound:         "SESSION_NOT_FOUND",
	ErrCodeEstimateNotFound:        "ESTIMATE_NOT_FOUND",
	ErrCodeItemNotFound:            "ITEM_NOT_FOUND",
	ErrCodeCatalogEntryNotFound:    "CATALOG_ENTRY_NOT_FOUND",
	ErrCodeStateConflict:           "STATE_CONFLICT",
	ErrCodeEstimateAlreadyAttached: "STATE_CONFLICT",
	ErrCodeIdentityConflict:        "IDENTITY_CONFLICT",
	ErrCodePersistenceFailure:      "PERSISTENCE_FAILURE",
	ErrCodeInvalidInput:            "INVALID_INPUT",
	ErrCodeInvalidResponse:         "INVALID_INPUT",
	ErrCodeAuthentication:          "AUTHENTICATION_ERROR",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePersistenceFailure:
		return 3
	case ErrCodeUpstreamUnavailable:
		return 2
	default:
		return 0 // Business errors: no retry
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasSuffix(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "CONFLICT") || strings.Contains(codeStr, "ALREADY"):
		return "STATE_CONFLICT"
	case strings.HasPrefix(codeStr, "UPSTREAM"):
		return "UPSTREAM"
	case strings.HasPrefix(codeStr, "PERSISTENCE"):
		return "PERSISTENCE"
	case strings.HasPrefix(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.HasPrefix(codeStr, "AUTH"):
		return "AUTH"
	default:
		return "OTHER"
	}
}
