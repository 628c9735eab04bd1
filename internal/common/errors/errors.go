// Package errors provides standardized error handling for the portal's step handlers
// and their BPMN workflow integration.
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

const (
	// Identifier not yet available; rendered as a waiting state.
	ErrCodeTransactionPending ErrorCode = "TRANSACTION_PENDING"

	// One-shot backend calls (form creation, submission).
	ErrCodeBackendRequestFailed ErrorCode = "BACKEND_REQUEST_FAILED"
	ErrCodeBackendTimeout       ErrorCode = "BACKEND_TIMEOUT"
	ErrCodeServiceNotReady      ErrorCode = "SERVICE_NOT_PROVISIONED"

	// Polling transport; never surfaced to the user.
	ErrCodePollTransportFailed ErrorCode = "POLL_TRANSPORT_FAILED"

	// Terminal verdicts of an external action.
	ErrCodeExternalActionRejected ErrorCode = "EXTERNAL_ACTION_REJECTED"
	ErrCodeUnrecognizedStatus     ErrorCode = "UNRECOGNIZED_STATUS"
	ErrCodeActionNotStarted       ErrorCode = "ACTION_NOT_STARTED"

	ErrCodeOffersUnavailable   ErrorCode = "OFFERS_UNAVAILABLE"
	ErrCodeAmountOutOfRange    ErrorCode = "AMOUNT_OUT_OF_RANGE"
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeSessionNotFound     ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionStoreFailed  ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeDisbursalFailed     ErrorCode = "DISBURSAL_FAILED"
	ErrCodeTicketIndexFailed   ErrorCode = "TICKET_INDEX_FAILED"
	ErrCodeNotificationFailed  ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeAuthenticationError ErrorCode = "AUTHENTICATION_ERROR"
)

// StandardError represents a structured application error.
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

// Unwrap exposes the underlying cause, when there is one.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another StandardError by code so sentinels work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ErrWaitingForTransaction is returned when a step runs before the session has a transaction id.
var ErrWaitingForTransaction = &StandardError{
	Code:    ErrCodeTransactionPending,
	Message: "Waiting for loan transaction",
}

// CodeOf returns the code of the first StandardError in err's chain.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
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
// 3. Error Constructors
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

// NewTransactionPendingError reports a step that cannot run until a transaction id arrives.
func NewTransactionPendingError(step string) *StandardError {
	return newError(ErrCodeTransactionPending, "Waiting for loan transaction",
		fmt.Sprintf("step: %s", step), true, nil)
}

// NewBackendRequestFailedError wraps a failed one-shot backend call.
func NewBackendRequestFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeBackendRequestFailed, fmt.Sprintf("Backend request '%s' failed", operation),
		err.Error(), true, err)
}

// NewBackendTimeoutError wraps a backend call that exceeded its deadline.
func NewBackendTimeoutError(operation string, err error) *StandardError {
	return newError(ErrCodeBackendTimeout, fmt.Sprintf("Backend request '%s' timed out", operation),
		err.Error(), true, err)
}

// NewServiceNotProvisionedError reports the provider answering 404 on form creation.
func NewServiceNotProvisionedError(kind string, err error) *StandardError {
	return newError(ErrCodeServiceNotReady, fmt.Sprintf("%s service not yet provisioned", kind),
		err.Error(), true, err)
}

// NewPollTransportError records a poll attempt that never reached a verdict.
func NewPollTransportError(kind string, err error) *StandardError {
	return newError(ErrCodePollTransportFailed, fmt.Sprintf("%s status poll failed", kind),
		err.Error(), true, err)
}

// NewExternalActionRejectedError carries the backend-supplied rejection reason.
func NewExternalActionRejectedError(kind, reason string) *StandardError {
	return newError(ErrCodeExternalActionRejected, reason,
		fmt.Sprintf("kind: %s", kind), false, nil)
}

// NewUnrecognizedStatusError reports a terminal status outside the known set.
func NewUnrecognizedStatusError(kind, status string) *StandardError {
	return newError(ErrCodeUnrecognizedStatus, "Unrecognized verification status",
		fmt.Sprintf("kind: %s, status: %s", kind, status), false, nil)
}

// NewActionNotStartedError is returned when presenting or polling without form identifiers.
func NewActionNotStartedError(kind string) *StandardError {
	return newError(ErrCodeActionNotStarted, fmt.Sprintf("%s form has not been created", kind),
		"formId and transactionId are required", false, nil)
}

// NewOffersUnavailableError is returned once automatic offer retries are exhausted.
func NewOffersUnavailableError(attempts int, err error) *StandardError {
	return newError(ErrCodeOffersUnavailable, "Loan offers could not be loaded",
		fmt.Sprintf("attempts: %d, error: %v", attempts, err), true, err)
}

// NewAmountOutOfRangeError rejects a slider value outside the offer bounds.
func NewAmountOutOfRangeError(amount, min, max float64) *StandardError {
	return newError(ErrCodeAmountOutOfRange, "Selected amount is outside the offer range",
		fmt.Sprintf("amount: %.2f, min: %.2f, max: %.2f", amount, min, max), false, nil)
}

// NewValidationFailedError reports invalid user input.
func NewValidationFailedError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Input validation failed", details, false, nil)
}

// NewSessionNotFoundError reports an unknown or expired session id.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Session not found",
		fmt.Sprintf("sessionId: %s", sessionID), false, nil)
}

// NewSessionStoreError wraps a Redis failure.
func NewSessionStoreError(err error) *StandardError {
	return newError(ErrCodeSessionStoreFailed, "Session store unavailable", err.Error(), true, err)
}

// NewDisbursalFailedError reports a backend-declared failed disbursal.
func NewDisbursalFailedError(transactionID string) *StandardError {
	return newError(ErrCodeDisbursalFailed, "Loan disbursal failed",
		fmt.Sprintf("transactionId: %s", transactionID), false, nil)
}

// NewTicketIndexError wraps an Elasticsearch failure on the ticket index.
func NewTicketIndexError(err error) *StandardError {
	return newError(ErrCodeTicketIndexFailed, "Ticket index operation failed", err.Error(), true, err)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true, err)
}

// NewAuthenticationError reports rejected credentials.
func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthenticationError, "Authentication failed", details, false, nil)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeBackendRequestFailed,
		ErrCodeSessionStoreFailed,
		ErrCodeTicketIndexFailed,
		ErrCodeNotificationFailed:
		return 3

	case ErrCodeBackendTimeout,
		ErrCodeOffersUnavailable:
		return 2

	case ErrCodeTransactionPending,
		ErrCodeServiceNotReady:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRANSACTION"):
		return "WAITING"
	case strings.Contains(codeStr, "BACKEND") || strings.Contains(codeStr, "PROVISIONED"):
		return "TRANSPORT"
	case strings.Contains(codeStr, "POLL"):
		return "POLLING"
	case strings.Contains(codeStr, "REJECTED") || strings.Contains(codeStr, "DISBURSAL"):
		return "REJECTION"
	case strings.Contains(codeStr, "UNRECOGNIZED"):
		return "UNKNOWN_STATUS"
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "AUTHENTICATION"):
		return "SESSION"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "RANGE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
