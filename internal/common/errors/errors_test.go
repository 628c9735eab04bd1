package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionPending_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("offers: %w", NewTransactionPendingError("select-offer"))

	assert.True(t, stderrors.Is(err, ErrWaitingForTransaction))
	assert.Equal(t, ErrCodeTransactionPending, CodeOf(err))
	assert.Equal(t, "WAITING", GetErrorCategory(CodeOf(err)))
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewBackendRequestFailedError("create kyc form", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, err.Retryable)
	assert.Equal(t, "connection refused", err.Details)
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), CodeOf(stderrors.New("boom")))
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantRetries int
	}{
		{"backend failure retries", NewBackendRequestFailedError("submit", stderrors.New("503")), 3},
		{"rejection is terminal", NewExternalActionRejectedError("kyc", "Document mismatch"), 0},
		{"unknown status is terminal", NewUnrecognizedStatusError("kyc", "EXPIRED"), 0},
		{"offers exhausted", NewOffersUnavailableError(3, stderrors.New("502")), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, string(tt.err.Code), bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
			assert.Equal(t, tt.err.Message, vars["errorMessage"])
		})
	}
}

func TestRejectionKeepsReasonVerbatim(t *testing.T) {
	err := NewExternalActionRejectedError("kyc", "Document mismatch")
	assert.Equal(t, "Document mismatch", err.Message)
	assert.Equal(t, "REJECTION", GetErrorCategory(err.Code))
}

func TestNormalize(t *testing.T) {
	wrapped := fmt.Errorf("step: %w", NewValidationFailedError("pan"))
	assert.Equal(t, ErrCodeValidationFailed, Normalize(wrapped).Code)
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), Normalize(stderrors.New("x")).Code)
}
