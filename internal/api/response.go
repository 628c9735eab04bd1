// Package api exposes the step handlers to the browser as a JSON API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/poller"
	trackdisbursal "loan-portal/internal/workers/disbursement/track-disbursal"
)

// Envelope statuses
const (
	StatusSuccess = "success"
	StatusWaiting = "waiting"
	StatusError   = "error"
)

// StateWaiting is reported while a step waits for the loan transaction id.
const StateWaiting = "WAITING"

type envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type waitingBody struct {
	State  string      `json:"state"`
	Result interface{} `json:"result,omitempty"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}

// reply writes out in the envelope, or err with out attached when present.
func reply[T any](w http.ResponseWriter, out *T, err error) {
	var data interface{}
	if out != nil {
		data = out
	}
	if err == nil {
		JSON(w, http.StatusOK, envelope{Status: StatusSuccess, Data: data})
		return
	}
	if errors.Is(err, apperrors.ErrWaitingForTransaction) {
		JSON(w, http.StatusAccepted, envelope{Status: StatusWaiting, Data: waitingBody{State: StateWaiting, Result: data}})
		return
	}
	JSON(w, HTTPStatus(err), envelope{Status: StatusError, Data: data, Error: toErrorBody(err)})
}

// Error writes a bare error envelope.
func Error(w http.ResponseWriter, err error) {
	reply[struct{}](w, nil, err)
}

func toErrorBody(err error) *errorBody {
	var se *apperrors.StandardError
	if errors.As(err, &se) {
		return &errorBody{
			Code:      string(se.Code),
			Message:   se.Message,
			Details:   se.Details,
			Retryable: se.Retryable,
			Metadata:  se.Metadata,
		}
	}
	switch {
	case errors.Is(err, poller.ErrInProgress), errors.Is(err, poller.ErrNotRetryable),
		errors.Is(err, poller.ErrClosed), errors.Is(err, trackdisbursal.ErrAlreadyTracking):
		return &errorBody{Code: errorCode(err), Message: err.Error()}
	}
	return &errorBody{Code: "INTERNAL_ERROR", Message: "Internal error"}
}

// errorCode returns the sentinel text of a conflict error.
func errorCode(err error) string {
	for _, s := range []error{poller.ErrInProgress, poller.ErrNotRetryable, poller.ErrClosed, trackdisbursal.ErrAlreadyTracking} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "CONFLICT"
}

// HTTPStatus maps an error to the response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, poller.ErrInProgress), errors.Is(err, poller.ErrNotRetryable),
		errors.Is(err, poller.ErrClosed), errors.Is(err, trackdisbursal.ErrAlreadyTracking):
		return http.StatusConflict
	}

	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeTransactionPending:
		return http.StatusAccepted
	case apperrors.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case apperrors.ErrCodeAuthenticationError, apperrors.ErrCodeSessionNotFound:
		return http.StatusUnauthorized
	case apperrors.ErrCodeActionNotStarted:
		return http.StatusConflict
	case apperrors.ErrCodeAmountOutOfRange, apperrors.ErrCodeExternalActionRejected,
		apperrors.ErrCodeUnrecognizedStatus, apperrors.ErrCodeDisbursalFailed:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeBackendTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeBackendRequestFailed, apperrors.ErrCodeOffersUnavailable,
		apperrors.ErrCodeNotificationFailed:
		return http.StatusBadGateway
	case apperrors.ErrCodeServiceNotReady, apperrors.ErrCodeSessionStoreFailed,
		apperrors.ErrCodeTicketIndexFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperrors.NewValidationFailedError("malformed JSON body: " + err.Error())
}
