package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "loan-portal/internal/common/errors"
	httpclient "loan-portal/internal/common/http"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/poller"
	submitapplication "loan-portal/internal/workers/application/submit-application"
	userlogin "loan-portal/internal/workers/auth/user-login"
	trackdisbursal "loan-portal/internal/workers/disbursement/track-disbursal"
	externalaction "loan-portal/internal/workers/verification/external-action"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockLogin struct {
	mock.Mock
}

func (m *MockLogin) Execute(ctx context.Context, input *userlogin.Input) (*userlogin.Output, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userlogin.Output), args.Error(1)
}

type MockApplication struct {
	mock.Mock
}

func (m *MockApplication) Execute(ctx context.Context, input *submitapplication.Input) (*submitapplication.Output, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*submitapplication.Output), args.Error(1)
}

func (m *MockApplication) CheckSection(section string, input *submitapplication.Input) *submitapplication.SectionResult {
	return m.Called(section, input).Get(0).(*submitapplication.SectionResult)
}

type MockActions struct {
	mock.Mock
}

func (m *MockActions) Start(ctx context.Context, input *externalaction.Input) (*externalaction.Output, error) {
	args := m.Called(ctx, input)
	return outputOf(args)
}

func (m *MockActions) Retry(ctx context.Context, input *externalaction.Input) (*externalaction.Output, error) {
	args := m.Called(ctx, input)
	return outputOf(args)
}

func (m *MockActions) Present(ctx context.Context, input *externalaction.Input) (*externalaction.Output, error) {
	args := m.Called(ctx, input)
	return outputOf(args)
}

func (m *MockActions) Status(ctx context.Context, input *externalaction.Input) (*externalaction.Output, error) {
	args := m.Called(ctx, input)
	return outputOf(args)
}

func (m *MockActions) Cancel(ctx context.Context, input *externalaction.Input) (*externalaction.Output, error) {
	args := m.Called(ctx, input)
	return outputOf(args)
}

func outputOf(args mock.Arguments) (*externalaction.Output, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*externalaction.Output), args.Error(1)
}

type MockDisbursal struct {
	mock.Mock
}

func (m *MockDisbursal) Check(ctx context.Context, input *trackdisbursal.Input) (*trackdisbursal.Output, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trackdisbursal.Output), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

type decoded struct {
	Status string                 `json:"status"`
	Data   map[string]interface{} `json:"data"`
	Error  *errorBody             `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, sessionID, body string) (*httptest.ResponseRecorder, decoded) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out decoded
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

// ==========================
// Routing
// ==========================

func TestHealth(t *testing.T) {
	r := NewRouter(Handlers{}, nil, logger.NewTestLogger(t))
	w, _ := do(t, r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFlow(t *testing.T) {
	r := NewRouter(Handlers{}, nil, logger.NewTestLogger(t))
	w, body := do(t, r, http.MethodGet, "/api/flow", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body.Data["steps"], 8)
}

func TestLogin(t *testing.T) {
	login := new(MockLogin)
	login.On("Execute", mock.Anything, &userlogin.Input{Email: "a@b.in", Password: "secret123"}).
		Return(&userlogin.Output{SessionID: "s-1", UserID: "u-1", Next: "application"}, nil)
	r := NewRouter(Handlers{Login: login}, nil, logger.NewTestLogger(t))

	w, body := do(t, r, http.MethodPost, "/api/auth/login", "", `{"email":"a@b.in","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, StatusSuccess, body.Status)
	assert.Equal(t, "s-1", body.Data["sessionId"])
}

func TestLogin_BadCredentials(t *testing.T) {
	login := new(MockLogin)
	login.On("Execute", mock.Anything, mock.Anything).Return(nil, apperrors.NewAuthenticationError("invalid credentials"))
	r := NewRouter(Handlers{Login: login}, nil, logger.NewTestLogger(t))

	w, body := do(t, r, http.MethodPost, "/api/auth/login", "", `{"email":"a@b.in","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, StatusError, body.Status)
	assert.Equal(t, string(apperrors.ErrCodeAuthenticationError), body.Error.Code)
}

func TestMalformedBody(t *testing.T) {
	r := NewRouter(Handlers{Login: new(MockLogin)}, nil, logger.NewTestLogger(t))
	w, body := do(t, r, http.MethodPost, "/api/auth/login", "", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeValidationFailed), body.Error.Code)
}

func TestSessionRequired(t *testing.T) {
	r := NewRouter(Handlers{Application: new(MockApplication)}, nil, logger.NewTestLogger(t))
	w, body := do(t, r, http.MethodPost, "/api/application", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeSessionNotFound), body.Error.Code)
}

func TestApplication_WaitingForTransaction(t *testing.T) {
	app := new(MockApplication)
	app.On("Execute", mock.Anything, mock.MatchedBy(func(in *submitapplication.Input) bool {
		return in.SessionID == "s-1"
	})).Return(&submitapplication.Output{ApplicationID: "app-1"}, apperrors.ErrWaitingForTransaction)
	r := NewRouter(Handlers{Application: app}, nil, logger.NewTestLogger(t))

	w, body := do(t, r, http.MethodPost, "/api/application", "s-1", `{"form":{}}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, StatusWaiting, body.Status)
	assert.Equal(t, StateWaiting, body.Data["state"])
	assert.Equal(t, "app-1", body.Data["result"].(map[string]interface{})["applicationId"])
}

func TestApplication_ValidationCarriesFields(t *testing.T) {
	app := new(MockApplication)
	verr := apperrors.NewValidationFailedError("personal.pan: PAN must look like ABCDE1234F")
	verr.Metadata = map[string]interface{}{"section": "personal"}
	app.On("Execute", mock.Anything, mock.Anything).Return(nil, verr)
	r := NewRouter(Handlers{Application: app}, nil, logger.NewTestLogger(t))

	w, body := do(t, r, http.MethodPost, "/api/application", "s-1", `{"form":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "personal", body.Error.Metadata["section"])
}

func TestApplication_SectionCheck(t *testing.T) {
	app := new(MockApplication)
	app.On("CheckSection", "address", mock.Anything).
		Return(&submitapplication.SectionResult{Section: "address", Valid: true})
	r := NewRouter(Handlers{Application: app}, nil, logger.NewTestLogger(t))

	w, body := do(t, r, http.MethodPost, "/api/application/sections/address", "s-1", `{"form":{}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body.Data["valid"])
}

// ==========================
// External actions
// ==========================

func TestActions_KindFromPath(t *testing.T) {
	actions := new(MockActions)
	actions.On("Start", mock.Anything, &externalaction.Input{SessionID: "s-1", Kind: "emandate"}).
		Return(&externalaction.Output{Action: poller.Snapshot{Kind: "emandate", State: poller.StatePending}}, nil)
	r := NewRouter(Handlers{Actions: actions}, nil, logger.NewTestLogger(t))

	w, body := do(t, r, http.MethodPost, "/api/actions/emandate/start", "s-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PENDING", body.Data["action"].(map[string]interface{})["state"])
}

func TestActions_PresentDefaultsToNewTab(t *testing.T) {
	actions := new(MockActions)
	actions.On("Present", mock.Anything, mock.MatchedBy(func(in *externalaction.Input) bool {
		return in.Mode == poller.ModeNewTab && in.Kind == "kyc"
	})).Return(&externalaction.Output{}, nil)
	r := NewRouter(Handlers{Actions: actions}, nil, logger.NewTestLogger(t))

	w, _ := do(t, r, http.MethodPost, "/api/actions/kyc/present", "s-1", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
	actions.AssertExpectations(t)
}

func TestActions_RetryConflict(t *testing.T) {
	actions := new(MockActions)
	actions.On("Retry", mock.Anything, mock.Anything).
		Return(&externalaction.Output{}, fmt.Errorf("%w: state PENDING", poller.ErrNotRetryable))
	r := NewRouter(Handlers{Actions: actions}, nil, logger.NewTestLogger(t))

	w, body := do(t, r, http.MethodPost, "/api/actions/kyc/retry", "s-1", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, poller.ErrNotRetryable.Error(), body.Error.Code)
}

func TestActions_Cancel(t *testing.T) {
	actions := new(MockActions)
	actions.On("Cancel", mock.Anything, &externalaction.Input{SessionID: "s-1", Kind: "agreement"}).
		Return(&externalaction.Output{}, nil)
	r := NewRouter(Handlers{Actions: actions}, nil, logger.NewTestLogger(t))

	w, _ := do(t, r, http.MethodDelete, "/api/actions/agreement", "s-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// ==========================
// Disbursal
// ==========================

func TestDisbursal_FailedKeepsState(t *testing.T) {
	d := new(MockDisbursal)
	d.On("Check", mock.Anything, &trackdisbursal.Input{SessionID: "s-1", Email: "a@b.in"}).
		Return(&trackdisbursal.Output{State: trackdisbursal.StateFailed}, apperrors.NewDisbursalFailedError("txn-1"))
	r := NewRouter(Handlers{Disbursal: d}, nil, logger.NewTestLogger(t))

	w, body := do(t, r, http.MethodGet, "/api/disbursement/status?email=a@b.in", "s-1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, trackdisbursal.StateFailed, body.Data["state"])
}

// ==========================
// Middleware & mapping
// ==========================

func TestCORS(t *testing.T) {
	r := NewRouter(Handlers{}, []string{"https://portal.example"}, logger.NewTestLogger(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/flow", nil)
	req.Header.Set("Origin", "https://portal.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://portal.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), SessionHeader)

	req = httptest.NewRequest(http.MethodOptions, "/api/flow", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.NewValidationFailedError("x"), http.StatusBadRequest},
		{apperrors.NewSessionNotFoundError("s"), http.StatusUnauthorized},
		{apperrors.NewAmountOutOfRangeError(1, 2, 3), http.StatusUnprocessableEntity},
		{apperrors.NewBackendTimeoutError("offers", errors.New("deadline")), http.StatusGatewayTimeout},
		{apperrors.NewBackendRequestFailedError("offers", errors.New("502")), http.StatusBadGateway},
		{apperrors.NewOffersUnavailableError(3, errors.New("502")), http.StatusBadGateway},
		{apperrors.NewExternalActionRejectedError("kyc", "blurry"), http.StatusUnprocessableEntity},
		{apperrors.NewActionNotStartedError("kyc"), http.StatusConflict},
		{apperrors.NewSessionStoreError(errors.New("redis down")), http.StatusServiceUnavailable},
		{poller.ErrInProgress, http.StatusConflict},
		{trackdisbursal.ErrAlreadyTracking, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

type recordedStep struct {
	step, outcome string
}

type stepRecorder struct {
	steps []recordedStep
}

func (s *stepRecorder) RecordStep(_ context.Context, step, outcome string, _ time.Duration) {
	s.steps = append(s.steps, recordedStep{step, outcome})
}

func TestObserveSteps_UsesRoutePattern(t *testing.T) {
	actions := new(MockActions)
	actions.On("Status", mock.Anything, mock.Anything).Return(&externalaction.Output{}, nil)
	rec := &stepRecorder{}
	r := NewRouter(Handlers{Actions: actions, Observer: rec}, nil, logger.NewTestLogger(t))

	do(t, r, http.MethodGet, "/api/actions/kyc", "s-1", "")
	require.Len(t, rec.steps, 1)
	assert.True(t, strings.HasPrefix(rec.steps[0].step, "GET /api/actions/{kind}"), rec.steps[0].step)
	assert.Equal(t, "success", rec.steps[0].outcome)
}

func TestRequestID_ReachesBackendOnce(t *testing.T) {
	var seen []string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer backend.Close()

	actions := new(MockActions)
	actions.On("Status", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			require.NoError(t, httpclient.NewClient(backend.URL, time.Second).Get(ctx, "/kyc/status", "", nil))
		}).
		Return(&externalaction.Output{}, nil)
	r := NewRouter(Handlers{Actions: actions, Observer: &stepRecorder{}}, nil, logger.NewTestLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/api/actions/kyc", nil)
	req.Header.Set(SessionHeader, "s-1")
	req.Header.Set("X-Request-Id", "req-7")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{"req-7"}, seen)
}
