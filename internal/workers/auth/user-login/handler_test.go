// internal/workers/auth/user-login/handler_test.go
package userlogin

import (
	"context"
	"net/http"
	"testing"

	"loan-portal/internal/common/config"
	"loan-portal/internal/common/database"
	apperrors "loan-portal/internal/common/errors"
	httpclient "loan-portal/internal/common/http"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/models"
	"loan-portal/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResult), args.Error(1)
}

func newSessions(t *testing.T) *session.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = rc.Close() })
	return session.NewStore(rc, config.SessionConfig{TTL: 600})
}

func TestHandler_Execute_Success(t *testing.T) {
	backend := new(MockBackend)
	backend.On("Login", mock.Anything, &models.LoginRequest{Email: "asha@example.com", Password: "pw"}).
		Return(&models.AuthResult{Token: "tok-1", UserID: "u-1"}, nil)
	sessions := newSessions(t)

	out, err := NewHandler(DefaultConfig(), backend, sessions, logger.NewTestLogger(t)).
		Execute(context.Background(), &Input{Email: " Asha@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "application", out.Next)
	assert.Len(t, out.SessionID, 36)

	sess, err := sessions.Get(context.Background(), out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", sess.UserID)
	assert.Empty(t, sess.TransactionID)
}

func TestHandler_Execute_Failures(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		result   *models.AuthResult
		err      error
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "missing password",
			input:    &Input{Email: "a@b.co"},
			wantCode: apperrors.ErrCodeValidationFailed,
		},
		{
			name:     "wrong credentials",
			input:    &Input{Email: "a@b.co", Password: "x"},
			err:      apperrors.NewBackendRequestFailedError("login", &httpclient.StatusError{Code: http.StatusUnauthorized, Path: "/auth/login"}),
			wantCode: apperrors.ErrCodeAuthenticationError,
		},
		{
			name:     "backend down",
			input:    &Input{Email: "a@b.co", Password: "x"},
			err:      apperrors.NewBackendRequestFailedError("login", &httpclient.StatusError{Code: http.StatusBadGateway}),
			wantCode: apperrors.ErrCodeBackendRequestFailed,
		},
		{
			name:     "empty token",
			input:    &Input{Email: "a@b.co", Password: "x"},
			result:   &models.AuthResult{UserID: "u-1"},
			wantCode: apperrors.ErrCodeAuthenticationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := new(MockBackend)
			if tt.result != nil || tt.err != nil {
				var res interface{}
				if tt.result != nil {
					res = tt.result
				}
				backend.On("Login", mock.Anything, mock.Anything).Return(res, tt.err)
			}

			_, err := NewHandler(DefaultConfig(), backend, newSessions(t), logger.NewTestLogger(t)).Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
		})
	}
}
