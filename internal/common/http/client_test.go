package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Post_SendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/kyc/form", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "req-42", r.Header.Get("X-Request-ID"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "txn-1", body["transactionId"])

		_, _ = w.Write([]byte(`{"formUrl":"https://kyc.example/f/1","formId":"f-1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 2*time.Second)
	var out struct {
		FormURL string `json:"formUrl"`
		FormID  string `json:"formId"`
	}
	ctx := WithRequestID(context.Background(), "req-42")
	err := c.Post(ctx, "/kyc/form", "tok-1", map[string]string{"transactionId": "txn-1"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "f-1", out.FormID)
	assert.Equal(t, "https://kyc.example/f/1", out.FormURL)
}

func TestClient_GeneratesRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Len(t, r.Header.Get("X-Request-ID"), 36)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).Get(context.Background(), "/loans/active", "", nil)
	assert.NoError(t, err)
}

func TestClient_StatusError(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		notFound bool
	}{
		{"not provisioned", http.StatusNotFound, true},
		{"server error", http.StatusBadGateway, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.code)
			}))
			defer srv.Close()

			err := NewClient(srv.URL, time.Second).Post(context.Background(), "/emandate/form", "", map[string]string{}, nil)
			require.Error(t, err)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, "nope", se.Body)
			assert.Equal(t, tt.notFound, IsNotFound(err))
			assert.Equal(t, tt.notFound, IsNotFound(fmt.Errorf("wrapped: %w", err)))
		})
	}
}

func TestClient_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := NewClient(srv.URL, time.Second).Post(context.Background(), "/offers", "", nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
	assert.False(t, IsNotFound(err))
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(&StatusError{Code: http.StatusUnauthorized}))
	assert.True(t, IsUnauthorized(fmt.Errorf("login: %w", &StatusError{Code: http.StatusForbidden})))
	assert.False(t, IsUnauthorized(&StatusError{Code: http.StatusNotFound}))
	assert.False(t, IsUnauthorized(errors.New("dial tcp: refused")))
}
