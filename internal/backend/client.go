// Package backend is the typed client for the loan backend. Every flow step
// reaches the backend through it; replies the portal branches on are checked
// against a JSON contract first.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"loan-portal/internal/common/config"
	apperrors "loan-portal/internal/common/errors"
	httpclient "loan-portal/internal/common/http"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/common/validation"
)

// Client wraps the shared JSON transport with the backend's endpoints.
type Client struct {
	http   *httpclient.Client
	logger logger.Logger
}

func New(http *httpclient.Client, log logger.Logger) *Client {
	return &Client{
		http:   http,
		logger: log.WithFields(map[string]interface{}{"component": "backend"}),
	}
}

// NewFromConfig builds the transport from the backend section of the config.
func NewFromConfig(cfg config.BackendConfig, log logger.Logger) *Client {
	return New(httpclient.NewClient(cfg.BaseURL, config.GetDuration(cfg.Timeout)), log)
}

func (c *Client) post(ctx context.Context, op, path, token string, in, out interface{}) error {
	if err := c.http.Post(ctx, path, token, in, out); err != nil {
		return wrap(op, err)
	}
	return nil
}

// postChecked decodes the reply only after it satisfies contract.
func (c *Client) postChecked(ctx context.Context, op, path, token string, contract *validation.Contract, in, out interface{}) error {
	var raw json.RawMessage
	if err := c.post(ctx, op, path, token, in, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := contract.Check([]byte(raw)); err != nil {
		c.logger.Warn("backend reply violates contract", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
		})
		return apperrors.NewBackendRequestFailedError(op, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewBackendRequestFailedError(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func wrap(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.NewBackendTimeoutError(op, err)
	}
	return apperrors.NewBackendRequestFailedError(op, err)
}
