package backend

import (
	"context"

	"loan-portal/internal/poller"
)

var _ poller.Source = (*ActionSource)(nil)

// ActionSource adapts the form endpoints of one action kind to poller.Source.
type ActionSource struct {
	client *Client
	kind   string
	token  string
}

func (c *Client) Source(kind, token string) *ActionSource {
	return &ActionSource{client: c, kind: kind, token: token}
}

func (s *ActionSource) Start(ctx context.Context, transactionID string) (poller.FormRef, error) {
	reply, err := s.client.CreateForm(ctx, s.token, s.kind, transactionID)
	if err != nil {
		return poller.FormRef{}, err
	}
	return poller.FormRef{
		FormURL:       reply.FormURL,
		FormID:        reply.FormID,
		TransactionID: transactionID,
	}, nil
}

func (s *ActionSource) Check(ctx context.Context, ref poller.FormRef) (poller.Reply, error) {
	reply, err := s.client.CheckStatus(ctx, s.token, s.kind, ref.FormID, ref.TransactionID)
	if err != nil {
		return poller.Reply{}, err
	}
	return poller.Reply{Status: reply.Status, Reason: reply.Reason}, nil
}
