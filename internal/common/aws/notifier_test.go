package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type mockSES struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type mockSNS struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Tests
// ==========================

func TestNotifier_SendEmail(t *testing.T) {
	n := NewNotifierWithClients(&mockSES{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			assert.Equal(t, "borrower@example.com", params.Destination.ToAddresses[0])
			assert.Equal(t, "loans@example.com", *params.Source)
			assert.Equal(t, "Loan disbursed", *params.Message.Subject.Data)
			return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
		},
	}, nil, "loans@example.com", "")

	id, err := n.SendEmail(context.Background(), "borrower@example.com", "Loan disbursed", "done")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
}

func TestNotifier_SendSMS(t *testing.T) {
	n := NewNotifierWithClients(nil, &mockSNS{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			assert.Equal(t, "+919876543210", *params.PhoneNumber)
			assert.Equal(t, "LOANPT", *params.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue)
			return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
		},
	}, "", "LOANPT")

	id, err := n.SendSMS(context.Background(), "+919876543210", "hi")
	require.NoError(t, err)
	assert.Equal(t, "sms-1", id)
}

func TestNotifier_ChannelErrors(t *testing.T) {
	n := NewNotifierWithClients(nil, &mockSNS{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("throttled")
		},
	}, "", "")

	_, err := n.SendEmail(context.Background(), "a@b.c", "s", "b")
	assert.EqualError(t, err, "email channel not configured")

	_, err = n.SendSMS(context.Background(), "+91", "m")
	assert.EqualError(t, err, "throttled")
}
