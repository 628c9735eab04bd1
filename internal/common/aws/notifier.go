package aws

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Notifier sends borrower notifications over SES (email) and SNS (SMS).
type Notifier struct {
	ses       SESAPI
	sns       SNSAPI
	fromEmail string
	senderID  string
}

// NewNotifier loads the default AWS credential chain for region.
func NewNotifier(ctx context.Context, region, fromEmail, senderID string) (*Notifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Notifier{
		ses:       ses.NewFromConfig(cfg),
		sns:       sns.NewFromConfig(cfg),
		fromEmail: fromEmail,
		senderID:  senderID,
	}, nil
}

// NewNotifierWithClients wires explicit clients; either may be nil to disable a channel.
func NewNotifierWithClients(sesClient SESAPI, snsClient SNSAPI, fromEmail, senderID string) *Notifier {
	return &Notifier{ses: sesClient, sns: snsClient, fromEmail: fromEmail, senderID: senderID}
}
