// internal/notify/dispatcher.go
package notify

import (
	"context"
	"fmt"

	"credit-lifecycle/internal/common/config"
	"credit-lifecycle/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	awsclients "credit-lifecycle/internal/common/aws"
)

// SESService and SNSService mirror the AWS clients for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Transport delivers a rendered notification over a concrete channel set.
type Transport interface {
	Send(ctx context.Context, event *Event) error
}

// AWSTransport sends notifications as SES email and, when a phone number is
// present, SNS SMS.
type AWSTransport struct {
	cfg       config.NotificationConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewAWSTransport(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*AWSTransport, error) {
	sesClient, err := awsclients.NewSESClient(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("init SES client: %w", err)
	}
	snsClient, err := awsclients.NewSNSClient(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("init SNS client: %w", err)
	}

	return &AWSTransport{
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "notify-transport"}),
		sesClient: sesClient,
		snsClient: snsClient,
	}, nil
}

// NewAWSTransportWithClients wires pre-built clients, used by tests.
func NewAWSTransportWithClients(cfg config.NotificationConfig, log logger.Logger, sesClient SESService, snsClient SNSService) *AWSTransport {
	return &AWSTransport{
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "notify-transport"}),
		sesClient: sesClient,
		snsClient: snsClient,
	}
}

func (t *AWSTransport) Send(ctx context.Context, event *Event) error {
	subject, body, err := Render(event)
	if err != nil {
		return err
	}

	sent := false

	if t.cfg.Email.Enabled && event.RecipientEmail != "" {
		if err := t.sendEmail(ctx, event.RecipientEmail, subject, body); err != nil {
			return fmt.Errorf("ses send: %w", err)
		}
		sent = true
	}

	if t.cfg.SMS.Enabled && event.RecipientPhone != "" {
		if err := t.sendSMS(ctx, event.RecipientPhone, body); err != nil {
			return fmt.Errorf("sns publish: %w", err)
		}
		sent = true
	}

	if !sent {
		t.logger.Debug("no enabled channel for event, skipping", map[string]interface{}{
			"eventType":     event.Type,
			"applicationId": event.ApplicationID,
		})
	}
	return nil
}

func (t *AWSTransport) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := t.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(t.cfg.Email.FromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	return err
}

func (t *AWSTransport) sendSMS(ctx context.Context, phone, body string) error {
	_, err := t.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(body),
	})
	return err
}
