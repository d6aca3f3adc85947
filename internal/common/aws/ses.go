// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"
	"strings"

	"cloudwise/internal/common/config"
	"cloudwise/internal/common/errors"
	"cloudwise/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailSender is the part of the SES client the notifier uses.
type EmailSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier mails a plain-text summary of each instance action.
type SESNotifier struct {
	client     EmailSender
	from       string
	recipients []string
}

func NewSESNotifier(ctx context.Context, cfg config.AWSConfig, region, from string, recipients []string) (*SESNotifier, error) {
	awsCfg, err := LoadConfig(ctx, cfg, region)
	if err != nil {
		return nil, err
	}
	return NewSESNotifierWithClient(ses.NewFromConfig(awsCfg), from, recipients), nil
}

func NewSESNotifierWithClient(client EmailSender, from string, recipients []string) *SESNotifier {
	return &SESNotifier{client: client, from: from, recipients: recipients}
}

func (s *SESNotifier) Record(ctx context.Context, event models.ActionEvent) error {
	subject := fmt.Sprintf("[cloudwise] %s %s on %s: %s", event.Action, event.ResourceID, event.Platform, event.Status)

	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(s.from),
		Destination: &types.Destination{ToAddresses: s.recipients},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(emailBody(event)), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return errors.NewNotificationSendFailedError("ses", err)
	}
	return nil
}

func emailBody(event models.ActionEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Action:    %s\n", event.Action)
	fmt.Fprintf(&b, "Resource:  %s (%s)\n", event.ResourceID, event.Platform)
	fmt.Fprintf(&b, "Status:    %s\n", event.Status)
	if event.PreviousState != "" || event.CurrentState != "" {
		fmt.Fprintf(&b, "State:     %s -> %s\n", event.PreviousState, event.CurrentState)
	}
	if event.Message != "" {
		fmt.Fprintf(&b, "Message:   %s\n", event.Message)
	}
	if event.RequestID != "" {
		fmt.Fprintf(&b, "Request:   %s\n", event.RequestID)
	}
	fmt.Fprintf(&b, "Time:      %s\n", event.OccurredAt.UTC().Format("2006-01-02 15:04:05 MST"))
	return b.String()
}
