// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"cloudwise/internal/common/config"
	"cloudwise/internal/common/errors"
	"cloudwise/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Publisher is the part of the SNS client the notifier uses.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes instance action events to a topic.
type SNSNotifier struct {
	client   Publisher
	topicARN string
}

func NewSNSNotifier(ctx context.Context, cfg config.AWSConfig, region, topicARN string) (*SNSNotifier, error) {
	awsCfg, err := LoadConfig(ctx, cfg, region)
	if err != nil {
		return nil, err
	}
	return NewSNSNotifierWithClient(sns.NewFromConfig(awsCfg), topicARN), nil
}

func NewSNSNotifierWithClient(client Publisher, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

// Record publishes the event as JSON with platform and action attributes so
// subscribers can filter.
func (s *SNSNotifier) Record(ctx context.Context, event models.ActionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.NewNotificationSendFailedError("sns", err)
	}

	subject := fmt.Sprintf("cloudwise: %s %s %s", event.Action, event.ResourceID, event.Status)
	if len(subject) > 100 {
		subject = subject[:100]
	}

	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"platform": {DataType: aws.String("String"), StringValue: aws.String(event.Platform)},
			"action":   {DataType: aws.String("String"), StringValue: aws.String(event.Action)},
		},
	})
	if err != nil {
		return errors.NewNotificationSendFailedError("sns", err)
	}
	return nil
}
