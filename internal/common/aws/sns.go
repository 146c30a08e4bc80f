// Package aws holds the SNS and SES client wrappers behind the notify
// package's channel interfaces. Credentials come from the default AWS
// chain; only the region is configured here.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSClient publishes violation alerts to the configured topic.
type SNSClient struct {
	client *sns.Client
}

// NewSNSClient builds an SNS client for region.
func NewSNSClient(ctx context.Context, region string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg)}, nil
}

// Publish satisfies notify.SNSPublisher.
func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, input)
}
