package client

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"github.com/Nao-Mk2/awslogs/internal/logging"
)

// LogsAPI is the subset of the CloudWatch Logs API we use.
type LogsAPI interface {
	cloudwatchlogs.DescribeLogGroupsAPIClient
	cloudwatchlogs.DescribeLogStreamsAPIClient
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// AuthOptions selects region, credentials and endpoint for the client.
type AuthOptions struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	EndpointURL     string
}

// NewCloudWatchOptions builds the config loading options for auth. A profile
// (flag or AWS_PROFILE) takes precedence over static keys (flags or the
// AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY environment).
func NewCloudWatchOptions(auth AuthOptions) []func(*config.LoadOptions) error {
	var opts []func(*config.LoadOptions) error
	if auth.Region != "" {
		opts = append(opts, config.WithRegion(auth.Region))
	}

	profile := auth.Profile
	if profile == "" {
		profile = os.Getenv("AWS_PROFILE")
	}
	if profile != "" {
		return append(opts, config.WithSharedConfigProfile(profile))
	}

	key, secret, token := auth.AccessKeyID, auth.SecretAccessKey, auth.SessionToken
	if key == "" && secret == "" {
		key, secret = os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
		if token == "" {
			token = os.Getenv("AWS_SESSION_TOKEN")
		}
	}
	if key != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, token),
		))
	}
	return opts
}

// NewCloudWatchClient loads AWS configuration for auth and returns a client
// for the CloudWatch Logs service.
func NewCloudWatchClient(ctx context.Context, auth AuthOptions, opts ...Option) (*CloudWatchClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, NewCloudWatchOptions(auth)...)
	if err != nil {
		return nil, err
	}
	api := cloudwatchlogs.NewFromConfig(cfg, func(o *cloudwatchlogs.Options) {
		if auth.EndpointURL != "" {
			o.BaseEndpoint = aws.String(auth.EndpointURL)
		}
	})
	return New(api, opts...), nil
}

// CloudWatchClient turns the paged CloudWatch Logs calls into lazy sequences
// and retries throttled pages.
type CloudWatchClient struct {
	client LogsAPI
	retry  RetryPolicy
	log    *slog.Logger
}

// Option customizes a CloudWatchClient.
type Option func(*CloudWatchClient)

// WithRetryPolicy overrides the throttle retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *CloudWatchClient) { c.retry = p }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *CloudWatchClient) { c.log = logging.OrDiscard(l) }
}

// New wraps an API implementation.
func New(api LogsAPI, opts ...Option) *CloudWatchClient {
	c := &CloudWatchClient{
		client: api,
		retry:  DefaultRetryPolicy(),
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultRetryPolicy retries throttled calls up to four times starting at
// 200ms and gives every request 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      4,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		RequestTimeout:  30 * time.Second,
	}
}
