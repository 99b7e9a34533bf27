package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/streadway/amqp"

	"github.com/muhammadolammi/jobrecommender/internal/config"
)

// ObjectStore fetches uploaded resumes.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// UpdatePublisher announces run status changes.
type UpdatePublisher interface {
	Publish(update RunUpdate) error
}

// r2Store reads objects from a Cloudflare R2 bucket through its S3 API.
type r2Store struct {
	client *s3.Client
	bucket string
}

func newR2Store(ctx context.Context, cfg config.R2) (*r2Store, error) {
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating aws config: %w", err)
	}
	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})
	return &r2Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *r2Store) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, out.Body); err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return buf.Bytes(), nil
}

// amqpPublisher publishes run updates to a topic exchange, routed by run id.
type amqpPublisher struct {
	conn *amqp.Connection
}

func (p *amqpPublisher) Publish(update RunUpdate) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return ch.Publish(
		updateExchange,
		runRoutingKey(update.RunID.String()),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func runRoutingKey(runID string) string {
	return fmt.Sprintf("run.%s", runID)
}

// retryBackoff is the wait after the first failed attempt; it grows linearly.
var retryBackoff = 500 * time.Millisecond

// retry retries a function up to `attempts` times with increasing backoff.
func retry[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("after %d attempts: %w", i+1, lastErr)
		case <-time.After(retryBackoff * time.Duration(i+1)):
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
