package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/quizgenius/backend/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// S3Storage keeps objects in an S3 bucket. Any S3-compatible endpoint works.
type S3Storage struct {
	client s3iface.S3API
	bucket string
}

// NewS3Storage creates an S3Storage from the storage configuration.
//
// Static credentials are used when given, otherwise the default AWS credential chain.
func NewS3Storage(cfg config.StorageConfig) (*S3Storage, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
		HTTPClient:       &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("create AWS session: %w", err)
	}

	return NewS3StorageWithClient(s3.New(sess), cfg.Bucket), nil
}

func NewS3StorageWithClient(client s3iface.S3API, bucket string) *S3Storage {
	return &S3Storage{client: client, bucket: bucket}
}

var _ Storage = (*S3Storage)(nil)

func (s *S3Storage) Put(ctx context.Context, key, contentType string, data []byte) error {
	ctx, span := tracer.Start(ctx, "S3Storage.Put",
		trace.WithAttributes(attribute.String("s3.key", key), attribute.Int("s3.size", len(data))))
	defer span.End()

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to upload object")
		span.RecordError(err)
		return fmt.Errorf("upload object to S3: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "Object uploaded")
	return nil
}

func (s *S3Storage) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "S3Storage.Get", trace.WithAttributes(attribute.String("s3.key", key)))
	defer span.End()

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			span.SetStatus(otelcodes.Error, "Object not found")
			return nil, ErrObjectNotFound
		}

		span.SetStatus(otelcodes.Error, "Failed to download object")
		span.RecordError(err)
		return nil, fmt.Errorf("download object from S3: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to read object")
		span.RecordError(err)
		return nil, fmt.Errorf("read object from S3: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "Object downloaded")
	return data, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "S3Storage.Delete", trace.WithAttributes(attribute.String("s3.key", key)))
	defer span.End()

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNoSuchKey(err) {
		span.SetStatus(otelcodes.Error, "Failed to delete object")
		span.RecordError(err)
		return fmt.Errorf("delete object from S3: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "Object deleted")
	return nil
}

func isNoSuchKey(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}
