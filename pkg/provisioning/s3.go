package provisioning

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/pdrhub/internal/logger"
	"github.com/marmos91/pdrhub/internal/telemetry"
)

// S3Config locates a provisioned PDR image in an S3-compatible store.
type S3Config struct {
	// Bucket is the bucket holding the image.
	Bucket string

	// Key is the object key of the image.
	Key string

	// Region is the bucket's region (optional, SDK default if empty).
	Region string

	// Endpoint overrides the S3 endpoint URL (optional, for
	// S3-compatible services like MinIO).
	Endpoint string

	// ForcePathStyle forces path-style addressing (required for
	// Localstack/MinIO).
	ForcePathStyle bool
}

// S3ImageLoader fetches a pre-packed PDR image from an S3-compatible
// object store at boot.
type S3ImageLoader struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3ImageLoader creates a loader with an existing client.
func NewS3ImageLoader(client *s3.Client, cfg S3Config) *S3ImageLoader {
	return &S3ImageLoader{client: client, cfg: cfg}
}

// NewS3ImageLoaderFromConfig creates a loader by building an S3 client
// from the ambient AWS credential chain plus cfg's overrides.
func NewS3ImageLoaderFromConfig(ctx context.Context, cfg S3Config) (*S3ImageLoader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewS3ImageLoader(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// Fetch downloads the image bytes.
func (l *S3ImageLoader) Fetch(ctx context.Context) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanProvisionLoad)
	defer span.End()
	telemetry.SetAttributes(ctx,
		telemetry.Bucket(l.cfg.Bucket),
		telemetry.StorageKey(l.cfg.Key),
	)

	resp, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.cfg.Bucket),
		Key:    aws.String(l.cfg.Key),
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("read s3 object body: %w", err)
	}

	logger.InfoCtx(ctx, "fetched provisioned PDR image",
		logger.KeyBucket, l.cfg.Bucket,
		logger.KeyKey, l.cfg.Key,
		logger.KeySize, len(data),
	)
	return data, nil
}
