package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

// client implements ports.Storage for AWS S3 and compatible services. An
// empty bucket argument means the configured bucket.
type client struct {
	s3      *s3.Client
	bucket  string
	logger  ports.Logger
	metrics ports.Metrics
}

// New creates an S3 storage and checks that the configured bucket is
// reachable.
func New(ctx context.Context, cfg *config.StorageConfig, logger ports.Logger, metrics ports.Metrics) (ports.Storage, error) {
	awsCfg, err := buildAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})

	c := &client{
		s3:      s3Client,
		bucket:  cfg.BucketOrPath,
		logger:  logger.WithFields(map[string]interface{}{"storage": "s3"}),
		metrics: metrics.WithTags(map[string]string{"storage": "s3"}),
	}

	headCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := s3Client.HeadBucket(headCtx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		logger.Error("Failed to verify bucket", "bucket", c.bucket, "error", err)
		return nil, fmt.Errorf("failed to verify bucket %s: %w", c.bucket, err)
	}

	logger.Info("S3 storage initialized", "bucket", c.bucket, "region", cfg.S3.Region)
	return c, nil
}

func (c *client) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ports.ObjectMetadata) error {
	start := time.Now()
	bucket = c.resolve(bucket)

	// PutObject needs a seekable body to sign the payload
	buf := &bytes.Buffer{}
	size, err := io.Copy(buf, reader)
	if err != nil {
		c.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "read"})
		return fmt.Errorf("failed to read content for %s: %w", key, err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	}
	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}
	if metadata.ContentEncoding != "" {
		input.ContentEncoding = aws.String(metadata.ContentEncoding)
	}
	if len(metadata.UserMetadata) > 0 {
		input.Metadata = metadata.UserMetadata
	}

	if _, err := c.s3.PutObject(ctx, input); err != nil {
		c.logger.Error("Failed to put object", "bucket", bucket, "key", key, "error", err)
		c.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "s3"})
		return fmt.Errorf("failed to put %s: %w", key, err)
	}

	duration := time.Since(start)
	c.logger.Info("Object stored", "bucket", bucket, "key", key, "bytes", size, "duration_ms", duration.Milliseconds())
	c.metrics.IncrementCounter("storage.put.success", nil)
	c.metrics.RecordHistogram("storage.put.bytes", float64(size), nil)
	c.metrics.RecordHistogram("storage.put.duration_ms", float64(duration.Milliseconds()), nil)
	return nil
}

func (c *client) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	body, _, err := c.GetWithMetadata(ctx, bucket, key)
	return body, err
}

func (c *client) GetWithMetadata(ctx context.Context, bucket, key string) (io.ReadCloser, *ports.ObjectMetadata, error) {
	bucket = c.resolve(bucket)

	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			c.metrics.IncrementCounter("storage.get.not_found", nil)
			return nil, nil, fmt.Errorf("%w: %s/%s", ports.ErrObjectNotFound, bucket, key)
		}
		c.logger.Error("Failed to get object", "bucket", bucket, "key", key, "error", err)
		c.metrics.IncrementCounter("storage.get.errors", nil)
		return nil, nil, fmt.Errorf("failed to get %s: %w", key, err)
	}

	c.metrics.IncrementCounter("storage.get.success", nil)
	return result.Body, &ports.ObjectMetadata{
		ContentType:     aws.ToString(result.ContentType),
		ContentLength:   aws.ToInt64(result.ContentLength),
		ContentEncoding: aws.ToString(result.ContentEncoding),
		LastModified:    aws.ToTime(result.LastModified),
		ETag:            aws.ToString(result.ETag),
		UserMetadata:    result.Metadata,
	}, nil
}

func (c *client) Delete(ctx context.Context, bucket, key string) error {
	bucket = c.resolve(bucket)

	if _, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		c.metrics.IncrementCounter("storage.delete.errors", nil)
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	c.logger.Info("Object deleted", "bucket", bucket, "key", key)
	c.metrics.IncrementCounter("storage.delete.success", nil)
	return nil
}

func (c *client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.resolve(bucket)),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return true, nil
}

func (c *client) List(ctx context.Context, bucket, prefix string) ([]ports.ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(c.resolve(bucket))}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []ports.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.s3, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.metrics.IncrementCounter("storage.list.errors", nil)
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, ports.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         aws.ToString(obj.ETag),
			})
		}
	}

	c.metrics.IncrementCounter("storage.list.success", nil)
	return objects, nil
}

func (c *client) resolve(bucket string) string {
	if bucket == "" {
		return c.bucket
	}
	return bucket
}

func buildAWSConfig(ctx context.Context, cfg *config.StorageConfig) (aws.Config, error) {
	optFns := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.S3.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.S3.Region))
	}
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, optFns...)
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
