package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/reallyoldfogie/mc-replay-capture/mcpr/recorder"
)

// S3Uploader copies saved replays to an S3-compatible bucket under prefix.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Uploader creates an uploader. If endpoint is non-empty, path-style
// addressing is enabled (for MinIO and similar).
func NewS3Uploader(ctx context.Context, bucket, prefix, region, endpoint string) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return &S3Uploader{
		client: s3.NewFromConfig(cfg, s3opts...),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Key returns the object key used for an archive at path.
func (u *S3Uploader) Key(path string) string {
	return u.prefix + filepath.Base(path)
}

// Deliver uploads the saved archive under Key(saved.Path).
func (u *S3Uploader) Deliver(ctx context.Context, saved recorder.Saved) error {
	f, err := os.Open(saved.Path)
	if err != nil {
		return fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(u.Key(saved.Path)),
		Body:        f,
		ContentType: aws.String("application/zip"),
		Metadata:    map[string]string{"recording-id": saved.ID},
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

// Close is a no-op; the S3 client holds no connections to release.
func (u *S3Uploader) Close() error { return nil }
