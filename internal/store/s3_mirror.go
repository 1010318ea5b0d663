package store

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Mirror uploads portfolio backups to an S3 bucket for offsite retention.
// Local backups remain authoritative; the mirror is a copy, never a source
// for rollback.
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
	log    zerolog.Logger
}

// NewS3Mirror creates a mirror using the ambient AWS credential chain.
func NewS3Mirror(ctx context.Context, bucket, prefix string, log zerolog.Logger) (*S3Mirror, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Mirror{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		log:    log.With().Str("component", "s3_mirror").Logger(),
	}, nil
}

// Upload stores one backup object under the configured prefix.
func (m *S3Mirror) Upload(ctx context.Context, name string, data []byte) error {
	key := path.Join(m.prefix, name)

	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	m.log.Debug().Str("bucket", m.bucket).Str("key", key).Int("bytes", len(data)).Msg("Backup mirrored")
	return nil
}
