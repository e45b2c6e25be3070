package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/supportdesk/topup-api/config"
)

// Uploader stores message attachments and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
}

// SpacesClient stores uploads in an S3-compatible bucket (DigitalOcean
// Spaces, MinIO, plain S3).
type SpacesClient struct {
	s3Client *s3.S3
	bucket   string
	endpoint string
	cdnURL   string
}

// NewSpacesClient creates a client from config. Returns nil (no error)
// when storage is not configured; the upload endpoint then answers 503.
func NewSpacesClient(cfg *config.Config) (*SpacesClient, error) {
	if cfg.SPACES_ACCESS_KEY == "" || cfg.SPACES_BUCKET == "" {
		return nil, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			cfg.SPACES_ACCESS_KEY,
			cfg.SPACES_SECRET_KEY,
			"",
		),
		Endpoint:         aws.String(cfg.SPACES_ENDPOINT),
		Region:           aws.String(cfg.SPACES_REGION),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return &SpacesClient{
		s3Client: s3.New(sess),
		bucket:   cfg.SPACES_BUCKET,
		endpoint: cfg.SPACES_ENDPOINT,
		cdnURL:   cfg.SPACES_CDN_URL,
	}, nil
}

// Upload puts an object and returns its public URL.
func (s *SpacesClient) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        aws.ReadSeekCloser(data),
		ACL:         aws.String("public-read"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	if s.cdnURL != "" {
		return fmt.Sprintf("%s/%s", s.cdnURL, key), nil
	}
	return fmt.Sprintf("https://%s.%s/%s", s.bucket, s.endpoint, key), nil
}
