// Package archive uploads frozen standings snapshots to S3-compatible object
// storage (Cloudflare R2 in production) so published tables survive database
// resets and can be linked to publicly.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrNotConfigured is returned by NewR2 when any credential is missing.
var ErrNotConfigured = errors.New("archive: object storage is not configured")

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
}

func (c R2Config) complete() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" &&
		c.Bucket != "" && c.PublicBaseURL != ""
}

// putter is the part of *s3.Client the archiver needs.
type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver writes snapshot documents to one bucket.
type Archiver struct {
	client        putter
	bucket        string
	publicBaseURL string
}

// NewR2 builds an Archiver for a Cloudflare R2 bucket.
func NewR2(ctx context.Context, cfg R2Config) (*Archiver, error) {
	if !cfg.complete() {
		return nil, ErrNotConfigured
	}

	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return newArchiver(client, cfg.Bucket, cfg.PublicBaseURL), nil
}

func newArchiver(client putter, bucket, publicBaseURL string) *Archiver {
	return &Archiver{client: client, bucket: bucket, publicBaseURL: publicBaseURL}
}

// SnapshotKey is the object key of one snapshot version.
func SnapshotKey(seasonID uuid.UUID, kind string, version int) string {
	return fmt.Sprintf("standings/%s/%s/v%04d.json", seasonID, kind, version)
}

// Upload stores body under key and returns its public URL.
func (a *Archiver) Upload(ctx context.Context, key string, body []byte) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(a.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object to R2 (key: %s): %w", key, err)
	}
	return a.PublicURL(key)
}

// PublicURL joins the bucket's public base URL and an object key.
func (a *Archiver) PublicURL(key string) (string, error) {
	base, err := url.Parse(a.publicBaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid public base URL %q: %w", a.publicBaseURL, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.JoinPath(strings.TrimPrefix(key, "/")).String(), nil
}
