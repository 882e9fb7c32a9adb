// Package objectstore uploads exported recording sessions to an S3-compatible
// bucket.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotConfigured is returned when no endpoint is set.
var ErrNotConfigured = errors.New("object store not configured")

// Config holds the connection settings. Keys are never defaulted; they come
// from the environment.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// Enabled reports whether an endpoint is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	return nil
}

// Client is the subset of *minio.Client the uploader uses.
type Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// NewMinIOClient connects a minio client for cfg.
func NewMinIOClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
}

// Uploader writes session exports into one bucket.
type Uploader struct {
	client Client
	bucket string
	region string
	prefix string
	logger *slog.Logger
}

// NewUploader connects to the configured endpoint.
func NewUploader(cfg Config, logger *slog.Logger) (*Uploader, error) {
	client, err := NewMinIOClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	u := NewUploaderWithClient(client, cfg.Bucket, logger)
	u.region = cfg.Region
	u.prefix = cfg.Prefix
	return u, nil
}

// NewUploaderWithClient wraps an existing client.
func NewUploaderWithClient(client Client, bucket string, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{client: client, bucket: bucket, logger: logger}
}

// EnsureBucket creates the bucket when missing.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", u.bucket, err)
	}
	u.logger.Info("Created export bucket", "bucket", u.bucket)
	return nil
}

// Key builds the object key for a file name under the configured prefix.
func (u *Uploader) Key(parts ...string) string {
	return ObjectKey(u.prefix, parts...)
}

// Upload stores body under key and returns the resulting object location.
func (u *Uploader) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	info, err := u.client.PutObject(ctx, u.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	location := u.bucket + "/" + info.Key
	u.logger.Info("Uploaded session export",
		"location", location,
		"size", info.Size,
		"etag", info.ETag)
	return location, nil
}

// ObjectKey joins key parts under prefix, dropping empty and traversing parts.
func ObjectKey(prefix string, parts ...string) string {
	clean := make([]string, 0, len(parts)+1)
	for _, p := range append([]string{prefix}, parts...) {
		p = strings.Trim(p, "/")
		if p == "" || p == "." || p == ".." {
			continue
		}
		clean = append(clean, p)
	}
	if len(clean) == 0 {
		return ""
	}
	return path.Clean(strings.Join(clean, "/"))
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
