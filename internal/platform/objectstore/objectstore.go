// Package objectstore wraps the MinIO client used for nonconformity
// attachments.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/env"
)

type Config struct {
	Endpoint          string
	AccessKey         string
	SecretKey         string
	Region            string
	UseSSL            bool
	BucketAttachments string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("CVSAIR_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:          env.String("CVSAIR_MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:         env.String("CVSAIR_MINIO_ACCESS_KEY", "cvsair"),
		SecretKey:         env.String("CVSAIR_MINIO_SECRET_KEY", "cvsairminio"),
		Region:            env.String("CVSAIR_MINIO_REGION", "us-east-1"),
		UseSSL:            useSSL,
		BucketAttachments: env.String("CVSAIR_MINIO_BUCKET_ATTACHMENTS", "nc-attachments"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.BucketAttachments) == "" {
		return errors.New("attachments bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}

func NewMinIOClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

func EnsureBucket(ctx context.Context, client *minio.Client, cfg Config) error {
	exists, err := client.BucketExists(ctx, cfg.BucketAttachments)
	if err != nil {
		return fmt.Errorf("attachments bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, cfg.BucketAttachments, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return fmt.Errorf("make attachments bucket: %w", err)
	}
	return nil
}

func CheckBucket(ctx context.Context, client *minio.Client, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	exists, err := client.BucketExists(ctx, cfg.BucketAttachments)
	if err != nil {
		return fmt.Errorf("attachments bucket exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("attachments bucket missing: %s", cfg.BucketAttachments)
	}
	return nil
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
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
