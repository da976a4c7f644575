// Package assets talks to the S3-compatible object store that holds video
// binaries and thumbnails.
package assets

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"videotube/internal/models"
)

const defaultRequestTimeout = 30 * time.Second

var (
	// ErrUploadFailed wraps any failure to store a binary remotely.
	ErrUploadFailed = errors.New("asset upload failed")
	// ErrDeleteFailed wraps a remote delete failure. An already absent
	// object is not a failure.
	ErrDeleteFailed = errors.New("asset delete failed")
)

// Config describes the external storage bucket used for video binaries.
type Config struct {
	Endpoint       string
	Region         string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	Prefix         string
	PublicEndpoint string
	RequestTimeout time.Duration
}

func (cfg Config) requestTimeout() time.Duration {
	if cfg.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return cfg.RequestTimeout
}

// Store is the remote asset backend. Delete treats an absent object as
// already deleted.
type Store interface {
	Enabled() bool
	Upload(ctx context.Context, key, contentType string, body []byte) (models.AssetRef, error)
	Delete(ctx context.Context, key string) error
}

// NewStore builds a store from the configuration. When no bucket or endpoint
// is configured a noop store is returned so local development works without
// remote storage.
func NewStore(cfg Config) Store {
	trimmedBucket := strings.TrimSpace(cfg.Bucket)
	trimmedEndpoint := strings.TrimSpace(cfg.Endpoint)
	if trimmedBucket == "" || trimmedEndpoint == "" {
		return noopStore{}
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	endpoint := trimmedEndpoint
	if strings.Contains(endpoint, "://") {
		if parsed, err := url.Parse(endpoint); err == nil {
			endpoint = parsed.Host
		}
	}
	baseURL := &url.URL{Scheme: scheme, Host: endpoint}
	if baseURL.Host == "" {
		return noopStore{}
	}
	sanitized := cfg
	sanitized.Bucket = trimmedBucket
	sanitized.RequestTimeout = sanitized.requestTimeout()
	return &s3Store{
		cfg:        sanitized,
		endpoint:   baseURL,
		httpClient: &http.Client{Timeout: sanitized.RequestTimeout},
	}
}

// noopStore keeps uploads purely nominal: the key is recorded so documents
// stay well formed, and deletes always succeed.
type noopStore struct{}

func (noopStore) Enabled() bool { return false }

func (noopStore) Upload(ctx context.Context, key, contentType string, body []byte) (models.AssetRef, error) {
	return models.AssetRef{Key: strings.TrimLeft(strings.TrimSpace(key), "/")}, nil
}

func (noopStore) Delete(ctx context.Context, key string) error {
	return nil
}
