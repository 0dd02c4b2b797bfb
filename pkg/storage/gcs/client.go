package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storagev1 "google.golang.org/api/storage/v1"

	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// Client uploads public assets (company logos) to a single bucket.
type Client struct {
	svc           *storagev1.Service
	bucket        string
	publicBaseURL string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds the JSON API client. Credentials come from the inline JSON,
// then the credentials file, then application default credentials.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger, extra ...option.ClientOption) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	opts := []option.ClientOption{option.WithScopes(storagev1.DevstorageReadWriteScope)}
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	opts = append(opts, extra...)

	svc, err := storagev1.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs service: %w", err)
	}

	client := &Client{
		svc:           svc,
		bucket:        cfg.BucketName,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
	if client.publicBaseURL == "" {
		client.publicBaseURL = "https://storage.googleapis.com"
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs.ready")
	}
	return client, nil
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Ping verifies the bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.svc == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.svc.Buckets.Get(c.bucket).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gcs bucket check failed: %w", err)
	}
	return nil
}

// Upload stores data at path and returns its public URL.
func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if c == nil || c.svc == nil {
		return "", errors.New("gcs client not initialized")
	}
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return "", errors.New("object path is required")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	object := &storagev1.Object{
		Name:         path,
		ContentType:  contentType,
		CacheControl: "public, max-age=3600",
	}
	_, err := c.svc.Objects.Insert(c.bucket, object).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", path, err)
	}
	return c.PublicURL(path), nil
}

// Delete removes an object; a missing object is not an error.
func (c *Client) Delete(ctx context.Context, path string) error {
	if c == nil || c.svc == nil {
		return errors.New("gcs client not initialized")
	}
	err := c.svc.Objects.Delete(c.bucket, path).Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return nil
	}
	return err
}

// PublicURL is the browser-facing URL of an object.
func (c *Client) PublicURL(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", c.publicBaseURL, c.bucket, strings.Join(segments, "/"))
}

func (c *Client) Close() error {
	return nil
}
