package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/logger"
)

const uriScheme = "gs://"

// Client wraps the GCS client with the bucket/key operations the pipeline
// needs: uploading run media, downloading transcript results, and listing
// per-run prefixes.
type Client struct {
	gcs *gcs.Client
}

func NewClient(ctx context.Context) (*Client, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Client{gcs: client}, nil
}

func (c *Client) Close() error {
	return c.gcs.Close()
}

// Upload writes r to bucket/key, replacing any existing object.
func (c *Client) Upload(ctx context.Context, bucket, key string, r io.Reader) error {
	logger.Info(ctx, "uploading object", logger.Fields{
		"bucket": bucket,
		"key":    key,
	})

	w := c.gcs.Bucket(bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload of %s: %w", key, err)
	}
	return nil
}

// Download reads the full contents of bucket/key.
func (c *Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	logger.Info(ctx, "downloading object", logger.Fields{
		"bucket": bucket,
		"key":    key,
	})

	r, err := c.gcs.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// ListPrefix returns the object keys under prefix in ascending order.
func (c *Client) ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error) {
	it := c.gcs.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

// SignedDownloadURL generates a V4 signed URL for downloading an object, used
// when the transcription service reads media over HTTPS instead of gs://.
func SignedDownloadURL(bucket, key, serviceAccountEmail, privateKey string, ttl time.Duration) (string, error) {
	// Convert literal \n sequences back into real newlines for the private key.
	pem := strings.ReplaceAll(privateKey, `\n`, "\n")

	return gcs.SignedURL(bucket, key, &gcs.SignedURLOptions{
		Scheme:         gcs.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(ttl),
		GoogleAccessID: serviceAccountEmail,
		PrivateKey:     []byte(pem),
	})
}

// URI renders bucket/key in gs:// form.
func URI(bucket, key string) string {
	return uriScheme + bucket + "/" + key
}

// ParseURI splits a gs://bucket/key URI into its bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return "", "", fmt.Errorf("not a gs:// URI: %s", uri)
	}
	rest := strings.TrimPrefix(uri, uriScheme)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed object URI: %s", uri)
	}
	return parts[0], parts[1], nil
}
