package results

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/inspirehep/inspire-crawler/internal/crawler"
)

// GCSReader reads result batches stored on Google Cloud Storage, for crawls
// whose result files are shipped to a bucket instead of shared disk.
type GCSReader struct {
	client *storage.Client
}

// NewGCSReader constructs a GCSReader around an existing client.
func NewGCSReader(client *storage.Client) (*GCSReader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return &GCSReader{client: client}, nil
}

// Fetch downloads and decodes the batch addressed by a gs://bucket/key URI.
func (r *GCSReader) Fetch(ctx context.Context, resultsURI string) ([]map[string]any, string, error) {
	bucket, key, err := splitGCSURI(resultsURI)
	if err != nil {
		return nil, "", err
	}
	path := "/" + key

	reader, err := r.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, path, &crawler.InvalidResultsPathError{Path: resultsURI}
	}
	defer reader.Close() //nolint:errcheck

	records, err := crawler.ParseResults(reader)
	if err != nil {
		return nil, path, fmt.Errorf("parse results %s: %w", resultsURI, err)
	}
	return records, path, nil
}

func splitGCSURI(resultsURI string) (bucket, key string, err error) {
	parsed, err := url.Parse(resultsURI)
	if err != nil || parsed.Scheme != "gs" || parsed.Host == "" {
		return "", "", fmt.Errorf("invalid gcs results uri %q", resultsURI)
	}
	key = strings.TrimPrefix(parsed.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("gcs results uri %q has no object key", resultsURI)
	}
	return parsed.Host, key, nil
}
