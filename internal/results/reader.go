// Package results acquires the record batch produced by a finished crawl.
package results

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/inspirehep/inspire-crawler/internal/crawler"
)

// Reader resolves a results URI into the decoded record batch. The returned
// path is the local path component recorded as ingestion provenance.
type Reader interface {
	Fetch(ctx context.Context, resultsURI string) (records []map[string]any, path string, err error)
}

// ResolvePath extracts the path component of a results URI. Bare paths pass
// through unchanged.
func ResolvePath(resultsURI string) string {
	parsed, err := url.Parse(resultsURI)
	if err != nil {
		return resultsURI
	}
	if parsed.Path == "" {
		return resultsURI
	}
	return parsed.Path
}

// LocalReader reads result batches from the local filesystem. Results URIs
// are file:// URIs or bare paths.
type LocalReader struct{}

// NewLocalReader constructs a LocalReader.
func NewLocalReader() *LocalReader {
	return &LocalReader{}
}

// Fetch reads and decodes the newline-delimited batch at the URI's path.
func (r *LocalReader) Fetch(_ context.Context, resultsURI string) ([]map[string]any, string, error) {
	path := ResolvePath(resultsURI)
	if _, err := os.Stat(path); err != nil {
		return nil, path, &crawler.InvalidResultsPathError{Path: path}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, path, fmt.Errorf("open results file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	records, err := crawler.ParseResults(f)
	if err != nil {
		return nil, path, fmt.Errorf("parse results %s: %w", path, err)
	}
	return records, path, nil
}

// SupportsGCS reports whether the URI addresses object storage rather than
// the local filesystem.
func SupportsGCS(resultsURI string) bool {
	return strings.HasPrefix(resultsURI, "gs://")
}
