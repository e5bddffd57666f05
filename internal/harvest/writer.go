// Package harvest reacts to finished harvest runs: it batches harvested
// records into files on disk and schedules one crawl per created file.
package harvest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is one harvested record in its raw serialized form.
type Record struct {
	Raw string
}

const (
	listRecordsOpen  = "<ListRecords>"
	listRecordsClose = "</ListRecords>"
)

// WriteToDir writes harvested records into the output directory, at most
// maxRecords per file, each file wrapped in a ListRecords envelope. The
// directory is created if absent. Returns the created file paths and the
// total number of records written.
func WriteToDir(records []Record, outputDir string, maxRecords int) ([]string, int, error) {
	if len(records) == 0 {
		return nil, 0, nil
	}
	if maxRecords <= 0 {
		return nil, 0, fmt.Errorf("max records per file must be > 0")
	}
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, 0, fmt.Errorf("create output directory: %w", err)
	}

	var created []string
	for start := 0; start < len(records); start += maxRecords {
		end := start + maxRecords
		if end > len(records) {
			end = len(records)
		}
		path := newFileName(outputDir)
		if err := writeChunk(path, records[start:end]); err != nil {
			return nil, 0, err
		}
		created = append(created, path)
	}
	return created, len(records), nil
}

func writeChunk(path string, chunk []Record) error {
	var sb strings.Builder
	sb.WriteString(listRecordsOpen)
	for _, record := range chunk {
		sb.WriteString(record.Raw)
	}
	sb.WriteString(listRecordsClose)

	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("write harvest file %s: %w", path, err)
	}
	return nil
}

func newFileName(outputDir string) string {
	name := fmt.Sprintf(
		"%s_%s.xml",
		time.Now().UTC().Format("2006-01-02T15.04.05"),
		uuid.NewString()[:8],
	)
	return filepath.Join(outputDir, name)
}
