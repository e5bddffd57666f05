package crawler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Required top-level keys of a well-formed crawl result envelope, checked in
// this order.
var requiredResultKeys = []string{"record", "errors", "source_data", "file_name"}

// Result lines can carry whole records inline; allow generously sized lines.
const maxResultLineBytes = 16 * 1024 * 1024

// ParseResults reads newline-delimited JSON crawl results. Blank lines are
// skipped; each remaining line must decode to a JSON object on its own. A
// line that fails to decode aborts the whole batch, matching the strictness
// of the transport format rather than the per-record repair path.
func ParseResults(r io.Reader) ([]map[string]any, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResultLineBytes)

	var results []map[string]any
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("decode result line %d: %w", lineNo, err)
		}
		results = append(results, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return results, nil
}

// MissingResultKey returns the first required envelope key absent from rec,
// and whether every required key was present.
func MissingResultKey(rec map[string]any) (string, bool) {
	for _, key := range requiredResultKeys {
		if _, ok := rec[key]; !ok {
			return key, false
		}
	}
	return "", true
}

// ResultFromMissingKey synthesizes a replacement envelope for a crawl result
// that is missing a required key. The malformed input is preserved under
// source_data so nothing is lost, and the failure travels as a record-level
// error rather than aborting the batch.
func ResultFromMissingKey(missing string, wrong map[string]any) map[string]any {
	return map[string]any{
		"record": map[string]any{},
		"errors": []any{
			map[string]any{
				"exception": "KeyError",
				"traceback": fmt.Sprintf("Wrong crawl result format. Missing the key `%s`", missing),
			},
		},
		"source_data": wrong,
		"file_name":   wrong["file_name"],
	}
}

// DeepCopy returns a structural copy of a decoded JSON object. Maps and
// slices are copied recursively; scalar values are shared, which is safe
// because decoded JSON scalars are immutable.
func DeepCopy(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return DeepCopy(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}
