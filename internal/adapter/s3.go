package adapter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/telhawk-systems/telhawk-loader/internal/logtypes"
	"github.com/telhawk-systems/telhawk-loader/internal/models"
)

// maxLineBytes bounds a single entry line; CloudTrail digest objects and
// WAF logs routinely exceed bufio's default.
const maxLineBytes = 10 * 1024 * 1024

// S3Batch adapts one object-storage object.
type S3Batch struct {
	table *logtypes.Table
	meta  models.BatchMetadata
	data  []byte

	ignoreReason string
}

// NewS3Batch classifies the object at bucket/key with the given raw bytes.
// The bytes are still compressed; Entries decompresses transparently.
func NewS3Batch(table *logtypes.Table, bucket, key string, data []byte) *S3Batch {
	b := &S3Batch{
		table: table,
		data:  data,
		meta: models.BatchMetadata{
			Channel:   models.ChannelS3,
			LogType:   table.MatchS3Key(key),
			S3Bucket:  bucket,
			S3Key:     key,
			AccountID: findAccountID(key),
			Region:    findRegion(key),
		},
	}
	if b.meta.LogType == logtypes.Unknown {
		b.ignoreReason = fmt.Sprintf("unknown log type for s3 key %s", key)
		return b
	}
	lt := table.Get(b.meta.LogType)
	b.meta.FileFormat = lt.FileFormat
	if lt.S3KeyIgnored != "" && strings.Contains(key, lt.S3KeyIgnored) {
		b.ignoreReason = fmt.Sprintf("s3 key %s matches ignore rule of log type %s", key, lt.Name)
	}
	return b
}

// Metadata implements SourceAdapter.
func (b *S3Batch) Metadata() models.BatchMetadata { return b.meta }

// IgnoreReason implements SourceAdapter.
func (b *S3Batch) IgnoreReason() string { return b.ignoreReason }

// Entries implements SourceAdapter. It decompresses the object and splits
// it according to the log type's file format.
func (b *S3Batch) Entries() ([]models.RawEntry, error) {
	body, err := decompress(b.data)
	if err != nil {
		return nil, fmt.Errorf("batch %s/%s: %w", b.meta.S3Bucket, b.meta.S3Key, err)
	}

	lt := b.table.Get(b.meta.LogType)
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var entries []models.RawEntry
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), " \t\r")

		switch lt.FileFormat {
		case models.FormatText:
			if line <= lt.TextHeaderLines {
				continue
			}
			entries = append(entries, models.RawEntry{Text: text})

		case models.FormatCSV:
			if line == 1 {
				b.meta.CSVHeader = text
				continue
			}
			if text == "" {
				continue
			}
			entries = append(entries, models.RawEntry{Text: text})

		case models.FormatJSON:
			if strings.TrimSpace(text) == "" {
				continue
			}
			split, err := splitJSONValue([]byte(text), lt.JSONDelimiter)
			if err != nil {
				return nil, fmt.Errorf("batch %s/%s line %d: %w",
					b.meta.S3Bucket, b.meta.S3Key, line, err)
			}
			entries = append(entries, split...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading batch %s/%s: %w", b.meta.S3Bucket, b.meta.S3Key, err)
	}
	return entries, nil
}

// splitJSONValue turns one JSON value into entries. Top-level arrays yield
// one entry per element; when delimiter names a nested array inside an
// object, its elements are unwrapped instead of the parent object.
func splitJSONValue(data []byte, delimiter string) ([]models.RawEntry, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("decoding json entry: %w", err)
	}

	switch v := value.(type) {
	case []any:
		entries := make([]models.RawEntry, 0, len(v))
		for _, elem := range v {
			entries = append(entries, jsonEntry(elem))
		}
		return entries, nil
	case map[string]any:
		if delimiter != "" {
			if inner, ok := v[delimiter].([]any); ok {
				entries := make([]models.RawEntry, 0, len(inner))
				for _, elem := range inner {
					entries = append(entries, jsonEntry(elem))
				}
				return entries, nil
			}
		}
		return []models.RawEntry{{Fields: v}}, nil
	default:
		return nil, fmt.Errorf("json entry is neither object nor array")
	}
}

func jsonEntry(v any) models.RawEntry {
	if m, ok := v.(map[string]any); ok {
		return models.RawEntry{Fields: m}
	}
	// scalar array elements are carried as text
	data, _ := json.Marshal(v)
	return models.RawEntry{Text: string(data)}
}
