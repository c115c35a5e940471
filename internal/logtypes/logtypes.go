// Package logtypes holds the per-log-type parsing and mapping table.
// The table is loaded once from YAML at process start, validated eagerly,
// and read-only afterwards.
package logtypes

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/telhawk-loader/internal/models"
)

// Unknown is the log type assigned to batches matching no configured type.
const Unknown = "unknown"

// Index rotation policies.
const (
	RotationNone    = "none"
	RotationDaily   = "daily"
	RotationWeekly  = "weekly"
	RotationMonthly = "monthly"
	RotationYearly  = "yearly"
)

// LogType is the configuration governing one recognized log source.
type LogType struct {
	Name string `yaml:"name"`

	// Source matching. S3Key is a regex matched against the object key,
	// LogGroup a lowercase substring matched against the stream's log-group
	// name (or the head of the first record when the group is unlabeled).
	S3Key    string `yaml:"s3_key"`
	LogGroup string `yaml:"log_group"`

	// S3KeyIgnored skips whole batches whose key contains this substring.
	S3KeyIgnored string `yaml:"s3_key_ignored"`

	FileFormat      string `yaml:"file_format"`
	TextHeaderLines int    `yaml:"text_header_lines"`
	JSONDelimiter   string `yaml:"json_delimiter"`

	// Pattern is the named-capture regex decoding text entries.
	Pattern string `yaml:"pattern"`

	// ECS maps destination dotted paths to space-separated candidate
	// source paths; first non-empty candidate wins. StaticECS entries are
	// constants merged last, so they override anything mapped earlier.
	ECS       map[string]string `yaml:"ecs"`
	StaticECS map[string]string `yaml:"static_ecs"`

	ECSVersion    string `yaml:"ecs_version"`
	CloudProvider string `yaml:"cloud_provider"`

	// DocID names the field supplying the document id; empty means the
	// content hash of @message is used. DocIDSuffix optionally names a
	// field appended to the id.
	DocID       string `yaml:"doc_id"`
	DocIDSuffix string `yaml:"doc_id_suffix"`

	// Ignores drops entries whose field contains the forbidden substring.
	Ignores map[string]string `yaml:"ignores"`

	// MultiTypeFields hold sometimes-JSON-sometimes-string content that is
	// rebuilt into proper nested structure before schema mapping.
	MultiTypeFields []string `yaml:"multi_type_fields"`

	// GeoIPFields list ECS object paths whose .ip sub-field is enriched.
	GeoIPFields []string `yaml:"geoip_fields"`

	TimestampKey    string  `yaml:"timestamp_key"`
	TimestampFormat string  `yaml:"timestamp_format"`
	TimestampTZ     float64 `yaml:"timestamp_tz"`

	IndexName     string  `yaml:"index_name"`
	IndexRotation string  `yaml:"index_rotation"`
	IndexTime     string  `yaml:"index_time"`
	IndexTZ       float64 `yaml:"index_tz"`

	// CustomTransform enables the registered per-log-type transform hook.
	CustomTransform bool `yaml:"custom_transform"`

	s3KeyRe   *regexp.Regexp
	patternRe *regexp.Regexp
}

// S3KeyRegexp returns the compiled source-key matcher, nil when unset.
func (lt *LogType) S3KeyRegexp() *regexp.Regexp { return lt.s3KeyRe }

// PatternRegexp returns the compiled text decode pattern, nil when unset.
func (lt *LogType) PatternRegexp() *regexp.Regexp { return lt.patternRe }

// Table is the ordered log-type table. Order matters: source matching
// takes the first log type whose pattern matches.
type Table struct {
	types  []*LogType
	byName map[string]*LogType
}

// Load reads and validates a YAML log-type table.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading log-type table: %w", err)
	}
	return Parse(data)
}

// Parse builds a Table from YAML bytes.
func Parse(data []byte) (*Table, error) {
	var doc struct {
		LogTypes []*LogType `yaml:"log_types"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing log-type table: %w", err)
	}
	if len(doc.LogTypes) == 0 {
		return nil, fmt.Errorf("log-type table is empty")
	}

	t := &Table{byName: make(map[string]*LogType, len(doc.LogTypes))}
	for _, lt := range doc.LogTypes {
		if err := lt.validate(); err != nil {
			return nil, fmt.Errorf("log type %q: %w", lt.Name, err)
		}
		if _, dup := t.byName[lt.Name]; dup {
			return nil, fmt.Errorf("log type %q: duplicate definition", lt.Name)
		}
		t.types = append(t.types, lt)
		t.byName[lt.Name] = lt
	}
	return t, nil
}

func (lt *LogType) validate() error {
	if lt.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch lt.FileFormat {
	case models.FormatText, models.FormatCSV, models.FormatJSON:
	default:
		return fmt.Errorf("unsupported file format %q", lt.FileFormat)
	}
	switch lt.IndexRotation {
	case "", RotationNone, RotationDaily, RotationWeekly, RotationMonthly, RotationYearly:
	default:
		return fmt.Errorf("unsupported index rotation %q", lt.IndexRotation)
	}
	if lt.IndexRotation == "" {
		lt.IndexRotation = RotationNone
	}
	if lt.IndexName == "" {
		return fmt.Errorf("index_name is required")
	}
	var err error
	if lt.S3Key != "" {
		if lt.s3KeyRe, err = regexp.Compile(lt.S3Key); err != nil {
			return fmt.Errorf("invalid s3_key pattern: %w", err)
		}
	}
	if lt.Pattern != "" {
		if lt.patternRe, err = regexp.Compile(lt.Pattern); err != nil {
			return fmt.Errorf("invalid decode pattern: %w", err)
		}
	}
	if lt.FileFormat == models.FormatText && lt.TimestampKey != "" && lt.Pattern == "" {
		return fmt.Errorf("text format with a timestamp key needs a decode pattern")
	}
	return nil
}

// Get returns the log type by name, nil when absent.
func (t *Table) Get(name string) *LogType {
	return t.byName[name]
}

// All returns the log types in table order.
func (t *Table) All() []*LogType {
	return t.types
}

// MatchS3Key returns the first log type whose s3_key pattern matches key,
// or Unknown.
func (t *Table) MatchS3Key(key string) string {
	for _, lt := range t.types {
		if lt.s3KeyRe != nil && lt.s3KeyRe.MatchString(key) {
			return lt.Name
		}
	}
	return Unknown
}

// MatchLogGroup returns the first log type whose log_group token appears in
// the lowercased group name, falling back to a prefix of the first record's
// message for group-unlabeled streams, or Unknown.
func (t *Table) MatchLogGroup(group, firstMessage string) string {
	const headLen = 150
	if len(firstMessage) > headLen {
		firstMessage = firstMessage[:headLen]
	}
	for _, lt := range t.types {
		if lt.LogGroup == "" {
			continue
		}
		if containsFold(group, lt.LogGroup) || containsFold(firstMessage, lt.LogGroup) {
			return lt.Name
		}
	}
	return Unknown
}

func containsFold(haystack, needle string) bool {
	if needle == "" || haystack == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
