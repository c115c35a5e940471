// Package models defines the data types flowing through the loader:
// raw batches, split-out entries, and per-entry outcomes.
package models

// Ingestion channel tags.
const (
	ChannelS3     = "s3"
	ChannelStream = "stream"
)

// File formats a log type can declare.
const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// BatchMetadata describes a whole batch after source classification.
// It is shared read-only by every entry split out of the batch.
type BatchMetadata struct {
	Channel    string
	LogType    string
	FileFormat string

	// AccountID and Region are best-effort hints, empty when unresolved.
	AccountID string
	Region    string

	// Object storage locality.
	S3Bucket string
	S3Key    string

	// Stream locality.
	LogGroup  string
	LogStream string

	// CSVHeader is the header line of a csv batch, captured during
	// splitting so the parser can pair column names with row values.
	CSVHeader string
}

// StartMessage is the batch diagnostic logged before splitting.
func (m BatchMetadata) StartMessage() string {
	if m.Channel == ChannelS3 {
		return "s3 bucket: " + m.S3Bucket + ", key: " + m.S3Key + ", logtype: " + m.LogType
	}
	return "account: " + m.AccountID + ", logGroup: " + m.LogGroup +
		", logStream: " + m.LogStream + ", logtype: " + m.LogType
}

// RawEntry is one unit split out of a batch. Exactly one of Text or Fields
// is populated: Fields carries records that arrive already structured
// (parsed JSON, or pre-extracted stream fields), Text carries raw lines.
type RawEntry struct {
	Text   string
	Fields map[string]any

	// Structured marks stream records whose fields were pre-extracted
	// upstream; the parser bypasses format decoding for them.
	Structured bool

	// Message is the original message body for Structured entries.
	Message string
}

// StreamEnvelope is the inner payload of one stream-channel batch, the
// shape CloudWatch Logs subscriptions deliver.
type StreamEnvelope struct {
	MessageType string        `json:"messageType"`
	Owner       string        `json:"owner"`
	LogGroup    string        `json:"logGroup"`
	LogStream   string        `json:"logStream"`
	LogEvents   []StreamEvent `json:"logEvents"`
}

// StreamEvent is one record inside a StreamEnvelope.
type StreamEvent struct {
	ID              string         `json:"id"`
	Timestamp       int64          `json:"timestamp"`
	Message         string         `json:"message"`
	ExtractedFields map[string]any `json:"extractedFields,omitempty"`
}
