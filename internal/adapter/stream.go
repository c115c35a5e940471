package adapter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/telhawk-systems/telhawk-loader/internal/logtypes"
	"github.com/telhawk-systems/telhawk-loader/internal/models"
)

// eventBridgeKeys identify a record forwarded through an event bus; such
// records carry the real event under "detail".
var eventBridgeKeys = [...]string{"source", "detail", "resources", "account", "time"}

// StreamBatch adapts one subscription-delivered payload containing multiple
// log records inside an envelope.
type StreamBatch struct {
	table    *logtypes.Table
	meta     models.BatchMetadata
	envelope models.StreamEnvelope

	ignoreReason string
}

// NewStreamBatch decodes the (possibly gzip-compressed) payload envelope
// and classifies it. An error here is batch-scoped.
func NewStreamBatch(table *logtypes.Table, payload []byte) (*StreamBatch, error) {
	body, err := decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("stream batch: %w", err)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("stream batch: %w", err)
	}

	b := &StreamBatch{table: table}
	if err := json.Unmarshal(raw, &b.envelope); err != nil {
		return nil, fmt.Errorf("stream batch envelope: %w", err)
	}

	firstMessage := ""
	if len(b.envelope.LogEvents) > 0 {
		firstMessage = b.envelope.LogEvents[0].Message
	}
	b.meta = models.BatchMetadata{
		Channel:   models.ChannelStream,
		LogType:   table.MatchLogGroup(b.envelope.LogGroup, firstMessage),
		AccountID: b.envelope.Owner,
		LogGroup:  b.envelope.LogGroup,
		LogStream: b.envelope.LogStream,
		Region: findRegion(strings.ToLower(
			b.envelope.LogGroup + "_" + b.envelope.LogStream)),
	}

	if strings.Contains(b.envelope.MessageType, "CONTROL_MESSAGE") {
		b.ignoreReason = "stream control message"
		return b, nil
	}
	if b.meta.LogType == logtypes.Unknown {
		b.ignoreReason = fmt.Sprintf("unknown log type for log group %s", b.envelope.LogGroup)
		return b, nil
	}
	b.meta.FileFormat = table.Get(b.meta.LogType).FileFormat
	return b, nil
}

// Metadata implements SourceAdapter.
func (b *StreamBatch) Metadata() models.BatchMetadata { return b.meta }

// IgnoreReason implements SourceAdapter.
func (b *StreamBatch) IgnoreReason() string { return b.ignoreReason }

// Entries implements SourceAdapter. Records with pre-extracted fields skip
// text parsing entirely; text-format types yield raw message strings; the
// rest parse the message as JSON, unwrapping event-bus envelopes.
func (b *StreamBatch) Entries() ([]models.RawEntry, error) {
	lt := b.table.Get(b.meta.LogType)

	var entries []models.RawEntry
	for i, event := range b.envelope.LogEvents {
		if len(event.ExtractedFields) > 0 {
			entries = append(entries, models.RawEntry{
				Fields:     event.ExtractedFields,
				Structured: true,
				Message:    event.Message,
			})
			continue
		}
		if lt.FileFormat == models.FormatText {
			entries = append(entries, models.RawEntry{Text: event.Message})
			continue
		}

		var record map[string]any
		if err := json.Unmarshal([]byte(event.Message), &record); err != nil {
			return nil, fmt.Errorf("stream record %d of log group %s: %w",
				i, b.meta.LogGroup, err)
		}
		if isEventBridge(record) {
			detail, _ := record["detail"].(map[string]any)
			if lt.JSONDelimiter != "" {
				if inner, ok := detail[lt.JSONDelimiter].([]any); ok {
					for _, elem := range inner {
						entries = append(entries, jsonEntry(elem))
					}
					continue
				}
			}
			entries = append(entries, models.RawEntry{Fields: detail})
			continue
		}
		entries = append(entries, models.RawEntry{Fields: record})
	}
	return entries, nil
}

func isEventBridge(record map[string]any) bool {
	for _, k := range eventBridgeKeys {
		if _, ok := record[k]; !ok {
			return false
		}
	}
	return true
}
