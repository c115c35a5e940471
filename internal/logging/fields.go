package logging

import "log/slog"

// Common field names for consistent logging across commands.
const (
	FieldService = "service"
	FieldBatchID = "batch_id"
	FieldLogType = "log_type"
	FieldChannel = "channel"
	FieldIndex   = "index"
	FieldError   = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// BatchID returns a slog attribute for the batch correlation id.
func BatchID(id string) slog.Attr {
	return slog.String(FieldBatchID, id)
}

// LogType returns a slog attribute for the resolved log type.
func LogType(name string) slog.Attr {
	return slog.String(FieldLogType, name)
}

// Channel returns a slog attribute for the ingestion channel.
func Channel(name string) slog.Attr {
	return slog.String(FieldChannel, name)
}

// Index returns a slog attribute for the target index name.
func Index(name string) slog.Attr {
	return slog.String(FieldIndex, name)
}

// Err returns a slog attribute for an error value.
func Err(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
