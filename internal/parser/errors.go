package parser

import "fmt"

// DecodeError is a hard failure: the text decode pattern of a log type did
// not match an entry. The operator has to fix the log-type configuration,
// so the error carries both the pattern and the raw text.
type DecodeError struct {
	LogType string
	Pattern string
	Raw     string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("log type %q: decode pattern %q does not match entry: %s",
		e.LogType, e.Pattern, e.Raw)
}

// TransformError wraps a failure inside a custom transform hook.
type TransformError struct {
	LogType string
	Err     error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("custom transform for log type %q: %v", e.LogType, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
