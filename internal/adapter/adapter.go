// Package adapter classifies raw ingestion batches and splits them into
// individual entries. Two variants exist: object-storage batches (one S3
// object) and stream batches (one subscription payload carrying multiple
// records).
package adapter

import (
	"regexp"

	"github.com/telhawk-systems/telhawk-loader/internal/models"
)

var (
	accountRe = regexp.MustCompile(`/([0-9]{12})/`)
	regionRe  = regexp.MustCompile(`(global|[a-z]{2}-[a-zA-Z]+-[0-9])`)
)

// SourceAdapter yields a batch's metadata and its split-out entries.
type SourceAdapter interface {
	// Metadata describes the classified batch.
	Metadata() models.BatchMetadata

	// IgnoreReason is non-empty when the whole batch must be skipped
	// (unknown log type, source-identifier ignore rule, control record).
	IgnoreReason() string

	// Entries splits the batch in its natural order. Not called for
	// ignored batches.
	Entries() ([]models.RawEntry, error)
}

func findAccountID(s string) string {
	if m := accountRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func findRegion(s string) string {
	return regionRe.FindString(s)
}
