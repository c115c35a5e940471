package models

// OutcomeKind discriminates per-entry results.
type OutcomeKind int

const (
	// OutcomeAccepted carries a serialized document and its target index.
	OutcomeAccepted OutcomeKind = iota
	// OutcomeIgnored carries the reason an entry (or whole batch) was skipped.
	OutcomeIgnored
	// OutcomeFailed carries an entry-scoped hard failure.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of transforming one entry. Exactly one of the
// payload fields is meaningful depending on Kind.
type Outcome struct {
	Kind OutcomeKind

	// Accepted payload.
	Document []byte
	DocID    string
	Index    string

	// Ignored payload.
	Reason string

	// Failed payload.
	Err error
}

// Accepted builds an accepted outcome.
func Accepted(doc []byte, docID, index string) Outcome {
	return Outcome{Kind: OutcomeAccepted, Document: doc, DocID: docID, Index: index}
}

// Ignored builds an ignored outcome.
func Ignored(reason string) Outcome {
	return Outcome{Kind: OutcomeIgnored, Reason: reason}
}

// Failed builds a failed outcome.
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}
