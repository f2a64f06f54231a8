package intake

import "pendingorders/internal/fingerprint"

// Outcome is the processing state of one intake file within a run.
type Outcome string

const (
	OutcomeNew       Outcome = "new"
	OutcomeArchived  Outcome = "archived"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Record is one intake file and what happened to it.
type Record struct {
	Path        string
	Name        string
	Fingerprint fingerprint.Fingerprint
	Outcome     Outcome
	// Detail carries the archive path, duplicate target, or failure message.
	Detail string
}

// ScanResult is the scanner's output: records to process plus counters.
type ScanResult struct {
	Records    []Record
	Found      int
	Duplicates int
	Vanished   int
	Unhashable int
	// Retried counts in-batch repeats of content that was not archived yet.
	Retried int
}

// Included returns the number of records to process.
func (r ScanResult) Included() int { return len(r.Records) }
