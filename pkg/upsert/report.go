package upsert

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Report summarizes one batch run. Operators get this instead of having
// to reconstruct the outcome from console scrollback.
type Report struct {
	// RunID uniquely identifies this run.
	RunID string

	// StartTime and EndTime bound the run.
	StartTime time.Time
	EndTime   time.Time

	// Attempted is the number of records the run processed.
	Attempted int

	// Succeeded is the number of records persisted.
	Succeeded int

	// Created counts records that produced a new entity.
	Created int

	// Updated counts records that modified an existing entity.
	Updated int

	// Skipped counts records dropped for validation failures
	// (ambiguous identity, unresolved reference).
	Skipped int

	// Failed counts records that exhausted retries on transport errors.
	Failed int

	// Errors holds the per-record failures.
	Errors []RecordError
}

// RecordError ties a failure to the record it came from.
type RecordError struct {
	// Key identifies the record (its identity key value or subject).
	Key string

	// Err is the failure.
	Err error
}

// newReport starts a report for a fresh run.
func newReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}
}

// finish stamps the end time.
func (r *Report) finish() *Report {
	r.EndTime = time.Now()
	return r
}

// Duration returns the wall-clock duration of the run.
func (r *Report) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// HasFailures reports whether any record was skipped or failed.
func (r *Report) HasFailures() bool {
	return r.Skipped > 0 || r.Failed > 0
}

// Summary returns a one-line operator summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("run %s: attempted=%d succeeded=%d (created=%d updated=%d) skipped=%d failed=%d in %s",
		r.RunID, r.Attempted, r.Succeeded, r.Created, r.Updated, r.Skipped, r.Failed,
		r.Duration().Round(time.Millisecond))
}
