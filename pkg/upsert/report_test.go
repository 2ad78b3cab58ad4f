package upsert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geokb/geokb/pkg/errors"
)

func TestReportSummary(t *testing.T) {
	r := newReport()
	require.NotEmpty(t, r.RunID)

	r.Attempted = 3
	r.Succeeded = 2
	r.Created = 1
	r.Updated = 1
	r.Skipped = 1
	r.finish()

	s := r.Summary()
	assert.Contains(t, s, r.RunID)
	assert.Contains(t, s, "attempted=3")
	assert.Contains(t, s, "succeeded=2")
	assert.Contains(t, s, "skipped=1")
	assert.False(t, r.Duration() < 0)
}

func TestReportHasFailures(t *testing.T) {
	r := newReport()
	assert.False(t, r.HasFailures())

	r.Skipped = 1
	assert.True(t, r.HasFailures())

	r.Skipped = 0
	r.Failed = 1
	assert.True(t, r.HasFailures())
}

func TestReportRunIDsUnique(t *testing.T) {
	assert.NotEqual(t, newReport().RunID, newReport().RunID)
}

func TestReportErrors(t *testing.T) {
	r := newReport()
	r.Errors = append(r.Errors, RecordError{Key: "WI", Err: errors.ErrAmbiguousMatch})
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "WI", r.Errors[0].Key)
}
