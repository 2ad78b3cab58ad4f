package printer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/upsert"
)

func TestConfirm(t *testing.T) {
	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	p.Confirm("CREATED", "Wisconsin", "Q55")
	p.Confirm("UPDATED", "Minnesota", "Q27")

	out := buf.String()
	assert.Contains(t, out, "CREATED: Wisconsin (Q55)")
	assert.Contains(t, out, "UPDATED: Minnesota (Q27)")
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	report := &upsert.Report{
		RunID:     "run-1",
		Attempted: 2,
		Succeeded: 1,
		Failed:    1,
		Errors: []upsert.RecordError{
			{Key: "WI", Err: errors.NewAPIError("knowledgebase", 503, "down")},
		},
	}
	p.Report(report)

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "WI")
	assert.Contains(t, out, "failed after retries")
}

func TestInfo(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf).Info("wrote %d properties", 14)
	assert.Equal(t, "wrote 14 properties\n", buf.String())
}
