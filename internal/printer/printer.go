// Package printer renders operator-facing progress lines for sync runs.
package printer

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/geokb/geokb/pkg/kb"
	"github.com/geokb/geokb/pkg/upsert"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Printer writes line-oriented progress text.
type Printer struct {
	out io.Writer
}

// New creates a printer writing to stdout.
func New() *Printer {
	return &Printer{out: os.Stdout}
}

// NewWithWriter creates a printer writing to w.
func NewWithWriter(w io.Writer) *Printer {
	return &Printer{out: w}
}

// Confirm emits one per-record confirmation line, e.g.
// "UPDATED: Wisconsin (Q55)".
func (p *Printer) Confirm(action string, label string, id kb.EntityID) {
	switch action {
	case "CREATED":
		_, _ = cyan.Fprintf(p.out, "%s: %s (%s)\n", action, label, id)
	default:
		_, _ = green.Fprintf(p.out, "%s: %s (%s)\n", action, label, id)
	}
}

// Report prints the end-of-run tally, with per-record errors when any.
func (p *Printer) Report(report *upsert.Report) {
	fmt.Fprintln(p.out, report.Summary())
	for _, re := range report.Errors {
		_, _ = yellow.Fprintf(p.out, "  %s: %v\n", re.Key, re.Err)
	}
	if report.Failed > 0 {
		_, _ = red.Fprintf(p.out, "%d record(s) failed after retries\n", report.Failed)
	}
}

// Info prints an informational line.
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}
