package dscheck

import (
	"fmt"
	"io"
)

// Reporter writes one verdict line per case and keeps running tallies.
// Lines are written in matrix order, so two runs of the same config on
// the same device diff cleanly.
type Reporter struct {
	w      io.Writer
	device string

	executed int
	failed   int
	skipped  int
	noSignal int
}

// NewReporter returns a reporter prefixing every line with the device
// name.
func NewReporter(w io.Writer, device string) *Reporter {
	return &Reporter{w: w, device: device}
}

// Report writes the verdict line for one outcome and updates tallies.
func (r *Reporter) Report(o Outcome) {
	switch o.Verdict {
	case VerdictSkipped:
		r.skipped++
	case VerdictNoSignal:
		r.noSignal++
	default:
		r.executed++
		if o.Failed() {
			r.failed++
		}
	}
	fmt.Fprintf(r.w, "%s: %s %s\n", r.device, o.Case, o.Verdict)
}

// Summary writes the final tally and returns the number of failed
// cases.
func (r *Reporter) Summary() int {
	fmt.Fprintf(r.w, "%s: %d executed, %d failed, %d skipped, %d no signal\n",
		r.device, r.executed, r.failed, r.skipped, r.noSignal)
	return r.failed
}
