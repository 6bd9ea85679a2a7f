package dscheck

import (
	"strings"
	"testing"
)

func TestReporterLines(t *testing.T) {
	var sb strings.Builder
	rep := NewReporter(&sb, "NVIDIA GeForce RTX 4070")

	c := Case{Write: WriteStencilSequential, Read: ReadStencilCopy, Format: Stencil8}
	rep.Report(Outcome{Case: c, Verdict: VerdictOK})
	rep.Report(Outcome{
		Case:    Case{Write: WriteDepthClear, Read: ReadDepthBounds, Format: Depth24PlusStencil8, ViaCopy: true},
		Verdict: VerdictFailedNonZero,
		Mismatches: []*Mismatch{
			{Sub: Subresource{2, 1}, X: 0, Y: 0, Want: "18", Got: "17"},
		},
	})
	rep.Report(Outcome{Case: c, Verdict: VerdictSkipped, Err: ErrBuildFailed})
	rep.Report(Outcome{Case: c, Verdict: VerdictNoSignal, Err: ErrTimeout})
	failed := rep.Summary()

	want := strings.Join([]string{
		"NVIDIA GeForce RTX 4070: stencil8 write=stencil-seq read=stencil-copy copy=0 OK",
		"NVIDIA GeForce RTX 4070: depth24plus-stencil8 write=depth-clear read=depth-bounds copy=1 FAILED (non-zero subresource)",
		"NVIDIA GeForce RTX 4070: stencil8 write=stencil-seq read=stencil-copy copy=0 SKIPPED",
		"NVIDIA GeForce RTX 4070: stencil8 write=stencil-seq read=stencil-copy copy=0 NO SIGNAL",
		"NVIDIA GeForce RTX 4070: 2 executed, 1 failed, 1 skipped, 1 no signal",
		"",
	}, "\n")
	if got := sb.String(); got != want {
		t.Errorf("report output:\n%s\nwant:\n%s", got, want)
	}
	if failed != 1 {
		t.Errorf("Summary() = %d failed, want 1", failed)
	}
}

func TestVerdictStrings(t *testing.T) {
	tests := []struct {
		v    Verdict
		want string
	}{
		{VerdictOK, "OK"},
		{VerdictFailed, "FAILED"},
		{VerdictFailedNonZero, "FAILED (non-zero subresource)"},
		{VerdictSkipped, "SKIPPED"},
		{VerdictNoSignal, "NO SIGNAL"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("Verdict(%d) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestOutcomeFailed(t *testing.T) {
	if (Outcome{Verdict: VerdictOK}).Failed() {
		t.Error("OK counted as failed")
	}
	if !(Outcome{Verdict: VerdictFailedNonZero}).Failed() {
		t.Error("non-zero-subresource failure not counted as failed")
	}
	if (Outcome{Verdict: VerdictSkipped}).Failed() {
		t.Error("skipped counted as failed")
	}
}
