package dscheck

import (
	"errors"
	"fmt"
	"log/slog"
)

// Verdict is the single-line result of one test case.
type Verdict uint8

const (
	// VerdictOK means every subresource matched the shadow.
	VerdictOK Verdict = iota

	// VerdictFailed means at least one subresource mismatched,
	// including the base (level 0, layer 0).
	VerdictFailed

	// VerdictFailedNonZero means only subresources other than the
	// base mismatched. The data path works; the subresource
	// addressing does not.
	VerdictFailedNonZero

	// VerdictSkipped means the case was not executed because the
	// device could not build or allocate what it needed.
	VerdictSkipped

	// VerdictNoSignal means the device accepted the work but produced
	// no observable result within the timeout.
	VerdictNoSignal
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "OK"
	case VerdictFailed:
		return "FAILED"
	case VerdictFailedNonZero:
		return "FAILED (non-zero subresource)"
	case VerdictSkipped:
		return "SKIPPED"
	case VerdictNoSignal:
		return "NO SIGNAL"
	default:
		panic(fmt.Sprintf("dscheck: invalid verdict %d", v))
	}
}

// Outcome is the full result of one executed case. It is returned by
// value; nothing about a case outlives its Run call except what the
// caller keeps.
type Outcome struct {
	Case    Case
	Verdict Verdict

	// Err carries the device error behind VerdictSkipped and
	// VerdictNoSignal.
	Err error

	// Mismatches holds the first failing texel of every mismatching
	// subresource, in traversal order.
	Mismatches []*Mismatch
}

// Failed reports whether the case executed and mismatched.
func (o Outcome) Failed() bool {
	return o.Verdict == VerdictFailed || o.Verdict == VerdictFailedNonZero
}

// verdictForError classifies a device error raised before readback:
// a device that stopped responding is NO SIGNAL, anything else means
// the case could not be built and is SKIPPED.
func verdictForError(err error) Verdict {
	if errors.Is(err, ErrTimeout) {
		return VerdictNoSignal
	}
	return VerdictSkipped
}

// Runner executes cases one at a time against a device. A fresh shadow
// is generated per case, so no state carries between cases and a run
// can be stopped and resumed at any matrix position.
type Runner struct {
	dev Device
	cfg Config
}

func NewRunner(dev Device, cfg Config) *Runner {
	return &Runner{dev: dev, cfg: cfg}
}

// Run executes one case end to end: generate the shadow, issue the
// device-side writes, optionally route through an intermediate copy,
// read every subresource back, and compare.
func (r *Runner) Run(c Case) Outcome {
	log := Logger().With(slog.String("case", c.String()))
	log.Info("running case")

	aspect := c.Aspect()
	shadow := NewShadowTexture(r.cfg.Width, r.cfg.Height, r.cfg.Levels, r.cfg.Layers, c.Format, aspect)
	shadow.Generate(c.Write, r.cfg.Seed)

	tex, err := r.dev.NewTexture(c.Format, r.cfg.Width, r.cfg.Height, r.cfg.Levels, r.cfg.Layers, c.Usage())
	if err != nil {
		log.Warn("texture allocation failed", slog.Any("err", err))
		return Outcome{Case: c, Verdict: verdictForError(err), Err: err}
	}
	defer tex.Destroy()

	if err := r.write(c, shadow, tex); err != nil {
		log.Warn("write failed", slog.Any("err", err))
		return Outcome{Case: c, Verdict: verdictForError(err), Err: err}
	}

	target := tex
	if c.ViaCopy {
		dst, err := r.dev.NewTexture(c.Format, r.cfg.Width, r.cfg.Height, r.cfg.Levels, r.cfg.Layers,
			c.Read.Usage()|UsageCopyDst)
		if err != nil {
			log.Warn("copy target allocation failed", slog.Any("err", err))
			return Outcome{Case: c, Verdict: verdictForError(err), Err: err}
		}
		defer dst.Destroy()
		if err := tex.CopyTo(dst, aspect); err != nil {
			log.Warn("intermediate copy failed", slog.Any("err", err))
			return Outcome{Case: c, Verdict: verdictForError(err), Err: err}
		}
		target = dst
	}

	var pending []*Readback
	for sub := range shadow.Subresources() {
		rb, err := r.read(c, shadow, target, sub)
		if err != nil {
			log.Warn("read failed", slog.String("sub", sub.String()), slog.Any("err", err))
			return Outcome{Case: c, Verdict: verdictForError(err), Err: err}
		}
		pending = append(pending, rb)
	}

	out := Outcome{Case: c, Verdict: VerdictOK}
	baseFailed := false
	for _, rb := range pending {
		data, err := rb.Wait(r.cfg.Timeout)
		if err != nil {
			log.Warn("readback did not resolve", slog.String("sub", rb.Subresource().String()), slog.Any("err", err))
			return Outcome{Case: c, Verdict: VerdictNoSignal, Err: err}
		}
		var m *Mismatch
		if c.Read == ReadDepthBounds {
			m = CompareMask(shadow, rb.Subresource(), data)
		} else {
			m = Compare(shadow, rb.Subresource(), c.Read.ReadRepr(c.Format), data)
		}
		if m != nil {
			log.Debug("mismatch", slog.String("at", m.String()))
			out.Mismatches = append(out.Mismatches, m)
			if m.Sub.IsBase() {
				baseFailed = true
			}
		}
	}
	if len(out.Mismatches) > 0 {
		if baseFailed {
			out.Verdict = VerdictFailed
		} else {
			out.Verdict = VerdictFailedNonZero
		}
	}
	return out
}

// write issues the device-side writes mirroring what Generate put in
// the shadow, in the same order.
func (r *Runner) write(c Case, shadow *ShadowTexture, tex Texture) error {
	switch c.Write {
	case WriteStencilSequential, WriteDepthSequential:
		return r.writeSequential(c, shadow, tex)
	case WriteStencilClear, WriteDepthClear:
		return r.writeClear(c, shadow, tex)
	case WriteStencilInvert:
		if err := r.writeClear(c, shadow, tex); err != nil {
			return err
		}
		for sub := range shadow.Subresources() {
			if err := tex.InvertStencil(sub); err != nil {
				return err
			}
		}
		return nil
	case WriteStencilSeqThenClear:
		if err := r.writeSequential(c, shadow, tex); err != nil {
			return err
		}
		return r.writeClear(c, shadow, tex)
	case WriteStencilClearThenSeq:
		if err := r.writeClear(c, shadow, tex); err != nil {
			return err
		}
		return r.writeSequential(c, shadow, tex)
	default:
		panic(fmt.Sprintf("dscheck: invalid write method %d", c.Write))
	}
}

// writeSequential uploads the final shadow contents. For composite
// methods the sequential pass uploads the sequential pattern alone, so
// it regenerates a scratch shadow with only that pass applied.
func (r *Runner) writeSequential(c Case, shadow *ShadowTexture, tex Texture) error {
	aspect := c.Aspect()
	repr := c.Format.Repr(aspect)
	scratch := shadow
	if c.Write != WriteStencilSequential && c.Write != WriteDepthSequential {
		scratch = NewShadowTexture(r.cfg.Width, r.cfg.Height, r.cfg.Levels, r.cfg.Layers, c.Format, aspect)
		scratch.fillSequential(r.cfg.Seed)
	}
	for sub := range scratch.Subresources() {
		if err := tex.Upload(sub, aspect, scratch.Encode(sub, repr)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) writeClear(c Case, shadow *ShadowTexture, tex Texture) error {
	aspect := c.Aspect()
	for sub := range shadow.Subresources() {
		v := shadow.ClearValue(sub, r.cfg.Seed)
		if err := tex.Clear(sub, aspect, shadow.Float(v), v); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) read(c Case, shadow *ShadowTexture, tex Texture, sub Subresource) (*Readback, error) {
	switch c.Read {
	case ReadStencilCopy, ReadDepthCopy:
		return tex.Read(sub, c.Read.Aspect())
	case ReadStencilSample, ReadDepthSample:
		return tex.ReadSampled(sub, c.Read.Aspect())
	case ReadDepthBounds:
		w, h := shadow.Extent(sub)
		expected := make([]float32, w*h)
		for y := uint32(0); y < h; y++ {
			for x := uint32(0); x < w; x++ {
				expected[y*w+x] = shadow.Float(shadow.Value(sub, x, y))
			}
		}
		return tex.ReadDepthBounds(sub, expected)
	default:
		panic(fmt.Sprintf("dscheck: invalid read method %d", c.Read))
	}
}
