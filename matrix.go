package dscheck

import (
	"fmt"
	"iter"
	"time"
)

// Config describes one harness run: texture geometry, generator seed,
// and optional filters restricting the case matrix. A Config is pure
// data; Cases derives the full test sequence from it.
type Config struct {
	Width  uint32
	Height uint32
	Levels uint32
	Layers uint32

	// Seed perturbs the generator arithmetic so repeated runs do not
	// always exercise the same byte values. Zero is the deterministic
	// reference seed.
	Seed uint32

	// Write, Read and Format restrict the matrix to cases whose
	// method or format carries exactly that name. Empty means no
	// restriction.
	Write  string
	Read   string
	Format string

	// Timeout bounds how long the runner waits for one case's device
	// work to complete before declaring it unobservable.
	Timeout time.Duration
}

// DefaultConfig returns the geometry and timeout used when no flags
// override them.
func DefaultConfig() Config {
	return Config{
		Width:   64,
		Height:  64,
		Levels:  4,
		Layers:  3,
		Timeout: 10 * time.Second,
	}
}

// Validate checks geometry and resolves filter names.
func (c Config) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("dscheck: texture extent %dx%d must be nonzero", c.Width, c.Height)
	}
	if c.Levels == 0 || c.Layers == 0 {
		return fmt.Errorf("dscheck: %d levels x %d layers must be nonzero", c.Levels, c.Layers)
	}
	if c.Levels > 32 {
		return fmt.Errorf("dscheck: %d mip levels exceed any plausible extent", c.Levels)
	}
	if c.Write != "" {
		if _, err := ParseWriteMethod(c.Write); err != nil {
			return err
		}
	}
	if c.Read != "" {
		if _, err := ParseReadMethod(c.Read); err != nil {
			return err
		}
	}
	if c.Format != "" {
		if _, err := ParseFormat(c.Format); err != nil {
			return err
		}
	}
	return nil
}

// Case is one cell of the test matrix: a write path, a read path, a
// pixel format, and whether the texture contents travel through an
// intermediate whole-resource copy before being read.
type Case struct {
	Write   WriteMethod
	Read    ReadMethod
	Format  PixelFormat
	ViaCopy bool
}

func (c Case) String() string {
	copyFlag := 0
	if c.ViaCopy {
		copyFlag = 1
	}
	return fmt.Sprintf("%s write=%s read=%s copy=%d", c.Format, c.Write, c.Read, copyFlag)
}

// Aspect returns the single aspect the case exercises.
func (c Case) Aspect() Aspect {
	return c.Write.Aspect()
}

// Compatible reports whether a write method, read method and format
// form an executable case: both methods must target the same aspect,
// the format must carry that aspect, and any transfer-based path needs
// the aspect to be host-copyable.
func Compatible(w WriteMethod, r ReadMethod, f PixelFormat) bool {
	a := w.Aspect()
	if r.Aspect() != a {
		return false
	}
	if !f.HasAspect(a) {
		return false
	}
	if (w.UsesUpload() || r.UsesCopy()) && !f.CanCopy(a) {
		return false
	}
	return true
}

// Cases returns the lazy case sequence for this config. The sequence
// is a pure function of the config: iterating it twice yields the same
// cases in the same order, so a run can be restarted or diffed against
// a previous log. Order is write method outer, then read method, then
// copy flag, with format innermost.
func (c Config) Cases() iter.Seq[Case] {
	return func(yield func(Case) bool) {
		for _, w := range WriteMethods() {
			if c.Write != "" && w.String() != c.Write {
				continue
			}
			for _, r := range ReadMethods() {
				if c.Read != "" && r.String() != c.Read {
					continue
				}
				for _, viaCopy := range [2]bool{false, true} {
					for _, f := range Formats() {
						if c.Format != "" && f.String() != c.Format {
							continue
						}
						if !Compatible(w, r, f) {
							continue
						}
						if !yield(Case{Write: w, Read: r, Format: f, ViaCopy: viaCopy}) {
							return
						}
					}
				}
			}
		}
	}
}
