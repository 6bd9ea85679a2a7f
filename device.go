package dscheck

import (
	"errors"
	"time"
)

// Errors the runner distinguishes when folding device failures into
// verdicts. Anything wrapping ErrBuildFailed marks the case as not
// executed rather than failed; ErrTimeout means the device produced no
// observable result within the configured window.
var (
	ErrBuildFailed = errors.New("dscheck: pipeline build failed")
	ErrTimeout     = errors.New("dscheck: device produced no result in time")
)

// Usage is the set of capabilities a test case needs from its texture.
// The runner derives it from the case so backends allocate only what
// the exercised paths require; over-broad usage can mask layout bugs.
type Usage uint8

const (
	UsageCopySrc Usage = 1 << iota
	UsageCopyDst
	UsageRender
	UsageSample
)

// Usage returns the texture capabilities this case's write and read
// paths need.
func (c Case) Usage() Usage {
	var u Usage
	if c.Write.UsesUpload() {
		u |= UsageCopyDst
	}
	if c.Write.UsesRenderPass() {
		u |= UsageRender
	}
	u |= c.Read.Usage()
	if c.ViaCopy {
		u |= UsageCopySrc
	}
	return u
}

// Usage returns the capabilities a read method needs from the texture
// it reads. The intermediate-copy destination texture is allocated
// with exactly these plus UsageCopyDst.
func (r ReadMethod) Usage() Usage {
	switch r {
	case ReadStencilCopy, ReadDepthCopy:
		return UsageCopySrc
	case ReadStencilSample, ReadDepthSample:
		return UsageSample
	case ReadDepthBounds:
		return UsageRender
	default:
		panic("dscheck: invalid read method")
	}
}

// Device is the narrow surface the runner needs from a GPU. The wgpu
// backend provides the real one; runner tests use an in-memory fake.
// All texture operations are issued serially by a single goroutine;
// implementations may complete readbacks asynchronously but must
// observe operations in submission order.
type Device interface {
	// Name identifies the adapter in verdict lines.
	Name() string

	// NewTexture allocates a depth/stencil texture with the given mip
	// and layer counts and only the requested usages.
	NewTexture(f PixelFormat, width, height, levels, layers uint32, u Usage) (Texture, error)

	// Close releases the device. Outstanding readbacks are completed
	// or failed first.
	Close()
}

// Texture is one allocated test texture. Writes target a single aspect
// of a single subresource; reads return futures resolved when the
// device work completes.
type Texture interface {
	// Upload transfers tightly packed texel bytes into one aspect of
	// one subresource.
	Upload(sub Subresource, a Aspect, data []byte) error

	// Clear sets one subresource to a uniform value in a render pass.
	// The irrelevant aspect's argument is ignored.
	Clear(sub Subresource, a Aspect, depth float32, stencil uint32) error

	// InvertStencil draws a quad that stencil-inverts the region
	// y >= h/2 && x < w/2 of one subresource.
	InvertStencil(sub Subresource) error

	// CopyTo copies every subresource of one aspect into an
	// identically shaped texture on the same device.
	CopyTo(dst Texture, a Aspect) error

	// Read copies one aspect of one subresource into a host-visible
	// buffer. The future resolves to the aspect's native encoding,
	// tightly packed.
	Read(sub Subresource, a Aspect) (*Readback, error)

	// ReadSampled renders the subresource's values through a sampling
	// shader into a color target and reads that back: u8 per texel
	// for stencil, f32 for depth.
	ReadSampled(sub Subresource, a Aspect) (*Readback, error)

	// ReadDepthBounds depth-tests the stored values against the given
	// per-texel expectations, offset by the comparison tolerance in
	// both directions. The future resolves to a mask with one nonzero
	// byte per passing texel.
	ReadDepthBounds(sub Subresource, expected []float32) (*Readback, error)

	// Destroy releases the texture.
	Destroy()
}

// Readback is one pending subresource result. The buffer delivered to
// Wait belongs to the Readback; the backend must not reuse it after
// calling Complete.
type Readback struct {
	sub  Subresource
	done chan struct{}
	data []byte
	err  error
}

// NewReadback creates an unresolved future for one subresource.
func NewReadback(sub Subresource) *Readback {
	return &Readback{sub: sub, done: make(chan struct{})}
}

// Subresource returns the subresource this future describes.
func (r *Readback) Subresource() Subresource { return r.sub }

// Complete resolves the future with the readback bytes or an error.
// It must be called exactly once.
func (r *Readback) Complete(data []byte, err error) {
	r.data = data
	r.err = err
	close(r.done)
}

// Wait blocks until the future resolves or the timeout elapses. On
// timeout it returns ErrTimeout and the eventual buffer is dropped.
func (r *Readback) Wait(timeout time.Duration) ([]byte, error) {
	select {
	case <-r.done:
		return r.data, r.err
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}
