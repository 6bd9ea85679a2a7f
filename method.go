package dscheck

import "fmt"

// WriteMethod is one device-side path for storing data into every
// subresource of the tested texture. Each method targets exactly one
// aspect; the matrix never pairs it with a read method for the other.
type WriteMethod uint8

const (
	// WriteStencilSequential uploads an incrementing byte pattern into
	// each subresource through a transfer buffer. The counter carries
	// across subresources without resetting.
	WriteStencilSequential WriteMethod = iota

	// WriteDepthSequential is the depth-aspect variant of the
	// sequential upload, using the format's depth encoding.
	WriteDepthSequential

	// WriteStencilClear clears each subresource to a per-subresource
	// stencil value in a render pass.
	WriteStencilClear

	// WriteDepthClear clears each subresource to a per-subresource
	// depth value in a render pass.
	WriteDepthClear

	// WriteStencilInvert clears each subresource, then draws a quad
	// that stencil-inverts the bottom-left quadrant
	// (y >= height/2, x < width/2).
	WriteStencilInvert

	// WriteStencilSeqThenClear performs the sequential upload and then
	// the clear; the clear wins, but the upload still exercises the
	// transfer path against every subresource first.
	WriteStencilSeqThenClear

	// WriteStencilClearThenSeq performs the clear and then the
	// sequential upload.
	WriteStencilClearThenSeq

	writeMethodCount
)

// WriteMethods returns all write methods in stable enumeration order.
func WriteMethods() []WriteMethod {
	m := make([]WriteMethod, 0, writeMethodCount)
	for i := WriteMethod(0); i < writeMethodCount; i++ {
		m = append(m, i)
	}
	return m
}

// String returns the method name used in verdict lines and filters.
func (w WriteMethod) String() string {
	switch w {
	case WriteStencilSequential:
		return "stencil-seq"
	case WriteDepthSequential:
		return "depth-seq"
	case WriteStencilClear:
		return "stencil-clear"
	case WriteDepthClear:
		return "depth-clear"
	case WriteStencilInvert:
		return "stencil-invert"
	case WriteStencilSeqThenClear:
		return "stencil-seq-clear"
	case WriteStencilClearThenSeq:
		return "stencil-clear-seq"
	default:
		panic(fmt.Sprintf("dscheck: invalid write method %d", w))
	}
}

// ParseWriteMethod resolves a write method name produced by String.
func ParseWriteMethod(name string) (WriteMethod, error) {
	for i := WriteMethod(0); i < writeMethodCount; i++ {
		if i.String() == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: write method %q", ErrUnknownName, name)
}

// Aspect returns the aspect this method writes.
func (w WriteMethod) Aspect() Aspect {
	switch w {
	case WriteDepthSequential, WriteDepthClear:
		return AspectDepth
	default:
		return AspectStencil
	}
}

// UsesUpload reports whether the method moves data through a transfer
// buffer, requiring the aspect to be host-copyable.
func (w WriteMethod) UsesUpload() bool {
	switch w {
	case WriteStencilSequential, WriteDepthSequential,
		WriteStencilSeqThenClear, WriteStencilClearThenSeq:
		return true
	default:
		return false
	}
}

// UsesRenderPass reports whether the method needs the texture as a
// render target.
func (w WriteMethod) UsesRenderPass() bool {
	return w != WriteStencilSequential && w != WriteDepthSequential
}

// NeedsShader reports whether the method requires pipeline compilation
// on the device. A build failure skips the single test case.
func (w WriteMethod) NeedsShader() bool {
	return w == WriteStencilInvert
}

// ReadMethod is one device-side path for retrieving subresource data
// (or a proxy for it) back to the host.
type ReadMethod uint8

const (
	// ReadStencilCopy copies each subresource's stencil bytes into a
	// host-visible buffer.
	ReadStencilCopy ReadMethod = iota

	// ReadDepthCopy copies each subresource's depth data into a
	// host-visible buffer using the format's depth encoding.
	ReadDepthCopy

	// ReadStencilSample samples the stencil subresource in a fragment
	// shader, renders the values into a color target, and copies that
	// out.
	ReadStencilSample

	// ReadDepthSample is the depth-aspect variant of the sampled read.
	// The sampled value is always compared as float.
	ReadDepthSample

	// ReadDepthBounds verifies depth without reading it: two draws
	// depth-test the stored values against references offset by
	// -tolerance/2 and +tolerance/2 from the expectation, and every
	// pixel must pass both.
	ReadDepthBounds

	readMethodCount
)

// ReadMethods returns all read methods in stable enumeration order.
func ReadMethods() []ReadMethod {
	m := make([]ReadMethod, 0, readMethodCount)
	for i := ReadMethod(0); i < readMethodCount; i++ {
		m = append(m, i)
	}
	return m
}

// String returns the method name used in verdict lines and filters.
func (r ReadMethod) String() string {
	switch r {
	case ReadStencilCopy:
		return "stencil-copy"
	case ReadDepthCopy:
		return "depth-copy"
	case ReadStencilSample:
		return "stencil-sample"
	case ReadDepthSample:
		return "depth-sample"
	case ReadDepthBounds:
		return "depth-bounds"
	default:
		panic(fmt.Sprintf("dscheck: invalid read method %d", r))
	}
}

// ParseReadMethod resolves a read method name produced by String.
func ParseReadMethod(name string) (ReadMethod, error) {
	for i := ReadMethod(0); i < readMethodCount; i++ {
		if i.String() == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: read method %q", ErrUnknownName, name)
}

// Aspect returns the aspect this method reads.
func (r ReadMethod) Aspect() Aspect {
	switch r {
	case ReadStencilCopy, ReadStencilSample:
		return AspectStencil
	default:
		return AspectDepth
	}
}

// UsesCopy reports whether the method moves raw aspect data through a
// transfer copy, requiring the aspect to be host-copyable.
func (r ReadMethod) UsesCopy() bool {
	return r == ReadStencilCopy || r == ReadDepthCopy
}

// NeedsShader reports whether the method requires pipeline compilation
// on the device.
func (r ReadMethod) NeedsShader() bool {
	return r != ReadStencilCopy && r != ReadDepthCopy
}

// ReadRepr returns the representation the comparator applies to this
// read method's output for the given format. Sampled reads always
// produce floats; copies keep the format's native encoding.
func (r ReadMethod) ReadRepr(f PixelFormat) Repr {
	switch r {
	case ReadStencilCopy:
		return ReprUint8
	case ReadDepthCopy:
		return f.Repr(AspectDepth)
	case ReadStencilSample:
		return ReprUint8
	case ReadDepthSample:
		return ReprFloat32
	case ReadDepthBounds:
		return ReprUint8 // per-pixel pass mask
	default:
		panic(fmt.Sprintf("dscheck: invalid read method %d", r))
	}
}
