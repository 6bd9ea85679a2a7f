package dscheck

import (
	"errors"
	"fmt"
)

// ErrUnknownName is returned when parsing a format or method name that
// does not exist.
var ErrUnknownName = errors.New("dscheck: unknown name")

// Aspect identifies the depth or stencil component of a depth/stencil
// pixel format.
type Aspect uint8

const (
	// AspectDepth selects the depth component.
	AspectDepth Aspect = iota

	// AspectStencil selects the stencil component.
	AspectStencil
)

// String returns the aspect name.
func (a Aspect) String() string {
	switch a {
	case AspectDepth:
		return "depth"
	case AspectStencil:
		return "stencil"
	default:
		panic(fmt.Sprintf("dscheck: invalid aspect %d", a))
	}
}

// Repr is the host-side representation used to store and compare one
// aspect of a pixel format.
type Repr uint8

const (
	// ReprUint8 is 8-bit integer data (stencil). Compared exactly.
	ReprUint8 Repr = iota

	// ReprUint16 is 16-bit quantized depth. Compared with one
	// quantization step of slack.
	ReprUint16

	// ReprFloat32 is normalized float depth. Compared with an epsilon
	// window.
	ReprFloat32
)

// TexelSize returns the byte size of one element in this representation.
func (r Repr) TexelSize() int {
	switch r {
	case ReprUint8:
		return 1
	case ReprUint16:
		return 2
	case ReprFloat32:
		return 4
	default:
		panic(fmt.Sprintf("dscheck: invalid repr %d", r))
	}
}

// PixelFormat is a depth/stencil texture format under test.
type PixelFormat uint8

const (
	// Depth16Unorm is 16-bit normalized depth, no stencil.
	Depth16Unorm PixelFormat = iota

	// Depth24PlusStencil8 is at-least-24-bit depth plus 8-bit stencil.
	// The depth aspect is opaque to transfer copies; it can only be
	// verified through the depth-bounds read path.
	Depth24PlusStencil8

	// Depth32Float is 32-bit float depth, no stencil.
	Depth32Float

	// Stencil8 is 8-bit stencil, no depth.
	Stencil8

	// Depth32FloatStencil8 is 32-bit float depth plus 8-bit stencil.
	Depth32FloatStencil8

	formatCount
)

// Formats returns all formats in stable enumeration order.
func Formats() []PixelFormat {
	f := make([]PixelFormat, 0, formatCount)
	for i := PixelFormat(0); i < formatCount; i++ {
		f = append(f, i)
	}
	return f
}

// String returns the WebGPU-style format name.
func (f PixelFormat) String() string {
	switch f {
	case Depth16Unorm:
		return "depth16unorm"
	case Depth24PlusStencil8:
		return "depth24plus-stencil8"
	case Depth32Float:
		return "depth32float"
	case Stencil8:
		return "stencil8"
	case Depth32FloatStencil8:
		return "depth32float-stencil8"
	default:
		panic(fmt.Sprintf("dscheck: invalid format %d", f))
	}
}

// ParseFormat resolves a format name produced by String.
func ParseFormat(name string) (PixelFormat, error) {
	for i := PixelFormat(0); i < formatCount; i++ {
		if i.String() == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: format %q", ErrUnknownName, name)
}

// HasAspect reports whether the format carries the given aspect.
func (f PixelFormat) HasAspect(a Aspect) bool {
	switch a {
	case AspectDepth:
		return f != Stencil8
	case AspectStencil:
		return f == Depth24PlusStencil8 || f == Stencil8 || f == Depth32FloatStencil8
	default:
		panic(fmt.Sprintf("dscheck: invalid aspect %d", a))
	}
}

// CanCopy reports whether the given aspect can move through transfer
// copies between host-visible buffers and the image. Depth24Plus depth
// data has no defined host layout, so it is excluded.
func (f PixelFormat) CanCopy(a Aspect) bool {
	if !f.HasAspect(a) {
		return false
	}
	if a == AspectDepth && f == Depth24PlusStencil8 {
		return false
	}
	return true
}

// Repr returns the host representation of the given aspect.
// The aspect must be supported by the format.
func (f PixelFormat) Repr(a Aspect) Repr {
	if !f.HasAspect(a) {
		panic(fmt.Sprintf("dscheck: format %s has no %s aspect", f, a))
	}
	if a == AspectStencil {
		return ReprUint8
	}
	switch f {
	case Depth16Unorm:
		return ReprUint16
	default:
		return ReprFloat32
	}
}
