package dscheck

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
)

// Subresource identifies one mip level / array layer pair of a texture.
type Subresource struct {
	Level uint32
	Layer uint32
}

func (s Subresource) String() string {
	return fmt.Sprintf("level %d layer %d", s.Level, s.Layer)
}

// IsBase reports whether this is the first subresource (level 0,
// layer 0). Failures confined to non-base subresources point at
// subresource addressing rather than the data path itself.
func (s Subresource) IsBase() bool {
	return s.Level == 0 && s.Layer == 0
}

// MipExtent returns the size of a mip level derived from a base
// dimension, clamped to at least one texel.
func MipExtent(base, level uint32) uint32 {
	e := base >> level
	if e == 0 {
		return 1
	}
	return e
}

// ShadowTexture holds the host-side expected contents of every
// subresource of the tested texture. Values are kept in integer form;
// the float encoding for depth formats is derived on demand so one
// shadow serves both raw-copy and sampled comparisons.
//
// A shadow is allocated fresh for each test case, populated by exactly
// one write method, compared, and discarded.
type ShadowTexture struct {
	Width  uint32
	Height uint32
	Levels uint32
	Layers uint32

	// Range is the modulus of the generator arithmetic: 255 for
	// 8-bit stencil data, 65535 otherwise. Generated values lie in
	// [1, Range]; the stencil invert generator additionally produces
	// 8-bit complements, which stay within [0, 255].
	Range uint32

	data [][]uint32
}

// NewShadowTexture allocates a shadow sized for the given texture
// dimensions, holding values for one aspect of one format.
func NewShadowTexture(width, height, levels, layers uint32, f PixelFormat, a Aspect) *ShadowTexture {
	s := &ShadowTexture{
		Width:  width,
		Height: height,
		Levels: levels,
		Layers: layers,
		Range:  65535,
		data:   make([][]uint32, levels*layers),
	}
	if f.Repr(a) == ReprUint8 {
		s.Range = 255
	}
	for sub := range s.Subresources() {
		w, h := s.Extent(sub)
		s.data[sub.Level*layers+sub.Layer] = make([]uint32, w*h)
	}
	return s
}

// Subresources yields every subresource in traversal order: all layers
// of level 0, then all layers of level 1, and so on. Generators and
// comparisons both follow this order.
func (s *ShadowTexture) Subresources() iter.Seq[Subresource] {
	return func(yield func(Subresource) bool) {
		for level := uint32(0); level < s.Levels; level++ {
			for layer := uint32(0); layer < s.Layers; layer++ {
				if !yield(Subresource{Level: level, Layer: layer}) {
					return
				}
			}
		}
	}
}

// Extent returns the texel dimensions of one subresource.
func (s *ShadowTexture) Extent(sub Subresource) (w, h uint32) {
	return MipExtent(s.Width, sub.Level), MipExtent(s.Height, sub.Level)
}

func (s *ShadowTexture) texels(sub Subresource) []uint32 {
	return s.data[sub.Level*s.Layers+sub.Layer]
}

// Value returns the expected integer value at one texel.
func (s *ShadowTexture) Value(sub Subresource, x, y uint32) uint32 {
	w, _ := s.Extent(sub)
	return s.texels(sub)[y*w+x]
}

// Float converts an integer shadow value to the normalized float depth
// encoding.
func (s *ShadowTexture) Float(v uint32) float32 {
	return float32(v) / float32(s.Range)
}

// Generate populates the shadow for one write method. The device-side
// write of the same method must leave the texture with exactly these
// contents (within the format's comparison tolerance).
func (s *ShadowTexture) Generate(w WriteMethod, seed uint32) {
	switch w {
	case WriteStencilSequential, WriteDepthSequential:
		s.fillSequential(seed)
	case WriteStencilClear, WriteDepthClear:
		s.fillClear(seed)
	case WriteStencilInvert:
		s.fillClear(seed)
		s.invertQuadrant()
	case WriteStencilSeqThenClear:
		s.fillSequential(seed)
		s.fillClear(seed)
	case WriteStencilClearThenSeq:
		s.fillClear(seed)
		s.fillSequential(seed)
	default:
		panic(fmt.Sprintf("dscheck: invalid write method %d", w))
	}
}

// fillSequential writes 1 + ((seed+i) mod Range) with a single running
// counter i carried across all subresources in traversal order. A
// subresource addressing bug breaks the continuity of the counter at a
// subresource boundary, which no per-subresource pattern would catch.
func (s *ShadowTexture) fillSequential(seed uint32) {
	i := uint32(0)
	for sub := range s.Subresources() {
		t := s.texels(sub)
		for j := range t {
			t[j] = 1 + (seed+i)%s.Range
			i++
		}
	}
}

// fillClear writes one value per subresource:
// 1 + ((level*layers + layer + seedOffset) mod Range), with
// seedOffset = seed mod Range. Every subresource gets a distinct value
// (up to wrap), so a clear landing on the wrong subresource is visible.
func (s *ShadowTexture) fillClear(seed uint32) {
	off := seed % s.Range
	for sub := range s.Subresources() {
		v := 1 + (sub.Level*s.Layers+sub.Layer+off)%s.Range
		t := s.texels(sub)
		for j := range t {
			t[j] = v
		}
	}
}

// invertQuadrant applies the 8-bit one's complement to the region
// y >= h/2 && x < w/2 of every subresource, matching a stencil INVERT
// draw covering the bottom-left quadrant.
func (s *ShadowTexture) invertQuadrant() {
	for sub := range s.Subresources() {
		w, h := s.Extent(sub)
		t := s.texels(sub)
		for y := h / 2; y < h; y++ {
			for x := uint32(0); x < w/2; x++ {
				t[y*w+x] = uint32(^uint8(t[y*w+x]))
			}
		}
	}
}

// ClearValue returns the integer value fillClear assigns to one
// subresource. Backends use it to issue the matching device-side clear.
func (s *ShadowTexture) ClearValue(sub Subresource, seed uint32) uint32 {
	off := seed % s.Range
	return 1 + (sub.Level*s.Layers+sub.Layer+off)%s.Range
}

// Encode serializes one subresource's expected texels in the given
// representation, little-endian and tightly packed. Backends upload
// these bytes for sequential writes; the comparator receives device
// bytes in the same layout.
func (s *ShadowTexture) Encode(sub Subresource, r Repr) []byte {
	t := s.texels(sub)
	out := make([]byte, len(t)*r.TexelSize())
	switch r {
	case ReprUint8:
		for i, v := range t {
			out[i] = uint8(v)
		}
	case ReprUint16:
		for i, v := range t {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
		}
	case ReprFloat32:
		for i, v := range t {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s.Float(v)))
		}
	default:
		panic(fmt.Sprintf("dscheck: invalid representation %d", r))
	}
	return out
}
