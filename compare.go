package dscheck

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DepthTolerance is the worst acceptable round-trip error for float
// depth data. A stored value is accepted when it lies strictly within
// half the tolerance of the expectation.
const DepthTolerance = 0.005

// Mismatch pinpoints the first failing texel of a comparison.
type Mismatch struct {
	Sub  Subresource
	X, Y uint32
	Want string
	Got  string
}

func (m *Mismatch) String() string {
	return fmt.Sprintf("%v (%d,%d): got %s, want %s", m.Sub, m.X, m.Y, m.Got, m.Want)
}

// Compare checks one subresource's device bytes against the shadow.
// data must hold exactly width*height texels of representation r,
// tightly packed little-endian, as produced by a backend readback.
// It returns nil on success, or the first mismatching texel.
//
// Per-representation rules: 8-bit values must match exactly; 16-bit
// values tolerate an off-by-one from unorm rounding; floats must sit
// strictly within DepthTolerance/2 of the expectation.
func Compare(s *ShadowTexture, sub Subresource, r Repr, data []byte) *Mismatch {
	w, h := s.Extent(sub)
	if len(data) != int(w*h)*r.TexelSize() {
		panic(fmt.Sprintf("dscheck: readback of %v is %d bytes, want %d",
			sub, len(data), int(w*h)*r.TexelSize()))
	}
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			i := y*w + x
			want := s.Value(sub, x, y)
			switch r {
			case ReprUint8:
				got := data[i]
				if got != uint8(want) {
					return &Mismatch{Sub: sub, X: x, Y: y,
						Want: fmt.Sprintf("%d", uint8(want)),
						Got:  fmt.Sprintf("%d", got)}
				}
			case ReprUint16:
				got := binary.LittleEndian.Uint16(data[i*2:])
				if !within1(got, uint16(want)) {
					return &Mismatch{Sub: sub, X: x, Y: y,
						Want: fmt.Sprintf("%d", uint16(want)),
						Got:  fmt.Sprintf("%d", got)}
				}
			case ReprFloat32:
				got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
				wantf := s.Float(want)
				if !withinTolerance(got, wantf) {
					return &Mismatch{Sub: sub, X: x, Y: y,
						Want: fmt.Sprintf("%g", wantf),
						Got:  fmt.Sprintf("%g", got)}
				}
			default:
				panic(fmt.Sprintf("dscheck: invalid representation %d", r))
			}
		}
	}
	return nil
}

// CompareMask checks a depth-bounds pass mask: one byte per texel,
// nonzero meaning the stored depth passed both reference tests. Any
// zero byte is a failure.
func CompareMask(s *ShadowTexture, sub Subresource, data []byte) *Mismatch {
	w, h := s.Extent(sub)
	if len(data) != int(w*h) {
		panic(fmt.Sprintf("dscheck: mask of %v is %d bytes, want %d",
			sub, len(data), w*h))
	}
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			if data[y*w+x] == 0 {
				return &Mismatch{Sub: sub, X: x, Y: y,
					Want: "in bounds",
					Got:  "out of bounds"}
			}
		}
	}
	return nil
}

func within1(got, want uint16) bool {
	d := int32(got) - int32(want)
	return d >= -1 && d <= 1
}

func withinTolerance(got, want float32) bool {
	d := float64(got) - float64(want)
	return math.Abs(d) < DepthTolerance/2
}
