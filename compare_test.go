package dscheck

import (
	"encoding/binary"
	"math"
	"testing"
)

// clearedShadow returns a 4x4 single-subresource shadow holding one
// uniform value, plus its encoding.
func clearedShadow(t *testing.T, f PixelFormat, a Aspect, r Repr) (*ShadowTexture, Subresource, []byte) {
	t.Helper()
	s := NewShadowTexture(4, 4, 1, 1, f, a)
	if a == AspectDepth {
		s.Generate(WriteDepthClear, 0)
	} else {
		s.Generate(WriteStencilClear, 0)
	}
	sub := Subresource{0, 0}
	return s, sub, s.Encode(sub, r)
}

func TestCompareUint8Exact(t *testing.T) {
	s, sub, data := clearedShadow(t, Stencil8, AspectStencil, ReprUint8)
	if m := Compare(s, sub, ReprUint8, data); m != nil {
		t.Fatalf("exact data mismatched: %v", m)
	}
	data[5]++
	m := Compare(s, sub, ReprUint8, data)
	if m == nil {
		t.Fatal("off-by-one u8 passed; stencil comparison must be exact")
	}
	if m.X != 1 || m.Y != 1 {
		t.Errorf("mismatch at (%d,%d), want (1,1)", m.X, m.Y)
	}
}

func TestCompareUint16Tolerance(t *testing.T) {
	s, sub, data := clearedShadow(t, Depth16Unorm, AspectDepth, ReprUint16)
	want := uint16(s.Value(sub, 0, 0))

	tests := []struct {
		name string
		got  uint16
		ok   bool
	}{
		{"exact", want, true},
		{"plus1", want + 1, true},
		{"minus1", want - 1, true},
		{"plus2", want + 2, false},
		{"minus2", want - 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binary.LittleEndian.PutUint16(data[0:], tt.got)
			m := Compare(s, sub, ReprUint16, data)
			if tt.ok && m != nil {
				t.Errorf("value %d rejected: %v", tt.got, m)
			}
			if !tt.ok && m == nil {
				t.Errorf("value %d accepted, want rejection", tt.got)
			}
		})
	}
}

func TestCompareFloatTolerance(t *testing.T) {
	s, sub, data := clearedShadow(t, Depth32Float, AspectDepth, ReprFloat32)
	want := s.Float(s.Value(sub, 0, 0))

	// Acceptance is strictly within half the tolerance.
	tests := []struct {
		name  string
		delta float32
		ok    bool
	}{
		{"exact", 0, true},
		{"just-inside", 0.0024, true},
		{"just-inside-neg", -0.0024, true},
		{"outside", 0.003, false},
		{"outside-neg", -0.003, false},
		{"full-tolerance", 0.005, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binary.LittleEndian.PutUint32(data[0:], math.Float32bits(want+tt.delta))
			m := Compare(s, sub, ReprFloat32, data)
			if tt.ok && m != nil {
				t.Errorf("delta %g rejected: %v", tt.delta, m)
			}
			if !tt.ok && m == nil {
				t.Errorf("delta %g accepted, want rejection", tt.delta)
			}
		})
	}
}

func TestCompareMask(t *testing.T) {
	s := NewShadowTexture(4, 4, 1, 1, Depth32Float, AspectDepth)
	sub := Subresource{0, 0}
	mask := make([]byte, 16)
	for i := range mask {
		mask[i] = 0xff
	}
	if m := CompareMask(s, sub, mask); m != nil {
		t.Fatalf("all-pass mask rejected: %v", m)
	}
	mask[7] = 0
	m := CompareMask(s, sub, mask)
	if m == nil {
		t.Fatal("mask with a failing texel accepted")
	}
	if m.X != 3 || m.Y != 1 {
		t.Errorf("mismatch at (%d,%d), want (3,1)", m.X, m.Y)
	}
}

func TestCompareLengthPanics(t *testing.T) {
	s := NewShadowTexture(4, 4, 1, 1, Stencil8, AspectStencil)
	defer func() {
		if recover() == nil {
			t.Fatal("short readback did not panic")
		}
	}()
	Compare(s, Subresource{0, 0}, ReprUint8, make([]byte, 3))
}
