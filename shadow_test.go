package dscheck

import (
	"bytes"
	"testing"
)

func TestMipExtent(t *testing.T) {
	tests := []struct {
		base, level, want uint32
	}{
		{16, 0, 16},
		{16, 1, 8},
		{16, 3, 2},
		{16, 4, 1},
		{16, 10, 1},
		{1, 0, 1},
	}
	for _, tt := range tests {
		if got := MipExtent(tt.base, tt.level); got != tt.want {
			t.Errorf("MipExtent(%d, %d) = %d, want %d", tt.base, tt.level, got, tt.want)
		}
	}
}

func TestSequentialCounter(t *testing.T) {
	// 16x16 base, 4 levels, 3 layers, stencil, seed 0. The base
	// subresource holds 256 texels: 1..255 then a wrap back to 1.
	s := NewShadowTexture(16, 16, 4, 3, Stencil8, AspectStencil)
	s.Generate(WriteStencilSequential, 0)

	base := Subresource{0, 0}
	if got := s.Value(base, 0, 0); got != 1 {
		t.Errorf("first texel = %d, want 1", got)
	}
	if got := s.Value(base, 14, 15); got != 255 {
		t.Errorf("texel 254 = %d, want 255", got)
	}
	if got := s.Value(base, 15, 15); got != 1 {
		t.Errorf("texel 255 = %d, want 1 after wrap", got)
	}

	// The counter carries into the next subresource: layer 1 of
	// level 0 begins at i=256.
	if got := s.Value(Subresource{0, 1}, 0, 0); got != 2 {
		t.Errorf("first texel of level 0 layer 1 = %d, want 2", got)
	}
	// Level 1 begins after all three 256-texel layers, at i=768.
	if got := s.Value(Subresource{1, 0}, 0, 0); got != 4 {
		t.Errorf("first texel of level 1 layer 0 = %d, want 4", got)
	}
}

func TestSequentialNeverZero(t *testing.T) {
	// Values wrap to 1, never to 0, so a zeroed subresource always
	// mismatches. 16-bit range wraps at 65535.
	s := NewShadowTexture(8, 8, 2, 2, Depth16Unorm, AspectDepth)
	s.Generate(WriteDepthSequential, 65534)
	if got := s.Value(Subresource{0, 0}, 0, 0); got != 65535 {
		t.Errorf("first texel = %d, want 65535", got)
	}
	if got := s.Value(Subresource{0, 0}, 1, 0); got != 1 {
		t.Errorf("second texel = %d, want 1 after wrap", got)
	}
	for sub := range s.Subresources() {
		w, h := s.Extent(sub)
		for y := uint32(0); y < h; y++ {
			for x := uint32(0); x < w; x++ {
				if s.Value(sub, x, y) == 0 {
					t.Fatalf("%v (%d,%d) generated zero", sub, x, y)
				}
			}
		}
	}
}

func TestClearValues(t *testing.T) {
	// level 2, layer 1 of a 3-layer texture with seed offset 10:
	// 1 + ((2*3 + 1 + 10) mod 255) = 18.
	s := NewShadowTexture(16, 16, 4, 3, Stencil8, AspectStencil)
	s.Generate(WriteStencilClear, 10)
	sub := Subresource{2, 1}
	if got := s.Value(sub, 0, 0); got != 18 {
		t.Errorf("clear value = %d, want 18", got)
	}
	if got := s.ClearValue(sub, 10); got != 18 {
		t.Errorf("ClearValue = %d, want 18", got)
	}
	// Uniform across the subresource.
	w, h := s.Extent(sub)
	if got := s.Value(sub, w-1, h-1); got != 18 {
		t.Errorf("last texel = %d, want 18", got)
	}
	// Adjacent subresources differ, so a misaddressed clear shows up.
	if s.Value(Subresource{2, 0}, 0, 0) == 18 || s.Value(Subresource{2, 2}, 0, 0) == 18 {
		t.Error("neighboring layers must clear to different values")
	}
}

func TestGenerateDeterminism(t *testing.T) {
	for _, w := range WriteMethods() {
		t.Run(w.String(), func(t *testing.T) {
			a := NewShadowTexture(16, 16, 3, 2, Stencil8, AspectStencil)
			b := NewShadowTexture(16, 16, 3, 2, Stencil8, AspectStencil)
			if w.Aspect() == AspectDepth {
				t.Skip("stencil shadow")
			}
			a.Generate(w, 7)
			b.Generate(w, 7)
			for sub := range a.Subresources() {
				if !bytes.Equal(a.Encode(sub, ReprUint8), b.Encode(sub, ReprUint8)) {
					t.Fatalf("%v differs between identical generations", sub)
				}
			}
		})
	}
}

func TestInvertQuadrant(t *testing.T) {
	s := NewShadowTexture(8, 8, 1, 1, Stencil8, AspectStencil)
	s.Generate(WriteStencilInvert, 0)
	sub := Subresource{0, 0}
	cleared := s.ClearValue(sub, 0)
	inverted := uint32(^uint8(cleared))

	w, h := s.Extent(sub)
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			want := cleared
			if y >= h/2 && x < w/2 {
				want = inverted
			}
			if got := s.Value(sub, x, y); got != want {
				t.Fatalf("(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestInvertIdempotence(t *testing.T) {
	// Two inversions restore the original contents.
	s := NewShadowTexture(8, 8, 2, 2, Stencil8, AspectStencil)
	s.Generate(WriteStencilClear, 3)
	before := s.Encode(Subresource{1, 1}, ReprUint8)

	s.invertQuadrant()
	if bytes.Equal(before, s.Encode(Subresource{1, 1}, ReprUint8)) {
		t.Fatal("inversion changed nothing")
	}
	s.invertQuadrant()
	if !bytes.Equal(before, s.Encode(Subresource{1, 1}, ReprUint8)) {
		t.Fatal("double inversion is not the identity")
	}
}

func TestCompositeGenerators(t *testing.T) {
	// The second pass of a composite overwrites the first completely.
	seqClear := NewShadowTexture(16, 16, 2, 2, Stencil8, AspectStencil)
	seqClear.Generate(WriteStencilSeqThenClear, 5)
	clearOnly := NewShadowTexture(16, 16, 2, 2, Stencil8, AspectStencil)
	clearOnly.Generate(WriteStencilClear, 5)

	clearSeq := NewShadowTexture(16, 16, 2, 2, Stencil8, AspectStencil)
	clearSeq.Generate(WriteStencilClearThenSeq, 5)
	seqOnly := NewShadowTexture(16, 16, 2, 2, Stencil8, AspectStencil)
	seqOnly.Generate(WriteStencilSequential, 5)

	for sub := range seqClear.Subresources() {
		if !bytes.Equal(seqClear.Encode(sub, ReprUint8), clearOnly.Encode(sub, ReprUint8)) {
			t.Errorf("%v: seq-then-clear differs from clear alone", sub)
		}
		if !bytes.Equal(clearSeq.Encode(sub, ReprUint8), seqOnly.Encode(sub, ReprUint8)) {
			t.Errorf("%v: clear-then-seq differs from seq alone", sub)
		}
	}
}

func TestShadowExtents(t *testing.T) {
	s := NewShadowTexture(16, 16, 5, 3, Depth32Float, AspectDepth)
	w, h := s.Extent(Subresource{4, 2})
	if w != 1 || h != 1 {
		t.Errorf("level 4 extent = %dx%d, want 1x1", w, h)
	}
	if got := len(s.Encode(Subresource{4, 2}, ReprFloat32)); got != 4 {
		t.Errorf("1x1 f32 subresource encodes to %d bytes, want 4", got)
	}
}
