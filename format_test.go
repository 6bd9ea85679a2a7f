package dscheck

import "testing"

func TestFormatNames(t *testing.T) {
	tests := []struct {
		format PixelFormat
		name   string
	}{
		{Depth16Unorm, "depth16unorm"},
		{Depth24PlusStencil8, "depth24plus-stencil8"},
		{Depth32Float, "depth32float"},
		{Stencil8, "stencil8"},
		{Depth32FloatStencil8, "depth32float-stencil8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			parsed, err := ParseFormat(tt.name)
			if err != nil {
				t.Fatalf("ParseFormat(%q): %v", tt.name, err)
			}
			if parsed != tt.format {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.name, parsed, tt.format)
			}
		})
	}
}

func TestParseFormatUnknown(t *testing.T) {
	if _, err := ParseFormat("rgba8unorm"); err == nil {
		t.Fatal("ParseFormat accepted a color format name")
	}
}

func TestFormatAspects(t *testing.T) {
	tests := []struct {
		format  PixelFormat
		depth   bool
		stencil bool
	}{
		{Depth16Unorm, true, false},
		{Depth24PlusStencil8, true, true},
		{Depth32Float, true, false},
		{Stencil8, false, true},
		{Depth32FloatStencil8, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			if got := tt.format.HasAspect(AspectDepth); got != tt.depth {
				t.Errorf("HasAspect(depth) = %v, want %v", got, tt.depth)
			}
			if got := tt.format.HasAspect(AspectStencil); got != tt.stencil {
				t.Errorf("HasAspect(stencil) = %v, want %v", got, tt.stencil)
			}
		})
	}
}

func TestFormatCopyCapability(t *testing.T) {
	// The packed 24-bit depth aspect is the one depth/stencil aspect
	// that cannot cross the host boundary.
	if Depth24PlusStencil8.CanCopy(AspectDepth) {
		t.Error("depth24plus-stencil8 depth aspect must not be copyable")
	}
	if !Depth24PlusStencil8.CanCopy(AspectStencil) {
		t.Error("depth24plus-stencil8 stencil aspect must be copyable")
	}
	for _, f := range []PixelFormat{Depth16Unorm, Depth32Float, Depth32FloatStencil8} {
		if !f.CanCopy(AspectDepth) {
			t.Errorf("%v depth aspect must be copyable", f)
		}
	}
}

func TestFormatRepr(t *testing.T) {
	tests := []struct {
		format PixelFormat
		aspect Aspect
		want   Repr
	}{
		{Depth16Unorm, AspectDepth, ReprUint16},
		{Depth32Float, AspectDepth, ReprFloat32},
		{Depth32FloatStencil8, AspectDepth, ReprFloat32},
		{Stencil8, AspectStencil, ReprUint8},
		{Depth24PlusStencil8, AspectStencil, ReprUint8},
	}
	for _, tt := range tests {
		t.Run(tt.format.String()+"/"+tt.aspect.String(), func(t *testing.T) {
			if got := tt.format.Repr(tt.aspect); got != tt.want {
				t.Errorf("Repr(%v) = %v, want %v", tt.aspect, got, tt.want)
			}
		})
	}
}

func TestReprTexelSize(t *testing.T) {
	if ReprUint8.TexelSize() != 1 || ReprUint16.TexelSize() != 2 || ReprFloat32.TexelSize() != 4 {
		t.Error("texel sizes must be 1/2/4 bytes")
	}
}
