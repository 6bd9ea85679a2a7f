package wgpu

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dscheck"
)

// WGSL sources for the shader-based write and read paths. Every shader
// is self-contained: geometry comes from the vertex index, texels from
// textureLoad, so no samplers or vertex buffers are needed.

// invertShaderSource draws a quad covering the region x < w/2 and
// y >= h/2 in texel coordinates, which is NDC [-1,0] on both axes.
// The quad carries no data; the stencil INVERT pass op does the work.
const invertShaderSource = `
@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    var pos = array<vec2<f32>, 6>(
        vec2<f32>(-1.0, -1.0), vec2<f32>(0.0, -1.0), vec2<f32>(-1.0, 0.0),
        vec2<f32>(-1.0, 0.0), vec2<f32>(0.0, -1.0), vec2<f32>(0.0, 0.0),
    );
    return vec4<f32>(pos[vi], 0.0, 1.0);
}

@fragment
fn fs_main() {
}
`

// sampleStencilShaderSource copies a stencil subresource into a u32
// color target with a fullscreen triangle and per-texel textureLoad.
const sampleStencilShaderSource = `
@group(0) @binding(0) var src: texture_2d<u32>;

@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    var pos = array<vec2<f32>, 3>(
        vec2<f32>(-1.0, -3.0), vec2<f32>(-1.0, 1.0), vec2<f32>(3.0, 1.0),
    );
    return vec4<f32>(pos[vi], 0.0, 1.0);
}

@fragment
fn fs_main(@builtin(position) p: vec4<f32>) -> @location(0) vec4<u32> {
    let v = textureLoad(src, vec2<i32>(p.xy), 0).r;
    return vec4<u32>(v, 0u, 0u, 0u);
}
`

// sampleDepthShaderSource is the float variant for depth aspects.
const sampleDepthShaderSource = `
@group(0) @binding(0) var src: texture_2d<f32>;

@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    var pos = array<vec2<f32>, 3>(
        vec2<f32>(-1.0, -3.0), vec2<f32>(-1.0, 1.0), vec2<f32>(3.0, 1.0),
    );
    return vec4<f32>(pos[vi], 0.0, 1.0);
}

@fragment
fn fs_main(@builtin(position) p: vec4<f32>) -> @location(0) vec4<f32> {
    let v = textureLoad(src, vec2<i32>(p.xy), 0).r;
    return vec4<f32>(v, 0.0, 0.0, 1.0);
}
`

// boundsShaderSource verifies stored depth without copying it out.
// Each fragment sets its depth to the per-texel expectation offset by
// half the comparison tolerance and writes a full-white mask; the
// depth test against the stored value decides whether the mask lands.
// fs_low pairs with a less-equal compare, fs_high with greater-equal.
// The offset is the same half tolerance the comparator applies to
// copied-out depth, so both read paths accept the same window.
var boundsShaderSource = fmt.Sprintf(`
@group(0) @binding(0) var ref_tex: texture_2d<f32>;

struct FragOut {
    @builtin(frag_depth) depth: f32,
    @location(0) mask: vec4<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    var pos = array<vec2<f32>, 3>(
        vec2<f32>(-1.0, -3.0), vec2<f32>(-1.0, 1.0), vec2<f32>(3.0, 1.0),
    );
    return vec4<f32>(pos[vi], 0.0, 1.0);
}

@fragment
fn fs_low(@builtin(position) p: vec4<f32>) -> FragOut {
    let e = textureLoad(ref_tex, vec2<i32>(p.xy), 0).r;
    return FragOut(clamp(e - %[1]g, 0.0, 1.0), vec4<f32>(1.0));
}

@fragment
fn fs_high(@builtin(position) p: vec4<f32>) -> FragOut {
    let e = textureLoad(ref_tex, vec2<i32>(p.xy), 0).r;
    return FragOut(clamp(e + %[1]g, 0.0, 1.0), vec4<f32>(1.0));
}
`, dscheck.DepthTolerance/2)

// compileShader compiles WGSL to SPIR-V with naga and wraps it in a
// hal shader module. SPIR-V is little-endian 32-bit words. Failures
// are classified as build errors so the runner skips the case instead
// of failing it.
func compileShader(dev hal.Device, label, source string) (hal.ShaderModule, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s: %w", dscheck.ErrBuildFailed, label, err)
	}
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	module, err := dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create module %s: %w", dscheck.ErrBuildFailed, label, err)
	}
	return module, nil
}
