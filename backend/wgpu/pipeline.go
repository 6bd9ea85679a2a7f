package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dscheck"
)

type pipeKind uint8

const (
	pipeInvert pipeKind = iota
	pipeSampleStencil
	pipeSampleDepth
	pipeBoundsLow
	pipeBoundsHigh
)

type pipeKey struct {
	kind pipeKind

	// format is the depth/stencil attachment format, unused for the
	// sample pipelines which render to a color target only.
	format gputypes.TextureFormat
}

// pipelineCache lazily compiles shaders and builds render pipelines,
// one per kind and attachment format. The runner executes serially, so
// the cache needs no locking. Build failures propagate to the caller
// wrapped as dscheck.ErrBuildFailed and are retried on the next case
// that needs the same pipeline.
type pipelineCache struct {
	dev hal.Device

	modules   map[string]hal.ShaderModule
	pipelines map[pipeKey]hal.RenderPipeline

	uintTexLayout  hal.BindGroupLayout
	floatTexLayout hal.BindGroupLayout

	emptyPipeLayout hal.PipelineLayout
	uintPipeLayout  hal.PipelineLayout
	floatPipeLayout hal.PipelineLayout
}

func newPipelineCache(dev hal.Device) *pipelineCache {
	return &pipelineCache{
		dev:       dev,
		modules:   make(map[string]hal.ShaderModule),
		pipelines: make(map[pipeKey]hal.RenderPipeline),
	}
}

func (c *pipelineCache) module(label, source string) (hal.ShaderModule, error) {
	if m, ok := c.modules[label]; ok {
		return m, nil
	}
	m, err := compileShader(c.dev, label, source)
	if err != nil {
		return nil, err
	}
	c.modules[label] = m
	return m, nil
}

// texLayout returns the single-texture bind group layout for the given
// sample type, creating it on first use.
func (c *pipelineCache) texLayout(sampleType gputypes.TextureSampleType) (hal.BindGroupLayout, error) {
	cached := &c.floatTexLayout
	label := "dscheck_tex_f32_layout"
	if sampleType == gputypes.TextureSampleTypeUint {
		cached = &c.uintTexLayout
		label = "dscheck_tex_u32_layout"
	}
	if *cached != nil {
		return *cached, nil
	}
	layout, err := c.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: label,
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    sampleType,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", dscheck.ErrBuildFailed, label, err)
	}
	*cached = layout
	return layout, nil
}

func (c *pipelineCache) texPipeLayout(sampleType gputypes.TextureSampleType) (hal.PipelineLayout, error) {
	cached := &c.floatPipeLayout
	label := "dscheck_tex_f32_pipe_layout"
	if sampleType == gputypes.TextureSampleTypeUint {
		cached = &c.uintPipeLayout
		label = "dscheck_tex_u32_pipe_layout"
	}
	if *cached != nil {
		return *cached, nil
	}
	bgl, err := c.texLayout(sampleType)
	if err != nil {
		return nil, err
	}
	layout, err := c.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", dscheck.ErrBuildFailed, label, err)
	}
	*cached = layout
	return layout, nil
}

func (c *pipelineCache) emptyLayout() (hal.PipelineLayout, error) {
	if c.emptyPipeLayout != nil {
		return c.emptyPipeLayout, nil
	}
	layout, err := c.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "dscheck_empty_pipe_layout",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create empty pipeline layout: %w", dscheck.ErrBuildFailed, err)
	}
	c.emptyPipeLayout = layout
	return layout, nil
}

var keepStencil = hal.StencilFaceState{
	Compare:     gputypes.CompareFunctionAlways,
	FailOp:      hal.StencilOperationKeep,
	DepthFailOp: hal.StencilOperationKeep,
	PassOp:      hal.StencilOperationKeep,
}

var defaultPrimitive = gputypes.PrimitiveState{
	Topology: gputypes.PrimitiveTopologyTriangleList,
	CullMode: gputypes.CullModeNone,
}

var singleSample = gputypes.MultisampleState{
	Count: 1,
	Mask:  0xFFFFFFFF,
}

// invert returns the stencil-INVERT pipeline for one depth/stencil
// attachment format. The pipeline has no fragment outputs; only the
// stencil pass op has an effect.
func (c *pipelineCache) invert(format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	key := pipeKey{kind: pipeInvert, format: format}
	if p, ok := c.pipelines[key]; ok {
		return p, nil
	}
	module, err := c.module("dscheck_invert", invertShaderSource)
	if err != nil {
		return nil, err
	}
	layout, err := c.emptyLayout()
	if err != nil {
		return nil, err
	}
	invertFace := hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationInvert,
	}
	p, err := c.dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "dscheck_invert_pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            format,
			DepthWriteEnabled: false,
			DepthCompare:      gputypes.CompareFunctionAlways,
			StencilFront:      invertFace,
			StencilBack:       invertFace,
			StencilReadMask:   0xFF,
			StencilWriteMask:  0xFF,
		},
		Multisample: singleSample,
		Primitive:   defaultPrimitive,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create invert pipeline: %w", dscheck.ErrBuildFailed, err)
	}
	c.pipelines[key] = p
	return p, nil
}

// sample returns the fullscreen readback pipeline for one aspect. It
// renders the subresource's texels into a single-channel color target
// and has no depth/stencil attachment of its own.
func (c *pipelineCache) sample(a dscheck.Aspect) (hal.RenderPipeline, error) {
	kind := pipeSampleDepth
	label := "dscheck_sample_depth"
	source := sampleDepthShaderSource
	sampleType := gputypes.TextureSampleTypeUnfilterableFloat
	target := gputypes.TextureFormatR32Float
	if a == dscheck.AspectStencil {
		kind = pipeSampleStencil
		label = "dscheck_sample_stencil"
		source = sampleStencilShaderSource
		sampleType = gputypes.TextureSampleTypeUint
		target = gputypes.TextureFormatR32Uint
	}
	key := pipeKey{kind: kind}
	if p, ok := c.pipelines[key]; ok {
		return p, nil
	}
	module, err := c.module(label, source)
	if err != nil {
		return nil, err
	}
	layout, err := c.texPipeLayout(sampleType)
	if err != nil {
		return nil, err
	}
	p, err := c.dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label + "_pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{Format: target, WriteMask: gputypes.ColorWriteMaskAll},
			},
		},
		Multisample: singleSample,
		Primitive:   defaultPrimitive,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create %s pipeline: %w", dscheck.ErrBuildFailed, label, err)
	}
	c.pipelines[key] = p
	return p, nil
}

// bounds returns one of the two depth-bounds pipelines for a
// depth/stencil attachment format. The low pipeline passes where the
// stored depth is at least the expectation minus half the tolerance;
// the high pipeline where it is at most the expectation plus half.
func (c *pipelineCache) bounds(format gputypes.TextureFormat, high bool) (hal.RenderPipeline, error) {
	kind := pipeBoundsLow
	entry := "fs_low"
	compare := gputypes.CompareFunctionLessEqual
	if high {
		kind = pipeBoundsHigh
		entry = "fs_high"
		compare = gputypes.CompareFunctionGreaterEqual
	}
	key := pipeKey{kind: kind, format: format}
	if p, ok := c.pipelines[key]; ok {
		return p, nil
	}
	module, err := c.module("dscheck_bounds", boundsShaderSource)
	if err != nil {
		return nil, err
	}
	layout, err := c.texPipeLayout(gputypes.TextureSampleTypeUnfilterableFloat)
	if err != nil {
		return nil, err
	}
	p, err := c.dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "dscheck_bounds_" + entry,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: entry,
			Targets: []gputypes.ColorTargetState{
				{Format: gputypes.TextureFormatR8Unorm, WriteMask: gputypes.ColorWriteMaskAll},
			},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            format,
			DepthWriteEnabled: false,
			DepthCompare:      compare,
			StencilFront:      keepStencil,
			StencilBack:       keepStencil,
			StencilReadMask:   0xFF,
			StencilWriteMask:  0x00,
		},
		Multisample: singleSample,
		Primitive:   defaultPrimitive,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create bounds pipeline %s: %w", dscheck.ErrBuildFailed, entry, err)
	}
	c.pipelines[key] = p
	return p, nil
}

func (c *pipelineCache) destroy() {
	for _, p := range c.pipelines {
		c.dev.DestroyRenderPipeline(p)
	}
	c.pipelines = make(map[pipeKey]hal.RenderPipeline)
	for _, m := range c.modules {
		c.dev.DestroyShaderModule(m)
	}
	c.modules = make(map[string]hal.ShaderModule)
	if c.emptyPipeLayout != nil {
		c.dev.DestroyPipelineLayout(c.emptyPipeLayout)
		c.emptyPipeLayout = nil
	}
	if c.uintPipeLayout != nil {
		c.dev.DestroyPipelineLayout(c.uintPipeLayout)
		c.uintPipeLayout = nil
	}
	if c.floatPipeLayout != nil {
		c.dev.DestroyPipelineLayout(c.floatPipeLayout)
		c.floatPipeLayout = nil
	}
	if c.uintTexLayout != nil {
		c.dev.DestroyBindGroupLayout(c.uintTexLayout)
		c.uintTexLayout = nil
	}
	if c.floatTexLayout != nil {
		c.dev.DestroyBindGroupLayout(c.floatTexLayout)
		c.floatTexLayout = nil
	}
}
