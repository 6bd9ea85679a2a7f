package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dscheck"
)

// copyPitchAlignment is the BytesPerRow alignment WebGPU and DX12
// require for texture-buffer copies.
const copyPitchAlignment = 256

func toTextureFormat(f dscheck.PixelFormat) gputypes.TextureFormat {
	switch f {
	case dscheck.Depth16Unorm:
		return gputypes.TextureFormatDepth16Unorm
	case dscheck.Depth24PlusStencil8:
		return gputypes.TextureFormatDepth24PlusStencil8
	case dscheck.Depth32Float:
		return gputypes.TextureFormatDepth32Float
	case dscheck.Stencil8:
		return gputypes.TextureFormatStencil8
	case dscheck.Depth32FloatStencil8:
		return gputypes.TextureFormatDepth32FloatStencil8
	default:
		panic(fmt.Sprintf("wgpu: invalid pixel format %d", f))
	}
}

func toTextureAspect(a dscheck.Aspect) gputypes.TextureAspect {
	if a == dscheck.AspectDepth {
		return gputypes.TextureAspectDepthOnly
	}
	return gputypes.TextureAspectStencilOnly
}

func toTextureUsage(u dscheck.Usage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&dscheck.UsageCopySrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if u&dscheck.UsageCopyDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	if u&dscheck.UsageRender != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	if u&dscheck.UsageSample != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	return out
}

// texture implements dscheck.Texture on a hal texture. All operations
// encode into a fresh command encoder and submit immediately; writes
// block until the submission completes, reads hand the wait to a
// goroutine that resolves the Readback future.
type texture struct {
	d      *Device
	hal    hal.Texture
	format dscheck.PixelFormat
	width  uint32
	height uint32
	levels uint32
	layers uint32

	// current tracks the last usage the texture was left in, for the
	// explicit barriers copies require on Vulkan and DX12.
	current gputypes.TextureUsage
}

var _ dscheck.Texture = (*texture)(nil)

// NewTexture allocates a 2D array texture with the requested mip and
// layer counts.
func (d *Device) NewTexture(f dscheck.PixelFormat, width, height, levels, layers uint32, u dscheck.Usage) (dscheck.Texture, error) {
	// Writes always need CopyDst or RenderAttachment; the runner
	// passes exactly what the case requires.
	tex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         fmt.Sprintf("dscheck_%s", f),
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: layers},
		MipLevelCount: levels,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        toTextureFormat(f),
		Usage:         toTextureUsage(u),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture: %w", err)
	}
	return &texture{
		d: d, hal: tex, format: f,
		width: width, height: height, levels: levels, layers: layers,
		current: gputypes.TextureUsageCopyDst,
	}, nil
}

func (t *texture) extent(sub dscheck.Subresource) (uint32, uint32) {
	return dscheck.MipExtent(t.width, sub.Level), dscheck.MipExtent(t.height, sub.Level)
}

// subView creates a view of exactly one subresource. The view is what
// routes every render and sample operation at a single (level, layer);
// if the driver mis-addresses it, the harness exists to notice.
func (t *texture) subView(sub dscheck.Subresource, aspect gputypes.TextureAspect) (hal.TextureView, error) {
	view, err := t.d.dev.CreateTextureView(t.hal, &hal.TextureViewDescriptor{
		Label:           fmt.Sprintf("dscheck_%s_l%d_a%d", t.format, sub.Level, sub.Layer),
		Format:          toTextureFormat(t.format),
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          aspect,
		BaseMipLevel:    sub.Level,
		MipLevelCount:   1,
		BaseArrayLayer:  sub.Layer,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create view of %v: %w", sub, err)
	}
	return view, nil
}

func (t *texture) transition(encoder hal.CommandEncoder, usage gputypes.TextureUsage) {
	if t.current == usage {
		return
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.hal,
		Usage: hal.TextureUsageTransition{
			OldUsage: t.current,
			NewUsage: usage,
		},
	}})
	t.current = usage
}

// Upload transfers tightly packed texel bytes into one aspect of one
// subresource through the queue.
func (t *texture) Upload(sub dscheck.Subresource, a dscheck.Aspect, data []byte) error {
	w, h := t.extent(sub)
	texel := uint32(t.format.Repr(a).TexelSize()) //nolint:gosec // texel sizes are 1..4
	err := t.d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.hal,
			MipLevel: sub.Level,
			Origin:   hal.Origin3D{Z: sub.Layer},
			Aspect:   toTextureAspect(a),
		},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * texel, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("wgpu: write texture: %w", err)
	}
	t.current = gputypes.TextureUsageCopyDst
	return nil
}

// dsAttachment builds the depth/stencil attachment for a render pass
// targeting one aspect. Aspects the format carries but the pass does
// not touch are loaded and stored so their contents survive.
func (t *texture) dsAttachment(view hal.TextureView, target dscheck.Aspect, clear bool, depth float32, stencil uint32) *hal.RenderPassDepthStencilAttachment {
	att := &hal.RenderPassDepthStencilAttachment{View: view}
	switch {
	case !t.format.HasAspect(dscheck.AspectDepth):
		att.DepthLoadOp = gputypes.LoadOpClear
		att.DepthStoreOp = gputypes.StoreOpDiscard
		att.DepthClearValue = 1.0
	case target == dscheck.AspectDepth && clear:
		att.DepthLoadOp = gputypes.LoadOpClear
		att.DepthStoreOp = gputypes.StoreOpStore
		att.DepthClearValue = depth
	default:
		att.DepthLoadOp = gputypes.LoadOpLoad
		att.DepthStoreOp = gputypes.StoreOpStore
	}
	switch {
	case !t.format.HasAspect(dscheck.AspectStencil):
		att.StencilLoadOp = gputypes.LoadOpClear
		att.StencilStoreOp = gputypes.StoreOpDiscard
	case target == dscheck.AspectStencil && clear:
		att.StencilLoadOp = gputypes.LoadOpClear
		att.StencilStoreOp = gputypes.StoreOpStore
		att.StencilClearValue = stencil
	default:
		att.StencilLoadOp = gputypes.LoadOpLoad
		att.StencilStoreOp = gputypes.StoreOpStore
	}
	return att
}

// Clear sets one subresource to a uniform value with a load-op clear
// render pass containing no draws.
func (t *texture) Clear(sub dscheck.Subresource, a dscheck.Aspect, depth float32, stencil uint32) error {
	view, err := t.subView(sub, gputypes.TextureAspectAll)
	if err != nil {
		return err
	}

	encoder, err := t.d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "dscheck_clear"})
	if err != nil {
		t.d.dev.DestroyTextureView(view)
		return fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("dscheck_clear"); err != nil {
		t.d.dev.DestroyTextureView(view)
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	t.transition(encoder, gputypes.TextureUsageRenderAttachment)
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:                  "dscheck_clear_pass",
		DepthStencilAttachment: t.dsAttachment(view, a, true, depth, stencil),
	})
	rp.End()

	err = t.d.submitWait(encoder)
	t.d.dev.DestroyTextureView(view)
	return err
}

// InvertStencil draws the quadrant quad with the stencil INVERT
// pipeline over one subresource.
func (t *texture) InvertStencil(sub dscheck.Subresource) error {
	pipeline, err := t.d.pipes.invert(toTextureFormat(t.format))
	if err != nil {
		return err
	}
	view, err := t.subView(sub, gputypes.TextureAspectAll)
	if err != nil {
		return err
	}

	encoder, err := t.d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "dscheck_invert"})
	if err != nil {
		t.d.dev.DestroyTextureView(view)
		return fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("dscheck_invert"); err != nil {
		t.d.dev.DestroyTextureView(view)
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	t.transition(encoder, gputypes.TextureUsageRenderAttachment)
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:                  "dscheck_invert_pass",
		DepthStencilAttachment: t.dsAttachment(view, dscheck.AspectStencil, false, 0, 0),
	})
	rp.SetPipeline(pipeline)
	rp.Draw(6, 1, 0, 0)
	rp.End()

	err = t.d.submitWait(encoder)
	t.d.dev.DestroyTextureView(view)
	return err
}

// CopyTo copies one aspect of every subresource into an identically
// shaped texture in a single submission.
func (t *texture) CopyTo(dst dscheck.Texture, a dscheck.Aspect) error {
	d, ok := dst.(*texture)
	if !ok {
		return fmt.Errorf("wgpu: copy destination is not a wgpu texture")
	}
	aspect := toTextureAspect(a)

	var regions []hal.TextureCopy
	for level := uint32(0); level < t.levels; level++ {
		w, h := t.extent(dscheck.Subresource{Level: level})
		for layer := uint32(0); layer < t.layers; layer++ {
			regions = append(regions, hal.TextureCopy{
				SrcBase: hal.ImageCopyTexture{
					Texture:  t.hal,
					MipLevel: level,
					Origin:   hal.Origin3D{Z: layer},
					Aspect:   aspect,
				},
				DstBase: hal.ImageCopyTexture{
					Texture:  d.hal,
					MipLevel: level,
					Origin:   hal.Origin3D{Z: layer},
					Aspect:   aspect,
				},
				Size: hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
			})
		}
	}

	encoder, err := t.d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "dscheck_copy"})
	if err != nil {
		return fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("dscheck_copy"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	t.transition(encoder, gputypes.TextureUsageCopySrc)
	d.transition(encoder, gputypes.TextureUsageCopyDst)
	encoder.CopyTextureToTexture(t.hal, d.hal, regions)

	return t.d.submitWait(encoder)
}

// Read copies one aspect of one subresource into a staging buffer and
// resolves the future once the submission completes.
func (t *texture) Read(sub dscheck.Subresource, a dscheck.Aspect) (*dscheck.Readback, error) {
	w, h := t.extent(sub)
	texel := uint32(t.format.Repr(a).TexelSize()) //nolint:gosec // texel sizes are 1..4
	row := w * texel
	aligned := (row + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(aligned) * uint64(h)

	staging, err := t.d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "dscheck_read_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}

	encoder, err := t.d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "dscheck_read"})
	if err != nil {
		t.d.dev.DestroyBuffer(staging)
		return nil, fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("dscheck_read"); err != nil {
		t.d.dev.DestroyBuffer(staging)
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	t.transition(encoder, gputypes.TextureUsageCopySrc)
	encoder.CopyTextureToBuffer(t.hal, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: aligned, RowsPerImage: h},
		TextureBase: hal.ImageCopyTexture{
			Texture:  t.hal,
			MipLevel: sub.Level,
			Origin:   hal.Origin3D{Z: sub.Layer},
			Aspect:   toTextureAspect(a),
		},
		Size: hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	rb := dscheck.NewReadback(sub)
	t.d.submitAsync(encoder, rb,
		func() ([]byte, error) {
			data, err := t.d.readStaging(staging, size)
			if err != nil {
				return nil, err
			}
			return stripRows(data, row, aligned, h), nil
		},
		func() {
			t.d.dev.DestroyBuffer(staging)
		})
	return rb, nil
}

// ReadSampled renders the subresource through the textureLoad shader
// into a single-channel color target and reads that back. The color
// target is always 4 bytes per texel; stencil results are narrowed to
// bytes after readback.
func (t *texture) ReadSampled(sub dscheck.Subresource, a dscheck.Aspect) (*dscheck.Readback, error) {
	w, h := t.extent(sub)

	pipeline, err := t.d.pipes.sample(a)
	if err != nil {
		return nil, err
	}
	sampleType := gputypes.TextureSampleTypeUnfilterableFloat
	targetFormat := gputypes.TextureFormatR32Float
	if a == dscheck.AspectStencil {
		sampleType = gputypes.TextureSampleTypeUint
		targetFormat = gputypes.TextureFormatR32Uint
	}
	layout, err := t.d.pipes.texLayout(sampleType)
	if err != nil {
		return nil, err
	}

	srcView, err := t.subView(sub, toTextureAspect(a))
	if err != nil {
		return nil, err
	}
	target, targetView, err := t.d.newColorTarget("dscheck_sample_target", targetFormat, w, h)
	if err != nil {
		t.d.dev.DestroyTextureView(srcView)
		return nil, err
	}
	bindGroup, err := t.d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "dscheck_sample_bind",
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: srcView.NativeHandle()}},
		},
	})
	if err != nil {
		t.d.destroyColorTarget(target, targetView)
		t.d.dev.DestroyTextureView(srcView)
		return nil, fmt.Errorf("wgpu: create sample bind group: %w", err)
	}

	row := w * 4
	aligned := (row + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(aligned) * uint64(h)
	staging, err := t.d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "dscheck_sample_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.d.dev.DestroyBindGroup(bindGroup)
		t.d.destroyColorTarget(target, targetView)
		t.d.dev.DestroyTextureView(srcView)
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}

	cleanup := func() {
		t.d.dev.DestroyBuffer(staging)
		t.d.dev.DestroyBindGroup(bindGroup)
		t.d.destroyColorTarget(target, targetView)
		t.d.dev.DestroyTextureView(srcView)
	}

	encoder, err := t.d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "dscheck_sample"})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("dscheck_sample"); err != nil {
		cleanup()
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	t.transition(encoder, gputypes.TextureUsageTextureBinding)
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "dscheck_sample_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       targetView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{},
		}},
	})
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(target, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: aligned, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: target, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	rb := dscheck.NewReadback(sub)
	stencil := a == dscheck.AspectStencil
	t.d.submitAsync(encoder, rb,
		func() ([]byte, error) {
			data, err := t.d.readStaging(staging, size)
			if err != nil {
				return nil, err
			}
			tight := stripRows(data, row, aligned, h)
			if !stencil {
				return tight, nil
			}
			// Narrow each u32 texel to the stencil byte.
			out := make([]byte, w*h)
			for i := range out {
				out[i] = tight[i*4]
			}
			return out, nil
		},
		cleanup)
	return rb, nil
}

// ReadDepthBounds runs the two reference draws against the stored
// depth and resolves the future to the conjunction of their masks.
func (t *texture) ReadDepthBounds(sub dscheck.Subresource, expected []float32) (*dscheck.Readback, error) {
	w, h := t.extent(sub)
	format := toTextureFormat(t.format)

	lowPipe, err := t.d.pipes.bounds(format, false)
	if err != nil {
		return nil, err
	}
	highPipe, err := t.d.pipes.bounds(format, true)
	if err != nil {
		return nil, err
	}
	layout, err := t.d.pipes.texLayout(gputypes.TextureSampleTypeUnfilterableFloat)
	if err != nil {
		return nil, err
	}

	// Upload the per-texel expectations as an R32Float reference
	// texture the fragment shader loads from.
	refTex, err := t.d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "dscheck_bounds_ref",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatR32Float,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create reference texture: %w", err)
	}
	refBytes := make([]byte, len(expected)*4)
	for i, v := range expected {
		binary.LittleEndian.PutUint32(refBytes[i*4:], math.Float32bits(v))
	}
	err = t.d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: refTex, MipLevel: 0},
		refBytes,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		t.d.dev.DestroyTexture(refTex)
		return nil, fmt.Errorf("wgpu: write reference texture: %w", err)
	}
	refView, err := t.d.dev.CreateTextureView(refTex, &hal.TextureViewDescriptor{
		Label:         "dscheck_bounds_ref_view",
		Format:        gputypes.TextureFormatR32Float,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.d.dev.DestroyTexture(refTex)
		return nil, fmt.Errorf("wgpu: create reference view: %w", err)
	}
	bindGroup, err := t.d.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "dscheck_bounds_bind",
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: refView.NativeHandle()}},
		},
	})
	if err != nil {
		t.d.dev.DestroyTextureView(refView)
		t.d.dev.DestroyTexture(refTex)
		return nil, fmt.Errorf("wgpu: create bounds bind group: %w", err)
	}

	lowTex, lowView, err := t.d.newColorTarget("dscheck_bounds_low", gputypes.TextureFormatR8Unorm, w, h)
	if err != nil {
		t.d.dev.DestroyBindGroup(bindGroup)
		t.d.dev.DestroyTextureView(refView)
		t.d.dev.DestroyTexture(refTex)
		return nil, err
	}
	highTex, highView, err := t.d.newColorTarget("dscheck_bounds_high", gputypes.TextureFormatR8Unorm, w, h)
	if err != nil {
		t.d.destroyColorTarget(lowTex, lowView)
		t.d.dev.DestroyBindGroup(bindGroup)
		t.d.dev.DestroyTextureView(refView)
		t.d.dev.DestroyTexture(refTex)
		return nil, err
	}
	depthView, err := t.subView(sub, gputypes.TextureAspectAll)
	if err != nil {
		t.d.destroyColorTarget(highTex, highView)
		t.d.destroyColorTarget(lowTex, lowView)
		t.d.dev.DestroyBindGroup(bindGroup)
		t.d.dev.DestroyTextureView(refView)
		t.d.dev.DestroyTexture(refTex)
		return nil, err
	}

	row := w
	aligned := (row + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	halfSize := uint64(aligned) * uint64(h)
	staging, err := t.d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "dscheck_bounds_staging",
		Size:  2 * halfSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.d.dev.DestroyTextureView(depthView)
		t.d.destroyColorTarget(highTex, highView)
		t.d.destroyColorTarget(lowTex, lowView)
		t.d.dev.DestroyBindGroup(bindGroup)
		t.d.dev.DestroyTextureView(refView)
		t.d.dev.DestroyTexture(refTex)
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}

	cleanup := func() {
		t.d.dev.DestroyBuffer(staging)
		t.d.dev.DestroyTextureView(depthView)
		t.d.destroyColorTarget(highTex, highView)
		t.d.destroyColorTarget(lowTex, lowView)
		t.d.dev.DestroyBindGroup(bindGroup)
		t.d.dev.DestroyTextureView(refView)
		t.d.dev.DestroyTexture(refTex)
	}

	encoder, err := t.d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "dscheck_bounds"})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("dscheck_bounds"); err != nil {
		cleanup()
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	t.transition(encoder, gputypes.TextureUsageRenderAttachment)
	for _, pass := range []struct {
		view     hal.TextureView
		tex      hal.Texture
		pipeline hal.RenderPipeline
		offset   uint64
	}{
		{lowView, lowTex, lowPipe, 0},
		{highView, highTex, highPipe, halfSize},
	} {
		rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "dscheck_bounds_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       pass.view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{},
			}},
			DepthStencilAttachment: t.dsAttachment(depthView, dscheck.AspectDepth, false, 0, 0),
		})
		rp.SetPipeline(pass.pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.Draw(3, 1, 0, 0)
		rp.End()

		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: pass.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
		encoder.CopyTextureToBuffer(pass.tex, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: pass.offset, BytesPerRow: aligned, RowsPerImage: h},
			TextureBase:  hal.ImageCopyTexture{Texture: pass.tex, MipLevel: 0},
			Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		}})
	}

	rb := dscheck.NewReadback(sub)
	t.d.submitAsync(encoder, rb,
		func() ([]byte, error) {
			data, err := t.d.readStaging(staging, 2*halfSize)
			if err != nil {
				return nil, err
			}
			low := stripRows(data[:halfSize], row, aligned, h)
			high := stripRows(data[halfSize:], row, aligned, h)
			mask := make([]byte, len(low))
			for i := range mask {
				mask[i] = low[i] & high[i]
			}
			return mask, nil
		},
		cleanup)
	return rb, nil
}

// Destroy releases the texture.
func (t *texture) Destroy() {
	t.d.dev.DestroyTexture(t.hal)
}

func (d *Device) newColorTarget(label string, format gputypes.TextureFormat, w, h uint32) (hal.Texture, hal.TextureView, error) {
	tex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wgpu: create %s: %w", label, err)
	}
	view, err := d.dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.dev.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("wgpu: create %s view: %w", label, err)
	}
	return tex, view, nil
}

func (d *Device) destroyColorTarget(tex hal.Texture, view hal.TextureView) {
	d.dev.DestroyTextureView(view)
	d.dev.DestroyTexture(tex)
}

// stripRows drops the per-row alignment padding from a staging buffer.
func stripRows(data []byte, row, aligned, h uint32) []byte {
	if row == aligned {
		return data[:uint64(row)*uint64(h)]
	}
	tight := make([]byte, uint64(row)*uint64(h))
	for y := uint32(0); y < h; y++ {
		copy(tight[y*row:(y+1)*row], data[y*aligned:y*aligned+row])
	}
	return tight
}
