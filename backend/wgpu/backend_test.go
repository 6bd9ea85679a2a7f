package wgpu

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/dscheck"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func noopAdapters(t *testing.T) ([]hal.ExposedAdapter, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	return instance.EnumerateAdapters(nil), instance.Destroy
}

func TestSelectAdapter(t *testing.T) {
	adapters, cleanup := noopAdapters(t)
	defer cleanup()
	if len(adapters) == 0 {
		t.Fatal("noop backend enumerated no adapters")
	}

	t.Run("no-filter", func(t *testing.T) {
		if selectAdapter(adapters, "") == nil {
			t.Error("expected an adapter without a filter")
		}
	})
	t.Run("filter-no-match", func(t *testing.T) {
		if got := selectAdapter(adapters, "definitely-not-a-gpu"); got != nil {
			t.Errorf("expected nil for unmatched filter, got %q", got.Info.Name)
		}
	})
	t.Run("filter-case-insensitive", func(t *testing.T) {
		name := adapters[0].Info.Name
		if name == "" {
			t.Skip("noop adapter has no name")
		}
		got := selectAdapter(adapters, strings.ToUpper(name))
		if got == nil || got.Info.Name != name {
			t.Errorf("uppercase filter did not match %q", name)
		}
	})
	t.Run("empty-list", func(t *testing.T) {
		if selectAdapter(nil, "") != nil {
			t.Error("expected nil for empty adapter list")
		}
	})
}

func TestFromDeviceNewTexture(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d := FromDevice("noop", device, queue)
	defer d.Close()

	if d.Name() != "noop" {
		t.Errorf("Name() = %q, want noop", d.Name())
	}
	for _, f := range dscheck.Formats() {
		tex, err := d.NewTexture(f, 64, 64, 4, 3, dscheck.UsageCopyDst|dscheck.UsageCopySrc)
		if err != nil {
			t.Fatalf("NewTexture(%v) failed: %v", f, err)
		}
		tex.Destroy()
	}
}

// TestTextureWritePath exercises upload, clear, invert, and copy end
// to end on the noop backend. This covers shader compilation, pipeline
// creation, encoding, and the blocking submission wait.
func TestTextureWritePath(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d := FromDevice("noop", device, queue)
	defer d.Close()

	usage := dscheck.UsageCopySrc | dscheck.UsageCopyDst | dscheck.UsageRender
	tex, err := d.NewTexture(dscheck.Depth24PlusStencil8, 16, 16, 2, 2, usage)
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}
	defer tex.Destroy()

	sub := dscheck.Subresource{Level: 1, Layer: 1}
	if err := tex.Upload(sub, dscheck.AspectStencil, make([]byte, 8*8)); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if err := tex.Clear(sub, dscheck.AspectStencil, 0, 42); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := tex.InvertStencil(sub); err != nil {
		t.Fatalf("InvertStencil failed: %v", err)
	}

	dst, err := d.NewTexture(dscheck.Depth24PlusStencil8, 16, 16, 2, 2, usage)
	if err != nil {
		t.Fatalf("NewTexture for copy target failed: %v", err)
	}
	defer dst.Destroy()
	if err := tex.CopyTo(dst, dscheck.AspectStencil); err != nil {
		t.Fatalf("CopyTo failed: %v", err)
	}
}

// TestTextureReadResolves checks that a readback future resolves with
// a tightly packed payload of the right size.
func TestTextureReadResolves(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d := FromDevice("noop", device, queue)
	defer d.Close()

	tex, err := d.NewTexture(dscheck.Stencil8, 64, 64, 3, 2, dscheck.UsageCopySrc|dscheck.UsageCopyDst)
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}
	defer tex.Destroy()

	sub := dscheck.Subresource{Level: 1}
	rb, err := tex.Read(sub, dscheck.AspectStencil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	data, err := rb.Wait(5 * time.Second)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(data) != 32*32 {
		t.Errorf("readback size = %d, want %d", len(data), 32*32)
	}
}

// TestBoundsShaderTolerance pins the depth offset baked into the
// bounds shader to half the comparator's tolerance, so the render-based
// and copy-based read paths accept the same error window.
func TestBoundsShaderTolerance(t *testing.T) {
	for _, want := range []string{
		fmt.Sprintf("e - %g", dscheck.DepthTolerance/2),
		fmt.Sprintf("e + %g", dscheck.DepthTolerance/2),
	} {
		if !strings.Contains(boundsShaderSource, want) {
			t.Errorf("bounds shader missing %q", want)
		}
	}
}

func TestPipelineCache(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	pipes := newPipelineCache(device)
	defer pipes.destroy()

	if _, err := pipes.invert(gputypes.TextureFormatStencil8); err != nil {
		t.Fatalf("invert pipeline: %v", err)
	}
	if _, err := pipes.sample(dscheck.AspectStencil); err != nil {
		t.Fatalf("stencil sample pipeline: %v", err)
	}
	if _, err := pipes.sample(dscheck.AspectDepth); err != nil {
		t.Fatalf("depth sample pipeline: %v", err)
	}
	for _, high := range []bool{false, true} {
		if _, err := pipes.bounds(gputypes.TextureFormatDepth32Float, high); err != nil {
			t.Fatalf("bounds pipeline (high=%v): %v", high, err)
		}
	}

	// Pipelines are memoized per (kind, format).
	a, _ := pipes.invert(gputypes.TextureFormatStencil8)
	b, _ := pipes.invert(gputypes.TextureFormatStencil8)
	if a != b {
		t.Error("invert pipeline not cached")
	}
}
