// Package wgpu implements the dscheck device contract on top of the
// gogpu/wgpu hardware abstraction layer.
//
// The backend is deliberately mechanical: every operation encodes and
// submits exactly what it was asked for, one subresource at a time,
// and never batches or reorders. The point of the harness is to
// observe the driver, so the backend must not be clever on its behalf.
package wgpu

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dscheck"
)

// ErrNoAdapter is returned by Open when no GPU adapter matches.
var ErrNoAdapter = errors.New("wgpu: no matching GPU adapter")

// Options selects the GPU to open.
type Options struct {
	// GPU is a case-insensitive substring matched against adapter
	// names. Empty prefers a discrete GPU, then integrated, then
	// whatever enumerates first.
	GPU string
}

// Device wraps a hal device and queue as a dscheck.Device.
type Device struct {
	name     string
	instance hal.Instance
	dev      hal.Device
	queue    hal.Queue
	pipes    *pipelineCache
}

var _ dscheck.Device = (*Device)(nil)

// Open creates an instance, enumerates adapters, and opens the one
// selected by opts.
func Open(opts Options) (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoAdapter)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: none enumerated", ErrNoAdapter)
	}

	selected := selectAdapter(adapters, opts.GPU)
	if selected == nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapter name contains %q", ErrNoAdapter, opts.GPU)
	}
	log.Printf("wgpu: GPU: %s (%s)", selected.Info.Name, selected.Info.DeviceType)

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d := &Device{
		name:     selected.Info.Name,
		instance: instance,
		dev:      openDev.Device,
		queue:    openDev.Queue,
	}
	d.pipes = newPipelineCache(d.dev)
	return d, nil
}

func selectAdapter(adapters []hal.ExposedAdapter, filter string) *hal.ExposedAdapter {
	if len(adapters) == 0 {
		return nil
	}
	if filter != "" {
		needle := strings.ToLower(filter)
		for i := range adapters {
			if strings.Contains(strings.ToLower(adapters[i].Info.Name), needle) {
				return &adapters[i]
			}
		}
		return nil
	}
	for _, kind := range []gputypes.DeviceType{
		gputypes.DeviceTypeDiscreteGPU,
		gputypes.DeviceTypeIntegratedGPU,
	} {
		for i := range adapters {
			if adapters[i].Info.DeviceType == kind {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}

// FromDevice wraps an already opened hal device and queue. The caller
// keeps ownership of both; Close will not destroy them. Tests use this
// with the noop backend.
func FromDevice(name string, dev hal.Device, queue hal.Queue) *Device {
	return &Device{
		name:  name,
		dev:   dev,
		queue: queue,
		pipes: newPipelineCache(dev),
	}
}

// Name returns the adapter name.
func (d *Device) Name() string { return d.name }

// Close destroys cached pipelines and, when Open created them, the
// device and instance.
func (d *Device) Close() {
	d.pipes.destroy()
	if d.instance != nil {
		d.dev.Destroy()
		d.instance.Destroy()
		d.instance = nil
	}
}
