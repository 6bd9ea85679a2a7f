package wgpu

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dscheck"
)

// deviceWaitTimeout bounds how long we poll the queue for a submission
// to complete. Readbacks additionally carry the caller's deadline
// through the Readback future; this one only catches a queue that
// never advances at all.
const deviceWaitTimeout = 30 * time.Second

// pollInterval paces PollCompleted loops while a submission is in
// flight.
const pollInterval = 100 * time.Microsecond

// waitSubmission polls the queue until the given submission index has
// completed or deviceWaitTimeout elapses.
func (d *Device) waitSubmission(index uint64) error {
	deadline := time.Now().Add(deviceWaitTimeout)
	for d.queue.PollCompleted() < index {
		if time.Now().After(deadline) {
			return fmt.Errorf("wgpu: submission %d not completed: %w", index, dscheck.ErrTimeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

// submitWait ends encoding, submits the command buffer, and blocks
// until the queue reports the submission complete. Write operations
// use it so that each step of a case is complete before the next one
// encodes.
func (d *Device) submitWait(encoder hal.CommandEncoder) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.dev.FreeCommandBuffer(cmdBuf)

	index, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	return d.waitSubmission(index)
}

// submitAsync ends encoding and submits, then resolves the Readback
// future from a goroutine once the submission completes. finish runs
// only on a completed submission and produces the readback bytes;
// cleanup always runs after the future resolves.
func (d *Device) submitAsync(encoder hal.CommandEncoder, rb *dscheck.Readback, finish func() ([]byte, error), cleanup func()) {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		cleanup()
		rb.Complete(nil, fmt.Errorf("wgpu: end encoding: %w", err))
		return
	}
	index, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		d.dev.FreeCommandBuffer(cmdBuf)
		cleanup()
		rb.Complete(nil, fmt.Errorf("wgpu: submit: %w", err))
		return
	}

	go func() {
		defer cleanup()
		defer d.dev.FreeCommandBuffer(cmdBuf)

		if err := d.waitSubmission(index); err != nil {
			rb.Complete(nil, fmt.Errorf("wgpu: readback: %w", err))
			return
		}
		rb.Complete(finish())
	}()
}

// readStaging maps a host-visible staging buffer, copies out size
// bytes, and unmaps it. The submission that filled the buffer must
// have completed before calling.
func (d *Device) readStaging(staging hal.Buffer, size uint64) ([]byte, error) {
	mapping, err := d.dev.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("wgpu: map staging buffer: %w", err)
	}
	data := make([]byte, size)
	copy(data, unsafe.Slice((*byte)(mapping.Ptr), size))
	if err := d.dev.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("wgpu: unmap staging buffer: %w", err)
	}
	return data, nil
}
