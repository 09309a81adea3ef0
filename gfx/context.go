// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gfx provides the GPU command context shared by all passes of a
// frame graph, and compiled shader programs for fullscreen passes.
//
// A Context wraps one hal.Device and hal.Queue. It is the only object
// through which passes issue GPU commands: the scheduler hands the same
// *Context to every operator, one at a time, in schedule order.
package gfx

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Context errors.
var (
	// ErrNoHALProvider is returned by FromProvider when the provider does
	// not expose HAL device and queue.
	ErrNoHALProvider = errors.New("gfx: provider does not expose HAL types")

	// ErrFrameInProgress is returned by BeginFrame while a frame is open.
	ErrFrameInProgress = errors.New("gfx: frame already in progress")

	// ErrNoFrame is returned by EndFrame without an open frame, and is the
	// panic value of Encoder outside a frame.
	ErrNoFrame = errors.New("gfx: no frame in progress")

	// ErrGPUTimeout is returned when the GPU does not finish a frame in time.
	ErrGPUTimeout = errors.New("gfx: timed out waiting for GPU")
)

// DefaultWaitTimeout bounds how long EndFrame waits for the GPU.
const DefaultWaitTimeout = 5 * time.Second

// Context is the GPU command context of a frame graph.
//
// A frame is opened with BeginFrame, recorded into through Encoder by the
// operators, and submitted with EndFrame. Context is not safe for
// concurrent use.
type Context struct {
	device hal.Device
	queue  hal.Queue

	// external is true when device and queue belong to a host application.
	external bool

	encoder hal.CommandEncoder
	frame   uint64

	// submitted holds callbacks to run once the open frame's GPU work has
	// completed.
	submitted []func()

	surface       hal.TextureView
	surfaceWidth  uint32
	surfaceHeight uint32
	surfaceFormat gputypes.TextureFormat

	timeout time.Duration
}

// NewContext returns a context recording into device and queue. The
// caller keeps ownership of both.
func NewContext(device hal.Device, queue hal.Queue) *Context {
	return &Context{
		device:        device,
		queue:         queue,
		surfaceFormat: gputypes.TextureFormatRGBA8Unorm,
		timeout:       DefaultWaitTimeout,
	}
}

// FromProvider adopts the GPU device of a host application. The provider
// must implement HalDevice() any and HalQueue() any returning hal.Device
// and hal.Queue. The surface format is taken from the provider.
func FromProvider(provider gpucontext.DeviceProvider) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}

	c := NewContext(device, queue)
	c.external = true
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		c.surfaceFormat = f
	}
	slogger().Info("gfx: adopted host GPU device", "surfaceFormat", c.surfaceFormat)
	return c, nil
}

// Device returns the HAL device.
func (c *Context) Device() hal.Device { return c.device }

// Queue returns the HAL queue.
func (c *Context) Queue() hal.Queue { return c.queue }

// External reports whether the device belongs to a host application.
func (c *Context) External() bool { return c.external }

// SetWaitTimeout changes how long EndFrame waits for the GPU.
func (c *Context) SetWaitTimeout(d time.Duration) { c.timeout = d }

// SetSurface sets the view presentation draws into. A nil view makes
// presentation a no-op, which is what headless rendering uses.
func (c *Context) SetSurface(view hal.TextureView, width, height uint32, format gputypes.TextureFormat) {
	c.surface = view
	c.surfaceWidth = width
	c.surfaceHeight = height
	if format != gputypes.TextureFormatUndefined {
		c.surfaceFormat = format
	}
}

// Surface returns the presentation view and its size.
func (c *Context) Surface() (hal.TextureView, uint32, uint32) {
	return c.surface, c.surfaceWidth, c.surfaceHeight
}

// SurfaceSize returns the presentation surface size.
func (c *Context) SurfaceSize() (uint32, uint32) { return c.surfaceWidth, c.surfaceHeight }

// SurfaceFormat returns the presentation surface format.
func (c *Context) SurfaceFormat() gputypes.TextureFormat { return c.surfaceFormat }

// Frame returns the number of frames submitted so far.
func (c *Context) Frame() uint64 { return c.frame }

// InFrame reports whether a frame is open.
func (c *Context) InFrame() bool { return c.encoder != nil }

// BeginFrame opens a frame and starts recording commands.
func (c *Context) BeginFrame() error {
	if c.encoder != nil {
		return ErrFrameInProgress
	}
	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "framegraph_encoder",
	})
	if err != nil {
		return fmt.Errorf("gfx: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(fmt.Sprintf("frame_%d", c.frame)); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("gfx: begin encoding: %w", err)
	}
	c.encoder = encoder
	return nil
}

// Encoder returns the command encoder of the open frame.
// It panics outside a frame.
func (c *Context) Encoder() hal.CommandEncoder {
	if c.encoder == nil {
		panic(ErrNoFrame)
	}
	return c.encoder
}

// OnSubmitted registers fn to run after the open frame's GPU work has
// completed, in registration order. Passes use it to read back results.
func (c *Context) OnSubmitted(fn func()) {
	c.submitted = append(c.submitted, fn)
}

// EndFrame finishes recording, submits the frame and waits for the GPU.
// Callbacks registered with OnSubmitted run after a successful wait.
func (c *Context) EndFrame() error {
	if c.encoder == nil {
		return ErrNoFrame
	}
	encoder := c.encoder
	c.encoder = nil
	callbacks := c.submitted
	defer c.resetSubmitted(callbacks)

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gfx: end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	fence, err := c.device.CreateFence()
	if err != nil {
		return fmt.Errorf("gfx: create fence: %w", err)
	}
	defer c.device.DestroyFence(fence)

	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gfx: submit: %w", err)
	}
	ok, err := c.device.Wait(fence, 1, c.timeout)
	if err != nil {
		return fmt.Errorf("gfx: wait for GPU: %w", err)
	}
	if !ok {
		return ErrGPUTimeout
	}
	c.frame++

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// resetSubmitted empties the callback list, keeping its storage for the
// next frame.
func (c *Context) resetSubmitted(callbacks []func()) {
	clear(callbacks)
	c.submitted = callbacks[:0]
}

// AbortFrame discards everything recorded in the open frame.
// It does nothing outside a frame.
func (c *Context) AbortFrame() {
	if c.encoder == nil {
		return
	}
	c.encoder.DiscardEncoding()
	c.encoder = nil
	c.resetSubmitted(c.submitted)
	slogger().Warn("gfx: frame aborted", "frame", c.frame)
}
