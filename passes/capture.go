// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/texture"
)

// ErrCaptureFormat is returned when building a capture pass for an image
// that is not 8-bit RGBA.
var ErrCaptureFormat = errors.New("passes: capture needs an 8-bit RGBA image")

// copyPitchAlignment is the row alignment of texture to buffer copies.
const copyPitchAlignment = 256

// Capture reads an image back to the CPU after every frame.
//
// Capture is not safe for concurrent use; Image must be called from the
// goroutine rendering frames.
type Capture struct {
	image *image.RGBA
	frame uint64
}

// NewCapture returns a capture pass.
func NewCapture() *Capture { return &Capture{} }

// Image returns the most recently read back image, or nil if no frame has
// been captured yet.
func (c *Capture) Image() *image.RGBA { return c.image }

// Frame returns the context frame number of Image.
func (c *Capture) Frame() uint64 { return c.frame }

// Setup declares the capture pass and returns its sink. The pass runs only
// when the sink is requested as a final output.
func (c *Capture) Setup(input *texture.Info, l *List) *framegraph.Sink[*gfx.Context] {
	sink := framegraph.NewSink[*gfx.Context]("Captured Image")
	l.add(pass{
		Name:    "Capture",
		Inputs:  []inputSlot{in("input", input)},
		Outputs: []outputSlot{framegraph.OptionalOut[*gfx.Context]("output", sink)},
		Builder: build(func(ctx *gfx.Context, r *framegraph.Resolved) (operator, error) {
			src := framegraph.InputAs[*texture.Texture](r, "input")
			if f := src.Format(); f != texture.RGBA8 && f != texture.SRGBA8 {
				return nil, fmt.Errorf("%w: %s is %s", ErrCaptureFormat, input.Name(), f)
			}
			w, h := src.Width(), src.Height()
			bytesPerRow := w * 4
			aligned := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
			staging, err := ctx.Device().CreateBuffer(&hal.BufferDescriptor{
				Label: "capture_staging",
				Size:  uint64(aligned) * uint64(h),
				Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
			})
			if err != nil {
				return nil, fmt.Errorf("passes: create capture staging buffer: %w", err)
			}
			return newCaptureOp(c, ctx, src, staging, bytesPerRow, aligned), nil
		}),
	})
	return sink
}

type captureOp struct {
	framegraph.NopHooks[*gfx.Context]

	capture *Capture
	device  hal.Device
	queue   hal.Queue
	src     *texture.Texture
	staging hal.Buffer

	bytesPerRow uint32
	aligned     uint32
	readback    []byte

	// recorded every frame
	toCopy   []hal.TextureBarrier
	regions  []hal.BufferTextureCopy
	toTarget []hal.TextureBarrier

	// frame is the context frame of the copy in flight.
	frame       uint64
	onSubmitted func()
}

func newCaptureOp(c *Capture, ctx *gfx.Context, src *texture.Texture, staging hal.Buffer, bytesPerRow, aligned uint32) *captureOp {
	w, h := src.Width(), src.Height()
	o := &captureOp{
		capture:     c,
		device:      ctx.Device(),
		queue:       ctx.Queue(),
		src:         src,
		staging:     staging,
		bytesPerRow: bytesPerRow,
		aligned:     aligned,
		readback:    make([]byte, uint64(aligned)*uint64(h)),
		toCopy: []hal.TextureBarrier{{
			Texture: src.Raw(),
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}},
		regions: []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: aligned, RowsPerImage: h},
			TextureBase:  hal.ImageCopyTexture{Texture: src.Raw(), MipLevel: 0},
			Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		}},
		toTarget: []hal.TextureBarrier{{
			Texture: src.Raw(),
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopySrc,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		}},
	}
	o.onSubmitted = o.read
	return o
}

func (o *captureOp) Perform(ctx *gfx.Context) error {
	enc := ctx.Encoder()
	enc.TransitionTextures(o.toCopy)
	enc.CopyTextureToBuffer(o.src.Raw(), o.staging, o.regions)
	enc.TransitionTextures(o.toTarget)
	o.submit(ctx)
	return nil
}

// submit schedules the readback for when the frame completes.
func (o *captureOp) submit(ctx *gfx.Context) {
	o.frame = ctx.Frame()
	ctx.OnSubmitted(o.onSubmitted)
}

// read copies the staging buffer into a new image, dropping row padding.
func (o *captureOp) read() {
	if err := o.queue.ReadBuffer(o.staging, 0, o.readback); err != nil {
		slogger().Warn("passes: capture readback failed", "frame", o.frame, "err", err)
		return
	}
	w, h := int(o.src.Width()), int(o.src.Height())
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	row := int(o.bytesPerRow)
	for y := range h {
		copy(img.Pix[y*img.Stride:y*img.Stride+row], o.readback[y*int(o.aligned):])
	}
	o.capture.image = img
	o.capture.frame = o.frame
}

func (o *captureOp) Dispose() {
	if o.staging != nil {
		o.device.DestroyBuffer(o.staging)
		o.staging = nil
	}
}
