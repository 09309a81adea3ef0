// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"image"
	"sync"

	"golang.org/x/image/draw"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/texture"
)

// Camera feeds the latest camera frame of an AR session into the graph.
// SetImage may be called from any goroutine.
type Camera struct {
	blit *gfx.Program

	mu    sync.Mutex
	image image.Image
	dirty bool
}

// NewCamera compiles the blit program of the camera pass.
func NewCamera(ctx *gfx.Context) (*Camera, error) {
	blit, err := newProgram(ctx, "blit", 1, 0)
	if err != nil {
		return nil, err
	}
	return &Camera{blit: blit}, nil
}

// SetImage sets the camera frame shown from the next frame on. It is scaled
// to the size of the camera output.
func (c *Camera) SetImage(img image.Image) {
	c.mu.Lock()
	c.image = img
	c.dirty = true
	c.mu.Unlock()
}

// Setup declares the camera pass and returns the camera image descriptor.
func (c *Camera) Setup(width, height uint32, l *List) *texture.Info {
	img := texture.NewInfo("Camera Image", width, height, texture.RGBA8)
	l.add(pass{
		Name:    "Camera",
		Outputs: []outputSlot{out("output", img)},
		Builder: build(func(ctx *gfx.Context, r *framegraph.Resolved) (operator, error) {
			upload, err := texture.New(ctx.Device(), "camera_upload", width, height, texture.RGBA8)
			if err != nil {
				return nil, err
			}
			op, err := newDrawOp(c.blit, framegraph.OutputAs[*texture.Texture](r, "output"), upload)
			if err != nil {
				upload.Dispose()
				return nil, err
			}
			c.mu.Lock()
			c.dirty = true
			c.mu.Unlock()
			return &cameraOp{
				drawOp: op,
				camera: c,
				upload: upload,
				rgba:   image.NewRGBA(image.Rect(0, 0, int(width), int(height))),
			}, nil
		}),
	})
	return img
}

// Destroy releases the program.
func (c *Camera) Destroy() { c.blit.Destroy() }

// cameraOp owns the texture camera frames are uploaded to before being
// copied into the pooled output.
type cameraOp struct {
	*drawOp
	camera *Camera
	upload *texture.Texture
	rgba   *image.RGBA
}

func (o *cameraOp) BeforeRender(ctx *gfx.Context) {
	c := o.camera
	c.mu.Lock()
	img, dirty := c.image, c.dirty
	c.dirty = false
	c.mu.Unlock()

	if dirty {
		clear(o.rgba.Pix)
		if img != nil {
			draw.BiLinear.Scale(o.rgba, o.rgba.Bounds(), img, img.Bounds(), draw.Src, nil)
		}
		if err := o.upload.Upload(ctx.Queue(), o.rgba.Pix); err != nil {
			slogger().Warn("passes: camera upload failed", "err", err)
		}
	}
	o.drawOp.BeforeRender(ctx)
}

func (o *cameraOp) Dispose() {
	o.drawOp.Dispose()
	o.upload.Dispose()
}
