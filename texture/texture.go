// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package texture provides the render texture descriptors of a frame graph
// and the GPU textures allocated for them.
//
// Info describes a pooled texture that lives for a part of one frame and
// may share its GPU texture with other descriptors of the same size and
// format. HistoryInfo describes a persistent texture that keeps its
// contents from one frame to the next, such as the accumulated image of
// temporal anti-aliasing.
package texture

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Texture errors.
var (
	// ErrInvalidSize is returned when creating a texture with a zero dimension.
	ErrInvalidSize = errors.New("texture: width and height must be positive")

	// ErrUploadFormat is returned by Upload for textures that are not 8-bit RGBA.
	ErrUploadFormat = errors.New("texture: upload needs an 8-bit RGBA texture")

	// ErrUploadSize is returned by Upload when the pixel data does not cover
	// the texture.
	ErrUploadSize = errors.New("texture: pixel data does not match texture size")
)

// Texture is a GPU texture with its default view.
type Texture struct {
	device hal.Device
	tex    hal.Texture
	view   hal.TextureView

	width  uint32
	height uint32
	format Format
}

// New creates a render texture of format. Formats are allocated with their
// physical format.
func New(device hal.Device, label string, width, height uint32, format Format) (*Texture, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %s is %dx%d", ErrInvalidSize, label, width, height)
	}
	format = format.Physical()
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format.GPUFormat(),
		Usage:         format.usage(),
	})
	if err != nil {
		return nil, fmt.Errorf("texture: create %s: %w", label, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("texture: create %s view: %w", label, err)
	}
	slogger().Debug("texture: created", "label", label, "size", fmt.Sprintf("%dx%d", width, height), "format", format)
	return &Texture{
		device: device,
		tex:    tex,
		view:   view,
		width:  width,
		height: height,
		format: format,
	}, nil
}

// Raw returns the HAL texture, nil after Dispose.
func (t *Texture) Raw() hal.Texture { return t.tex }

// View returns the default view, nil after Dispose.
func (t *Texture) View() hal.TextureView { return t.view }

// Width returns the width in pixels.
func (t *Texture) Width() uint32 { return t.width }

// Height returns the height in pixels.
func (t *Texture) Height() uint32 { return t.height }

// Format returns the physical format.
func (t *Texture) Format() Format { return t.format }

// GPUFormat returns the GPU texture format.
func (t *Texture) GPUFormat() gputypes.TextureFormat { return t.format.GPUFormat() }

// Upload writes tightly packed 8-bit RGBA pixels into the whole texture
// through queue. The write lands before any command of the current frame.
func (t *Texture) Upload(queue hal.Queue, pixels []byte) error {
	if t.format != RGBA8 && t.format != SRGBA8 {
		return fmt.Errorf("%w: texture is %s", ErrUploadFormat, t.format)
	}
	if len(pixels) != int(t.width)*int(t.height)*4 {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrUploadSize, len(pixels), t.width, t.height)
	}
	queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
		},
		pixels,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  t.width * 4,
			RowsPerImage: t.height,
		},
		&hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
	return nil
}

// Disposed reports whether Dispose has been called.
func (t *Texture) Disposed() bool { return t.tex == nil }

// Dispose destroys the view and the texture. Safe to call more than once.
func (t *Texture) Dispose() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}
