// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import "github.com/gogpu/gputypes"

// Format is the pixel format of a render texture as passes request it.
type Format uint8

const (
	// Depth is a depth-stencil buffer.
	Depth Format = iota
	// RGBA8 is 8-bit normalized RGBA.
	RGBA8
	// SRGBA8 is 8-bit RGBA with sRGB encoding.
	SRGBA8
	// RGBAF16 is half-float RGBA.
	RGBAF16
	// R8 is a single 8-bit channel. Allocated as RGBA8.
	R8
	// R8G8 is two 8-bit channels. Allocated as RGBA8.
	R8G8
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case Depth:
		return "Depth"
	case RGBA8:
		return "RGBA8"
	case SRGBA8:
		return "sRGBA8"
	case RGBAF16:
		return "RGBAF16"
	case R8:
		return "R8"
	case R8G8:
		return "R8G8"
	default:
		return "Unknown"
	}
}

// Physical returns the format textures of f are allocated with.
// Formats with fewer than four channels fall back to RGBA8.
func (f Format) Physical() Format {
	switch f {
	case R8, R8G8:
		return RGBA8
	default:
		return f
	}
}

// BytesPerPixel returns the size of one pixel of the physical format.
func (f Format) BytesPerPixel() int64 {
	switch f.Physical() {
	case RGBAF16:
		return 8
	default:
		return 4
	}
}

// IsDepth reports whether f is a depth format.
func (f Format) IsDepth() bool { return f == Depth }

// GPUFormat returns the texture format of the physical format.
func (f Format) GPUFormat() gputypes.TextureFormat {
	switch f.Physical() {
	case Depth:
		return gputypes.TextureFormatDepth24PlusStencil8
	case SRGBA8:
		return gputypes.TextureFormatRGBA8UnormSrgb
	case RGBAF16:
		return gputypes.TextureFormatRGBA16Float
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

// usage returns the texture usages a render texture of f is created with.
func (f Format) usage() gputypes.TextureUsage {
	if f.IsDepth() {
		return gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding
	}
	return gputypes.TextureUsageRenderAttachment |
		gputypes.TextureUsageTextureBinding |
		gputypes.TextureUsageCopySrc |
		gputypes.TextureUsageCopyDst
}
