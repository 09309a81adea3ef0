// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
)

const hashSalt = 114514

// Info describes a pooled render texture.
type Info struct {
	name      string
	width     uint32
	height    uint32
	requested Format
	format    Format
}

var _ framegraph.ResourceInfo[*gfx.Context] = (*Info)(nil)

// NewInfo returns a pooled texture descriptor.
func NewInfo(name string, width, height uint32, format Format) *Info {
	return &Info{
		name:      name,
		width:     width,
		height:    height,
		requested: format,
		format:    format.Physical(),
	}
}

func (i *Info) Name() string { return i.name }

// Width returns the width in pixels.
func (i *Info) Width() uint32 { return i.width }

// Height returns the height in pixels.
func (i *Info) Height() uint32 { return i.height }

// Format returns the physical format.
func (i *Info) Format() Format { return i.format }

// Cost is width * height * bytes per pixel.
func (i *Info) Cost() int64 {
	return int64(i.width) * int64(i.height) * i.format.BytesPerPixel()
}

func (i *Info) Hash() uint64 {
	return textureHash(i.width, i.height, i.format)
}

// CanMergeWith reports whether other is a pooled texture of the same size
// and physical format.
func (i *Info) CanMergeWith(other framegraph.ResourceInfo[*gfx.Context]) bool {
	o, ok := other.(*Info)
	return ok && o.width == i.width && o.height == i.height && o.format == i.format
}

// Create allocates a *Texture.
func (i *Info) Create(ctx *gfx.Context) (framegraph.Resource, error) {
	return New(ctx.Device(), i.name, i.width, i.height, i.format)
}

func (i *Info) Storage() framegraph.Storage { return framegraph.StoragePooled }

func (i *Info) PhysicalFormat() string {
	return fmt.Sprintf("Texture %dx%d %s", i.width, i.height, i.format)
}

// LogicalFormat is the format as requested, before fallback.
func (i *Info) LogicalFormat() string { return i.requested.String() }

func textureHash(width, height uint32, format Format) uint64 {
	return uint64(width) ^ uint64(height)<<16 ^ uint64(format)<<24 ^ hashSalt
}
