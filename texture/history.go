// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
)

const historySalt = 0x5eed

// HistoryInfo describes a persistent texture carried from frame to frame.
// Schedules rebuilt with a HistoryInfo of the same key, size and format
// keep the existing History and its contents.
type HistoryInfo struct {
	name   string
	key    string
	width  uint32
	height uint32
	format Format
}

var (
	_ framegraph.ResourceInfo[*gfx.Context] = (*HistoryInfo)(nil)
	_ framegraph.Keyed                      = (*HistoryInfo)(nil)
)

// NewHistoryInfo returns a persistent texture descriptor.
func NewHistoryInfo(name, key string, width, height uint32, format Format) *HistoryInfo {
	return &HistoryInfo{
		name:   name,
		key:    key,
		width:  width,
		height: height,
		format: format.Physical(),
	}
}

func (h *HistoryInfo) Name() string { return h.name }

// PersistentKey returns the key the history is carried over by.
func (h *HistoryInfo) PersistentKey() string { return h.key }

func (h *HistoryInfo) Cost() int64 {
	return int64(h.width) * int64(h.height) * h.format.BytesPerPixel()
}

func (h *HistoryInfo) Hash() uint64 {
	return textureHash(h.width, h.height, h.format) ^ historySalt
}

// CanMergeWith reports whether other is a history of the same size and
// format.
func (h *HistoryInfo) CanMergeWith(other framegraph.ResourceInfo[*gfx.Context]) bool {
	o, ok := other.(*HistoryInfo)
	return ok && o.width == h.width && o.height == h.height && o.format == h.format
}

// Create allocates an empty *History.
func (h *HistoryInfo) Create(ctx *gfx.Context) (framegraph.Resource, error) {
	tex, err := New(ctx.Device(), h.name, h.width, h.height, h.format)
	if err != nil {
		return nil, err
	}
	return &History{Texture: tex}, nil
}

func (h *HistoryInfo) Storage() framegraph.Storage { return framegraph.StoragePersistent }

func (h *HistoryInfo) PhysicalFormat() string {
	return fmt.Sprintf("History %dx%d %s", h.width, h.height, h.format)
}

func (h *HistoryInfo) LogicalFormat() string { return h.format.String() }

// History is a texture whose contents survive across frames, with the
// view-projection matrix it was rendered with.
type History struct {
	*Texture

	valid    bool
	viewProj [16]float32
}

// Valid reports whether the history holds a previous frame.
func (h *History) Valid() bool { return h.valid }

// ViewProjection returns the view-projection matrix of the stored frame.
func (h *History) ViewProjection() [16]float32 { return h.viewProj }

// Store marks the texture as holding a frame rendered with viewProj.
func (h *History) Store(viewProj [16]float32) {
	h.valid = true
	h.viewProj = viewProj
}

// Invalidate discards the stored frame, for example after a camera cut.
func (h *History) Invalidate() { h.valid = false }
