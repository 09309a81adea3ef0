// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/texture"
)

// TemporalAA blends the current frame with the reprojected history,
// clamped to the neighbourhood of each pixel.
type TemporalAA struct {
	prog *gfx.Program
}

// NewTemporalAA compiles the anti-aliasing program.
func NewTemporalAA(ctx *gfx.Context) (*TemporalAA, error) {
	prog, err := newProgram(ctx, "taa", 2, 0)
	if err != nil {
		return nil, err
	}
	return &TemporalAA{prog: prog}, nil
}

// Setup declares the anti-aliasing pass.
func (p *TemporalAA) Setup(input, reprojected *texture.Info, l *List) *texture.Info {
	output := texture.NewInfo("TXAA'd Image + Blend Factor", input.Width(), input.Height(), texture.RGBA8)
	l.add(pass{
		Name:    "TXAA",
		Inputs:  []inputSlot{in("input", input), in("reprojected", reprojected)},
		Outputs: []outputSlot{out("output", output)},
		Builder: build(func(_ *gfx.Context, r *framegraph.Resolved) (operator, error) {
			return newDrawOp(p.prog,
				framegraph.OutputAs[*texture.Texture](r, "output"),
				framegraph.InputAs[*texture.Texture](r, "input"),
				framegraph.InputAs[*texture.Texture](r, "reprojected"))
		}),
	})
	return output
}

// Destroy releases the program.
func (p *TemporalAA) Destroy() { p.prog.Destroy() }
