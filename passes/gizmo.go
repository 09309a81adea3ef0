// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/texture"
)

// Gizmo overlays a grid on the ground plane of an image.
type Gizmo struct {
	grid *gfx.Program
	blit *gfx.Program
}

// NewGizmo compiles the grid and blit programs.
func NewGizmo(ctx *gfx.Context) (*Gizmo, error) {
	blend := gputypes.BlendStatePremultiplied()
	grid, err := gfx.NewProgram(ctx, gfx.ProgramDesc{
		Label:    "gizmo",
		Source:   shaderSource("gizmo"),
		Textures: 1,
		Blend:    &blend,
	})
	if err != nil {
		return nil, err
	}
	blit, err := newProgram(ctx, "blit", 1, 0)
	if err != nil {
		grid.Destroy()
		return nil, err
	}
	return &Gizmo{grid: grid, blit: blit}, nil
}

// Setup declares the gizmo pass drawing over input. The pass runs in place
// when the scheduler allows it.
func (p *Gizmo) Setup(g1, input *texture.Info, l *List) *texture.Info {
	output := texture.NewInfo(input.Name()+" + Gizmos", g1.Width(), g1.Height(), input.Format())
	l.add(pass{
		Name:     "Gizmos",
		Inputs:   []inputSlot{in("g1", g1), in("input", input)},
		Outputs:  []outputSlot{out("output", output)},
		Bindings: []framegraph.Binding{{Input: "input", Output: "output"}},
		Builder: build(func(_ *gfx.Context, r *framegraph.Resolved) (operator, error) {
			op := &gizmoOp{
				gizmo:  p,
				output: framegraph.OutputAs[*texture.Texture](r, "output"),
			}
			var err error
			op.grid, err = p.grid.Bind(framegraph.InputAs[*texture.Texture](r, "g1").View())
			if err != nil {
				return nil, err
			}
			if !r.InPlace("input", "output") {
				op.copy, err = p.blit.Bind(framegraph.InputAs[*texture.Texture](r, "input").View())
				if err != nil {
					op.Dispose()
					return nil, err
				}
			}
			return op, nil
		}),
	})
	return output
}

// Destroy releases the programs.
func (p *Gizmo) Destroy() {
	p.grid.Destroy()
	p.blit.Destroy()
}

type gizmoOp struct {
	framegraph.NopHooks[*gfx.Context]

	gizmo  *Gizmo
	grid   *gfx.Bindings
	copy   *gfx.Bindings // nil when running in place
	output *texture.Texture
}

func (o *gizmoOp) Perform(ctx *gfx.Context) error {
	enc := ctx.Encoder()
	if o.copy != nil {
		if err := o.gizmo.blit.Draw(enc, o.output.View(), o.output.GPUFormat(), o.copy, true); err != nil {
			return err
		}
	}
	return o.gizmo.grid.Draw(enc, o.output.View(), o.output.GPUFormat(), o.grid, false)
}

func (o *gizmoOp) Dispose() {
	o.grid.Destroy()
	if o.copy != nil {
		o.copy.Destroy()
	}
}
