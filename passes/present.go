// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/texture"
)

// Present copies the final image to the surface of the context.
type Present struct {
	blit *gfx.Program
}

// NewPresent compiles the blit program of the present pass.
func NewPresent(ctx *gfx.Context) (*Present, error) {
	blit, err := newProgram(ctx, "blit", 1, 0)
	if err != nil {
		return nil, err
	}
	return &Present{blit: blit}, nil
}

// Setup declares the present pass and returns its sink. The pass runs only
// when the sink is requested as a final output. Frames are dropped while the
// context has no surface.
func (p *Present) Setup(input *texture.Info, l *List) *framegraph.Sink[*gfx.Context] {
	sink := framegraph.NewSink[*gfx.Context]("Presented Image")
	l.add(pass{
		Name:    "Present",
		Inputs:  []inputSlot{in("input", input)},
		Outputs: []outputSlot{framegraph.OptionalOut[*gfx.Context]("output", sink)},
		Builder: build(func(_ *gfx.Context, r *framegraph.Resolved) (operator, error) {
			bind, err := p.blit.Bind(framegraph.InputAs[*texture.Texture](r, "input").View())
			if err != nil {
				return nil, err
			}
			return &presentOp{blit: p.blit, bind: bind}, nil
		}),
	})
	return sink
}

// Destroy releases the program.
func (p *Present) Destroy() { p.blit.Destroy() }

type presentOp struct {
	framegraph.NopHooks[*gfx.Context]

	blit *gfx.Program
	bind *gfx.Bindings
}

func (o *presentOp) Perform(ctx *gfx.Context) error {
	view, _, _ := ctx.Surface()
	if view == nil {
		return nil
	}
	return o.blit.Draw(ctx.Encoder(), view, ctx.SurfaceFormat(), o.bind, true)
}

func (o *presentOp) Dispose() { o.bind.Destroy() }
