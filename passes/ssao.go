// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/texture"
)

// Direction of a separable blur.
type Direction uint8

const (
	Horizontal Direction = iota
	Vertical
)

func (d Direction) String() string {
	if d == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// SSAO computes screen-space ambient occlusion from G1 and smooths it with
// a depth-aware separable blur.
type SSAO struct {
	generate  *gfx.Program
	bilateral *gfx.Program
}

// NewSSAO compiles the occlusion and blur programs.
func NewSSAO(ctx *gfx.Context) (*SSAO, error) {
	generate, err := newProgram(ctx, "ssao", 1, 0)
	if err != nil {
		return nil, err
	}
	bilateral, err := newProgram(ctx, "bilateral", 2, 16)
	if err != nil {
		generate.Destroy()
		return nil, err
	}
	return &SSAO{generate: generate, bilateral: bilateral}, nil
}

// Setup declares occlusion generation followed by a horizontal and a
// vertical blur, and returns the blurred occlusion descriptor.
func (p *SSAO) Setup(g1 *texture.Info, l *List) *texture.Info {
	ao := texture.NewInfo("SSAO", g1.Width(), g1.Height(), texture.R8)
	l.add(pass{
		Name:    "SSAO",
		Inputs:  []inputSlot{in("g1", g1)},
		Outputs: []outputSlot{out("output", ao)},
		Builder: build(func(_ *gfx.Context, r *framegraph.Resolved) (operator, error) {
			return newDrawOp(p.generate,
				framegraph.OutputAs[*texture.Texture](r, "output"),
				framegraph.InputAs[*texture.Texture](r, "g1"))
		}),
	})
	ao = p.blur(ao, g1, Horizontal, l)
	return p.blur(ao, g1, Vertical, l)
}

func (p *SSAO) blur(src, g1 *texture.Info, dir Direction, l *List) *texture.Info {
	dst := texture.NewInfo(fmt.Sprintf("SSAO (%s blur)", dir), src.Width(), src.Height(), texture.R8)
	l.add(pass{
		Name:    fmt.Sprintf("SSAO Bilateral %s", dir),
		Inputs:  []inputSlot{in("input", src), in("g1", g1)},
		Outputs: []outputSlot{out("output", dst)},
		Builder: build(func(_ *gfx.Context, r *framegraph.Resolved) (operator, error) {
			op, err := newDrawOp(p.bilateral,
				framegraph.OutputAs[*texture.Texture](r, "output"),
				framegraph.InputAs[*texture.Texture](r, "input"),
				framegraph.InputAs[*texture.Texture](r, "g1"))
			if err != nil {
				return nil, err
			}
			x, y := float32(1), float32(0)
			if dir == Vertical {
				x, y = 0, 1
			}
			op.params = func() []byte {
				var u uniforms
				return u.vec4(x, y, 0, 0).bytes()
			}
			return op, nil
		}),
	})
	return dst
}

// Destroy releases the programs.
func (p *SSAO) Destroy() {
	p.generate.Destroy()
	p.bilateral.Destroy()
}
