// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/texture"
)

// Raytrace traces primary rays into the G1 buffer: surface normal and hit
// distance per pixel.
type Raytrace struct {
	prog  *gfx.Program
	scene *Scene
}

// NewRaytrace compiles the raytrace program.
func NewRaytrace(ctx *gfx.Context, scene *Scene) (*Raytrace, error) {
	prog, err := newProgram(ctx, "raytrace", 0, 80)
	if err != nil {
		return nil, err
	}
	return &Raytrace{prog: prog, scene: scene}, nil
}

// Setup declares the raytrace pass and returns the G1 descriptor.
func (p *Raytrace) Setup(width, height uint32, l *List) *texture.Info {
	g1 := texture.NewInfo("G1", width, height, texture.RGBAF16)
	l.add(pass{
		Name:    "Raytrace",
		Outputs: []outputSlot{out("g1", g1)},
		Builder: build(func(_ *gfx.Context, r *framegraph.Resolved) (operator, error) {
			op, err := newDrawOp(p.prog, framegraph.OutputAs[*texture.Texture](r, "g1"))
			if err != nil {
				return nil, err
			}
			op.params = func() []byte {
				var u uniforms
				return u.mat4(p.scene.InverseViewProjection).
					vec4(float32(width), float32(height), p.scene.Time, 0).
					bytes()
			}
			return op, nil
		}),
	})
	return g1
}

// Destroy releases the program.
func (p *Raytrace) Destroy() { p.prog.Destroy() }
