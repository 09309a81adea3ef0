// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/texture"
)

// GlobalLighting shades G1 with a directional light, ambient occlusion and,
// in AR mode, the camera image as background.
type GlobalLighting struct {
	prog  *gfx.Program
	scene *Scene

	// bound in place of missing occlusion and camera inputs
	white *texture.Texture
	black *texture.Texture
}

// NewGlobalLighting compiles the lighting program and uploads its 1x1
// fallback textures.
func NewGlobalLighting(ctx *gfx.Context, scene *Scene) (*GlobalLighting, error) {
	prog, err := newProgram(ctx, "lighting", 3, 32)
	if err != nil {
		return nil, err
	}
	p := &GlobalLighting{prog: prog, scene: scene}
	if p.white, err = solid(ctx, "lighting_white", 0xff); err != nil {
		p.Destroy()
		return nil, err
	}
	if p.black, err = solid(ctx, "lighting_black", 0); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func solid(ctx *gfx.Context, label string, v byte) (*texture.Texture, error) {
	t, err := texture.New(ctx.Device(), label, 1, 1, texture.RGBA8)
	if err != nil {
		return nil, err
	}
	if err := t.Upload(ctx.Queue(), []byte{v, v, v, 0xff}); err != nil {
		t.Dispose()
		return nil, err
	}
	return t, nil
}

// Setup declares the lighting pass. ao and camera may be nil when
// occlusion or the camera background are disabled.
func (p *GlobalLighting) Setup(g1, ao, camera *texture.Info, l *List) *texture.Info {
	lit := texture.NewInfo("Lit", g1.Width(), g1.Height(), texture.RGBA8)
	inputs := []inputSlot{in("g1", g1)}
	if ao != nil {
		inputs = append(inputs, in("ao", ao))
	}
	if camera != nil {
		inputs = append(inputs, in("camera", camera))
	}
	l.add(pass{
		Name:    "Global Lighting",
		Inputs:  inputs,
		Outputs: []outputSlot{out("output", lit)},
		Builder: build(func(_ *gfx.Context, r *framegraph.Resolved) (operator, error) {
			aoTex, cameraTex := p.white, p.black
			if ao != nil {
				aoTex = framegraph.InputAs[*texture.Texture](r, "ao")
			}
			if camera != nil {
				cameraTex = framegraph.InputAs[*texture.Texture](r, "camera")
			}
			op, err := newDrawOp(p.prog,
				framegraph.OutputAs[*texture.Texture](r, "output"),
				framegraph.InputAs[*texture.Texture](r, "g1"),
				aoTex, cameraTex)
			if err != nil {
				return nil, err
			}
			var present float32
			if camera != nil {
				present = 1
			}
			op.params = func() []byte {
				d := p.scene.LightDirection
				var u uniforms
				return u.vec4(d[0], d[1], d[2], 0).vec4(present, 0, 0, 0).bytes()
			}
			return op, nil
		}),
	})
	return lit
}

// Destroy releases the program and the fallback textures.
func (p *GlobalLighting) Destroy() {
	p.prog.Destroy()
	if p.white != nil {
		p.white.Dispose()
	}
	if p.black != nil {
		p.black.Dispose()
	}
}
