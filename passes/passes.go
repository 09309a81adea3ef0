// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package passes implements the render passes of a raytraced scene renderer
// on top of the frame graph scheduler.
//
// Every pass type owns its shader program and exposes a Setup method that
// appends its pass declarations to a List and returns the descriptors of its
// outputs, so passes chain into a graph:
//
//	var l passes.List
//	g1 := raytrace.Setup(w, h, &l)
//	ao := ssao.Setup(g1, &l)
//	lit := lighting.Setup(g1, ao, nil, &l)
//	shown := present.Setup(lit, &l)
//	err := scheduler.Setup(l, []framegraph.ResourceInfo[*gfx.Context]{shown})
package passes

import (
	"embed"
	"encoding/binary"
	"math"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/texture"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

type (
	pass       = framegraph.Pass[*gfx.Context]
	inputSlot  = framegraph.Input[*gfx.Context]
	outputSlot = framegraph.Output[*gfx.Context]
	operator   = framegraph.Operator[*gfx.Context]
	info       = framegraph.ResourceInfo[*gfx.Context]
)

func in(name string, i info) inputSlot { return framegraph.In(name, i) }
func out(name string, i info) outputSlot { return framegraph.Out(name, i) }

func build(fn func(ctx *gfx.Context, r *framegraph.Resolved) (operator, error)) framegraph.Builder[*gfx.Context] {
	return framegraph.BuilderFunc[*gfx.Context](fn)
}

// List collects pass declarations in the order passes are set up.
type List []framegraph.Pass[*gfx.Context]

func (l *List) add(p pass) { *l = append(*l, p) }

// Names returns the names of the declared passes.
func (l List) Names() []string {
	names := make([]string, len(l))
	for i := range l {
		names[i] = l[i].Name
	}
	return names
}

// shaderSource returns the WGSL of a pass: the shared fullscreen vertex
// stage followed by the pass's fragment stage.
func shaderSource(name string) string {
	common, err := shaderFS.ReadFile("shaders/fullscreen.wgsl")
	if err != nil {
		panic(err)
	}
	body, err := shaderFS.ReadFile("shaders/" + name + ".wgsl")
	if err != nil {
		panic(err)
	}
	return string(common) + "\n" + string(body)
}

func newProgram(ctx *gfx.Context, name string, textures int, uniformSize uint64) (*gfx.Program, error) {
	return gfx.NewProgram(ctx, gfx.ProgramDesc{
		Label:       name,
		Source:      shaderSource(name),
		Textures:    textures,
		UniformSize: uniformSize,
	})
}

// uniforms builds a uniform block in little-endian std140 order.
type uniforms struct {
	buf []byte
}

func (u *uniforms) vec4(x, y, z, w float32) *uniforms {
	for _, v := range [4]float32{x, y, z, w} {
		u.buf = binary.LittleEndian.AppendUint32(u.buf, math.Float32bits(v))
	}
	return u
}

func (u *uniforms) mat4(m [16]float32) *uniforms {
	for _, v := range m {
		u.buf = binary.LittleEndian.AppendUint32(u.buf, math.Float32bits(v))
	}
	return u
}

func (u *uniforms) bytes() []byte { return u.buf }

// drawOp draws one fullscreen triangle into target.
type drawOp struct {
	framegraph.NopHooks[*gfx.Context]

	prog   *gfx.Program
	bind   *gfx.Bindings
	target *texture.Texture
	clear  bool

	// params returns the uniform block uploaded before every frame.
	params func() []byte
}

func newDrawOp(prog *gfx.Program, target *texture.Texture, sources ...*texture.Texture) (*drawOp, error) {
	views := make([]hal.TextureView, len(sources))
	for i, s := range sources {
		views[i] = s.View()
	}
	bind, err := prog.Bind(views...)
	if err != nil {
		return nil, err
	}
	return &drawOp{prog: prog, bind: bind, target: target, clear: true}, nil
}

func (o *drawOp) BeforeRender(*gfx.Context) {
	if o.params != nil {
		o.bind.WriteUniform(o.params())
	}
}

func (o *drawOp) Perform(ctx *gfx.Context) error {
	return o.prog.Draw(ctx.Encoder(), o.target.View(), o.target.GPUFormat(), o.bind, o.clear)
}

func (o *drawOp) Dispose() { o.bind.Destroy() }

// Identity is the 4x4 identity matrix.
var Identity = [16]float32{0: 1, 5: 1, 10: 1, 15: 1}
