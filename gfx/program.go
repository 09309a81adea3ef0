// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// ErrTextureCount is returned by Bind when the number of views
// does not match the program's texture bindings.
var ErrTextureCount = errors.New("gfx: wrong number of textures for program")

// Shader entry points every program source must define.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

// CompileWGSL compiles WGSL source to SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("gfx: compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// ProgramDesc describes a fullscreen program.
type ProgramDesc struct {
	// Label prefixes the labels of every GPU object of the program.
	Label string

	// Source is WGSL defining VertexEntryPoint and FragmentEntryPoint.
	Source string

	// Textures is the number of textures read by the fragment stage, bound
	// at bindings 0..Textures-1 of group 0.
	Textures int

	// UniformSize, when non-zero, adds a uniform buffer of that size at
	// binding Textures of group 0. Every Bindings gets its own buffer.
	UniformSize uint64

	// Blend is the color blend state of the target. Nil replaces.
	Blend *gputypes.BlendState
}

// Program is a compiled fullscreen-triangle shader with its bind group
// layout. Render pipelines are created lazily per target format.
type Program struct {
	device hal.Device
	queue  hal.Queue
	desc   ProgramDesc

	shader     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout

	pipelines map[gputypes.TextureFormat]hal.RenderPipeline
}

// NewProgram compiles desc.Source and creates the layouts of the program.
// WGSL the compiler cannot translate is handed to the device as WGSL.
func NewProgram(c *Context, desc ProgramDesc) (*Program, error) {
	p := &Program{
		device:    c.Device(),
		queue:     c.Queue(),
		desc:      desc,
		pipelines: make(map[gputypes.TextureFormat]hal.RenderPipeline),
	}
	if err := p.create(); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *Program) create() error {
	source := hal.ShaderSource{WGSL: p.desc.Source}
	words, cached, err := compiled.compile(p.desc.Source)
	switch {
	case err == nil:
		source = hal.ShaderSource{SPIRV: words}
	case !cached:
		slogger().Warn("gfx: using WGSL source", "program", p.desc.Label, "err", err)
	}
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  p.desc.Label + "_shader",
		Source: source,
	})
	if err != nil {
		return fmt.Errorf("gfx: create %s shader: %w", p.desc.Label, err)
	}
	p.shader = shader

	entries := make([]gputypes.BindGroupLayoutEntry, 0, p.desc.Textures+1)
	for i := range p.desc.Textures {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i), //nolint:gosec // texture count is tiny
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	if p.desc.UniformSize > 0 {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(p.desc.Textures), //nolint:gosec // texture count is tiny
			Visibility: gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}

	layout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   p.desc.Label + "_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("gfx: create %s bind group layout: %w", p.desc.Label, err)
	}
	p.layout = layout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.desc.Label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.layout},
	})
	if err != nil {
		return fmt.Errorf("gfx: create %s pipeline layout: %w", p.desc.Label, err)
	}
	p.pipeLayout = pipeLayout
	return nil
}

// Pipeline returns the render pipeline drawing into targets of format,
// creating it on first use.
func (p *Program) Pipeline(format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	if pl, ok := p.pipelines[format]; ok {
		return pl, nil
	}
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s_pipeline_%d", p.desc.Label, format),
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: VertexEntryPoint,
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: FragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					Blend:     p.desc.Blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gfx: create %s pipeline: %w", p.desc.Label, err)
	}
	p.pipelines[format] = pipeline
	return pipeline, nil
}

// Bindings is a bind group of a program: the textures it reads and, if the
// program has one, its own uniform buffer.
type Bindings struct {
	p       *Program
	group   hal.BindGroup
	uniform hal.Buffer
}

// Bind creates bindings reading views. Each Bindings owns a separate
// uniform buffer, so several operators can share one program within a
// frame. The caller destroys them with Destroy.
func (p *Program) Bind(views ...hal.TextureView) (*Bindings, error) {
	if len(views) != p.desc.Textures {
		return nil, fmt.Errorf("%w: %s wants %d, got %d", ErrTextureCount, p.desc.Label, p.desc.Textures, len(views))
	}
	b := &Bindings{p: p}
	entries := make([]gputypes.BindGroupEntry, 0, len(views)+1)
	for i, v := range views {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(i), //nolint:gosec // texture count is tiny
			Resource: gputypes.TextureViewBinding{TextureView: v.NativeHandle()},
		})
	}
	if p.desc.UniformSize > 0 {
		uniform, err := p.device.CreateBuffer(&hal.BufferDescriptor{
			Label: p.desc.Label + "_uniform",
			Size:  p.desc.UniformSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("gfx: create %s uniform buffer: %w", p.desc.Label, err)
		}
		b.uniform = uniform
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(len(views)), //nolint:gosec // texture count is tiny
			Resource: gputypes.BufferBinding{Buffer: uniform.NativeHandle(), Offset: 0, Size: p.desc.UniformSize},
		})
	}
	group, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   p.desc.Label + "_bind_group",
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		b.Destroy()
		return nil, fmt.Errorf("gfx: create %s bind group: %w", p.desc.Label, err)
	}
	b.group = group
	return b, nil
}

// WriteUniform uploads data into the uniform buffer. The write lands
// before any command of the frame it is issued in. It does nothing for
// programs without uniforms.
func (b *Bindings) WriteUniform(data []byte) {
	if b.uniform == nil {
		return
	}
	b.p.queue.WriteBuffer(b.uniform, 0, data)
}

// Destroy releases the bind group and the uniform buffer. Safe to call
// more than once.
func (b *Bindings) Destroy() {
	if b.group != nil {
		b.p.device.DestroyBindGroup(b.group)
		b.group = nil
	}
	if b.uniform != nil {
		b.p.device.DestroyBuffer(b.uniform)
		b.uniform = nil
	}
}

// Draw records one fullscreen pass into target: it clears target when
// clear is true, then draws a fullscreen triangle with b bound.
func (p *Program) Draw(enc hal.CommandEncoder, target hal.TextureView, format gputypes.TextureFormat, b *Bindings, clear bool) error {
	pipeline, err := p.Pipeline(format)
	if err != nil {
		return err
	}
	load := gputypes.LoadOpLoad
	if clear {
		load = gputypes.LoadOpClear
	}
	rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: p.desc.Label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	rp.SetPipeline(pipeline)
	if b != nil && b.group != nil {
		rp.SetBindGroup(0, b.group, nil)
	}
	rp.Draw(3, 1, 0, 0)
	rp.End()
	return nil
}

// Clear records a render pass that clears target to transparent black.
func Clear(enc hal.CommandEncoder, target hal.TextureView) {
	rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "clear_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	rp.End()
}

// Label returns the program label.
func (p *Program) Label() string { return p.desc.Label }

// Destroy releases all GPU objects of the program. Safe to call more
// than once.
func (p *Program) Destroy() {
	if p.device == nil {
		return
	}
	for f, pl := range p.pipelines {
		p.device.DestroyRenderPipeline(pl)
		delete(p.pipelines, f)
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.layout != nil {
		p.device.DestroyBindGroupLayout(p.layout)
		p.layout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
