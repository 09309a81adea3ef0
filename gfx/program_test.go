// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

const testShader = `
@group(0) @binding(0) var src: texture_2d<f32>;

@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    let x = f32((i << 1u) & 2u);
    let y = f32(i & 2u);
    return vec4<f32>(x * 2.0 - 1.0, 1.0 - y * 2.0, 0.0, 1.0);
}

@fragment
fn fs_main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    return textureLoad(src, vec2<i32>(pos.xy), 0);
}
`

func TestCompileWGSL(t *testing.T) {
	words, err := CompileWGSL(testShader)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "not yet implemented") ||
			strings.Contains(msg, "not supported") ||
			strings.Contains(msg, "lowering error") {
			t.Skipf("naga limitation: %v", err)
		}
		t.Fatalf("CompileWGSL failed: %v", err)
	}
	if len(words) == 0 {
		t.Fatal("CompileWGSL returned no words")
	}
	if words[0] != 0x07230203 {
		t.Errorf("magic = %#x, want 0x07230203", words[0])
	}
}

func TestCompileWGSLInvalid(t *testing.T) {
	if _, err := CompileWGSL("fn broken("); err == nil {
		t.Error("expected error for invalid WGSL")
	}
}

func newTestView(t *testing.T, device hal.Device) hal.TextureView {
	t.Helper()
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "test_target",
		Size:          hal.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "test_target_view"})
	if err != nil {
		t.Fatalf("CreateTextureView failed: %v", err)
	}
	t.Cleanup(func() {
		device.DestroyTextureView(view)
		device.DestroyTexture(tex)
	})
	return view
}

func TestProgramDraw(t *testing.T) {
	c, device, _ := newTestContext(t)

	p, err := NewProgram(c, ProgramDesc{Label: "copy", Source: testShader, Textures: 1, UniformSize: 16})
	if err != nil {
		t.Fatalf("NewProgram failed: %v", err)
	}
	if p.Label() != "copy" {
		t.Errorf("Label = %q, want copy", p.Label())
	}

	src := newTestView(t, device)
	dst := newTestView(t, device)

	b1, err := p.Bind(src)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	b2, err := p.Bind(dst)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if device.Live("buffer") != 2 {
		t.Errorf("uniform buffers = %d, want one per bindings", device.Live("buffer"))
	}
	b1.WriteUniform(make([]byte, 16))
	b2.WriteUniform(make([]byte, 16))

	if err := c.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	for range 2 {
		if err := p.Draw(c.Encoder(), dst, gputypes.TextureFormatRGBA8Unorm, b1, true); err != nil {
			t.Fatalf("Draw failed: %v", err)
		}
	}
	if err := p.Draw(c.Encoder(), src, gputypes.TextureFormatBGRA8Unorm, b2, false); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if err := c.EndFrame(); err != nil {
		t.Fatalf("EndFrame failed: %v", err)
	}
	if device.Created("pipeline") != 2 {
		t.Errorf("pipelines created = %d, want one per format", device.Created("pipeline"))
	}

	b1.Destroy()
	b1.Destroy()
	b2.Destroy()
	p.Destroy()
	p.Destroy()
	for _, kind := range []string{"pipeline", "shader", "buffer", "bindgroup"} {
		if n := device.Live(kind); n != 0 {
			t.Errorf("live %s = %d after Destroy, want 0", kind, n)
		}
	}
}

func TestProgramBindCount(t *testing.T) {
	c, device, _ := newTestContext(t)

	p, err := NewProgram(c, ProgramDesc{Label: "two", Source: testShader, Textures: 2})
	if err != nil {
		t.Fatalf("NewProgram failed: %v", err)
	}
	defer p.Destroy()

	view := newTestView(t, device)
	if _, err := p.Bind(view); !errors.Is(err, ErrTextureCount) {
		t.Errorf("Bind = %v, want ErrTextureCount", err)
	}

	b, err := p.Bind(view, view)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer b.Destroy()
	b.WriteUniform([]byte{1}) // no uniform buffer: ignored
	if device.Live("buffer") != 0 {
		t.Errorf("buffers = %d for a program without uniforms", device.Live("buffer"))
	}
}

func TestProgramBindFailure(t *testing.T) {
	errBuffer := errors.New("no memory")
	c, device, _ := newTestContext(t)

	p, err := NewProgram(c, ProgramDesc{Label: "u", Source: testShader, Textures: 1, UniformSize: 64})
	if err != nil {
		t.Fatalf("NewProgram failed: %v", err)
	}
	defer p.Destroy()

	device.FailBuffer = errBuffer
	if _, err := p.Bind(newTestView(t, device)); !errors.Is(err, errBuffer) {
		t.Errorf("Bind = %v, want %v", err, errBuffer)
	}
	if device.Live("bindgroup") != 0 {
		t.Error("bind group leaked")
	}
}

func TestProgramCreateFailure(t *testing.T) {
	errShader := errors.New("shader rejected")
	c, device, _ := newTestContext(t)
	device.FailShader = errShader

	if _, err := NewProgram(c, ProgramDesc{Label: "bad", Source: testShader, Textures: 1}); !errors.Is(err, errShader) {
		t.Fatalf("NewProgram = %v, want %v", err, errShader)
	}
	if n := device.LiveTotal(); n != 0 {
		t.Errorf("live objects after failure = %d, want 0", n)
	}
}

func TestProgramPipelineFailure(t *testing.T) {
	errPipeline := errors.New("pipeline rejected")
	c, device, _ := newTestContext(t)

	p, err := NewProgram(c, ProgramDesc{Label: "p", Source: testShader, Textures: 1})
	if err != nil {
		t.Fatalf("NewProgram failed: %v", err)
	}
	defer p.Destroy()

	device.FailPipeline = errPipeline
	if _, err := p.Pipeline(gputypes.TextureFormatRGBA8Unorm); !errors.Is(err, errPipeline) {
		t.Errorf("Pipeline = %v, want %v", err, errPipeline)
	}
	device.FailPipeline = nil
	if _, err := p.Pipeline(gputypes.TextureFormatRGBA8Unorm); err != nil {
		t.Errorf("Pipeline after recovery failed: %v", err)
	}
}

func TestShaderCache(t *testing.T) {
	c := newShaderCache(4)

	_, cached, err1 := c.compile(testShader)
	if cached {
		t.Error("first compile reported as cached")
	}
	_, cached, err2 := c.compile(testShader)
	if !cached {
		t.Error("second compile not cached")
	}
	if (err1 == nil) != (err2 == nil) {
		t.Errorf("cached result differs: %v vs %v", err1, err2)
	}
	if hits, misses := c.stats(); hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses, want 1, 1", hits, misses)
	}

	// Invalid sources are cached as failures.
	for i := range 5 {
		src := "fn broken" + strings.Repeat("(", i+1)
		if _, _, err := c.compile(src); err == nil {
			t.Fatalf("compile(%q) succeeded", src)
		}
	}
	if n := c.len(); n > 4 {
		t.Errorf("len = %d, want at most the limit 4", n)
	}
	if _, cached, _ := c.compile("fn broken((((("); !cached {
		t.Error("most recent entry was evicted")
	}
}
