// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"errors"
	"image"
	"image/color"
	"slices"
	"testing"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/internal/gputest"
	"github.com/gogpu/framegraph/texture"
)

type finals = []framegraph.ResourceInfo[*gfx.Context]

// pipeline holds every pass type of the renderer.
type pipeline struct {
	scene    *Scene
	raytrace *Raytrace
	ssao     *SSAO
	camera   *Camera
	lighting *GlobalLighting
	temporal *Temporal
	taa      *TemporalAA
	gizmo    *Gizmo
	present  *Present
	capture  *Capture
}

func newPipeline(t *testing.T, ctx *gfx.Context) *pipeline {
	t.Helper()
	p := &pipeline{scene: NewScene(), capture: NewCapture()}
	var err error
	must := func() {
		t.Helper()
		if err != nil {
			t.Fatalf("creating pass failed: %v", err)
		}
	}
	p.raytrace, err = NewRaytrace(ctx, p.scene)
	must()
	p.ssao, err = NewSSAO(ctx)
	must()
	p.camera, err = NewCamera(ctx)
	must()
	p.lighting, err = NewGlobalLighting(ctx, p.scene)
	must()
	p.temporal, err = NewTemporal(ctx, p.scene, "")
	must()
	p.taa, err = NewTemporalAA(ctx)
	must()
	p.gizmo, err = NewGizmo(ctx)
	must()
	p.present, err = NewPresent(ctx)
	must()
	return p
}

func (p *pipeline) destroy() {
	p.raytrace.Destroy()
	p.ssao.Destroy()
	p.camera.Destroy()
	p.lighting.Destroy()
	p.temporal.Destroy()
	p.taa.Destroy()
	p.gizmo.Destroy()
	p.present.Destroy()
}

// declare builds the full pass list and returns the presented and captured
// sinks and the history descriptor.
func (p *pipeline) declare(w, h uint32) (List, framegraph.ResourceInfo[*gfx.Context], framegraph.ResourceInfo[*gfx.Context], *texture.HistoryInfo) {
	var l List
	g1 := p.raytrace.Setup(w, h, &l)
	ao := p.ssao.Setup(g1, &l)
	cam := p.camera.Setup(w, h, &l)
	lit := p.lighting.Setup(g1, ao, cam, &l)
	reprojected, chain := p.temporal.Reproject(g1, texture.RGBA8, &l)
	aa := p.taa.Setup(lit, reprojected, &l)
	saved := p.temporal.Save(aa, chain, &l)
	final := p.gizmo.Setup(g1, saved, &l)
	shown := p.present.Setup(final, &l)
	captured := p.capture.Setup(final, &l)
	return l, shown, captured, chain
}

func renderFrame(t *testing.T, ctx *gfx.Context, s *framegraph.Scheduler[*gfx.Context]) {
	t.Helper()
	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	if err := s.Render(); err != nil {
		ctx.AbortFrame()
		t.Fatalf("Render failed: %v", err)
	}
	if err := ctx.EndFrame(); err != nil {
		t.Fatalf("EndFrame failed: %v", err)
	}
}

func TestFullPipeline(t *testing.T) {
	device, queue := gputest.Open(t)
	ctx := gfx.NewContext(device, queue)
	p := newPipeline(t, ctx)

	queue.ReadBack = func(data []byte) {
		for i := range data {
			data[i] = 0x7f
		}
	}

	s := framegraph.New(ctx)
	l, shown, captured, chain := p.declare(8, 4)
	if err := s.Setup(l, finals{shown, captured}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	want := []string{
		"Raytrace",
		"SSAO",
		"SSAO Bilateral horizontal",
		"SSAO Bilateral vertical",
		"Camera",
		"Global Lighting",
		"Reproject",
		"TXAA",
		"Save Reprojection Buffer",
		"Gizmos",
		"Present",
		"Capture",
	}
	if got := s.Order(); !slices.Equal(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
	if !slices.Equal(l.Names(), want) {
		t.Errorf("Names = %v", l.Names())
	}
	if n := len(s.Culled()); n != 0 {
		t.Errorf("Culled = %v, want none", s.Culled())
	}

	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	frame.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	p.camera.SetImage(frame)
	history := s.Assignment(chain).(*texture.History)
	for range 3 {
		renderFrame(t, ctx, s)
	}
	if !history.Valid() {
		t.Error("history not valid after submitted frames")
	}
	if history.ViewProjection() != p.scene.ViewProjection {
		t.Error("history did not record the view-projection matrix")
	}
	if queue.Submits() != 3 {
		t.Errorf("Submits = %d, want 3", queue.Submits())
	}

	img := p.capture.Image()
	if img == nil {
		t.Fatal("no captured image")
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Errorf("captured bounds = %v, want 8x4", img.Bounds())
	}
	if got := img.RGBAAt(7, 3); got != (color.RGBA{0x7f, 0x7f, 0x7f, 0x7f}) {
		t.Errorf("captured pixel = %v", got)
	}
	if p.capture.Frame() != 2 {
		t.Errorf("captured frame = %d, want 2", p.capture.Frame())
	}

	s.ReleaseAll()
	p.destroy()
	if n := device.LiveTotal(); n != 0 {
		t.Errorf("live objects after release = %d, want 0", n)
	}
}

func TestCaptureCulledWhenNotRequested(t *testing.T) {
	device, queue := gputest.Open(t)
	ctx := gfx.NewContext(device, queue)
	p := newPipeline(t, ctx)
	defer p.destroy()

	s := framegraph.New(ctx)
	defer s.ReleaseAll()
	l, shown, _, _ := p.declare(8, 8)
	if err := s.Setup(l, finals{shown}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if got := s.Culled(); !slices.Equal(got, []string{"Capture"}) {
		t.Errorf("Culled = %v, want [Capture]", got)
	}
	renderFrame(t, ctx, s)
	if p.capture.Image() != nil {
		t.Error("culled capture produced an image")
	}
}

func TestHistoryValidOnlyAfterSubmit(t *testing.T) {
	device, queue := gputest.Open(t)
	ctx := gfx.NewContext(device, queue)
	p := newPipeline(t, ctx)
	defer p.destroy()

	s := framegraph.New(ctx)
	defer s.ReleaseAll()
	l, shown, _, chain := p.declare(4, 4)
	if err := s.Setup(l, finals{shown}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	history := s.Assignment(chain).(*texture.History)

	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	if err := s.Render(); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	ctx.AbortFrame()
	if history.Valid() {
		t.Error("history valid after an aborted frame")
	}

	renderFrame(t, ctx, s)
	if !history.Valid() {
		t.Error("history not valid after a submitted frame")
	}

	// A rebuild with the same size keeps the history.
	l, shown, _, chain = p.declare(4, 4)
	if err := s.Setup(l, finals{shown}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if got := s.Assignment(chain); got != history {
		t.Error("history not carried over the rebuild")
	}
}

func TestLightingWithoutOptionalInputs(t *testing.T) {
	device, queue := gputest.Open(t)
	ctx := gfx.NewContext(device, queue)
	scene := NewScene()

	raytrace, err := NewRaytrace(ctx, scene)
	if err != nil {
		t.Fatalf("NewRaytrace failed: %v", err)
	}
	defer raytrace.Destroy()
	lighting, err := NewGlobalLighting(ctx, scene)
	if err != nil {
		t.Fatalf("NewGlobalLighting failed: %v", err)
	}
	defer lighting.Destroy()
	present, err := NewPresent(ctx)
	if err != nil {
		t.Fatalf("NewPresent failed: %v", err)
	}
	defer present.Destroy()

	var l List
	g1 := raytrace.Setup(16, 16, &l)
	lit := lighting.Setup(g1, nil, nil, &l)
	shown := present.Setup(lit, &l)

	s := framegraph.New(ctx)
	defer s.ReleaseAll()
	if err := s.Setup(l, finals{shown}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	renderFrame(t, ctx, s)
	if got := s.Order(); !slices.Equal(got, []string{"Raytrace", "Global Lighting", "Present"}) {
		t.Errorf("Order = %v", got)
	}
}

func TestCameraUpload(t *testing.T) {
	device, queue := gputest.Open(t)
	ctx := gfx.NewContext(device, queue)
	camera, err := NewCamera(ctx)
	if err != nil {
		t.Fatalf("NewCamera failed: %v", err)
	}
	defer camera.Destroy()

	var l List
	img := camera.Setup(6, 4, &l)
	s := framegraph.New(ctx)
	if err := s.Setup(l, finals{img}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if !camera.dirty {
		t.Error("new camera operator must upload its first frame")
	}
	renderFrame(t, ctx, s)
	if camera.dirty {
		t.Error("frame was not uploaded")
	}

	camera.SetImage(image.NewRGBA(image.Rect(0, 0, 12, 8)))
	if !camera.dirty {
		t.Error("SetImage did not mark the frame dirty")
	}
	renderFrame(t, ctx, s)
	if camera.dirty {
		t.Error("frame was not uploaded")
	}

	s.ReleaseAll()
	if n := device.Live("texture"); n != 0 {
		t.Errorf("live textures = %d after release, want 0", n)
	}
}

func TestCaptureRejectsFloatImage(t *testing.T) {
	device, queue := gputest.Open(t)
	ctx := gfx.NewContext(device, queue)
	scene := NewScene()
	raytrace, err := NewRaytrace(ctx, scene)
	if err != nil {
		t.Fatalf("NewRaytrace failed: %v", err)
	}
	defer raytrace.Destroy()

	var l List
	g1 := raytrace.Setup(4, 4, &l)
	captured := NewCapture().Setup(g1, &l)

	s := framegraph.New(ctx)
	err = s.Setup(l, finals{captured})
	if !errors.Is(err, ErrCaptureFormat) {
		t.Fatalf("Setup = %v, want ErrCaptureFormat", err)
	}
	var pe *framegraph.PassError
	if !errors.As(err, &pe) || pe.Pass != "Capture" {
		t.Errorf("error %v does not name the Capture pass", err)
	}
	if s.Planned() {
		t.Error("failed setup left a schedule")
	}
	if n := device.Live("texture"); n != 0 {
		t.Errorf("live textures = %d after failed setup, want 0", n)
	}
}

func TestUniforms(t *testing.T) {
	var u uniforms
	b := u.vec4(1, 2, 3, 4).mat4(Identity).bytes()
	if len(b) != 80 {
		t.Fatalf("len = %d, want 80", len(b))
	}
	// 1.0f little-endian
	if !slices.Equal(b[:4], []byte{0, 0, 0x80, 0x3f}) {
		t.Errorf("first float = %x", b[:4])
	}
}

func TestSubmitCallbacksDoNotAllocate(t *testing.T) {
	device, queue := gputest.Open(t)
	ctx := gfx.NewContext(device, queue)
	scene := NewScene()

	src, err := texture.New(device, "src", 4, 2, texture.RGBA8)
	if err != nil {
		t.Fatalf("texture.New failed: %v", err)
	}
	defer src.Dispose()
	history := &texture.History{Texture: src}
	save := newSaveOp(&Temporal{scene: scene}, nil, history, src, true)
	capture := newCaptureOp(NewCapture(), ctx, src, nil, 16, copyPitchAlignment)

	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	allocs := testing.AllocsPerRun(100, func() {
		save.submit(ctx)
		capture.submit(ctx)
	})
	ctx.AbortFrame()
	if allocs != 0 {
		t.Errorf("registering submit callbacks allocates %v times per frame", allocs)
	}
	if history.Valid() {
		t.Error("aborted frame validated the history")
	}

	// The stored camera is the one of the recorded frame.
	scene.ViewProjection[12] = 3
	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	save.submit(ctx)
	scene.ViewProjection[12] = 7
	if err := ctx.EndFrame(); err != nil {
		t.Fatalf("EndFrame failed: %v", err)
	}
	if !history.Valid() {
		t.Fatal("history not valid after submit")
	}
	if got := history.ViewProjection()[12]; got != 3 {
		t.Errorf("stored translation = %v, want 3", got)
	}
}
