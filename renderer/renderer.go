// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package renderer drives the frame graph of a raytraced scene: it declares
// the passes selected by a Config, replans the schedule whenever the
// structure of the frame changes, and renders frames.
//
// Usage:
//
//	r, err := renderer.New(ctx, renderer.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer r.Dispose()
//	for running {
//		r.Scene().SetCamera(viewProj, inverse)
//		if err := r.Render(); err != nil {
//			return err
//		}
//	}
package renderer

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/passes"
	"github.com/gogpu/framegraph/texture"
)

// Renderer errors.
var (
	// ErrNoSchedule is returned by Render when no schedule could be planned.
	ErrNoSchedule = errors.New("renderer: no schedule")

	// ErrDisposed is returned by Render after Dispose.
	ErrDisposed = errors.New("renderer: disposed")
)

// structure is everything that changes the pass list.
type structure struct {
	width, height uint32

	ssao    bool
	taa     bool
	gizmos  bool
	ar      bool
	capture bool
}

// reduced returns the structure with the optional effects turned off, and
// false if nothing can be turned off.
func (s structure) reduced() (structure, bool) {
	if !s.ssao && !s.taa {
		return s, false
	}
	s.ssao, s.taa = false, false
	return s, true
}

// Renderer owns a scheduler and the passes of a scene.
//
// Render, Dispose and the accessors of the schedule must be called from the
// goroutine owning the GPU context. SetConfig, SetCameraImage and Config
// may be called from any goroutine.
type Renderer struct {
	ctx       *gfx.Context
	scheduler *framegraph.Scheduler[*gfx.Context]
	scene     *passes.Scene

	raytrace *passes.Raytrace
	ssao     *passes.SSAO
	camera   *passes.Camera
	lighting *passes.GlobalLighting
	temporal *passes.Temporal
	taa      *passes.TemporalAA
	gizmo    *passes.Gizmo
	present  *passes.Present
	capture  *passes.Capture

	mu  sync.Mutex
	cfg Config

	// requested is the structure of the last Setup attempt, built the
	// structure of the current schedule.
	requested *structure
	built     *structure
	passes    passes.List
	reduced   bool

	disposed bool
}

// New creates the passes of a renderer on ctx. The schedule is planned by
// the first Render.
func New(ctx *gfx.Context, cfg Config) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Renderer{
		ctx: ctx,
		scheduler: framegraph.New(ctx,
			framegraph.WithCostBudget(cfg.CostBudget),
			framegraph.WithRetainResources(cfg.RetainResources),
		),
		scene:   passes.NewScene(),
		capture: passes.NewCapture(),
		cfg:     cfg,
	}
	if err := r.createPasses(cfg.HistoryKey); err != nil {
		r.destroyPasses()
		return nil, err
	}
	slogger().Info("renderer: created", "size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	return r, nil
}

func (r *Renderer) createPasses(historyKey string) error {
	var err error
	if r.raytrace, err = passes.NewRaytrace(r.ctx, r.scene); err != nil {
		return err
	}
	if r.ssao, err = passes.NewSSAO(r.ctx); err != nil {
		return err
	}
	if r.camera, err = passes.NewCamera(r.ctx); err != nil {
		return err
	}
	if r.lighting, err = passes.NewGlobalLighting(r.ctx, r.scene); err != nil {
		return err
	}
	if r.temporal, err = passes.NewTemporal(r.ctx, r.scene, historyKey); err != nil {
		return err
	}
	if r.taa, err = passes.NewTemporalAA(r.ctx); err != nil {
		return err
	}
	if r.gizmo, err = passes.NewGizmo(r.ctx); err != nil {
		return err
	}
	r.present, err = passes.NewPresent(r.ctx)
	return err
}

func (r *Renderer) destroyPasses() {
	if r.raytrace != nil {
		r.raytrace.Destroy()
	}
	if r.ssao != nil {
		r.ssao.Destroy()
	}
	if r.camera != nil {
		r.camera.Destroy()
	}
	if r.lighting != nil {
		r.lighting.Destroy()
	}
	if r.temporal != nil {
		r.temporal.Destroy()
	}
	if r.taa != nil {
		r.taa.Destroy()
	}
	if r.gizmo != nil {
		r.gizmo.Destroy()
	}
	if r.present != nil {
		r.present.Destroy()
	}
}

// Scene returns the scene state read by the passes.
func (r *Renderer) Scene() *passes.Scene { return r.scene }

// Config returns the current configuration.
func (r *Renderer) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// SetConfig replaces the configuration. Structural changes are applied by
// the next Render. CostBudget, RetainResources and HistoryKey keep the
// values given to New.
func (r *Renderer) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	return nil
}

// SetCameraImage sets the camera frame shown as background in AR mode.
func (r *Renderer) SetCameraImage(img image.Image) { r.camera.SetImage(img) }

// wanted returns the structure the next frame should have.
func (r *Renderer) wanted() structure {
	r.mu.Lock()
	cfg := r.cfg
	r.mu.Unlock()

	s := structure{
		width:   cfg.Width,
		height:  cfg.Height,
		ssao:    cfg.SSAO,
		taa:     cfg.TAA,
		gizmos:  cfg.Gizmos,
		ar:      cfg.AR,
		capture: cfg.Capture,
	}
	if view, w, h := r.ctx.Surface(); view != nil && w > 0 && h > 0 {
		s.width, s.height = w, h
	}
	return s
}

// Render renders one frame, replanning the schedule first if the structure
// of the frame changed.
//
// A failed replan keeps the previous schedule, which goes on rendering;
// the error is returned once and the same structure is not retried until
// it changes again.
func (r *Renderer) Render() error {
	if r.disposed {
		return ErrDisposed
	}
	var setupErr error
	if s := r.wanted(); r.requested == nil || *r.requested != s {
		r.requested = &s
		setupErr = r.compile(s)
	}
	if !r.scheduler.Planned() {
		return errors.Join(ErrNoSchedule, setupErr)
	}

	if err := r.ctx.BeginFrame(); err != nil {
		return errors.Join(setupErr, err)
	}
	if err := r.scheduler.Render(); err != nil {
		r.ctx.AbortFrame()
		return errors.Join(setupErr, err)
	}
	return errors.Join(setupErr, r.ctx.EndFrame())
}

// compile plans a schedule for s. When that fails and s has optional
// effects, it retries once without them.
func (r *Renderer) compile(s structure) error {
	err := r.setup(s)
	if err == nil {
		r.reduced = false
		return nil
	}
	reduced, ok := s.reduced()
	if !ok {
		slogger().Warn("renderer: setup failed", "err", err)
		return err
	}
	slogger().Warn("renderer: setup failed, retrying without SSAO and TAA", "err", err)
	if retryErr := r.setup(reduced); retryErr != nil {
		return errors.Join(err, retryErr)
	}
	r.reduced = true
	return nil
}

func (r *Renderer) setup(s structure) error {
	l, finals := r.declare(s)
	if err := r.scheduler.Setup(l, finals); err != nil {
		return err
	}
	r.built = &s
	r.passes = l
	slogger().Debug("renderer: schedule planned",
		"size", fmt.Sprintf("%dx%d", s.width, s.height),
		"stats", r.scheduler.Stats().String())
	return nil
}

// declare returns the pass list of s and its final outputs.
func (r *Renderer) declare(s structure) (passes.List, []framegraph.ResourceInfo[*gfx.Context]) {
	var l passes.List
	g1 := r.raytrace.Setup(s.width, s.height, &l)

	var ao, cam *texture.Info
	if s.ssao {
		ao = r.ssao.Setup(g1, &l)
	}
	if s.ar {
		cam = r.camera.Setup(s.width, s.height, &l)
	}
	img := r.lighting.Setup(g1, ao, cam, &l)

	if s.taa {
		reprojected, chain := r.temporal.Reproject(g1, texture.RGBA8, &l)
		img = r.taa.Setup(img, reprojected, &l)
		img = r.temporal.Save(img, chain, &l)
	}
	if s.gizmos {
		img = r.gizmo.Setup(g1, img, &l)
	}

	finals := []framegraph.ResourceInfo[*gfx.Context]{r.present.Setup(img, &l)}
	captured := r.capture.Setup(img, &l)
	if s.capture {
		finals = append(finals, captured)
	}
	return l, finals
}

// Size returns the frame size of the current schedule, or zeros when no
// schedule is planned.
func (r *Renderer) Size() (width, height uint32) {
	if r.built == nil {
		return 0, 0
	}
	return r.built.width, r.built.height
}

// Capture returns the image read back by the last captured frame, or nil.
func (r *Renderer) Capture() *image.RGBA { return r.capture.Image() }

// Stats returns the statistics of the current schedule.
func (r *Renderer) Stats() framegraph.Stats { return r.scheduler.Stats() }

// Order returns the scheduled pass names in execution order.
func (r *Renderer) Order() []string { return r.scheduler.Order() }

// Reduced reports whether the current schedule runs without the SSAO and
// TAA passes the configuration asks for.
func (r *Renderer) Reduced() bool { return r.reduced }

// WriteDot writes the dependency graph of the current schedule in Graphviz
// DOT form.
func (r *Renderer) WriteDot(w io.Writer) error { return r.scheduler.WriteDot(w) }

// DumpDot returns the dependency graph of the declared passes, including
// the culled ones, in Graphviz DOT form.
func (r *Renderer) DumpDot() string { return framegraph.DumpDot(r.passes) }

// Dispose releases the schedule and every pass. Safe to call more than once.
func (r *Renderer) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	r.scheduler.ReleaseAll()
	r.destroyPasses()
	r.built, r.requested, r.passes, r.reduced = nil, nil, nil, false
}
