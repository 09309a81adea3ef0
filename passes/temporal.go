// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/texture"
)

// HistoryKey is the persistent key of the reprojection history.
const HistoryKey = "reprojection"

// Temporal reprojects the previous frame onto the current camera and keeps
// the reprojection history.
//
// A frame is reprojected with Reproject, processed, and finally stored with
// Save using the history descriptor Reproject returned. The history of a
// frame becomes valid once its commands have been submitted.
type Temporal struct {
	reproject *gfx.Program
	blit      *gfx.Program
	scene     *Scene
	key       string
}

// NewTemporal compiles the reprojection programs. An empty key selects
// HistoryKey.
func NewTemporal(ctx *gfx.Context, scene *Scene, key string) (*Temporal, error) {
	if key == "" {
		key = HistoryKey
	}
	reproject, err := newProgram(ctx, "reproject", 2, 144)
	if err != nil {
		return nil, err
	}
	blit, err := newProgram(ctx, "blit", 1, 0)
	if err != nil {
		reproject.Destroy()
		return nil, err
	}
	return &Temporal{reproject: reproject, blit: blit, scene: scene, key: key}, nil
}

// Reproject declares the reprojection pass. It returns the reprojected
// image, whose alpha is zero where the history has no data, and the
// history descriptor to hand to Save.
func (p *Temporal) Reproject(g1 *texture.Info, format texture.Format, l *List) (*texture.Info, *texture.HistoryInfo) {
	w, h := g1.Width(), g1.Height()
	reprojected := texture.NewInfo("Reprojected", w, h, format)
	chain := texture.NewHistoryInfo("Chain", p.key, w, h, format)
	l.add(pass{
		Name:    "Reproject",
		Inputs:  []inputSlot{in("g1", g1)},
		Outputs: []outputSlot{out("reprojected", reprojected), out("chain", chain)},
		Builder: build(func(_ *gfx.Context, r *framegraph.Resolved) (operator, error) {
			history := framegraph.OutputAs[*texture.History](r, "chain")
			op, err := newDrawOp(p.reproject,
				framegraph.OutputAs[*texture.Texture](r, "reprojected"),
				framegraph.InputAs[*texture.Texture](r, "g1"),
				history.Texture)
			if err != nil {
				return nil, err
			}
			op.params = func() []byte {
				var u uniforms
				return u.mat4(p.scene.InverseViewProjection).
					mat4(history.ViewProjection()).
					vec4(float32(w), float32(h), 0, 0).
					bytes()
			}
			return &reprojectOp{drawOp: op, history: history}, nil
		}),
	})
	return reprojected, chain
}

type reprojectOp struct {
	*drawOp
	history *texture.History
}

func (o *reprojectOp) Perform(ctx *gfx.Context) error {
	if !o.history.Valid() {
		gfx.Clear(ctx.Encoder(), o.target.View())
		return nil
	}
	return o.drawOp.Perform(ctx)
}

// Save declares the pass storing input into the history. Its output is a
// copy of input; the copy is skipped when the scheduler runs it in place.
func (p *Temporal) Save(input *texture.Info, chain *texture.HistoryInfo, l *List) *texture.Info {
	saved := texture.NewInfo(input.Name()+" (Saved)", input.Width(), input.Height(), input.Format())
	l.add(pass{
		Name:     "Save Reprojection Buffer",
		Inputs:   []inputSlot{in("input", input), in("chain", chain)},
		Outputs:  []outputSlot{out("output", saved)},
		Bindings: []framegraph.Binding{{Input: "input", Output: "output"}},
		Builder: build(func(_ *gfx.Context, r *framegraph.Resolved) (operator, error) {
			src := framegraph.InputAs[*texture.Texture](r, "input")
			bind, err := p.blit.Bind(src.View())
			if err != nil {
				return nil, err
			}
			return newSaveOp(p, bind,
				framegraph.InputAs[*texture.History](r, "chain"),
				framegraph.OutputAs[*texture.Texture](r, "output"),
				r.InPlace("input", "output")), nil
		}),
	})
	return saved
}

type saveOp struct {
	framegraph.NopHooks[*gfx.Context]

	temporal *Temporal
	bind     *gfx.Bindings
	history  *texture.History
	output   *texture.Texture
	inPlace  bool

	// viewProj is the camera of the frame in flight, stored into the
	// history once the frame is submitted.
	viewProj    [16]float32
	onSubmitted func()
}

func newSaveOp(t *Temporal, bind *gfx.Bindings, history *texture.History, output *texture.Texture, inPlace bool) *saveOp {
	o := &saveOp{temporal: t, bind: bind, history: history, output: output, inPlace: inPlace}
	o.onSubmitted = o.store
	return o
}

func (o *saveOp) Perform(ctx *gfx.Context) error {
	blit := o.temporal.blit
	enc := ctx.Encoder()
	if err := blit.Draw(enc, o.history.View(), o.history.GPUFormat(), o.bind, true); err != nil {
		return err
	}
	if !o.inPlace {
		if err := blit.Draw(enc, o.output.View(), o.output.GPUFormat(), o.bind, true); err != nil {
			return err
		}
	}
	o.submit(ctx)
	return nil
}

// submit schedules the history update for when the frame completes.
func (o *saveOp) submit(ctx *gfx.Context) {
	o.viewProj = o.temporal.scene.ViewProjection
	ctx.OnSubmitted(o.onSubmitted)
}

func (o *saveOp) store() { o.history.Store(o.viewProj) }

func (o *saveOp) Dispose() { o.bind.Destroy() }

// Destroy releases the programs.
func (p *Temporal) Destroy() {
	p.reproject.Destroy()
	p.blit.Destroy()
}
