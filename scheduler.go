// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"strings"
)

// Stats summarizes the current schedule.
type Stats struct {
	// Passes is the number of scheduled passes.
	Passes int

	// Culled is the number of declared passes removed by dead-output elimination.
	Culled int

	// Logical is the number of materialized descriptors.
	Logical int

	// Physical is the number of physical resources backing them.
	Physical int

	// Aliased is the number of bindings satisfied in place.
	Aliased int

	// Reused is the number of physical resources carried over from the
	// previous schedule instead of being created.
	Reused int

	// PeakCost is the largest total cost of pooled resources in use at any
	// schedule position.
	PeakCost int64

	// TotalCost is the cost of all physical resources held by the schedule.
	TotalCost int64
}

// String returns a one-line summary of the stats.
func (s Stats) String() string {
	return fmt.Sprintf("Schedule[%d passes, %d culled, %d logical -> %d physical, %d aliased, %d reused, peak %d, total %d]",
		s.Passes, s.Culled, s.Logical, s.Physical, s.Aliased, s.Reused, s.PeakCost, s.TotalCost)
}

// plan is one committed schedule.
type plan[C any] struct {
	g  *graph[C]
	lt *lifetimes[C]

	// assign maps every materialized descriptor to its physical resource.
	assign map[ResourceInfo[C]]*physical[C]

	// physicals lists the distinct physical resources in first-use order.
	physicals []*physical[C]

	// ops is parallel to g.order.
	ops []Operator[C]

	stats Stats
}

// physicalID returns the index of ph within the plan, or -1.
func (p *plan[C]) physicalID(ph *physical[C]) int {
	for i, x := range p.physicals {
		if x == ph {
			return i
		}
	}
	return -1
}

// Scheduler turns a declarative list of passes into an ordered schedule of
// operators backed by aliased physical resources, and replays it every frame.
//
// A Scheduler starts unconfigured. Setup plans a schedule, Render replays it
// and ReleaseAll returns to the unconfigured state. Re-planning only happens
// when the caller calls Setup again.
//
// Scheduler is not safe for concurrent use. All methods must be called from
// the goroutine that owns the GPU context.
type Scheduler[C any] struct {
	ctx  C
	opts options
	cur  *plan[C]
}

// New returns an unconfigured scheduler. ctx is the GPU context capability
// handed to every descriptor's Create, every Builder and every Operator.
func New[C any](ctx C, opts ...Option) *Scheduler[C] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Scheduler[C]{ctx: ctx, opts: o}
}

// Context returns the GPU context capability the scheduler was created with.
func (s *Scheduler[C]) Context() C { return s.ctx }

// Setup plans a schedule for passes producing finals and builds its
// operators.
//
// Configuration errors (*ConfigError, *CycleError) are detected before any
// resource is created. If creating a resource or building an operator
// fails, everything created by this call is disposed and the previous
// schedule, if any, stays in place and usable.
//
// On success the previous schedule's operators are disposed, together with
// the physical resources the new schedule does not reuse.
func (s *Scheduler[C]) Setup(passes []Pass[C], finals []ResourceInfo[C]) error {
	g, err := resolve(passes, finals)
	if err != nil {
		return err
	}
	lt := analyzeLifetimes(g)

	next, pl, err := s.allocate(g, lt)
	if err != nil {
		return err
	}
	if err := s.build(next); err != nil {
		pl.rollback()
		return err
	}

	s.commit(next)
	s.logPlan(next)
	return nil
}

// allocate assigns a physical resource to every materialized descriptor, in
// schedule order. On error, resources created so far are already disposed.
func (s *Scheduler[C]) allocate(g *graph[C], lt *lifetimes[C]) (*plan[C], *pool[C], error) {
	pl := newPool(s.ctx, s.opts.budget)
	carry := make(map[string]*physical[C])
	if prev := s.cur; prev != nil {
		if s.opts.retain {
			pl.seed(prev.physicals)
		}
		for _, ph := range prev.physicals {
			if ph.storage != StoragePersistent {
				continue
			}
			if k, ok := ph.created.(Keyed); ok && k.PersistentKey() != "" {
				carry[k.PersistentKey()] = ph
			}
		}
	}

	next := &plan[C]{
		g:      g,
		lt:     lt,
		assign: make(map[ResourceInfo[C]]*physical[C]),
	}
	use := func(info ResourceInfo[C], ph *physical[C]) {
		if next.physicalID(ph) < 0 {
			next.physicals = append(next.physicals, ph)
		}
		next.assign[info] = ph
	}

	fail := func(err error) (*plan[C], *pool[C], error) {
		pl.rollback()
		return nil, nil, err
	}

	for pos, pi := range g.order {
		p := &g.passes[pi]
		for _, out := range p.Outputs {
			if !g.materialized(out) {
				continue
			}
			info := out.Info
			switch info.Storage() {
			case StoragePooled:
				if in, ok := lt.aliasOf[info]; ok {
					ph := next.assign[in]
					pl.handOver(ph, info)
					use(info, ph)
					continue
				}
				ph, err := pl.acquire(info)
				if err != nil {
					return fail(&PassError{Pass: p.Name, Err: err})
				}
				use(info, ph)

			case StoragePersistent:
				ph, err := s.persistent(pl, carry, info)
				if err != nil {
					return fail(&PassError{Pass: p.Name, Err: err})
				}
				use(info, ph)

			default:
				ph, err := pl.create(info, StorageNone)
				if err != nil {
					return fail(&PassError{Pass: p.Name, Err: err})
				}
				use(info, ph)
			}
		}
		for _, info := range lt.endsAt[pos] {
			pl.release(next.assign[info], info)
		}
	}

	next.stats = Stats{
		Passes:    len(g.order),
		Culled:    len(g.passes) - len(g.order),
		Logical:   len(next.assign),
		Physical:  len(next.physicals),
		Aliased:   len(lt.aliasOf),
		PeakCost:  pl.peak,
		TotalCost: pl.total,
	}
	for _, ph := range next.physicals {
		if !pl.isNew(ph) {
			next.stats.Reused++
		}
	}
	return next, pl, nil
}

// persistent returns the physical resource for a persistent descriptor,
// carrying one over from the previous schedule when its key matches and the
// descriptors can merge.
func (s *Scheduler[C]) persistent(pl *pool[C], carry map[string]*physical[C], info ResourceInfo[C]) (*physical[C], error) {
	if k, ok := info.(Keyed); ok && k.PersistentKey() != "" {
		if ph, ok := carry[k.PersistentKey()]; ok && ph.mergeable(info) {
			delete(carry, k.PersistentKey())
			if err := pl.adopt(ph); err != nil {
				return nil, err
			}
			return ph, nil
		}
	}
	return pl.create(info, StoragePersistent)
}

// build constructs the operators of next in schedule order. On error the
// operators built so far are disposed in reverse order.
func (s *Scheduler[C]) build(next *plan[C]) error {
	g := next.g
	next.ops = make([]Operator[C], 0, len(g.order))
	for _, pi := range g.order {
		p := &g.passes[pi]
		r := &Resolved{
			pass:    p.Name,
			inputs:  make(map[string]Resource, len(p.Inputs)),
			outputs: make(map[string]Resource, len(p.Outputs)),
		}
		for _, in := range p.Inputs {
			r.inputs[in.Name] = next.assign[in.Info].res
		}
		for _, out := range p.Outputs {
			if ph, ok := next.assign[out.Info]; ok {
				r.outputs[out.Name] = ph.res
			} else {
				r.outputs[out.Name] = nil
			}
		}

		op, err := p.Builder.Build(s.ctx, r)
		if err == nil && op == nil {
			err = ErrNilOperator
		}
		if err != nil {
			disposeOps(next.ops)
			next.ops = nil
			return &PassError{Pass: p.Name, Err: err}
		}
		next.ops = append(next.ops, op)
	}
	return nil
}

// commit replaces the current schedule with next and disposes what next
// does not reuse.
func (s *Scheduler[C]) commit(next *plan[C]) {
	prev := s.cur
	s.cur = next
	if prev == nil {
		return
	}
	disposeOps(prev.ops)
	for i := len(prev.physicals) - 1; i >= 0; i-- {
		ph := prev.physicals[i]
		if next.physicalID(ph) < 0 {
			ph.res.Dispose()
		}
	}
}

// Render replays the schedule once: BeforeRender for every operator in
// order, then Perform, then AfterRender. It allocates nothing.
//
// The first Perform error stops the frame and is returned as a *PassError;
// AfterRender is not called for that frame. The schedule stays valid.
//
// Render panics if no schedule has been set up.
func (s *Scheduler[C]) Render() error {
	cur := s.cur
	if cur == nil {
		panic(ErrNotPlanned)
	}
	for _, op := range cur.ops {
		op.BeforeRender(s.ctx)
	}
	for i, op := range cur.ops {
		if err := op.Perform(s.ctx); err != nil {
			return &PassError{Pass: cur.g.passes[cur.g.order[i]].Name, Err: err}
		}
	}
	for _, op := range cur.ops {
		op.AfterRender(s.ctx)
	}
	return nil
}

// ReleaseAll disposes every operator and physical resource and returns the
// scheduler to the unconfigured state. It is safe to call more than once.
func (s *Scheduler[C]) ReleaseAll() {
	cur := s.cur
	if cur == nil {
		return
	}
	s.cur = nil
	disposeOps(cur.ops)
	for i := len(cur.physicals) - 1; i >= 0; i-- {
		cur.physicals[i].res.Dispose()
	}
	Logger().Debug("framegraph: released schedule",
		"passes", len(cur.ops), "physical", len(cur.physicals))
}

// Planned reports whether the scheduler holds a schedule.
func (s *Scheduler[C]) Planned() bool { return s.cur != nil }

// Stats returns statistics about the current schedule, or zero stats when
// none is planned.
func (s *Scheduler[C]) Stats() Stats {
	if s.cur == nil {
		return Stats{}
	}
	return s.cur.stats
}

// Order returns the names of the scheduled passes in execution order.
func (s *Scheduler[C]) Order() []string {
	if s.cur == nil {
		return nil
	}
	names := make([]string, len(s.cur.g.order))
	for i, pi := range s.cur.g.order {
		names[i] = s.cur.g.passes[pi].Name
	}
	return names
}

// Culled returns the names of the declared passes that were not scheduled.
func (s *Scheduler[C]) Culled() []string {
	if s.cur == nil {
		return nil
	}
	return s.cur.g.culled()
}

// Assignment returns the physical resource assigned to info in the current
// schedule, or nil if info is not materialized.
func (s *Scheduler[C]) Assignment(info ResourceInfo[C]) Resource {
	if s.cur == nil {
		return nil
	}
	ph, ok := s.cur.assign[info]
	if !ok {
		return nil
	}
	return ph.res
}

// logPlan logs the schedule summary and, at debug level, its dependency
// graph in DOT form.
func (s *Scheduler[C]) logPlan(p *plan[C]) {
	if !debugEnabled() {
		return
	}
	var sb strings.Builder
	_ = writeDot(&sb, p.g, p)
	Logger().Debug("framegraph: planned schedule",
		"order", strings.Join(s.Order(), " > "),
		"stats", p.stats.String(),
		"ignoredBindings", p.lt.ignored)
	Logger().Debug("framegraph: dependency graph", "dot", sb.String())
}

func disposeOps[C any](ops []Operator[C]) {
	for i := len(ops) - 1; i >= 0; i-- {
		ops[i].Dispose()
	}
}
