// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"container/heap"
	"slices"
)

// slotRef locates an output slot: pass index and output index within it.
type slotRef struct {
	pass int
	slot int
}

// graph is the resolved dependency graph of a pass declaration set.
// Pass indices are declaration indices into passes.
type graph[C any] struct {
	passes []Pass[C]
	finals []ResourceInfo[C]

	producer map[ResourceInfo[C]]slotRef
	isFinal  map[ResourceInfo[C]]bool

	// needed marks the descriptors some live pass or the caller needs.
	needed map[ResourceInfo[C]]bool

	// live marks passes that survive dead-output elimination.
	live []bool

	// order holds live pass indices in schedule order.
	order []int

	// position maps a pass index to its schedule position, or -1.
	position []int
}

// resolve validates the declarations, eliminates dead passes and computes a
// topological order. It performs no allocation of physical resources.
func resolve[C any](passes []Pass[C], finals []ResourceInfo[C]) (*graph[C], error) {
	g := &graph[C]{
		passes:   passes,
		finals:   finals,
		producer: make(map[ResourceInfo[C]]slotRef),
		isFinal:  make(map[ResourceInfo[C]]bool, len(finals)),
		needed:   make(map[ResourceInfo[C]]bool),
		live:     make([]bool, len(passes)),
		position: make([]int, len(passes)),
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	if err := g.eliminateDeadPasses(); err != nil {
		return nil, err
	}
	if err := g.sort(); err != nil {
		return nil, err
	}
	return g, nil
}

// validate checks slot names, descriptors, bindings and producers.
func (g *graph[C]) validate() error {
	for pi := range g.passes {
		p := &g.passes[pi]

		inputs := make(map[string]bool, len(p.Inputs))
		for _, in := range p.Inputs {
			if in.Info == nil {
				return &ConfigError{Pass: p.Name, Slot: in.Name, Err: ErrNilResource}
			}
			if inputs[in.Name] {
				return &ConfigError{Pass: p.Name, Slot: in.Name, Err: ErrDuplicateSlot}
			}
			inputs[in.Name] = true
		}

		outputs := make(map[string]bool, len(p.Outputs))
		for oi, out := range p.Outputs {
			if out.Info == nil {
				return &ConfigError{Pass: p.Name, Slot: out.Name, Err: ErrNilResource}
			}
			if outputs[out.Name] {
				return &ConfigError{Pass: p.Name, Slot: out.Name, Err: ErrDuplicateSlot}
			}
			outputs[out.Name] = true
			if prev, ok := g.producer[out.Info]; ok {
				return &ConfigError{
					Pass: p.Name,
					Slot: out.Name,
					Err:  multipleProducers(g.passes[prev.pass].Name),
				}
			}
			g.producer[out.Info] = slotRef{pass: pi, slot: oi}
		}

		for _, b := range p.Bindings {
			if !inputs[b.Input] {
				return &ConfigError{Pass: p.Name, Slot: b.Input, Err: ErrUnknownBindingSlot}
			}
			if !outputs[b.Output] {
				return &ConfigError{Pass: p.Name, Slot: b.Output, Err: ErrUnknownBindingSlot}
			}
		}
	}

	for _, f := range g.finals {
		if f == nil {
			return &ConfigError{Err: ErrNilResource}
		}
		if _, ok := g.producer[f]; !ok {
			return &ConfigError{Slot: f.Name(), Err: ErrUnproducedOutput}
		}
		g.isFinal[f] = true
	}
	return nil
}

// eliminateDeadPasses walks backward from the final outputs. A pass is live
// iff one of its outputs is needed; its inputs then become needed too.
func (g *graph[C]) eliminateDeadPasses() error {
	work := make([]ResourceInfo[C], 0, len(g.finals))
	for _, f := range g.finals {
		if !g.needed[f] {
			g.needed[f] = true
			work = append(work, f)
		}
	}

	for len(work) > 0 {
		info := work[len(work)-1]
		work = work[:len(work)-1]

		ref := g.producer[info]
		if g.live[ref.pass] {
			continue
		}
		g.live[ref.pass] = true

		p := &g.passes[ref.pass]
		if p.Builder == nil {
			return &ConfigError{Pass: p.Name, Err: ErrNilBuilder}
		}
		for _, in := range p.Inputs {
			if _, ok := g.producer[in.Info]; !ok {
				return &ConfigError{Pass: p.Name, Slot: in.Name, Err: ErrUnproducedInput}
			}
			if !g.needed[in.Info] {
				g.needed[in.Info] = true
				work = append(work, in.Info)
			}
		}
	}
	return nil
}

// sort computes the schedule with Kahn's algorithm. Among ready passes the
// one declared first runs first, so the order is reproducible.
func (g *graph[C]) sort() error {
	indegree := make([]int, len(g.passes))
	dependents := make([][]int, len(g.passes))
	liveCount := 0

	for pi := range g.passes {
		if !g.live[pi] {
			continue
		}
		liveCount++
		for _, dep := range g.dependencies(pi) {
			indegree[pi]++
			dependents[dep] = append(dependents[dep], pi)
		}
	}

	ready := &indexHeap{}
	for pi := range g.passes {
		g.position[pi] = -1
		if g.live[pi] && indegree[pi] == 0 {
			heap.Push(ready, pi)
		}
	}

	g.order = make([]int, 0, liveCount)
	for ready.Len() > 0 {
		pi := heap.Pop(ready).(int)
		g.position[pi] = len(g.order)
		g.order = append(g.order, pi)
		for _, d := range dependents[pi] {
			indegree[d]--
			if indegree[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}

	if len(g.order) != liveCount {
		return &CycleError{Passes: g.findCycle(indegree)}
	}
	return nil
}

// dependencies returns the distinct producer passes of pass pi's inputs.
// A pass consuming its own output depends on itself.
func (g *graph[C]) dependencies(pi int) []int {
	var deps []int
	for _, in := range g.passes[pi].Inputs {
		dep := g.producer[in.Info].pass
		if !slices.Contains(deps, dep) {
			deps = append(deps, dep)
		}
	}
	return deps
}

// findCycle extracts one cycle among the passes Kahn's algorithm could not
// schedule. Every such pass has an unscheduled dependency, so following
// dependencies from any of them must revisit a pass.
func (g *graph[C]) findCycle(indegree []int) []string {
	start := -1
	for pi := range g.passes {
		if g.live[pi] && indegree[pi] > 0 {
			start = pi
			break
		}
	}
	if start < 0 {
		return nil
	}

	seen := make(map[int]int)
	var path []int
	cur := start
	for {
		if at, ok := seen[cur]; ok {
			path = path[at:]
			break
		}
		seen[cur] = len(path)
		path = append(path, cur)
		next := -1
		for _, dep := range g.dependencies(cur) {
			if indegree[dep] > 0 {
				next = dep
				break
			}
		}
		if next < 0 {
			break
		}
		cur = next
	}

	// path follows dependencies backward; report it in execution order.
	names := make([]string, len(path))
	for i, pi := range path {
		names[len(path)-1-i] = g.passes[pi].Name
	}
	return names
}

// materialized reports whether an output slot of a live pass gets storage.
func (g *graph[C]) materialized(out Output[C]) bool {
	return out.Use == Required || g.needed[out.Info]
}

// culled returns the names of the passes removed by dead-output elimination.
func (g *graph[C]) culled() []string {
	var names []string
	for pi, live := range g.live {
		if !live {
			names = append(names, g.passes[pi].Name)
		}
	}
	return names
}

// indexHeap is a min-heap of pass declaration indices.
type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }

func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func multipleProducers(first string) error {
	return &producerError{first: first}
}

// producerError names the pass that produced a descriptor first.
type producerError struct {
	first string
}

func (e *producerError) Error() string {
	return ErrMultipleProducers.Error() + " (first produced by " + e.first + ")"
}

func (e *producerError) Unwrap() error { return ErrMultipleProducers }
