// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

// interval is the live range of a descriptor in schedule positions,
// inclusive on both ends.
type interval struct {
	first int
	last  int
}

// overlaps reports whether two intervals share a schedule position.
func (iv interval) overlaps(o interval) bool {
	return iv.first <= o.last && o.first <= iv.last
}

// lifetimes holds the result of lifetime analysis for one schedule.
type lifetimes[C any] struct {
	// span is the live interval of every materialized descriptor.
	span map[ResourceInfo[C]]interval

	// aliasOf maps an output descriptor to the input descriptor whose
	// physical resource it takes over through an honoured binding.
	aliasOf map[ResourceInfo[C]]ResourceInfo[C]

	// endsAt lists, per schedule position, the pooled descriptors whose
	// interval ends there, in the order they were first seen.
	endsAt [][]ResourceInfo[C]

	// ignored counts bindings that were declared but not honoured.
	ignored int
}

// analyzeLifetimes computes live intervals over the schedule in g and
// decides which bindings may be satisfied in place.
func analyzeLifetimes[C any](g *graph[C]) *lifetimes[C] {
	lt := &lifetimes[C]{
		span:    make(map[ResourceInfo[C]]interval),
		aliasOf: make(map[ResourceInfo[C]]ResourceInfo[C]),
		endsAt:  make([][]ResourceInfo[C], len(g.order)),
	}
	end := len(g.order) - 1

	var seen []ResourceInfo[C]
	for pos, pi := range g.order {
		p := &g.passes[pi]
		for _, out := range p.Outputs {
			if !g.materialized(out) {
				continue
			}
			lt.span[out.Info] = interval{first: pos, last: pos}
			seen = append(seen, out.Info)
		}
		for _, in := range p.Inputs {
			// Producers precede consumers, so the span already exists.
			iv := lt.span[in.Info]
			if pos > iv.last {
				iv.last = pos
				lt.span[in.Info] = iv
			}
		}
	}
	for _, f := range g.finals {
		iv := lt.span[f]
		iv.last = end
		lt.span[f] = iv
	}

	for _, info := range seen {
		if info.Storage() != StoragePooled {
			continue
		}
		last := lt.span[info].last
		lt.endsAt[last] = append(lt.endsAt[last], info)
	}

	lt.honourBindings(g)
	return lt
}

// honourBindings selects the bindings that can share a physical resource.
// A binding qualifies when the input's interval ends at the binding pass,
// both descriptors are pooled, the input is not a final output and the
// descriptors can merge. An input is taken over by at most one output, and
// an output takes over at most one input.
func (lt *lifetimes[C]) honourBindings(g *graph[C]) {
	taken := make(map[ResourceInfo[C]]bool)
	for pos, pi := range g.order {
		p := &g.passes[pi]
		for _, b := range p.Bindings {
			in := inputInfo(p, b.Input)
			out, ok := outputSlot(p, b.Output)
			if !ok || !g.materialized(out) {
				lt.ignored++
				continue
			}
			switch {
			case taken[in], lt.aliasOf[out.Info] != nil,
				lt.span[in].last != pos,
				g.isFinal[in],
				in.Storage() != StoragePooled,
				out.Info.Storage() != StoragePooled,
				!in.CanMergeWith(out.Info):
				lt.ignored++
				continue
			}
			taken[in] = true
			lt.aliasOf[out.Info] = in
		}
	}
}

func inputInfo[C any](p *Pass[C], slot string) ResourceInfo[C] {
	for _, in := range p.Inputs {
		if in.Name == slot {
			return in.Info
		}
	}
	return nil
}

func outputSlot[C any](p *Pass[C], slot string) (Output[C], bool) {
	for _, out := range p.Outputs {
		if out.Name == slot {
			return out, true
		}
	}
	return Output[C]{}, false
}
