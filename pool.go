// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"slices"
)

// physical is a physical resource tracked by the scheduler.
type physical[C any] struct {
	res     Resource
	storage Storage

	// created is the descriptor the resource was created for. Reuse is
	// checked against it.
	created ResourceInfo[C]

	// holder is the descriptor currently occupying the resource while the
	// pool plans a schedule.
	holder ResourceInfo[C]

	cost int64
	hash uint64
}

func (p *physical[C]) mergeable(info ResourceInfo[C]) bool {
	return p.created.CanMergeWith(info) || info.CanMergeWith(p.created)
}

// pool is the aliasing allocator used while planning one schedule.
//
// Free resources are bucketed by descriptor hash. Within a bucket they are
// kept in the order they became free, which is the tie-break between
// equally good candidates.
type pool[C any] struct {
	ctx    C
	budget int64

	free map[uint64][]*physical[C]

	// created lists resources created by this planning attempt, in
	// creation order. They are disposed in reverse on rollback.
	created []*physical[C]

	// counted holds every resource whose cost is in total, so a resource
	// kept from the previous schedule is charged once however often it is
	// reacquired.
	counted map[*physical[C]]bool

	inUse int64
	peak  int64
	total int64
}

func newPool[C any](ctx C, budget int64) *pool[C] {
	return &pool[C]{
		ctx:     ctx,
		budget:  budget,
		free:    make(map[uint64][]*physical[C]),
		counted: make(map[*physical[C]]bool),
	}
}

// seed offers resources kept from the previous schedule for reuse.
func (p *pool[C]) seed(res []*physical[C]) {
	for _, ph := range res {
		if ph.storage != StoragePooled {
			continue
		}
		ph.holder = nil
		p.free[ph.hash] = append(p.free[ph.hash], ph)
	}
}

// acquire returns a free resource that can hold info, or creates one.
// Among mergeable free resources it picks the cheapest one whose cost is at
// least info's cost, falling back to the most expensive smaller one.
func (p *pool[C]) acquire(info ResourceInfo[C]) (*physical[C], error) {
	h := info.Hash()
	bucket := p.free[h]
	want := info.Cost()

	best := -1
	for i, ph := range bucket {
		if !ph.mergeable(info) {
			continue
		}
		if best < 0 || betterFit(ph.cost, bucket[best].cost, want) {
			best = i
		}
	}
	if best >= 0 {
		ph := bucket[best]
		if err := p.charge(ph); err != nil {
			return nil, err
		}
		p.free[h] = slices.Delete(bucket, best, best+1)
		p.hold(ph, info)
		return ph, nil
	}

	ph, err := p.create(info, StoragePooled)
	if err != nil {
		return nil, err
	}
	p.hold(ph, info)
	return ph, nil
}

// betterFit reports whether a candidate of cost c beats the current best
// of cost b for a request of cost want. Equal fits keep the current best.
func betterFit(c, b, want int64) bool {
	switch {
	case c >= want && b >= want:
		return c < b
	case c >= want:
		return true
	case b >= want:
		return false
	default:
		return c > b
	}
}

// create allocates a new physical resource for info, enforcing the budget.
func (p *pool[C]) create(info ResourceInfo[C], storage Storage) (*physical[C], error) {
	cost := max(info.Cost(), 0)
	if p.budget > 0 && p.total+cost > p.budget {
		return nil, fmt.Errorf("%w: %q needs %d, %d of %d in use",
			ErrBudgetExceeded, info.Name(), cost, p.total, p.budget)
	}
	res, err := info.Create(p.ctx)
	if err != nil {
		return nil, fmt.Errorf("framegraph: create %q (%s): %w", info.Name(), info.PhysicalFormat(), err)
	}
	ph := &physical[C]{
		res:     res,
		storage: storage,
		created: info,
		cost:    cost,
		hash:    info.Hash(),
	}
	p.created = append(p.created, ph)
	p.counted[ph] = true
	p.total += cost
	return ph, nil
}

// adopt accounts for a resource carried over from the previous schedule
// without going through the free list.
func (p *pool[C]) adopt(ph *physical[C]) error { return p.charge(ph) }

// charge adds the cost of a resource kept from the previous schedule to
// the total, enforcing the budget. Resources already counted are free.
func (p *pool[C]) charge(ph *physical[C]) error {
	if p.counted[ph] {
		return nil
	}
	if p.budget > 0 && p.total+ph.cost > p.budget {
		return fmt.Errorf("%w: %q needs %d, %d of %d in use",
			ErrBudgetExceeded, ph.created.Name(), ph.cost, p.total, p.budget)
	}
	p.counted[ph] = true
	p.total += ph.cost
	return nil
}

// hold marks ph as occupied by info.
func (p *pool[C]) hold(ph *physical[C], info ResourceInfo[C]) {
	if ph.holder == nil {
		p.inUse += ph.cost
		p.peak = max(p.peak, p.inUse)
	}
	ph.holder = info
}

// handOver moves an occupied resource from one descriptor to another in
// place, for an honoured binding.
func (p *pool[C]) handOver(ph *physical[C], to ResourceInfo[C]) {
	ph.holder = to
}

// release returns ph to the free list if info still occupies it.
// A resource handed over to another descriptor stays in use.
func (p *pool[C]) release(ph *physical[C], info ResourceInfo[C]) {
	if ph.holder != info {
		return
	}
	ph.holder = nil
	p.inUse -= ph.cost
	p.free[ph.hash] = append(p.free[ph.hash], ph)
}

// rollback disposes every resource created by this planning attempt.
func (p *pool[C]) rollback() {
	for i := len(p.created) - 1; i >= 0; i-- {
		p.created[i].res.Dispose()
	}
	p.created = nil
}

// isNew reports whether ph was created by this planning attempt.
func (p *pool[C]) isNew(ph *physical[C]) bool {
	return slices.Contains(p.created, ph)
}
