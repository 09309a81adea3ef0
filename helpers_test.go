// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
)

// testEnv is the GPU context stand-in used by the core tests. It records
// every resource creation, disposal and operator call.
type testEnv struct {
	created  []*testResource
	disposed []*testResource
	calls    []string
	built    map[string]int

	doubleDispose int
}

func newTestEnv() *testEnv {
	return &testEnv{built: make(map[string]int)}
}

// live returns the resources created but not yet disposed.
func (e *testEnv) live() []*testResource {
	var out []*testResource
	for _, r := range e.created {
		if !r.disposed {
			out = append(out, r)
		}
	}
	return out
}

type testResource struct {
	id       int
	info     *testInfo
	env      *testEnv
	disposed bool
}

func (r *testResource) Dispose() {
	if r.disposed {
		r.env.doubleDispose++
		return
	}
	r.disposed = true
	r.env.disposed = append(r.env.disposed, r)
}

// testInfo is a descriptor with a size and a format. Two testInfos merge
// when both are pooled and size and format match.
type testInfo struct {
	name    string
	size    int
	format  string
	cost    int64
	storage Storage
	key     string
	fail    error
}

func pooled(name string, size int, format string) *testInfo {
	return &testInfo{name: name, size: size, format: format, cost: int64(size)}
}

func withCost(info *testInfo, cost int64) *testInfo {
	info.cost = cost
	return info
}

func persistent(name, key string, size int) *testInfo {
	return &testInfo{name: name, size: size, format: "hist", cost: int64(size), storage: StoragePersistent, key: key}
}

func (i *testInfo) Name() string { return i.name }
func (i *testInfo) Cost() int64  { return i.cost }

func (i *testInfo) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(i.format))
	return h.Sum64() ^ uint64(i.size)<<32
}

func (i *testInfo) CanMergeWith(other ResourceInfo[*testEnv]) bool {
	o, ok := other.(*testInfo)
	return ok && o.storage == i.storage && o.size == i.size && o.format == i.format
}

func (i *testInfo) Create(e *testEnv) (Resource, error) {
	if i.fail != nil {
		return nil, i.fail
	}
	r := &testResource{id: len(e.created), info: i, env: e}
	e.created = append(e.created, r)
	return r, nil
}

func (i *testInfo) Storage() Storage       { return i.storage }
func (i *testInfo) PhysicalFormat() string { return i.format + " " + strconv.Itoa(i.size) }
func (i *testInfo) LogicalFormat() string  { return i.format }
func (i *testInfo) PersistentKey() string  { return i.key }

var errDeviceLost = errors.New("device lost")

// testOp records its calls in the environment.
type testOp struct {
	name string
	env  *testEnv
	r    *Resolved
	fail error
}

func (o *testOp) BeforeRender(e *testEnv) { e.calls = append(e.calls, "before:"+o.name) }

func (o *testOp) Perform(e *testEnv) error {
	e.calls = append(e.calls, "perform:"+o.name)
	return o.fail
}

func (o *testOp) AfterRender(e *testEnv) { e.calls = append(e.calls, "after:"+o.name) }
func (o *testOp) Dispose()               { o.env.calls = append(o.env.calls, "dispose:"+o.name) }

// ops collects the operators built by recordBuilder, by pass name.
type ops map[string]*testOp

func recordBuilder(built ops) Builder[*testEnv] {
	return BuilderFunc[*testEnv](func(e *testEnv, r *Resolved) (Operator[*testEnv], error) {
		e.built[r.Pass()]++
		op := &testOp{name: r.Pass(), env: e, r: r}
		if built != nil {
			built[r.Pass()] = op
		}
		return op, nil
	})
}

func failingBuilder(err error) Builder[*testEnv] {
	return BuilderFunc[*testEnv](func(e *testEnv, r *Resolved) (Operator[*testEnv], error) {
		e.built[r.Pass()]++
		return nil, err
	})
}

type decl = Pass[*testEnv]

func finals(infos ...ResourceInfo[*testEnv]) []ResourceInfo[*testEnv] { return infos }

func in(name string, info ResourceInfo[*testEnv]) Input[*testEnv] { return In(name, info) }

func out(name string, info ResourceInfo[*testEnv]) Output[*testEnv] { return Out(name, info) }

func optOut(name string, info ResourceInfo[*testEnv]) Output[*testEnv] {
	return OptionalOut(name, info)
}

// chain declares n pooled passes, each reading the previous output, all of
// the same size and format so every resource can merge.
func chain(n int, built ops) ([]decl, *testInfo) {
	var passes []decl
	var prev *testInfo
	for i := range n {
		o := pooled("o"+strconv.Itoa(i), 100, "rgba8")
		p := decl{Name: "P" + strconv.Itoa(i), Outputs: []Output[*testEnv]{out("out", o)}, Builder: recordBuilder(built)}
		if prev != nil {
			p.Inputs = []Input[*testEnv]{in("in", prev)}
		}
		passes = append(passes, p)
		prev = o
	}
	return passes, prev
}

// randomDAG declares passes where pass i reads a random subset of the
// outputs of earlier passes. Sizes and formats come from small sets so
// some resources can merge and others cannot.
func randomDAG(rng *rand.Rand, n int) ([]decl, []*testInfo) {
	sizes := []int{64, 128}
	formats := []string{"rgba8", "rgba16f"}
	var passes []decl
	var outs []*testInfo
	for i := range n {
		o := pooled("o"+strconv.Itoa(i), sizes[rng.IntN(len(sizes))], formats[rng.IntN(len(formats))])
		p := decl{Name: "P" + strconv.Itoa(i), Outputs: []Output[*testEnv]{out("out", o)}, Builder: recordBuilder(nil)}
		for j := range i {
			if rng.IntN(3) == 0 {
				p.Inputs = append(p.Inputs, in("in"+strconv.Itoa(j), outs[j]))
			}
		}
		passes = append(passes, p)
		outs = append(outs, o)
	}
	// Shuffle declaration order; the scheduler must still order producers first.
	rng.Shuffle(len(passes), func(a, b int) { passes[a], passes[b] = passes[b], passes[a] })
	return passes, outs
}

// bindRandomly gives about half of the passes with inputs a binding from
// one of their inputs to their output.
func bindRandomly(rng *rand.Rand, passes []decl) {
	for i := range passes {
		p := &passes[i]
		if len(p.Inputs) == 0 || rng.IntN(2) == 0 {
			continue
		}
		in := p.Inputs[rng.IntN(len(p.Inputs))]
		p.Bindings = []Binding{{Input: in.Name, Output: "out"}}
	}
}
