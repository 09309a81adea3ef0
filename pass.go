// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "fmt"

// Use marks whether a pass output must be materialized.
type Use uint8

const (
	// Required outputs are always materialized when the pass runs.
	Required Use = iota

	// Optional outputs are materialized only when something needs them:
	// a later pass consumes them or they are requested as final outputs.
	// A pass whose only needed outputs would be optional ones that nobody
	// needs does not run at all.
	Optional
)

// String returns a human-readable name for the use.
func (u Use) String() string {
	if u == Optional {
		return "optional"
	}
	return "required"
}

// Input is a named input slot of a pass.
type Input[C any] struct {
	Name string
	Info ResourceInfo[C]
}

// Output is a named output slot of a pass.
type Output[C any] struct {
	Name string
	Info ResourceInfo[C]
	Use  Use
}

// In returns an input slot.
func In[C any](name string, info ResourceInfo[C]) Input[C] {
	return Input[C]{Name: name, Info: info}
}

// Out returns a required output slot.
func Out[C any](name string, info ResourceInfo[C]) Output[C] {
	return Output[C]{Name: name, Info: info, Use: Required}
}

// OptionalOut returns an optional output slot.
func OptionalOut[C any](name string, info ResourceInfo[C]) Output[C] {
	return Output[C]{Name: name, Info: info, Use: Optional}
}

// Binding declares that an input slot and an output slot may share one
// physical resource (in-place execution). The scheduler is allowed but not
// required to honour it; the operator checks Resolved.InPlace.
type Binding struct {
	Input  string
	Output string
}

// Operator is the executable instance of a pass for one schedule.
//
// BeforeRender, Perform and AfterRender are called once per frame, each
// phase sweeping the whole schedule in order. Only the operator currently
// being called may issue commands against the context.
type Operator[C any] interface {
	BeforeRender(ctx C)
	Perform(ctx C) error
	AfterRender(ctx C)

	// Dispose releases everything the operator created. It must not
	// dispose the resources it received through Resolved.
	Dispose()
}

// NopHooks implements the optional parts of Operator with no-ops.
// Embed it in operators that only need Perform.
type NopHooks[C any] struct{}

func (NopHooks[C]) BeforeRender(C) {}
func (NopHooks[C]) AfterRender(C)  {}
func (NopHooks[C]) Dispose()       {}

// Builder constructs the operator of a pass once the scheduler has chosen
// the physical resources for its slots.
type Builder[C any] interface {
	Build(ctx C, r *Resolved) (Operator[C], error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc[C any] func(ctx C, r *Resolved) (Operator[C], error)

// Build calls f(ctx, r).
func (f BuilderFunc[C]) Build(ctx C, r *Resolved) (Operator[C], error) { return f(ctx, r) }

// Pass is a pass declaration: pure data describing one rendering step.
// It owns no GPU resources and is rebuilt on every structural change.
type Pass[C any] struct {
	// Name identifies the pass in errors and diagnostics.
	Name string

	Inputs  []Input[C]
	Outputs []Output[C]

	// Bindings lists input/output slot pairs eligible for in-place execution.
	Bindings []Binding

	Builder Builder[C]
}

// Resolved is the resolution context handed to a Builder: the physical
// resource chosen for every declared slot.
type Resolved struct {
	pass    string
	inputs  map[string]Resource
	outputs map[string]Resource
}

// Pass returns the name of the pass being built.
func (r *Resolved) Pass() string { return r.pass }

// Input returns the resource bound to an input slot.
// It panics if the pass declared no such slot.
func (r *Resolved) Input(slot string) Resource {
	res, ok := r.inputs[slot]
	if !ok {
		panic(fmt.Errorf("%w: pass %q has no input %q", ErrUnknownSlot, r.pass, slot))
	}
	return res
}

// Output returns the resource bound to an output slot, or nil for an
// optional output nobody needs. It panics if the pass declared no such slot.
func (r *Resolved) Output(slot string) Resource {
	res, ok := r.outputs[slot]
	if !ok {
		panic(fmt.Errorf("%w: pass %q has no output %q", ErrUnknownSlot, r.pass, slot))
	}
	return res
}

// HasOutput reports whether an output slot was materialized.
func (r *Resolved) HasOutput(slot string) bool {
	return r.Output(slot) != nil
}

// InPlace reports whether the scheduler satisfied an input slot and an
// output slot with the same physical resource.
func (r *Resolved) InPlace(input, output string) bool {
	out := r.Output(output)
	return out != nil && out == r.Input(input)
}

// InputAs returns the resource bound to an input slot as T.
// It panics if the slot is unknown or holds another type.
func InputAs[T Resource](r *Resolved, slot string) T {
	res := r.Input(slot)
	t, ok := res.(T)
	if !ok {
		panic(fmt.Errorf("%w: pass %q input %q is %T", ErrResourceType, r.pass, slot, res))
	}
	return t
}

// OutputAs returns the resource bound to an output slot as T, or the zero
// T when the optional output was not materialized.
// It panics if the slot is unknown or holds another type.
func OutputAs[T Resource](r *Resolved, slot string) T {
	res := r.Output(slot)
	if res == nil {
		var zero T
		return zero
	}
	t, ok := res.(T)
	if !ok {
		panic(fmt.Errorf("%w: pass %q output %q is %T", ErrResourceType, r.pass, slot, res))
	}
	return t
}
