// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors. They are reported wrapped in a *ConfigError that
// names the offending pass and slot.
var (
	// ErrNilResource is returned when a slot refers to a nil descriptor.
	ErrNilResource = errors.New("framegraph: nil resource descriptor")

	// ErrDuplicateSlot is returned when a pass declares the same slot name twice.
	ErrDuplicateSlot = errors.New("framegraph: duplicate slot name")

	// ErrMultipleProducers is returned when two passes produce the same descriptor.
	ErrMultipleProducers = errors.New("framegraph: resource produced by more than one pass")

	// ErrUnproducedOutput is returned when a final output is produced by no pass.
	ErrUnproducedOutput = errors.New("framegraph: final output is not produced by any pass")

	// ErrUnproducedInput is returned when a live pass consumes a descriptor
	// that no pass produces.
	ErrUnproducedInput = errors.New("framegraph: input is not produced by any pass")

	// ErrUnknownBindingSlot is returned when a binding names an undeclared slot.
	ErrUnknownBindingSlot = errors.New("framegraph: binding refers to an undeclared slot")

	// ErrNilBuilder is returned when a live pass has no builder.
	ErrNilBuilder = errors.New("framegraph: pass has no builder")

	// ErrCycle is matched by every *CycleError.
	ErrCycle = errors.New("framegraph: dependency cycle")
)

// Resource exhaustion and misuse errors.
var (
	// ErrBudgetExceeded is returned when planning would exceed the cost budget
	// configured with WithCostBudget.
	ErrBudgetExceeded = errors.New("framegraph: resource cost budget exceeded")

	// ErrNotPlanned is the panic value used when Render is called on a
	// scheduler without a successful Setup.
	ErrNotPlanned = errors.New("framegraph: render called before a successful setup")

	// ErrUnknownSlot is the panic value used when an operator builder asks
	// for a slot its pass never declared.
	ErrUnknownSlot = errors.New("framegraph: unknown slot")

	// ErrNilOperator is returned when a builder returns neither an operator
	// nor an error.
	ErrNilOperator = errors.New("framegraph: builder returned a nil operator")

	// ErrResourceType is the panic value used by InputAs and OutputAs when
	// the physical resource does not have the requested type.
	ErrResourceType = errors.New("framegraph: unexpected physical resource type")
)

// ConfigError reports a misconfigured pass declaration set.
type ConfigError struct {
	// Pass is the name of the offending pass, if any.
	Pass string

	// Slot is the offending slot name, or the final output name.
	Slot string

	// Err is the underlying sentinel error.
	Err error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Pass != "" && e.Slot != "":
		return fmt.Sprintf("%v (pass %q, slot %q)", e.Err, e.Pass, e.Slot)
	case e.Pass != "":
		return fmt.Sprintf("%v (pass %q)", e.Err, e.Pass)
	case e.Slot != "":
		return fmt.Sprintf("%v (%q)", e.Err, e.Slot)
	default:
		return e.Err.Error()
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// CycleError reports a dependency cycle among live passes.
type CycleError struct {
	// Passes lists the pass names along the cycle, in dependency order.
	// The first pass is not repeated at the end.
	Passes []string
}

func (e *CycleError) Error() string {
	if len(e.Passes) == 0 {
		return ErrCycle.Error()
	}
	return fmt.Sprintf("%v: %s -> %s", ErrCycle, strings.Join(e.Passes, " -> "), e.Passes[0])
}

// Is makes errors.Is(err, ErrCycle) true for every *CycleError.
func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// PassError wraps an error returned by an operator or a builder.
type PassError struct {
	Pass string
	Err  error
}

func (e *PassError) Error() string { return fmt.Sprintf("framegraph: pass %q: %v", e.Pass, e.Err) }

func (e *PassError) Unwrap() error { return e.Err }
