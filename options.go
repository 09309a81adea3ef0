// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

// Option configures a Scheduler during creation.
//
// Example:
//
//	// Refuse schedules needing more than 256 MiB of render targets
//	s := framegraph.New(ctx, framegraph.WithCostBudget(256<<20))
type Option func(*options)

// options holds optional configuration for a Scheduler.
type options struct {
	budget int64
	retain bool
}

// defaultOptions returns the default scheduler options.
func defaultOptions() options {
	return options{
		budget: 0,    // unlimited
		retain: true, // reuse pooled resources across Setup calls
	}
}

// WithCostBudget limits the total cost of the physical resources one
// schedule may hold. Setup fails with ErrBudgetExceeded when the plan would
// exceed it. A budget <= 0 means unlimited.
func WithCostBudget(budget int64) Option {
	return func(o *options) {
		o.budget = budget
	}
}

// WithRetainResources controls whether pooled physical resources of the
// previous schedule are offered for reuse by the next Setup. When disabled,
// every Setup allocates from scratch.
func WithRetainResources(retain bool) Option {
	return func(o *options) {
		o.retain = retain
	}
}
