// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package framegraph schedules multi-pass GPU rendering.
//
// # Overview
//
// A renderer describes each frame as a list of passes. Every pass declares
// the logical resources (images) it reads and writes and a builder for the
// operator that issues its GPU work. The Scheduler turns that declarative
// list into a concrete schedule:
//
//   - it resolves which pass produces each resource and orders the passes
//     so every producer runs before its consumers (declaration order breaks
//     ties),
//   - it drops passes whose outputs nothing needs (dead-output elimination),
//   - it computes the live interval of every resource and lets resources
//     with disjoint intervals share one physical allocation (aliasing),
//   - it builds one operator per surviving pass and replays them every frame.
//
// Planning happens in Setup and only when the pass list changes, for
// example after a resize. Render is the per-frame path and allocates nothing.
//
// # Quick Start
//
//	s := framegraph.New(gpu)
//	defer s.ReleaseAll()
//
//	lit := texture.NewInfo("Lit", w, h, texture.RGBA8)
//	shown := framegraph.NewSink[*gfx.Context]("Presented Image")
//	passes := []framegraph.Pass[*gfx.Context]{
//	    {Name: "Lighting", Outputs: []framegraph.Output[*gfx.Context]{framegraph.Out[*gfx.Context]("output", lit)}, Builder: lighting},
//	    {Name: "Present", Inputs: ..., Outputs: ..., Builder: present},
//	}
//	if err := s.Setup(passes, []framegraph.ResourceInfo[*gfx.Context]{shown}); err != nil {
//	    return err
//	}
//	for running {
//	    if err := s.Render(); err != nil {
//	        return err
//	    }
//	}
//
// # Resources
//
// A ResourceInfo is an immutable descriptor compared by identity. Its
// Storage selects how it is backed: pooled descriptors are aliased by the
// allocation pool, sinks need no storage at all and persistent descriptors
// own a resource that keeps its contents across frames and, when they
// implement Keyed, across schedules.
//
// # In-place execution
//
// A pass may declare Bindings between an input and an output slot. When
// the input is not needed after that pass, the scheduler may back both
// slots with the same physical resource. Operators check Resolved.InPlace
// and skip their copy in that case.
//
// # Sub-packages
//
//   - gfx: the shared GPU command context and shader programs
//   - texture: texture descriptors and cross-frame history textures
//   - passes: raytracing, lighting, SSAO, temporal AA and other passes
//   - renderer: the owning renderer that rebuilds the pass list
package framegraph

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
