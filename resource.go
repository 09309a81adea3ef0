// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

// Storage selects how the scheduler provides physical storage for a
// logical descriptor.
type Storage uint8

const (
	// StoragePooled descriptors are allocated from the aliasing pool. Their
	// physical resource may be shared with other descriptors whose live
	// intervals do not overlap, so their contents do not survive the frame.
	StoragePooled Storage = iota

	// StorageNone descriptors need no physical storage. They are sinks
	// (for example "presented to screen") that only keep a pass reachable.
	StorageNone

	// StoragePersistent descriptors own a physical resource that lives for
	// the whole schedule and keeps its contents across frames. They never
	// take part in aliasing.
	StoragePersistent
)

// String returns a human-readable name for the storage class.
func (s Storage) String() string {
	switch s {
	case StoragePooled:
		return "pooled"
	case StorageNone:
		return "none"
	case StoragePersistent:
		return "persistent"
	default:
		return "unknown"
	}
}

// Resource is a physical resource: actually allocated storage plus its
// disposal logic. Once returned from ResourceInfo.Create it is owned by the
// scheduler, which calls Dispose exactly once.
type Resource interface {
	Dispose()
}

// ResourceInfo is a logical resource descriptor: an immutable description
// of a buffer a pass reads or writes, without any physical allocation.
//
// Descriptors are compared by identity and used as map keys, so
// implementations must be comparable; pointer types are the norm.
//
// C is the GPU context capability handed to Create.
type ResourceInfo[C any] interface {
	// Name is a human-readable name used only for diagnostics.
	Name() string

	// Cost approximates the memory footprint (for example
	// width*height*bytes-per-pixel). It drives allocation heuristics only.
	Cost() int64

	// Hash is a cheap compatibility signature. CanMergeWith must imply
	// equal hashes.
	Hash() uint64

	// CanMergeWith reports whether this descriptor and other can be
	// satisfied by the same physical resource: identical shape and format
	// from the consuming pass's point of view.
	CanMergeWith(other ResourceInfo[C]) bool

	// Create allocates a physical resource satisfying this descriptor.
	Create(ctx C) (Resource, error)

	// Storage selects the allocation strategy.
	Storage() Storage

	// PhysicalFormat describes the physical format, for diagnostics.
	PhysicalFormat() string

	// LogicalFormat describes the logical format, for diagnostics.
	LogicalFormat() string
}

// Keyed is implemented by persistent descriptors whose physical resource
// should survive a rebuild of the schedule. A persistent resource created
// for a descriptor with the same non-empty key is handed over to the new
// descriptor when the old one can merge with it.
type Keyed interface {
	PersistentKey() string
}

// Sink is a cost-0 descriptor that needs no physical storage.
// It marks an externally visible effect such as presentation so the
// producing pass stays reachable in the dependency graph.
type Sink[C any] struct {
	name string
}

// NewSink returns a sink descriptor with the given diagnostic name.
func NewSink[C any](name string) *Sink[C] {
	return &Sink[C]{name: name}
}

func (s *Sink[C]) Name() string { return s.name }

// Cost is always zero.
func (s *Sink[C]) Cost() int64 { return 0 }

func (s *Sink[C]) Hash() uint64 { return 0 }

// CanMergeWith is always false: sinks are never pooled.
func (s *Sink[C]) CanMergeWith(ResourceInfo[C]) bool { return false }

// Create returns a resource with nothing to dispose.
func (s *Sink[C]) Create(C) (Resource, error) { return sinkResource{}, nil }

func (s *Sink[C]) Storage() Storage { return StorageNone }

func (s *Sink[C]) PhysicalFormat() string { return "None" }

func (s *Sink[C]) LogicalFormat() string { return "Untyped" }

type sinkResource struct{}

func (sinkResource) Dispose() {}
