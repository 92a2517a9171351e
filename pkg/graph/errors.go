package graph

import "errors"

// Sentinel errors for graph operations. Callers compare with errors.Is;
// operations wrap them with the label/key or id that triggered them.
var (
	// ErrDuplicateKey is returned when a node with the same (label, key)
	// is already live.
	ErrDuplicateKey = errors.New("duplicate node key")

	// ErrNotFound is returned by lookups, updates and removals that target
	// an absent label+key, node id or edge reference.
	ErrNotFound = errors.New("not found")

	// ErrInvalidReference is returned when an edge names an endpoint id
	// that is not a live node.
	ErrInvalidReference = errors.New("invalid node reference")

	// ErrAllocatorExhausted is returned when an id space has no free ids
	// left below its limit.
	ErrAllocatorExhausted = errors.New("id allocator exhausted")

	// ErrInvariantViolation means the indexes disagree with each other.
	// It always indicates a bug in index maintenance; the operation that
	// detected it aborts without committing anything.
	ErrInvariantViolation = errors.New("graph invariant violation")

	// ErrInvalidID is returned when releasing an id that was never
	// allocated or was already released.
	ErrInvalidID = errors.New("invalid id")

	ErrEmptyLabel = errors.New("node label cannot be empty")
	ErrEmptyKey   = errors.New("node key cannot be empty")
	ErrEmptyType  = errors.New("edge type cannot be empty")
)
