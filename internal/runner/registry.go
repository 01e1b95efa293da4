// Package runner drives plan execution: the local pipeline runner
// executes chains of partition-local operators, the global runner
// executes barrier operators over whole partition sets, and the plan
// runner sequences both while managing partition lifetimes through a
// registry of live node outputs.
package runner

import (
	dferrors "dataframe-engine/internal/errors"
)

// registry tracks the live node-id -> output bindings of one runner
// invocation. Entries are inserted when a node produces its output and
// released as soon as the last consumer has run, which gives
// deterministic release without reference counting.
type registry[T any] struct {
	entries map[int]T
}

func newRegistry[T any](initial map[int]T) *registry[T] {
	entries := make(map[int]T, len(initial))
	for id, v := range initial {
		entries[id] = v
	}
	return &registry[T]{entries: entries}
}

func (r *registry[T]) get(id int) (T, error) {
	v, ok := r.entries[id]
	if !ok {
		var zero T
		return zero, dferrors.NewPlanError("missing binding for node %d", id)
	}
	return v, nil
}

func (r *registry[T]) insert(id int, v T) {
	r.entries[id] = v
}

func (r *registry[T]) release(id int) {
	delete(r.entries, id)
}
