package partition

import (
	"context"

	"snaketron.dev/engine"
)

// EventLog is the append-only, totally ordered log for one partition
// (spec.md §4.6). Writes are serialized by the caller — exactly one
// executor holds write ownership of a given partition at a time — but
// many read-only subscribers may call Subscribe concurrently.
type EventLog interface {
	// Append writes ev to the log, assigning it the next sequence number,
	// and returns the fully stamped Entry.
	Append(ctx context.Context, ev engine.Event) (Entry, error)

	// Subscribe streams entries starting at fromSequence (inclusive), or
	// from the current tail if fromSequence is 0. The returned channel is
	// closed when ctx is done. Delivery is at-least-once; consumers must
	// deduplicate by Entry.Sequence.
	Subscribe(ctx context.Context, fromSequence uint64) (<-chan Entry, error)

	// Tail returns the sequence number of the most recently appended
	// entry, or 0 if the log is empty.
	Tail(ctx context.Context) (uint64, error)
}
