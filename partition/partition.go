// Package partition implements the partitioned, totally ordered,
// append-only event log of spec.md §4.6, the single-writer executor of
// §4.5 that owns every game in a partition, and the read-only replication
// reader of §4.7.
package partition

import "snaketron.dev/engine"

// DefaultPartitionCount is P in spec.md §6's partitioning function.
const DefaultPartitionCount = 10

// Of computes partition_of(game_id) = 1 + (game_id mod P).
func Of(gameID uint64, partitionCount int) int {
	if partitionCount <= 0 {
		partitionCount = DefaultPartitionCount
	}
	return 1 + int(gameID%uint64(partitionCount))
}

// Entry is one append-only log record: a game's event tagged with the
// partition-assigned total-order Sequence (spec.md §4.6).
type Entry struct {
	Partition int
	Sequence  uint64
	GameID    uint64
	Event     engine.Event
}
