package partition

import (
	"context"
	"sync"

	"snaketron.dev/engine"
)

// MemoryLog is an in-process EventLog: the teacher's single-process
// deployment mode keeps everything in memory rather than standing up
// NATS, and it doubles as the fake used by executor and reader tests.
type MemoryLog struct {
	partition int

	mu      sync.Mutex
	entries []Entry
	subs    []chan Entry
}

func NewMemoryLog(partition int) *MemoryLog {
	return &MemoryLog{partition: partition}
}

func (l *MemoryLog) Append(ctx context.Context, ev engine.Event) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := uint64(len(l.entries)) + 1
	entry := Entry{Partition: l.partition, Sequence: seq, GameID: ev.GameID, Event: ev}
	entry.Event.Sequence = seq
	l.entries = append(l.entries, entry)

	for _, ch := range l.subs {
		select {
		case ch <- entry:
		default: // slow subscriber: drop rather than block the single writer
		}
	}
	return entry, nil
}

func (l *MemoryLog) Tail(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.entries)), nil
}

func (l *MemoryLog) Subscribe(ctx context.Context, fromSequence uint64) (<-chan Entry, error) {
	l.mu.Lock()
	if fromSequence == 0 {
		fromSequence = uint64(len(l.entries)) + 1 // from the current tail
	}
	backlog := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Sequence >= fromSequence {
			backlog = append(backlog, e)
		}
	}
	ch := make(chan Entry, 64)
	l.subs = append(l.subs, ch)
	l.mu.Unlock()

	go func() {
		defer func() {
			l.mu.Lock()
			for i, c := range l.subs {
				if c == ch {
					l.subs = append(l.subs[:i], l.subs[i+1:]...)
					break
				}
			}
			l.mu.Unlock()
			close(ch)
		}()
		for _, e := range backlog {
			select {
			case ch <- e:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return ch, nil
}
