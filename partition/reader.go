package partition

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"snaketron.dev/engine"
	"snaketron.dev/metrics"
)

// Reader is a read-only replication consumer (spec.md §4.7): it replays a
// partition's log into a game_id -> GameState map, services point
// queries, and fans events out to subscribers. It never writes to the
// log.
type Reader struct {
	partition int
	log       EventLog

	mu      sync.RWMutex
	games   map[uint64]engine.GameState
	pending map[uint64]*tickBuffer
	ready   bool
	readyCh chan struct{}

	fanoutMu sync.Mutex
	fanout   []chan Entry
}

// tickBuffer accumulates one game's not-yet-closed tick worth of log
// entries. It closes — and folds via replayEvents — once an entry for a
// later tick (or a Snapshot) arrives, since the log never marks a tick's
// close explicitly.
type tickBuffer struct {
	tick   uint32
	events []engine.Event
}

// NewReader constructs a reader for partition, reading from log.
func NewReader(partition int, eventLog EventLog) *Reader {
	return &Reader{
		partition: partition,
		log:       eventLog,
		games:     make(map[uint64]engine.GameState),
		pending:   make(map[uint64]*tickBuffer),
		readyCh:   make(chan struct{}),
	}
}

// Run replays the log from the start and continues streaming until ctx is
// done, folding every entry onto the in-memory game map and fanning it
// out to subscribers. It marks the reader ready once it catches up to the
// tail observed at startup (spec.md §4.7).
func (r *Reader) Run(ctx context.Context) error {
	tail, err := r.log.Tail(ctx)
	if err != nil {
		return fmt.Errorf("partition: reader tail: %w", err)
	}
	ch, err := r.log.Subscribe(ctx, 1)
	if err != nil {
		return fmt.Errorf("partition: reader subscribe: %w", err)
	}
	if tail == 0 {
		r.markReady() // an empty log is already caught up
	}

	for entry := range ch {
		r.apply(entry)
		r.broadcast(entry)
		if !r.ready && entry.Sequence >= tail {
			r.markReady()
		}
	}
	return nil
}

// apply folds one log entry into the reader's game map. Entries for the
// same tick arrive one at a time, so a game's current tick is buffered
// until an entry for a later tick (or a Snapshot) closes it — only then is
// replayEvents called, which also performs the movement step that never
// gets an event of its own.
func (r *Reader) apply(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.Event.Kind == engine.EventSnapshot && entry.Event.State != nil {
		r.games[entry.GameID] = entry.Event.State.Clone()
		delete(r.pending, entry.GameID)
		return
	}

	state, known := r.games[entry.GameID]
	if !known {
		log.Warn("dropping event for a game with no prior snapshot", "game_id", entry.GameID, "kind", entry.Event.Kind)
		metrics.EventsDropped.WithLabelValues(strconv.Itoa(r.partition), "no_prior_snapshot").Inc()
		return
	}

	buf := r.pending[entry.GameID]
	if buf != nil && buf.tick != entry.Event.Tick {
		r.games[entry.GameID] = replayEvents(strconv.Itoa(r.partition), "malformed", state, buf.events)
		buf = nil
	}
	if buf == nil {
		buf = &tickBuffer{tick: entry.Event.Tick}
		r.pending[entry.GameID] = buf
	}
	buf.events = append(buf.events, entry.Event)
}

func (r *Reader) markReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return
	}
	r.ready = true
	close(r.readyCh)
}

// Ready reports whether the reader has caught up to the tail it observed
// when Run started.
func (r *Reader) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// WaitReady blocks until the reader catches up or ctx is canceled.
func (r *Reader) WaitReady(ctx context.Context) error {
	select {
	case <-r.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current reconstructed state of gameID, flushing
// whatever tick is still buffered in r.pending first — without this, a
// caller reading right after catch-up could observe a state one tick
// stale, since nothing else forces the last buffered tick closed.
func (r *Reader) State(gameID uint64) (engine.GameState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if buf := r.pending[gameID]; buf != nil {
		if state, ok := r.games[gameID]; ok {
			r.games[gameID] = replayEvents(strconv.Itoa(r.partition), "malformed", state, buf.events)
		}
		delete(r.pending, gameID)
	}
	state, ok := r.games[gameID]
	return state, ok
}

// Subscribe registers a channel that receives every entry this reader
// folds, for pushing events out to interested client connections.
func (r *Reader) Subscribe() <-chan Entry {
	ch := make(chan Entry, 64)
	r.fanoutMu.Lock()
	r.fanout = append(r.fanout, ch)
	r.fanoutMu.Unlock()
	return ch
}

func (r *Reader) broadcast(entry Entry) {
	r.fanoutMu.Lock()
	defer r.fanoutMu.Unlock()
	for _, ch := range r.fanout {
		select {
		case ch <- entry:
		default: // slow subscriber: drop rather than block replay
		}
	}
}
