package partition

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"snaketron.dev/engine"
	"snaketron.dev/metrics"
)

// SnapshotPeriod is the default number of ticks between full Snapshot
// emissions (spec.md §4.5 step 3).
const SnapshotPeriod = 100

// CatchupLimit bounds how many ticks a single poll iteration will step a
// game forward before yielding, so one badly-lagging game cannot starve
// every other owned game in the partition (spec.md §4.3's catchup_limit).
const CatchupLimit = 64

// gameRuntime is the executor's live, in-memory copy of one owned game:
// its current state, its command queue, and bookkeeping for snapshot
// cadence.
type gameRuntime struct {
	state          engine.GameState
	queue          *engine.CommandQueue
	scheduler      engine.TickScheduler
	ticksSinceSnap uint32
}

// Executor is the single-owner worker for one partition (spec.md §4.5). It
// is driven by repeated calls to Poll — typically from a run loop on a
// ticker — rather than owning its own goroutine, so tests can single-step
// it deterministically.
type Executor struct {
	partition int
	log       EventLog
	now       func() int64

	games map[uint64]*gameRuntime
	owned bool
}

// NewExecutor constructs an executor for partition over log. now supplies
// the wall clock (injected so tests never sleep); pass a TimeProvider's
// NowMs in production.
func NewExecutor(partition int, eventLog EventLog, now func() int64) *Executor {
	return &Executor{
		partition: partition,
		log:       eventLog,
		now:       now,
		games:     make(map[uint64]*gameRuntime),
	}
}

// Acquire gives this executor ownership of its partition, per the
// exclusivity rule in spec.md §4.5: acquisition is external (the caller
// has already won the named-singleton lock), so Acquire only does the
// in-process bookkeeping — rebuilding in-memory state from the log tail
// back to the most recent Snapshot and replaying forward.
func (e *Executor) Acquire(ctx context.Context) error {
	tail, err := e.log.Tail(ctx)
	if err != nil {
		return err
	}
	if tail > 0 {
		ch, err := e.log.Subscribe(ctx, 1)
		if err != nil {
			return err
		}
		byGame := make(map[uint64][]engine.Event)
		for entry := range ch {
			byGame[entry.GameID] = append(byGame[entry.GameID], entry.Event)
			if entry.Sequence >= tail {
				break
			}
		}
		for gameID, events := range byGame {
			e.rebuildGame(gameID, events)
		}
	}
	e.owned = true
	log.Info("partition acquired", "partition", e.partition, "games", len(e.games))
	return nil
}

// rebuildGame replays events for a single game: the most recent Snapshot
// wholesale-replaces state, and everything logged after it folds forward
// tick by tick via replayEvents — the same reconstruction path §4.7's
// replication reader uses, so a restarted owner ends up at the exact
// geometry the previous owner left off at, not just the exact event set.
func (e *Executor) rebuildGame(gameID uint64, events []engine.Event) {
	var state engine.GameState
	start := 0
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == engine.EventSnapshot && events[i].State != nil {
			state = *events[i].State
			start = i + 1
			break
		}
	}
	state = replayEvents(strconv.Itoa(e.partition), "malformed_during_rebuild", state, events[start:])
	e.games[gameID] = &gameRuntime{
		state:     state,
		queue:     engine.NewCommandQueue(state.GameType.SchedulingDelayTicks),
		scheduler: engine.NewTickScheduler(state.StartMs, state.Properties.TickDurationMs),
	}
}

// Release drops ownership. The loop simply stops calling Poll; nothing
// already emitted to the log is undone (spec.md §4.5 exclusivity).
func (e *Executor) Release() {
	e.owned = false
	e.games = make(map[uint64]*gameRuntime)
}

// AddGame registers a game with the executor without touching the log,
// bypassing the Stopped->Started transition below: state is registered
// as given and nothing is appended. Acquire does not call it; its replay
// path registers rebuilt games through rebuildGame.
func (e *Executor) AddGame(state engine.GameState) {
	e.games[state.GameID] = &gameRuntime{
		state:     state,
		queue:     engine.NewCommandQueue(state.GameType.SchedulingDelayTicks),
		scheduler: engine.NewTickScheduler(state.StartMs, state.Properties.TickDurationMs),
	}
}

// CreateGame takes ownership of a brand new, still-Stopped game: it moves
// the game to Started{serverID}, appends that transition and the first
// Snapshot to the log so replicas and late joiners can bootstrap without
// waiting for the next periodic snapshot (spec.md §3's lifecycle rule and
// §4.5 step 3), and starts ticking it on the next Poll. Game creation
// itself — choosing the arena, seating players — stays external to this
// call; CreateGame only performs the transition the core is responsible
// for.
func (e *Executor) CreateGame(ctx context.Context, state engine.GameState, serverID string) error {
	state.Status = engine.StartedStatus(serverID)

	statusEv := engine.Event{Kind: engine.EventStatusUpdated, GameID: state.GameID, Tick: state.Tick, Status: &state.Status}
	if _, err := e.log.Append(ctx, statusEv); err != nil {
		return fmt.Errorf("partition: append status_updated for new game %d: %w", state.GameID, err)
	}
	if _, err := e.log.Append(ctx, engine.SnapshotEvent(state)); err != nil {
		return fmt.Errorf("partition: append initial snapshot for new game %d: %w", state.GameID, err)
	}

	e.games[state.GameID] = &gameRuntime{
		state:     state,
		queue:     engine.NewCommandQueue(state.GameType.SchedulingDelayTicks),
		scheduler: engine.NewTickScheduler(state.StartMs, state.Properties.TickDurationMs),
	}
	log.Info("game created", "partition", e.partition, "game_id", state.GameID, "server_id", serverID)
	return nil
}

// EnqueueCommand feeds one externally-received command into the owning
// game's queue (spec.md §4.5 step 1). It is a no-op if the executor does
// not own gameID — the gateway is expected to route by partition.Of
// before calling this, but a stale route must not panic.
func (e *Executor) EnqueueCommand(gameID uint64, cmd engine.CommandMessage) {
	g, ok := e.games[gameID]
	if !ok {
		log.Warn("dropping command for unowned game", "game_id", gameID)
		return
	}
	g.queue.AcceptServer(cmd, g.state.Tick)
}

// Poll runs one iteration of the executor's loop (spec.md §4.5 steps
// 2-4): every owned, started game is stepped forward up to its current
// target tick (bounded by CatchupLimit), produced events are appended to
// the log, and snapshots are emitted on cadence or completion.
func (e *Executor) Poll(ctx context.Context) error {
	if !e.owned {
		return nil
	}
	nowMs := e.now()

	gameIDs := make([]uint64, 0, len(e.games))
	for id := range e.games {
		gameIDs = append(gameIDs, id)
	}
	sort.Slice(gameIDs, func(i, j int) bool { return gameIDs[i] < gameIDs[j] })

	partitionLabel := strconv.Itoa(e.partition)
	metrics.GamesOwned.WithLabelValues(partitionLabel).Set(float64(len(e.games)))

	for _, gameID := range gameIDs {
		g := e.games[gameID]
		if !g.state.Status.IsStarted() {
			continue
		}
		gameLabel := strconv.FormatUint(gameID, 10)
		metrics.TicksBehind.WithLabelValues(partitionLabel, gameLabel).
			Set(float64(g.scheduler.TicksBehind(g.state.Tick, nowMs)))
		metrics.CommandQueueDepth.WithLabelValues(partitionLabel, gameLabel).Set(float64(g.queue.Len()))
		if err := e.advanceGame(ctx, gameID, g, nowMs); err != nil {
			log.Error("advancing game failed, emitting recovery snapshot", "game_id", gameID, "error", err)
			e.emitSnapshot(ctx, gameID, g)
		}
	}
	return nil
}

func (e *Executor) advanceGame(ctx context.Context, gameID uint64, g *gameRuntime, nowMs int64) error {
	partitionLabel := strconv.Itoa(e.partition)
	target := g.scheduler.TickAt(nowMs)
	steps := uint32(0)
	for g.state.Tick < target && steps < CatchupLimit {
		tickBefore := g.state.Tick
		due := g.queue.Drain(g.state.Tick)

		start := time.Now()
		next, events, err := engine.StepForward(g.state, due)
		metrics.TickDuration.WithLabelValues(partitionLabel).Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		g.state = next
		steps++
		g.ticksSinceSnap++

		for _, cmd := range due {
			// Tagged with tickBefore, the tick StepForward just processed,
			// so it shares a Tick with the rest of this call's events — a
			// replaying reader groups a tick's log entries by that field.
			ev := engine.CommandScheduledEvent(gameID, tickBefore, cmd)
			if _, err := e.log.Append(ctx, ev); err != nil {
				return err
			}
			metrics.EventsAppended.WithLabelValues(partitionLabel, string(ev.Kind)).Inc()
		}
		for _, ev := range events {
			if _, err := e.log.Append(ctx, ev); err != nil {
				return err
			}
			metrics.EventsAppended.WithLabelValues(partitionLabel, string(ev.Kind)).Inc()
		}
		if g.state.Status.IsComplete() {
			e.emitSnapshot(ctx, gameID, g)
			return nil
		}
	}
	if g.ticksSinceSnap >= SnapshotPeriod {
		e.emitSnapshot(ctx, gameID, g)
	}
	return nil
}

func (e *Executor) emitSnapshot(ctx context.Context, gameID uint64, g *gameRuntime) {
	if _, err := e.log.Append(ctx, engine.SnapshotEvent(g.state)); err != nil {
		log.Error("failed to append snapshot", "game_id", gameID, "error", err)
		return
	}
	g.ticksSinceSnap = 0
}

// GameStats is one owned game's position for the operator-facing stats
// endpoint, the executor's analogue of the teacher's GetStats snapshot.
type GameStats struct {
	GameID uint64       `json:"game_id"`
	Tick   uint32       `json:"tick"`
	Status engine.Status `json:"status"`
	Queued int          `json:"queued_commands"`
}

// Stats reports every owned game's current tick and queue depth.
func (e *Executor) Stats() []GameStats {
	out := make([]GameStats, 0, len(e.games))
	for gameID, g := range e.games {
		out = append(out, GameStats{GameID: gameID, Tick: g.state.Tick, Status: g.state.Status, Queued: g.queue.Len()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out
}

// PollLoop runs Poll on an interval until ctx is done, retrying with
// exponential backoff on error and releasing ownership if the backoff
// exceeds maxBackoff (spec.md §4.5 failure semantics).
func (e *Executor) PollLoop(ctx context.Context, interval, maxBackoff time.Duration) {
	backoff := interval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Poll(ctx); err != nil {
				log.Error("poll failed, backing off", "partition", e.partition, "backoff", backoff, "error", err)
				time.Sleep(backoff)
				backoff *= 2
				if backoff > maxBackoff {
					log.Error("persistent poll failure, releasing ownership", "partition", e.partition)
					e.Release()
					return
				}
				continue
			}
			backoff = interval
		}
	}
}
