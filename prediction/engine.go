// Package prediction implements the client-side prediction engine of
// spec.md §4.4: a committed state advanced only by server-confirmed
// events, and a predicted state that is always rebuilt from committed by
// replaying still-unconfirmed local commands and ticking forward to the
// wall clock. It is the one package that compiles identically into the
// native client and the browser/mobile target (see the `mobile` package),
// since it depends on nothing but `engine` and `clocksync`.
package prediction

import (
	"fmt"

	"snaketron.dev/clocksync"
	"snaketron.dev/engine"
)

// Engine holds the two GameState copies spec.md §4.4 describes. It is
// strictly single-threaded: ProcessServerEvent and ProcessTurn must not
// be called concurrently with each other or themselves.
type Engine struct {
	gameID       uint64
	localUserID  uint64
	localSnakeID int

	committed      engine.GameState
	committedQueue *engine.CommandQueue

	predicted      engine.GameState
	predictedQueue *engine.CommandQueue

	scheduler   engine.TickScheduler
	lastApplied uint64 // last-applied event sequence, for out-of-order/dup detection

	confirmedSeq map[uint64]uint32 // user_id -> highest confirmed client sequence
	eventLog     []engine.Event
}

// NewFromState builds an Engine from a full snapshot, as a late-joining
// client does (spec.md §4.4 "new_from_state").
func NewFromState(state engine.GameState) *Engine {
	schedulingDelay := state.GameType.SchedulingDelayTicks
	e := &Engine{
		gameID:         state.GameID,
		committed:      state,
		committedQueue: engine.NewCommandQueue(schedulingDelay),
		predicted:      state.Clone(),
		predictedQueue: engine.NewCommandQueue(schedulingDelay),
		scheduler:      engine.NewTickScheduler(state.StartMs, state.Properties.TickDurationMs),
		confirmedSeq:   make(map[uint64]uint32),
	}
	return e
}

// SetLocalPlayerID binds which user_id this engine predicts turns for.
func (e *Engine) SetLocalPlayerID(userID uint64) {
	e.localUserID = userID
	for _, p := range e.committed.Players {
		if p.UserID == userID && p.SnakeID != nil {
			e.localSnakeID = *p.SnakeID
		}
	}
}

// ProcessTurn mutates predicted only and returns the CommandMessage the
// transport must send to the server (spec.md §4.4).
func (e *Engine) ProcessTurn(snakeID int, dir engine.Direction) engine.CommandMessage {
	tick := e.predicted.Tick
	msg := e.predictedQueue.SubmitLocal(e.localUserID, snakeID, tick, engine.TurnCommand(dir))
	e.replayPredicted()
	return msg
}

// ProcessServerEvent appends one server-confirmed Event to committed and
// rebuilds predicted (spec.md §4.4). Malformed or out-of-order events are
// logged-and-dropped per the failure semantics in spec.md §4.4; callers
// should surface the returned error to their own logging, not treat it as
// fatal.
func (e *Engine) ProcessServerEvent(ev engine.Event) error {
	if ev.Sequence != 0 {
		if ev.Sequence < e.lastApplied {
			return fmt.Errorf("prediction: dropping out-of-order event (sequence %d < %d)", ev.Sequence, e.lastApplied)
		}
		if ev.Sequence == e.lastApplied {
			return nil // idempotent skip of an already-applied sequence
		}
	}

	var err error
	switch ev.Kind {
	case engine.EventSnapshot:
		if ev.State == nil {
			return fmt.Errorf("prediction: snapshot event missing game_state")
		}
		e.committed = ev.State.Clone()
		e.committedQueue.DiscardUpTo(e.committed.Tick)
		e.scheduler = engine.NewTickScheduler(e.committed.StartMs, e.committed.Properties.TickDurationMs)
	case engine.EventCommandScheduled:
		if ev.Command != nil {
			e.committedQueue.AcceptServer(*ev.Command, e.committed.Tick)
			if ev.Command.ClientID.UserID != 0 {
				e.confirmedSeq[ev.Command.ClientID.UserID] = ev.Command.ClientID.Sequence
			}
		}
	default:
		e.committed, err = engine.Apply(e.committed, ev)
		if err != nil {
			return fmt.Errorf("prediction: dropping malformed event: %w", err)
		}
	}
	if ev.Sequence != 0 {
		e.lastApplied = ev.Sequence
	}
	e.eventLog = append(e.eventLog, ev)

	e.rebuildFromCommitted()
	return nil
}

// EventLog returns every server event applied so far, oldest first — a
// read-only view for diagnostics and replay debugging (spec.md §4.4).
func (e *Engine) EventLog() []engine.Event {
	return append([]engine.Event(nil), e.eventLog...)
}

// rebuildFromCommitted resets predicted = committed and replays every
// still-pending local command (spec.md §4.4). It does not advance predicted
// to the wall clock; RebuildPredicted does that. Predicted state is NEVER
// incrementally patched — it is
// always thrown away and rebuilt from committed, so a missed or
// out-of-order server event can never leave it permanently wrong.
func (e *Engine) rebuildFromCommitted() {
	e.predicted = e.committed.Clone()
	e.predictedQueue.DiscardUpTo(e.committed.Tick)
	e.replayPredicted()
}

// replayPredicted advances predicted to its current command queue's
// schedule; callers decide the wall-clock target via RebuildPredicted.
func (e *Engine) replayPredicted() {
	confirmed := e.confirmedSeq[e.localUserID]
	pending := e.predictedQueue.PendingAfter(e.localUserID, confirmed)
	for _, cmd := range pending {
		due := e.predictedQueue.Drain(cmd.ClientID.Tick)
		state, _, err := engine.StepForward(e.predicted, due)
		if err != nil {
			continue
		}
		e.predicted = state
	}
}

// RebuildPredicted replays predicted forward to the tick the wall clock
// (adjusted by clocksync drift) demands, draining any commands scheduled
// along the way (spec.md §4.4).
func (e *Engine) RebuildPredicted(nowMs int64, drift *clocksync.Estimator) {
	target := e.scheduler.TickAt(nowMs)
	if drift != nil {
		target = e.scheduler.TickAt(drift.ServerNow(nowMs))
	}
	for e.predicted.Tick < target {
		due := e.predictedQueue.Drain(e.predicted.Tick)
		state, _, err := engine.StepForward(e.predicted, due)
		if err != nil {
			break
		}
		e.predicted = state
	}
}

func (e *Engine) CommittedState() engine.GameState { return e.committed }
func (e *Engine) PredictedState() engine.GameState { return e.predicted }
