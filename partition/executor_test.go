package partition

import (
	"context"
	"testing"
	"time"

	"snaketron.dev/engine"
)

func freshState() engine.GameState {
	arena := engine.NewArena(20, 20)
	props := engine.Properties{AvailableFoodTarget: 0, TickDurationMs: 100, GrowthPerFood: 3}
	state := engine.NewGameState(1, arena, engine.SoloGameType(), props, 0)
	state.Arena.AddSnake(engine.NewSnake(engine.Position{X: 5, Y: 5}, engine.Right, 3))
	state.Status = engine.StartedStatus("node-1")
	return state
}

func TestPollAdvancesOwnedGameToTargetTick(t *testing.T) {
	l := NewMemoryLog(1)
	clock := int64(0)
	ex := NewExecutor(1, l, func() int64 { return clock })
	ex.owned = true

	state := freshState()
	ex.AddGame(state)

	clock = 350 // three ticks of 100ms due
	if err := ex.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if ex.games[1].state.Tick != 3 {
		t.Errorf("expected game tick 3, got %d", ex.games[1].state.Tick)
	}

}

func TestPollSkipsGamesNotOwned(t *testing.T) {
	l := NewMemoryLog(1)
	ex := NewExecutor(1, l, func() int64 { return 1000 })
	// owned is false by default: Poll must be a no-op.
	ex.AddGame(freshState())
	if err := ex.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if ex.games[1].state.Tick != 0 {
		t.Errorf("expected unowned executor's Poll to be a no-op, tick advanced to %d", ex.games[1].state.Tick)
	}
}

func TestPollSkipsStoppedGames(t *testing.T) {
	l := NewMemoryLog(1)
	ex := NewExecutor(1, l, func() int64 { return 1000 })
	ex.owned = true
	state := freshState()
	state.Status = engine.StoppedStatus()
	ex.AddGame(state)

	if err := ex.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if ex.games[1].state.Tick != 0 {
		t.Error("expected a stopped game to not be ticked")
	}
}

func TestPollEmitsSnapshotOnCompletion(t *testing.T) {
	l := NewMemoryLog(1)
	clock := int64(0)
	ex := NewExecutor(1, l, func() int64 { return clock })
	ex.owned = true

	arena := engine.NewArena(5, 5)
	props := engine.Properties{AvailableFoodTarget: 0, TickDurationMs: 100, GrowthPerFood: 3}
	state := engine.NewGameState(9, arena, engine.SoloGameType(), props, 0)
	state.Arena.AddSnake(engine.NewSnake(engine.Position{X: 4, Y: 2}, engine.Right, 1))
	state.Status = engine.StartedStatus("node-1")
	ex.AddGame(state)

	clock = 100
	if err := ex.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !ex.games[9].state.Status.IsComplete() {
		t.Fatal("expected the solo game to complete after its only snake dies")
	}

	ch, err := l.Subscribe(context.Background(), 1)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	sawSnapshot := false
	for i := 0; i < 10; i++ {
		select {
		case e := <-ch:
			if e.Event.Kind == engine.EventSnapshot {
				sawSnapshot = true
			}
		default:
		}
	}
	if !sawSnapshot {
		t.Error("expected a snapshot event to be appended on game completion")
	}
}

func TestEnqueueCommandIgnoresUnownedGame(t *testing.T) {
	l := NewMemoryLog(1)
	ex := NewExecutor(1, l, func() int64 { return 0 })
	// No AddGame call: game 42 is not owned. Must not panic.
	ex.EnqueueCommand(42, engine.CommandMessage{SnakeID: 0, Command: engine.TurnCommand(engine.Up)})
}

func TestAcquireRebuildsStateFromSnapshot(t *testing.T) {
	l := NewMemoryLog(1)
	ctx := context.Background()

	state := freshState()
	state.Tick = 7
	l.Append(ctx, engine.SnapshotEvent(state))
	l.Append(ctx, engine.Event{Kind: engine.EventFoodSpawned, GameID: state.GameID, Tick: 7, Position: &engine.Position{X: 1, Y: 1}})

	ex := NewExecutor(1, l, func() int64 { return 0 })
	if err := ex.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	g, ok := ex.games[state.GameID]
	if !ok {
		t.Fatalf("expected game %d to be present after acquire", state.GameID)
	}
	// replayEvents folds tick 7's logged event via ApplyTick, which also
	// performs the movement step that tick produced, landing on tick 8 —
	// the same place the owning executor was at when it appended this.
	if g.state.Tick != 8 {
		t.Errorf("expected rebuilt tick 8, got %d", g.state.Tick)
	}
	if len(g.state.Arena.Food) != 1 {
		t.Errorf("expected the food_spawned event replayed after the snapshot, got %v", g.state.Arena.Food)
	}
}

func TestAcquireEmptyLogDoesNotBlock(t *testing.T) {
	l := NewMemoryLog(1)
	ex := NewExecutor(1, l, func() int64 { return 0 })

	done := make(chan error, 1)
	go func() { done <- ex.Acquire(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire on an empty log did not return, likely deadlocked on Subscribe")
	}
	if !ex.owned {
		t.Error("expected the executor to own its partition after Acquire on an empty log")
	}
}

func TestCreateGameTransitionsStoppedToStartedAndAppendsSnapshot(t *testing.T) {
	l := NewMemoryLog(1)
	ctx := context.Background()
	ex := NewExecutor(1, l, func() int64 { return 0 })
	ex.owned = true

	state := freshState()
	state.Status = engine.StoppedStatus()

	if err := ex.CreateGame(ctx, state, "node-7"); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	g, ok := ex.games[state.GameID]
	if !ok {
		t.Fatal("expected CreateGame to register the new game with the executor")
	}
	if !g.state.Status.IsStarted() || g.state.Status.ServerID != "node-7" {
		t.Errorf("expected Started{node-7}, got %+v", g.state.Status)
	}

	ch, err := l.Subscribe(ctx, 1)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	var sawStatus, sawSnapshot bool
	for i := 0; i < 10; i++ {
		select {
		case e := <-ch:
			switch e.Event.Kind {
			case engine.EventStatusUpdated:
				sawStatus = true
			case engine.EventSnapshot:
				sawSnapshot = true
			}
		default:
		}
	}
	if !sawStatus {
		t.Error("expected a status_updated event appended for the Stopped->Started transition")
	}
	if !sawSnapshot {
		t.Error("expected an initial snapshot event appended after creation")
	}
}

func TestRebuildGameAdvancesTickPerLoggedTickEvenAcrossGaps(t *testing.T) {
	l := NewMemoryLog(1)
	ctx := context.Background()

	state := freshState()
	l.Append(ctx, engine.SnapshotEvent(state))
	// Ticks 0 and 1 were movement-only and produced no event at all, so the
	// next logged event for this game jumps straight to tick 2.
	l.Append(ctx, engine.Event{Kind: engine.EventFoodSpawned, GameID: state.GameID, Tick: 2, Position: &engine.Position{X: 1, Y: 1}})

	ex := NewExecutor(1, l, func() int64 { return 0 })
	if err := ex.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	g := ex.games[state.GameID]
	if g.state.Tick != 3 {
		t.Errorf("expected the skipped ticks 0 and 1 to still advance movement, landing on tick 3, got %d", g.state.Tick)
	}
}
