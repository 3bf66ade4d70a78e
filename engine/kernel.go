package engine

import "sort"

// Apply folds a single previously-logged Event onto state, returning the
// resulting state. It performs no validation and derives no randomness —
// it is the replay half of the kernel, used by read-only partition
// replicas and by the prediction engine when applying server-confirmed
// events (spec.md §4.1, §4.6). It does not move snakes: movement carries
// no event of its own (spec.md §4.1 step 2 emits nothing), so a replica
// folding a tick's events must also call AdvanceTick once, in the right
// slot — see ApplyTick, which does both in the correct order.
func Apply(state GameState, ev Event) (GameState, error) {
	next := state.Clone()
	switch ev.Kind {
	case EventSnakeTurned:
		sn, err := next.snake(ev.SnakeID)
		if err != nil {
			return state, err
		}
		sn.turn(ev.Direction)

	case EventFoodEaten:
		sn, err := next.snake(ev.SnakeID)
		if err != nil {
			return state, err
		}
		sn.Food += next.Properties.GrowthPerFood
		if ev.Position != nil {
			next.Arena.removeFoodAt(*ev.Position)
		}
		next.Scores[ev.SnakeID]++
		if sn.TeamID != nil && next.TeamScores != nil {
			next.TeamScores[*sn.TeamID]++
		}
		if uid, ok := next.PlayerForSnake(ev.SnakeID); ok && next.PlayerXP != nil {
			next.PlayerXP[uid]++
		}

	case EventFoodSpawned:
		if ev.Position != nil {
			next.Arena.Food = append(next.Arena.Food, *ev.Position)
		}

	case EventSnakeDied:
		sn, err := next.snake(ev.SnakeID)
		if err != nil {
			return state, err
		}
		sn.IsAlive = false

	case EventSnakeRespawned:
		sn, err := next.snake(ev.SnakeID)
		if err != nil {
			return state, err
		}
		if ev.Position != nil {
			*sn = NewSnake(*ev.Position, Up, 1)
		}

	case EventStatusUpdated:
		if ev.Status != nil {
			next.Status = *ev.Status
		}

	case EventSnapshot:
		if ev.State != nil {
			next = ev.State.Clone()
		}

	case EventCommandScheduled, EventRoundStarted, EventRoundEnded, EventXPAwarded:
		// Informational / not-yet-modeled for single-round solo and FFA
		// play; folding is a no-op beyond advancing event_sequence.

	default:
		return state, ErrUnknownEvent
	}
	next.EventSequence++
	return next, nil
}

// AdvanceTick performs the one step of spec.md §4.1 that produces no
// event: moving every living snake's head one cell and, unless a growth
// credit is pending, retreating its tail by the same amount. It is pure
// and reads only Direction/Food already present in state, so StepForward
// and a replaying replica always compute identical geometry without the
// movement itself ever touching the log.
func AdvanceTick(state GameState) GameState {
	next := state.Clone()
	for id := range next.Arena.Snakes {
		sn := &next.Arena.Snakes[id]
		if sn.IsAlive {
			advanceWithGrowth(sn)
		}
	}
	return next
}

// ApplyTick replays one tick's worth of already-decided events (as read
// from a partition log) onto state, in the same order step_forward
// produces and mutates them, and returns the resulting state with Tick
// incremented. Unlike StepForward it never invents new events or
// randomness — every event it needs was already logged.
func ApplyTick(state GameState, tick []Event) (GameState, error) {
	byKind := make(map[EventKind][]Event)
	for _, ev := range tick {
		byKind[ev.Kind] = append(byKind[ev.Kind], ev)
	}

	cur := state
	var err error
	// Mirrors StepForward's mutation order exactly: commands (turn,
	// respawn) apply before movement; collisions, food, and the terminal
	// check all read the post-movement board.
	for _, ev := range byKind[EventSnakeTurned] {
		if cur, err = Apply(cur, ev); err != nil {
			return state, err
		}
	}
	for _, ev := range byKind[EventSnakeRespawned] {
		if cur, err = Apply(cur, ev); err != nil {
			return state, err
		}
	}
	cur = AdvanceTick(cur)
	for _, ev := range byKind[EventSnakeDied] {
		if cur, err = Apply(cur, ev); err != nil {
			return state, err
		}
	}
	for _, ev := range byKind[EventFoodEaten] {
		if cur, err = Apply(cur, ev); err != nil {
			return state, err
		}
	}
	for _, ev := range byKind[EventFoodSpawned] {
		if cur, err = Apply(cur, ev); err != nil {
			return state, err
		}
	}
	for _, ev := range byKind[EventStatusUpdated] {
		if cur, err = Apply(cur, ev); err != nil {
			return state, err
		}
	}
	cur.Tick++
	return cur, nil
}

// StepForward advances state by exactly one tick: it applies the commands
// already scheduled to take effect on this tick (spec.md §4.2's
// effective_tick bookkeeping happens in CommandQueue, before this is
// called), then runs the fixed per-tick pipeline — drain commands, advance
// heads, resolve collisions, settle food, spawn food, check terminal
// conditions — and returns the new state together with every Event the
// tick produced, arranged in the canonical emission order spec.md §4.1
// names: SnakeTurned*, FoodEaten*, SnakeDied*, FoodSpawned*, followed by
// any SnakeRespawned* and then any terminal StatusUpdated.
//
// step_forward never reads a wall clock; its only source of randomness is
// the generator seeded from (game_id, tick).
func StepForward(state GameState, due []CommandMessage) (GameState, []Event, error) {
	if state.Status.IsComplete() {
		return state, nil, ErrGameComplete
	}

	next := state.Clone()
	var turned, died, eaten, spawned, terminal, respawned []Event

	for _, cmd := range due {
		sn, err := next.snake(cmd.SnakeID)
		if err != nil {
			continue // unknown snake id: stale command for a since-removed slot
		}
		switch cmd.Command.Kind {
		case CommandTurn:
			if sn.turn(cmd.Command.Direction) {
				turned = append(turned, snakeTurnedEvent(next.GameID, next.Tick, cmd.SnakeID, cmd.Command.Direction))
			}
		case CommandRespawn:
			if !sn.IsAlive && next.Properties.RespawnReenters {
				head := respawnPosition(next, cmd.SnakeID)
				*sn = NewSnake(head, Up, 1)
				respawned = append(respawned, snakeRespawnedEvent(next.GameID, next.Tick, cmd.SnakeID, head))
			}
		}
	}

	for id := range next.Arena.Snakes {
		sn := &next.Arena.Snakes[id]
		if sn.IsAlive {
			advanceWithGrowth(sn)
		}
	}

	resolveCollisions(&next, &died)
	settleFood(&next, &eaten)
	spawnFood(&next, &spawned)
	checkTerminal(&next, &terminal)

	events := make([]Event, 0, len(turned)+len(eaten)+len(died)+len(spawned)+len(terminal)+len(respawned))
	events = append(events, turned...)
	events = append(events, eaten...)
	events = append(events, died...)
	events = append(events, spawned...)
	events = append(events, respawned...)
	events = append(events, terminal...)

	next.Tick++
	for i := range events {
		events[i].Sequence = next.EventSequence
		next.EventSequence++
	}
	return next, events, nil
}

// resolveCollisions kills every snake whose head this tick landed out of
// bounds, on its own body, or on another snake's body (including a
// simultaneous head-on collision, which kills both).
func resolveCollisions(state *GameState, events *[]Event) {
	occupied := make(map[Position][]int)
	for id, sn := range state.Arena.Snakes {
		if !sn.IsAlive {
			continue
		}
		for i, cell := range sn.Expand() {
			if i == 0 {
				continue // head checked separately below
			}
			occupied[cell] = append(occupied[cell], id)
		}
	}
	heads := make(map[Position][]int)
	for id, sn := range state.Arena.Snakes {
		if sn.IsAlive {
			heads[sn.Head()] = append(heads[sn.Head()], id)
		}
	}

	dead := make(map[int]DeathCause)
	for id, sn := range state.Arena.Snakes {
		if !sn.IsAlive {
			continue
		}
		head := sn.Head()
		if !state.Arena.InBounds(head) {
			dead[id] = DeathWall
			continue
		}
		if occupants := occupied[head]; len(occupants) > 0 {
			self := false
			for _, o := range occupants {
				if o == id {
					self = true
				}
			}
			if self {
				dead[id] = DeathSelf
			} else {
				dead[id] = DeathOtherSnake
			}
			continue
		}
		if len(heads[head]) > 1 {
			dead[id] = DeathHeadOn
		}
	}

	ids := make([]int, 0, len(dead))
	for id := range dead {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		state.Arena.Snakes[id].IsAlive = false
		*events = append(*events, snakeDiedEvent(state.GameID, state.Tick, id, dead[id]))
	}
}

// advanceWithGrowth moves the head one cell and then either consumes a
// pending growth credit (tail stays put, snake gets longer) or retreats the
// tail (snake keeps its length). This is the only place the tail moves, so
// StepForward and AdvanceTick must compute identical results from
// identical (Food, Body) state — growth is a counter, never immediate,
// which is why a snake keeps growing for several ticks after the one
// where it ate.
func advanceWithGrowth(sn *Snake) {
	if sn.Food > 0 {
		sn.growHead()
		sn.Food--
		return
	}
	sn.advanceHead()
	sn.retreatTail()
}

// settleFood grows any snake whose head landed on a food cell this tick,
// crediting the growth counter that advanceWithGrowth drains on later
// ticks, and removes the eaten cell from the arena.
func settleFood(state *GameState, events *[]Event) {
	foodSet := state.Arena.FoodSet()
	for id := range state.Arena.Snakes {
		sn := &state.Arena.Snakes[id]
		if !sn.IsAlive {
			continue
		}
		head := sn.Head()
		if !foodSet[head] {
			continue
		}
		sn.Food += state.Properties.GrowthPerFood
		state.Arena.removeFoodAt(head)
		delete(foodSet, head)
		state.Scores[id]++
		if sn.TeamID != nil && state.TeamScores != nil {
			state.TeamScores[*sn.TeamID]++
		}
		if uid, ok := state.PlayerForSnake(id); ok && state.PlayerXP != nil {
			state.PlayerXP[uid]++
		}
		*events = append(*events, foodEatenEvent(state.GameID, state.Tick, id, head))
	}
}

// spawnFood tops the arena up to AvailableFoodTarget, picking empty cells
// with the tick's deterministic RNG so every replica agrees.
func spawnFood(state *GameState, events *[]Event) {
	target := state.Properties.AvailableFoodTarget
	if len(state.Arena.Food) >= target {
		return
	}
	occupied := state.Arena.occupiedCells()
	for _, f := range state.Arena.Food {
		occupied[f] = true
	}
	rng := newTickRNG(state.GameID, uint64(state.Tick))
	area := state.Arena.Width * state.Arena.Height
	for len(state.Arena.Food) < target && len(occupied) < area {
		p := Position{X: rng.Intn(state.Arena.Width), Y: rng.Intn(state.Arena.Height)}
		if occupied[p] {
			continue
		}
		occupied[p] = true
		state.Arena.Food = append(state.Arena.Food, p)
		*events = append(*events, foodSpawnedEvent(state.GameID, state.Tick, p))
	}
}

// checkTerminal marks the game complete once the active GameType's win
// condition is met: solo ends on the sole snake's death; every other game
// type ends when at most one snake remains alive. Teams are not counted as
// units (a team match also ends only at one surviving snake), and
// Properties.TimeLimitMs is not checked.
func checkTerminal(state *GameState, events *[]Event) {
	if state.Status.IsComplete() {
		return
	}
	aliveIDs := make([]int, 0, len(state.Arena.Snakes))
	for id, sn := range state.Arena.Snakes {
		if sn.IsAlive {
			aliveIDs = append(aliveIDs, id)
		}
	}

	switch state.GameType.Kind {
	case GameTypeSolo:
		if len(aliveIDs) == 0 {
			state.Status = CompleteStatus(nil)
			*events = append(*events, statusUpdatedEvent(state.GameID, state.Tick, state.Status))
		}
	default:
		if len(state.Arena.Snakes) > 1 && len(aliveIDs) <= 1 {
			var winner *int
			if len(aliveIDs) == 1 {
				winner = &aliveIDs[0]
			}
			state.Status = CompleteStatus(winner)
			*events = append(*events, statusUpdatedEvent(state.GameID, state.Tick, state.Status))
		}
	}
}

// respawnPosition picks a spawn cell for a reentering snake using the
// tick's deterministic RNG, offset by snake_id so two snakes respawning on
// the same tick don't race for the same seed stream.
func respawnPosition(state GameState, snakeID int) Position {
	occupied := state.Arena.occupiedCells()
	rng := newTickRNG(state.GameID, uint64(state.Tick)+uint64(snakeID)*0x1000)
	for attempt := 0; attempt < state.Arena.Width*state.Arena.Height; attempt++ {
		p := Position{X: rng.Intn(state.Arena.Width), Y: rng.Intn(state.Arena.Height)}
		if !occupied[p] {
			return p
		}
	}
	return Position{}
}
