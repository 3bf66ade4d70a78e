package engine

// EventKind enumerates every fact the kernel or executor can append to a
// partition log. Every event carries game_id, tick, an optional user_id,
// and the log-assigned Sequence once appended (spec.md §3, §6).
type EventKind string

const (
	EventSnapshot         EventKind = "snapshot"
	EventCommandScheduled EventKind = "command_scheduled"
	EventSnakeTurned      EventKind = "snake_turned"
	EventFoodSpawned      EventKind = "food_spawned"
	EventFoodEaten        EventKind = "food_eaten"
	EventSnakeDied        EventKind = "snake_died"
	EventStatusUpdated    EventKind = "status_updated"
	// EventSnakeRespawned is a SnakeTron-specific addition beyond the
	// distilled union: the respawn semantics open question (spec.md §9)
	// resolves to RespawnReenters, and followers need a discrete fact to
	// replay a slot reentering the arena rather than inferring it.
	EventSnakeRespawned EventKind = "snake_respawned"
	EventRoundStarted     EventKind = "round_started"
	EventRoundEnded       EventKind = "round_ended"
	EventXPAwarded        EventKind = "xp_awarded"
)

// DeathCause records why a snake died, for client feedback and stats.
type DeathCause string

const (
	DeathWall       DeathCause = "wall"
	DeathSelf       DeathCause = "self"
	DeathOtherSnake DeathCause = "other_snake"
	DeathHeadOn     DeathCause = "head_on"
)

// Event is a tagged union over every fact step_forward or the executor can
// produce. Only the fields relevant to Kind are populated; this mirrors
// Command's shape so both halves of the wire protocol follow the same
// encoding rule (spec.md §6).
type Event struct {
	Kind   EventKind `json:"kind"`
	GameID uint64    `json:"game_id"`
	Tick   uint32    `json:"tick"`
	UserID *uint64   `json:"user_id,omitempty"`

	SnakeID   int         `json:"snake_id,omitempty"`
	Direction Direction   `json:"direction,omitempty"`
	Position  *Position   `json:"position,omitempty"`
	Cause     DeathCause  `json:"cause,omitempty"`
	Status    *Status     `json:"status,omitempty"`
	State     *GameState  `json:"game_state,omitempty"`
	Command   *CommandMessage `json:"command_message,omitempty"`
	Round     int         `json:"round,omitempty"`
	XP        int         `json:"xp,omitempty"`

	// Sequence is the event's order position. StepForward stamps each event
	// it produces with the state's running EventSequence; appending to a
	// partition log replaces that with the log-assigned position.
	Sequence uint64 `json:"sequence,omitempty"`
}

func snakeTurnedEvent(gameID uint64, tick uint32, snakeID int, dir Direction) Event {
	return Event{Kind: EventSnakeTurned, GameID: gameID, Tick: tick, SnakeID: snakeID, Direction: dir}
}

func foodEatenEvent(gameID uint64, tick uint32, snakeID int, at Position) Event {
	return Event{Kind: EventFoodEaten, GameID: gameID, Tick: tick, SnakeID: snakeID, Position: &at}
}

func foodSpawnedEvent(gameID uint64, tick uint32, at Position) Event {
	return Event{Kind: EventFoodSpawned, GameID: gameID, Tick: tick, Position: &at}
}

func snakeDiedEvent(gameID uint64, tick uint32, snakeID int, cause DeathCause) Event {
	return Event{Kind: EventSnakeDied, GameID: gameID, Tick: tick, SnakeID: snakeID, Cause: cause}
}

func snakeRespawnedEvent(gameID uint64, tick uint32, snakeID int, head Position) Event {
	return Event{Kind: EventSnakeRespawned, GameID: gameID, Tick: tick, SnakeID: snakeID, Position: &head}
}

func statusUpdatedEvent(gameID uint64, tick uint32, status Status) Event {
	return Event{Kind: EventStatusUpdated, GameID: gameID, Tick: tick, Status: &status}
}

// SnapshotEvent wraps a full GameState for late-joiners and recovery
// (spec.md §4.4, §4.5). Exported because the executor and partition
// package construct these directly, outside a tick's StepForward call.
func SnapshotEvent(state GameState) Event {
	return Event{Kind: EventSnapshot, GameID: state.GameID, Tick: state.Tick, State: &state}
}

// CommandScheduledEvent re-emits a command so followers see identical
// ordering to the executor that accepted it (spec.md §4.5 step 2).
func CommandScheduledEvent(gameID uint64, tick uint32, cmd CommandMessage) Event {
	return Event{Kind: EventCommandScheduled, GameID: gameID, Tick: tick, Command: &cmd}
}
