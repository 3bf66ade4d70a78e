// Package engine implements the deterministic, tick-based snake simulation
// shared by native servers and browser/mobile clients. It is pure: no I/O,
// no wall clock, no unseeded randomness. Every exported type round-trips
// through canonical JSON (snake_case fields) so native and browser builds
// agree bit-for-bit on the wire.
package engine

// Direction is one of the four axis-aligned headings a snake can face.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Opposite returns the direction exactly opposite d.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return d
}

// Delta returns the unit grid offset for one step in direction d.
func (d Direction) Delta() Position {
	switch d {
	case Up:
		return Position{X: 0, Y: -1}
	case Down:
		return Position{X: 0, Y: 1}
	case Left:
		return Position{X: -1, Y: 0}
	case Right:
		return Position{X: 1, Y: 0}
	}
	return Position{}
}

func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Position is a single grid cell.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Status is the lifecycle phase of a game.
type Status struct {
	Kind           StatusKind `json:"kind"`
	ServerID       string     `json:"server_id,omitempty"`
	WinningSnakeID *int       `json:"winning_snake_id,omitempty"`
}

type StatusKind string

const (
	StatusStopped  StatusKind = "stopped"
	StatusStarted  StatusKind = "started"
	StatusComplete StatusKind = "complete"
)

func StoppedStatus() Status { return Status{Kind: StatusStopped} }

func StartedStatus(serverID string) Status {
	return Status{Kind: StatusStarted, ServerID: serverID}
}

func CompleteStatus(winner *int) Status {
	return Status{Kind: StatusComplete, WinningSnakeID: winner}
}

func (s Status) IsComplete() bool { return s.Kind == StatusComplete }
func (s Status) IsStarted() bool  { return s.Kind == StatusStarted }

// GameTypeKind selects the ruleset variant that governs terminal conditions
// and player capacity.
type GameTypeKind string

const (
	GameTypeSolo       GameTypeKind = "solo"
	GameTypeTeamMatch  GameTypeKind = "team_match"
	GameTypeFreeForAll GameTypeKind = "free_for_all"
	GameTypeCustom     GameTypeKind = "custom"
)

// GameType is a sum type over the supported match rulesets. Only the field
// matching Kind is meaningful.
type GameType struct {
	Kind GameTypeKind `json:"kind"`

	PerTeam    int            `json:"per_team,omitempty"`
	MaxPlayers int            `json:"max_players,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`

	// SchedulingDelayTicks is the per-game-type command scheduling buffer
	// (spec.md §4.2, §9 open question). Solo defaults to 0; multiplayer
	// variants default to 1.
	SchedulingDelayTicks uint32 `json:"scheduling_delay_ticks"`
}

func SoloGameType() GameType {
	return GameType{Kind: GameTypeSolo, SchedulingDelayTicks: 0}
}

func TeamMatchGameType(perTeam int) GameType {
	return GameType{Kind: GameTypeTeamMatch, PerTeam: perTeam, SchedulingDelayTicks: 1}
}

func FreeForAllGameType(maxPlayers int) GameType {
	return GameType{Kind: GameTypeFreeForAll, MaxPlayers: maxPlayers, SchedulingDelayTicks: 1}
}

func CustomGameType(settings map[string]any) GameType {
	return GameType{Kind: GameTypeCustom, Settings: settings, SchedulingDelayTicks: 1}
}

// Properties holds the tunables that apply uniformly across a game.
type Properties struct {
	AvailableFoodTarget int    `json:"available_food_target"`
	TickDurationMs      int64  `json:"tick_duration_ms"`
	TimeLimitMs         *int64 `json:"time_limit_ms,omitempty"`
	GrowthPerFood       int    `json:"growth_per_food"`

	// RespawnReenters controls Respawn: when true, a Respawn command for a
	// dead snake reuses its slot with a fresh one-cell snake. When false
	// (the zero value), Respawn has no effect; no fresh snake is allocated.
	RespawnReenters bool `json:"respawn_reenters"`
}

// Player binds a user to at most one snake. A spectator is a user_id with
// SnakeID == nil.
type Player struct {
	UserID  uint64 `json:"user_id"`
	SnakeID *int   `json:"snake_id,omitempty"`
}
