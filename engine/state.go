package engine

// GameState is the complete, serializable snapshot of a single game at a
// tick boundary (spec.md §3). It never holds a wall-clock reading or an
// unseeded RNG — everything needed to reproduce the next tick is here or
// derived from (GameID, Tick).
type GameState struct {
	GameID        uint64         `json:"game_id"`
	Tick          uint32         `json:"tick"`
	Status        Status         `json:"status"`
	Arena         Arena          `json:"arena"`
	GameType      GameType       `json:"game_type"`
	Properties    Properties     `json:"properties"`
	Players       []Player       `json:"players"`
	Usernames     map[uint64]string `json:"usernames"`
	Spectators    []uint64       `json:"spectators"`
	StartMs       int64          `json:"start_ms"`
	EventSequence uint64         `json:"event_sequence"`
	Scores        map[int]int    `json:"scores"`
	TeamScores    map[int]int    `json:"team_scores,omitempty"`
	PlayerXP      map[uint64]int `json:"player_xp,omitempty"`
}

// NewGameState builds the starting state for a fresh game. Snakes must
// already be placed in arena (see PlaceSnakes); start_ms is supplied by the
// caller (the tick scheduler, spec.md §4.3), never read from the wall
// clock here.
func NewGameState(gameID uint64, arena Arena, gt GameType, props Properties, startMs int64) GameState {
	return GameState{
		GameID:     gameID,
		Tick:       0,
		Status:     StoppedStatus(),
		Arena:      arena,
		GameType:   gt,
		Properties: props,
		Usernames:  make(map[uint64]string),
		StartMs:    startMs,
		Scores:     make(map[int]int),
	}
}

// Clone returns a deep copy of state, used by the prediction engine to
// reset predicted = committed before replaying (spec.md §4.4) and by the
// kernel itself to build the next tick without mutating its input.
func (s GameState) Clone() GameState {
	out := s
	out.Arena = s.Arena
	out.Arena.Snakes = append([]Snake(nil), s.Arena.Snakes...)
	for i, sn := range out.Arena.Snakes {
		out.Arena.Snakes[i].Body = append([]Position(nil), sn.Body...)
		if sn.TeamID != nil {
			id := *sn.TeamID
			out.Arena.Snakes[i].TeamID = &id
		}
	}
	out.Arena.Food = append([]Position(nil), s.Arena.Food...)
	out.Players = append([]Player(nil), s.Players...)
	out.Spectators = append([]uint64(nil), s.Spectators...)
	out.Usernames = make(map[uint64]string, len(s.Usernames))
	for k, v := range s.Usernames {
		out.Usernames[k] = v
	}
	out.Scores = make(map[int]int, len(s.Scores))
	for k, v := range s.Scores {
		out.Scores[k] = v
	}
	if s.TeamScores != nil {
		out.TeamScores = make(map[int]int, len(s.TeamScores))
		for k, v := range s.TeamScores {
			out.TeamScores[k] = v
		}
	}
	if s.PlayerXP != nil {
		out.PlayerXP = make(map[uint64]int, len(s.PlayerXP))
		for k, v := range s.PlayerXP {
			out.PlayerXP[k] = v
		}
	}
	return out
}

// PlayerForSnake returns the user_id controlling snakeID, if any.
func (s GameState) PlayerForSnake(snakeID int) (uint64, bool) {
	for _, p := range s.Players {
		if p.SnakeID != nil && *p.SnakeID == snakeID {
			return p.UserID, true
		}
	}
	return 0, false
}

func (s GameState) snake(snakeID int) (*Snake, error) {
	if snakeID < 0 || snakeID >= len(s.Arena.Snakes) {
		return nil, ErrUnknownSnake
	}
	return &s.Arena.Snakes[snakeID], nil
}
