package partition

import (
	"github.com/charmbracelet/log"

	"snaketron.dev/engine"
	"snaketron.dev/metrics"
)

// replayEvents folds a game's already-logged events onto state one tick at
// a time via engine.ApplyTick, rather than one event at a time. Movement
// carries no event of its own (engine.AdvanceTick's doc comment), so any
// tick in events that produced nothing still needs an empty ApplyTick call
// to keep state.Tick and snake geometry in step with the owning executor;
// events is assumed ordered by ascending Tick, as the log guarantees for a
// single game's entries.
func replayEvents(partitionLabel, reason string, state engine.GameState, events []engine.Event) engine.GameState {
	i := 0
	for i < len(events) {
		tick := events[i].Tick
		for state.Tick < tick {
			next, err := engine.ApplyTick(state, nil)
			if err != nil {
				log.Warn("dropping remainder of replay, empty tick step failed", "game_id", state.GameID, "tick", state.Tick, "error", err)
				metrics.EventsDropped.WithLabelValues(partitionLabel, reason).Inc()
				return state
			}
			state = next
		}

		j := i + 1
		for j < len(events) && events[j].Tick == tick {
			j++
		}

		next, err := engine.ApplyTick(state, events[i:j])
		if err != nil {
			log.Warn("dropping malformed tick during replay", "game_id", state.GameID, "tick", tick, "error", err)
			metrics.EventsDropped.WithLabelValues(partitionLabel, reason).Inc()
			i = j
			continue
		}
		state = next
		i = j
	}
	return state
}
