// Package mobile provides gomobile-compatible bindings for embedding the
// client-side prediction engine (spec.md §4.4) in iOS/tvOS/Android
// applications.
//
// All exported functions use only primitive types (int, int64, string,
// error) to satisfy gomobile's type restrictions, so every GameState,
// Event, and CommandMessage crossing this boundary is marshaled to its
// canonical JSON wire shape (spec.md §6) rather than passed as a Go
// struct.
package mobile

import (
	"encoding/json"
	"fmt"
	"sync"

	"snaketron.dev/clocksync"
	"snaketron.dev/engine"
	"snaketron.dev/prediction"
	"snaketron.dev/protocol"
)

var (
	eng   *prediction.Engine
	drift *clocksync.Estimator
	mu    sync.Mutex
)

// Start initializes the prediction engine from a full Snapshot's
// game_state JSON, as a client does on first join (spec.md §4.4
// "new_from_state"). Call Stop to discard it.
func Start(gameStateJSON string) error {
	mu.Lock()
	defer mu.Unlock()

	if eng != nil {
		return fmt.Errorf("mobile: prediction engine already running")
	}
	var state engine.GameState
	if err := json.Unmarshal([]byte(gameStateJSON), &state); err != nil {
		return fmt.Errorf("mobile: decode game_state: %w", err)
	}
	eng = prediction.NewFromState(state)
	drift = clocksync.NewEstimator()
	return nil
}

// Stop discards the running prediction engine.
func Stop() {
	mu.Lock()
	defer mu.Unlock()
	eng = nil
	drift = nil
}

// IsRunning reports whether Start has been called without a matching
// Stop.
func IsRunning() bool {
	mu.Lock()
	defer mu.Unlock()
	return eng != nil
}

// SetLocalPlayerID binds which user_id this engine predicts turns for.
func SetLocalPlayerID(userID int64) error {
	mu.Lock()
	defer mu.Unlock()
	if eng == nil {
		return fmt.Errorf("mobile: not running")
	}
	eng.SetLocalPlayerID(uint64(userID))
	return nil
}

// ProcessTurn applies a local turn prediction and returns the
// CommandMessage JSON the transport layer must send to the server
// (spec.md §4.4).
func ProcessTurn(snakeID int, direction string) (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if eng == nil {
		return "", fmt.Errorf("mobile: not running")
	}
	dir := engine.Direction(direction)
	if !dir.Valid() {
		return "", fmt.Errorf("mobile: invalid direction %q", direction)
	}
	cmd := eng.ProcessTurn(snakeID, dir)
	wire := protocol.ToCommandMessage(cmd)
	out, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("mobile: encode command_message: %w", err)
	}
	return string(out), nil
}

// ProcessServerEvent folds one server-confirmed GameEvent JSON payload
// onto the committed state and rebuilds predicted (spec.md §4.4).
func ProcessServerEvent(eventMessageJSON string) error {
	mu.Lock()
	defer mu.Unlock()
	if eng == nil {
		return fmt.Errorf("mobile: not running")
	}
	var em protocol.EventMessage
	if err := json.Unmarshal([]byte(eventMessageJSON), &em); err != nil {
		return fmt.Errorf("mobile: decode event_message: %w", err)
	}
	return eng.ProcessServerEvent(em.Event)
}

// RecordClockSync feeds one completed round trip into the drift
// estimator (spec.md §4.8): clientSentMs is this client's t1,
// serverReceivedMs is the server's t2, and clientReceivedMs is this
// client's t3 observed on receipt of the response.
func RecordClockSync(clientSentMs, serverReceivedMs, clientReceivedMs int64) error {
	mu.Lock()
	defer mu.Unlock()
	if drift == nil {
		return fmt.Errorf("mobile: not running")
	}
	drift.Record(clocksync.Sample{
		ClientSentMs:     clientSentMs,
		ServerReceivedMs: serverReceivedMs,
		ClientReceivedMs: clientReceivedMs,
	})
	return nil
}

// RebuildPredicted replays predicted forward to the tick nowMs (the
// caller's local wall clock reading) demands, adjusted by the current
// drift estimate.
func RebuildPredicted(nowMs int64) error {
	mu.Lock()
	defer mu.Unlock()
	if eng == nil {
		return fmt.Errorf("mobile: not running")
	}
	eng.RebuildPredicted(nowMs, drift)
	return nil
}

// CommittedStateJSON returns the last server-confirmed GameState as
// JSON.
func CommittedStateJSON() (string, error) {
	return stateJSON(func() engine.GameState { return eng.CommittedState() })
}

// PredictedStateJSON returns the current client-predicted GameState as
// JSON, for rendering.
func PredictedStateJSON() (string, error) {
	return stateJSON(func() engine.GameState { return eng.PredictedState() })
}

func stateJSON(get func() engine.GameState) (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if eng == nil {
		return "", fmt.Errorf("mobile: not running")
	}
	out, err := json.Marshal(get())
	if err != nil {
		return "", fmt.Errorf("mobile: encode game_state: %w", err)
	}
	return string(out), nil
}
