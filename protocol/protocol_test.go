package protocol

import (
	"encoding/json"
	"testing"

	"snaketron.dev/engine"
)

func TestCommandBodyRoundTripsTurn(t *testing.T) {
	body := CommandBody{Kind: engine.CommandTurn, Direction: engine.Up}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"turn":{"direction":"up"}}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	var decoded CommandBody
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != body {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, body)
	}
}

func TestCommandBodyRoundTripsRespawn(t *testing.T) {
	body := CommandBody{Kind: engine.CommandRespawn}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"respawn"` {
		t.Errorf("Marshal() = %s, want %q", data, "respawn")
	}

	var decoded CommandBody
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Kind != engine.CommandRespawn {
		t.Errorf("expected respawn kind, got %s", decoded.Kind)
	}
}

func TestCommandMessageToEngineRoundTrips(t *testing.T) {
	original := engine.CommandMessage{
		ClientID: engine.CommandID{Tick: 12, UserID: 99, Sequence: 3},
		SnakeID:  2,
		Command:  engine.TurnCommand(engine.Left),
	}
	wire := ToCommandMessage(original)
	back := wire.ToEngine()
	if back != original {
		t.Errorf("round trip mismatch: got %+v, want %+v", back, original)
	}
}

func TestDecodeClientMessageRequiresCommandForGameCommand(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"kind":"game_command"}`))
	if err == nil {
		t.Error("expected an error for a game_command envelope with no command_message")
	}
}

func TestDecodeClientMessageAcceptsPing(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"kind":"ping"}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage: %v", err)
	}
	if msg.Kind != ClientPing {
		t.Errorf("expected ping kind, got %s", msg.Kind)
	}
}
