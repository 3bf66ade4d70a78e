// Package protocol defines the canonical JSON wire messages exchanged
// between a client and a transport/ws gateway (spec.md §6). Field names
// are snake_case and enum variants are encoded either as a bare string
// (unit variants) or a single-key object (`{"variant": payload}`), so the
// same bytes decode identically on the native server and a browser/WASM
// client.
package protocol

import "snaketron.dev/engine"

// CommandID mirrors engine.CommandID on the wire, split into the client
// and server halves spec.md §6 names explicitly.
type CommandID struct {
	Tick           uint32  `json:"tick"`
	UserID         uint64  `json:"user_id"`
	SequenceNumber uint32  `json:"sequence_number"`
}

// CommandMessage is the wire shape of a single command (spec.md §6):
// `{ command_id_client, command_id_server, command }`.
type CommandMessage struct {
	CommandIDClient CommandID   `json:"command_id_client"`
	CommandIDServer *uint64     `json:"command_id_server"`
	SnakeID         int         `json:"snake_id"`
	Command         CommandBody `json:"command"`
}

// CommandBody is `{"turn": {"direction": ...}}` or the bare string
// `"respawn"`. It implements custom marshaling so unit variants serialize
// as a plain string, following the tagged-union encoding rule above.
type CommandBody struct {
	Kind      engine.CommandKind
	Direction engine.Direction
}

func ToCommandMessage(msg engine.CommandMessage) CommandMessage {
	wire := CommandMessage{
		CommandIDClient: CommandID{
			Tick:           msg.ClientID.Tick,
			UserID:         msg.ClientID.UserID,
			SequenceNumber: msg.ClientID.Sequence,
		},
		CommandIDServer: msg.ServerSeq,
		SnakeID:         msg.SnakeID,
		Command:         CommandBody{Kind: msg.Command.Kind, Direction: msg.Command.Direction},
	}
	return wire
}

func (c CommandMessage) ToEngine() engine.CommandMessage {
	return engine.CommandMessage{
		ClientID: engine.CommandID{
			Tick:     c.CommandIDClient.Tick,
			UserID:   c.CommandIDClient.UserID,
			Sequence: c.CommandIDClient.SequenceNumber,
		},
		ServerSeq: c.CommandIDServer,
		SnakeID:   c.SnakeID,
		Command:   engine.Command{Kind: c.Command.Kind, Direction: c.Command.Direction},
	}
}

// EventMessage is the wire shape of `GameEvent` (spec.md §6):
// `{ game_id, tick, user_id?, event, sequence }`.
type EventMessage struct {
	GameID   uint64       `json:"game_id"`
	Tick     uint32       `json:"tick"`
	UserID   *uint64      `json:"user_id,omitempty"`
	Event    engine.Event `json:"event"`
	Sequence uint64       `json:"sequence"`
}

func ToEventMessage(ev engine.Event) EventMessage {
	return EventMessage{
		GameID:   ev.GameID,
		Tick:     ev.Tick,
		UserID:   ev.UserID,
		Event:    ev,
		Sequence: ev.Sequence,
	}
}
