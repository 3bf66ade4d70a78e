package protocol

import (
	"encoding/json"
	"fmt"
)

// ClientKind tags the outer envelope of a client→server message
// (spec.md §6). Lifecycle variants (CreateSoloGame, JoinGame, ...) are
// treated as opaque payloads here — the core only needs to recognize
// GameCommand to route it to a partition; everything else passes through
// to an external collaborator unexamined.
type ClientKind string

const (
	ClientToken           ClientKind = "token"
	ClientPing            ClientKind = "ping"
	ClientClockSyncReq    ClientKind = "clock_sync_request"
	ClientGameCommand     ClientKind = "game_command"
	ClientLifecycleOther  ClientKind = "lifecycle"
)

// ClientMessage is the envelope for every inbound frame. Exactly one of
// the payload fields is populated, selected by Kind; Raw preserves
// lifecycle payloads the core doesn't interpret so the gateway can still
// forward them to an external collaborator unexamined.
type ClientMessage struct {
	Kind            ClientKind      `json:"kind"`
	Token           string          `json:"token,omitempty"`
	ClientTimeMs    int64           `json:"client_time,omitempty"`
	Command         *CommandMessage `json:"command_message,omitempty"`
	LifecycleKind   string          `json:"lifecycle_kind,omitempty"`
	Raw             json.RawMessage `json:"payload,omitempty"`
}

// ServerKind tags the outer envelope of a server→client message.
type ServerKind string

const (
	ServerPong              ServerKind = "pong"
	ServerClockSyncResponse ServerKind = "clock_sync_response"
	ServerGameEvent         ServerKind = "game_event"
	ServerControlOther      ServerKind = "control"
)

// ServerMessage is the envelope for every outbound frame.
type ServerMessage struct {
	Kind          ServerKind    `json:"kind"`
	ClientTimeMs  int64         `json:"client_time,omitempty"`
	ServerTimeMs  int64         `json:"server_time,omitempty"`
	Event         *EventMessage `json:"event_message,omitempty"`
	ControlKind   string        `json:"control_kind,omitempty"`
	Raw           json.RawMessage `json:"payload,omitempty"`
}

func PongMessage() ServerMessage {
	return ServerMessage{Kind: ServerPong}
}

func ClockSyncResponseMessage(clientTimeMs, serverTimeMs int64) ServerMessage {
	return ServerMessage{Kind: ServerClockSyncResponse, ClientTimeMs: clientTimeMs, ServerTimeMs: serverTimeMs}
}

func GameEventMessage(em EventMessage) ServerMessage {
	return ServerMessage{Kind: ServerGameEvent, Event: &em}
}

// DecodeClientMessage parses one inbound frame and validates it carries
// the fields its Kind requires.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("protocol: decode client message: %w", err)
	}
	if msg.Kind == ClientGameCommand && msg.Command == nil {
		return ClientMessage{}, fmt.Errorf("protocol: game_command envelope missing command_message")
	}
	return msg, nil
}
