package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"snaketron.dev/engine"
)

// MarshalJSON renders Respawn as the bare string "respawn" and Turn as
// {"turn":{"direction":"..."}}, matching spec.md §6's tagged-union rule
// for variants that do and don't carry a payload.
func (c CommandBody) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case engine.CommandRespawn:
		return json.Marshal(string(engine.CommandRespawn))
	case engine.CommandTurn:
		payload := struct {
			Turn struct {
				Direction engine.Direction `json:"direction"`
			} `json:"turn"`
		}{}
		payload.Turn.Direction = c.Direction
		return json.Marshal(payload)
	default:
		return nil, fmt.Errorf("protocol: unknown command kind %q", c.Kind)
	}
}

func (c *CommandBody) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var unit string
		if err := json.Unmarshal(trimmed, &unit); err != nil {
			return err
		}
		if engine.CommandKind(unit) != engine.CommandRespawn {
			return fmt.Errorf("protocol: unknown unit command variant %q", unit)
		}
		*c = CommandBody{Kind: engine.CommandRespawn}
		return nil
	}

	var payload struct {
		Turn *struct {
			Direction engine.Direction `json:"direction"`
		} `json:"turn"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return err
	}
	if payload.Turn == nil {
		return fmt.Errorf("protocol: command object has no recognized variant key")
	}
	*c = CommandBody{Kind: engine.CommandTurn, Direction: payload.Turn.Direction}
	return nil
}
