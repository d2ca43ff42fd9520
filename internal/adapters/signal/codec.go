package signal

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/CallRoom/internal/core"
	"github.com/dkeye/CallRoom/internal/domain"
)

// Frames travel as JSON arrays: ["event-name", arg].

const (
	eventPing = "ping"
	eventPong = "pong"
)

func decodeFrame(data []byte) (string, json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return "", nil, fmt.Errorf("frame: %w", err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("frame: empty")
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("frame name: %w", err)
	}
	var arg json.RawMessage
	if len(parts) > 1 {
		arg = parts[1]
	}
	return name, arg, nil
}

func decodeInbound(name string, arg json.RawMessage) (core.Inbound, error) {
	switch name {
	case core.EventJoinCall:
		return decodeArg[core.JoinCall](arg)
	case core.EventLeaveCall:
		var id string
		if err := unmarshalArg(arg, &id); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return core.LeaveCall{CallID: domain.CallID(id)}, nil
	case core.EventCodeUpdate:
		return decodeArg[core.CodeUpdate](arg)
	case core.EventDrawUpdate:
		return decodeArg[core.DrawUpdate](arg)
	case core.EventTerminalUpdate:
		return decodeArg[core.TerminalUpdate](arg)
	case core.EventCursorPosition:
		return decodeArg[core.CursorPosition](arg)
	case core.EventIDEFilesUpdate:
		return decodeArg[core.IDEFilesUpdate](arg)
	case core.EventIDEFileContent:
		return decodeArg[core.IDEFileContent](arg)
	case core.EventIDEOutput:
		return decodeArg[core.IDEOutput](arg)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownEvent, name)
	}
}

func decodeArg[T core.Inbound](arg json.RawMessage) (core.Inbound, error) {
	var v T
	if err := unmarshalArg(arg, &v); err != nil {
		return nil, fmt.Errorf("%s: %w", v.Event(), err)
	}
	return v, nil
}

// unmarshalArg leaves v zero when the argument is missing or null.
func unmarshalArg(arg json.RawMessage, v any) error {
	if len(arg) == 0 || string(arg) == "null" {
		return nil
	}
	return json.Unmarshal(arg, v)
}

func encodeFrame(name string, payload any) (core.Frame, error) {
	b, err := json.Marshal([]any{name, payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return b, nil
}

func encodeOutbound(ev core.Outbound) (core.Frame, error) {
	return encodeFrame(ev.Event(), ev.Payload())
}
