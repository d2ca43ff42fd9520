package core

import (
	"bytes"
	"encoding/json"

	"github.com/dkeye/CallRoom/internal/domain"
)

// Outbound is the closed set of events the router emits.
// Payload is the value encoded as the single event argument.
type Outbound interface {
	Event() string
	Payload() any
}

type UserJoined struct {
	SocketID domain.ConnID  `json:"socketId"`
	User     domain.Profile `json:"user"`
}

type CurrentUsers []MemberDTO

// UserLeft is encoded as the bare connection id.
type UserLeft domain.ConnID

type CodeBroadcast struct {
	Code           json.RawMessage `json:"code,omitempty"`
	Language       json.RawMessage `json:"language,omitempty"`
	CursorPosition json.RawMessage `json:"cursorPosition,omitempty"`
	User           senderRef       `json:"user"`
}

// DrawBroadcast spreads the client's drawData object and adds user on top.
type DrawBroadcast struct {
	DrawData json.RawMessage
	User     senderRef
}

type TerminalBroadcast struct {
	History  json.RawMessage `json:"history,omitempty"`
	Language json.RawMessage `json:"language,omitempty"`
	User     senderRef       `json:"user"`
}

type CursorBroadcast struct {
	Position json.RawMessage `json:"position,omitempty"`
	Tool     json.RawMessage `json:"tool,omitempty"`
	User     senderWithImage `json:"user"`
}

type IDEFilesBroadcast struct {
	Files    json.RawMessage `json:"files,omitempty"`
	FileTree json.RawMessage `json:"fileTree,omitempty"`
	User     senderRef       `json:"user"`
}

type IDEFileContentBroadcast struct {
	FileName json.RawMessage `json:"fileName,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
	User     senderRef       `json:"user"`
}

type IDEOutputBroadcast struct {
	Output json.RawMessage `json:"output,omitempty"`
	User   senderRef       `json:"user"`
}

func (UserJoined) Event() string              { return EventUserJoined }
func (CurrentUsers) Event() string            { return EventCurrentUsers }
func (UserLeft) Event() string                { return EventUserLeft }
func (CodeBroadcast) Event() string           { return EventCodeUpdate }
func (DrawBroadcast) Event() string           { return EventDrawUpdate }
func (TerminalBroadcast) Event() string       { return EventTerminalUpdate }
func (CursorBroadcast) Event() string         { return EventCursorPosition }
func (IDEFilesBroadcast) Event() string       { return EventIDEFilesUpdate }
func (IDEFileContentBroadcast) Event() string { return EventIDEFileContent }
func (IDEOutputBroadcast) Event() string      { return EventIDEOutput }

func (e UserJoined) Payload() any { return e }

func (e CurrentUsers) Payload() any {
	if e == nil {
		return []MemberDTO{}
	}
	return []MemberDTO(e)
}

func (e UserLeft) Payload() any                { return string(e) }
func (e CodeBroadcast) Payload() any           { return e }
func (e DrawBroadcast) Payload() any           { return e }
func (e TerminalBroadcast) Payload() any       { return e }
func (e CursorBroadcast) Payload() any         { return e }
func (e IDEFilesBroadcast) Payload() any       { return e }
func (e IDEFileContentBroadcast) Payload() any { return e }
func (e IDEOutputBroadcast) Payload() any      { return e }

// MarshalJSON merges drawData's keys with the server-stamped user.
// A drawData that is not a JSON object contributes nothing; strings and
// arrays are not spread into index keys.
func (e DrawBroadcast) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if trimmed := bytes.TrimSpace(e.DrawData); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			fields = map[string]json.RawMessage{}
		}
	}
	user, err := json.Marshal(e.User)
	if err != nil {
		return nil, err
	}
	fields["user"] = user
	return json.Marshal(fields)
}
