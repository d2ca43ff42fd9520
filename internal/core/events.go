package core

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/CallRoom/internal/domain"
)

// Wire event names. Case-sensitive.
const (
	EventJoinCall       = "join-call"
	EventLeaveCall      = "leave-call"
	EventCodeUpdate     = "code-update"
	EventDrawUpdate     = "draw-update"
	EventTerminalUpdate = "terminal-update"
	EventCursorPosition = "cursor-position"
	EventIDEFilesUpdate = "ide-files-update"
	EventIDEFileContent = "ide-file-content"
	EventIDEOutput      = "ide-output"

	EventUserJoined   = "user-joined"
	EventCurrentUsers = "current-users"
	EventUserLeft     = "user-left"
)

var ErrUnknownEvent = errors.New("unknown event")

// Inbound is the closed set of events a connection can feed the router.
type Inbound interface {
	Event() string
	inbound()
}

// Relay is an inbound event that is fanned out to the rest of the room
// after attribution stamping.
type Relay interface {
	Inbound
	Room() domain.CallID
	Stamp(from Sender) Outbound
}

// Sender is the server-side attribution attached to relayed events.
type Sender struct {
	Name     string
	SocketID domain.ConnID
	Image    string
}

type senderRef struct {
	Name     string        `json:"name"`
	SocketID domain.ConnID `json:"socketId"`
}

type senderWithImage struct {
	Name     string        `json:"name"`
	SocketID domain.ConnID `json:"socketId"`
	Image    string        `json:"image"`
}

func (s Sender) ref() senderRef { return senderRef{Name: s.Name, SocketID: s.SocketID} }

type JoinCall struct {
	CallID domain.CallID  `json:"callId"`
	User   domain.Profile `json:"user"`
}

// LeaveCall is sent on the wire as a bare string argument.
type LeaveCall struct {
	CallID domain.CallID
}

// Disconnect is raised by the transport when the channel closes for any reason.
type Disconnect struct{}

type CodeUpdate struct {
	CallID         domain.CallID   `json:"callId"`
	Code           json.RawMessage `json:"code"`
	Language       json.RawMessage `json:"language"`
	CursorPosition json.RawMessage `json:"cursorPosition"`
	// UserID is client supplied and never forwarded.
	UserID json.RawMessage `json:"userId"`
}

type DrawUpdate struct {
	CallID   domain.CallID   `json:"callId"`
	DrawData json.RawMessage `json:"drawData"`
}

type TerminalUpdate struct {
	CallID   domain.CallID   `json:"callId"`
	History  json.RawMessage `json:"history"`
	Language json.RawMessage `json:"language"`
}

type CursorPosition struct {
	CallID   domain.CallID   `json:"callId"`
	Position json.RawMessage `json:"position"`
	Tool     json.RawMessage `json:"tool"`
}

type IDEFilesUpdate struct {
	CallID   domain.CallID   `json:"callId"`
	Files    json.RawMessage `json:"files"`
	FileTree json.RawMessage `json:"fileTree"`
}

type IDEFileContent struct {
	CallID   domain.CallID   `json:"callId"`
	FileName json.RawMessage `json:"fileName"`
	Content  json.RawMessage `json:"content"`
}

type IDEOutput struct {
	CallID domain.CallID   `json:"callId"`
	Output json.RawMessage `json:"output"`
}

func (JoinCall) Event() string       { return EventJoinCall }
func (LeaveCall) Event() string      { return EventLeaveCall }
func (Disconnect) Event() string     { return "disconnect" }
func (CodeUpdate) Event() string     { return EventCodeUpdate }
func (DrawUpdate) Event() string     { return EventDrawUpdate }
func (TerminalUpdate) Event() string { return EventTerminalUpdate }
func (CursorPosition) Event() string { return EventCursorPosition }
func (IDEFilesUpdate) Event() string { return EventIDEFilesUpdate }
func (IDEFileContent) Event() string { return EventIDEFileContent }
func (IDEOutput) Event() string      { return EventIDEOutput }

func (JoinCall) inbound()       {}
func (LeaveCall) inbound()      {}
func (Disconnect) inbound()     {}
func (CodeUpdate) inbound()     {}
func (DrawUpdate) inbound()     {}
func (TerminalUpdate) inbound() {}
func (CursorPosition) inbound() {}
func (IDEFilesUpdate) inbound() {}
func (IDEFileContent) inbound() {}
func (IDEOutput) inbound()      {}

func (e CodeUpdate) Room() domain.CallID     { return e.CallID }
func (e DrawUpdate) Room() domain.CallID     { return e.CallID }
func (e TerminalUpdate) Room() domain.CallID { return e.CallID }
func (e CursorPosition) Room() domain.CallID { return e.CallID }
func (e IDEFilesUpdate) Room() domain.CallID { return e.CallID }
func (e IDEFileContent) Room() domain.CallID { return e.CallID }
func (e IDEOutput) Room() domain.CallID      { return e.CallID }

func (e CodeUpdate) Stamp(from Sender) Outbound {
	return CodeBroadcast{Code: e.Code, Language: e.Language, CursorPosition: e.CursorPosition, User: from.ref()}
}

func (e DrawUpdate) Stamp(from Sender) Outbound {
	return DrawBroadcast{DrawData: e.DrawData, User: from.ref()}
}

func (e TerminalUpdate) Stamp(from Sender) Outbound {
	return TerminalBroadcast{History: e.History, Language: e.Language, User: from.ref()}
}

func (e CursorPosition) Stamp(from Sender) Outbound {
	return CursorBroadcast{
		Position: e.Position,
		Tool:     e.Tool,
		User:     senderWithImage{Name: from.Name, SocketID: from.SocketID, Image: from.Image},
	}
}

func (e IDEFilesUpdate) Stamp(from Sender) Outbound {
	return IDEFilesBroadcast{Files: e.Files, FileTree: e.FileTree, User: from.ref()}
}

func (e IDEFileContent) Stamp(from Sender) Outbound {
	return IDEFileContentBroadcast{FileName: e.FileName, Content: e.Content, User: from.ref()}
}

func (e IDEOutput) Stamp(from Sender) Outbound {
	return IDEOutputBroadcast{Output: e.Output, User: from.ref()}
}
