package core

import "github.com/dkeye/CallRoom/internal/domain"

// Action is one side effect decided by a router transition.
// The set is closed; dispatchers switch over every variant.
type Action interface {
	action()
}

type JoinGroup struct {
	Conn domain.ConnID
	Room domain.CallID
}

type LeaveGroup struct {
	Conn domain.ConnID
	Room domain.CallID
}

type EmitTo struct {
	Conn  domain.ConnID
	Event Outbound
}

type EmitToGroupExcept struct {
	Room   domain.CallID
	Except domain.ConnID
	Event  Outbound
}

type EmitToGroup struct {
	Room  domain.CallID
	Event Outbound
}

func (JoinGroup) action()         {}
func (LeaveGroup) action()        {}
func (EmitTo) action()            {}
func (EmitToGroupExcept) action() {}
func (EmitToGroup) action()       {}
