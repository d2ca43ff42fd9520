package core

import "github.com/dkeye/CallRoom/internal/domain"

// Frame is a raw encoded payload ready for the wire.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Hub is the publish-subscribe surface the router fans out through.
// Emission is fire-and-forget: implementations must not block and drop
// deliveries to channels that are gone.
type Hub interface {
	JoinGroup(conn domain.ConnID, room domain.CallID)
	LeaveGroup(conn domain.ConnID, room domain.CallID)
	EmitTo(conn domain.ConnID, ev Outbound)
	EmitToGroupExcept(room domain.CallID, except domain.ConnID, ev Outbound)
	EmitToGroup(room domain.CallID, ev Outbound)
}
