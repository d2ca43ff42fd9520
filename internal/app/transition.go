package app

import (
	"github.com/dkeye/CallRoom/internal/core"
	"github.com/dkeye/CallRoom/internal/domain"
	"github.com/rs/zerolog/log"
)

type SessionState int

const (
	Unjoined SessionState = iota
	Joined
	Left
	Disconnected
)

func (s SessionState) String() string {
	switch s {
	case Unjoined:
		return "unjoined"
	case Joined:
		return "joined"
	case Left:
		return "left"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is the per-connection state stamped onto everything it relays.
type Session struct {
	State   SessionState
	Room    domain.CallID
	Profile domain.Profile
}

func (s Session) sender(conn domain.ConnID) core.Sender {
	return core.Sender{Name: s.Profile.Name, SocketID: conn, Image: s.Profile.Image}
}

// Transition applies one inbound event for conn to the presence registry and
// returns the connection's next session together with the actions to dispatch.
// Events that are not valid in the current state yield no actions.
func Transition(p *Presence, conn domain.ConnID, s Session, ev core.Inbound) (Session, []core.Action) {
	if s.State == Disconnected {
		return s, nil
	}

	switch ev := ev.(type) {
	case core.JoinCall:
		var actions []core.Action
		if s.State == Joined && s.Room != ev.CallID {
			// A connection is in at most one room: switching rooms leaves the old one.
			actions = append(actions, leaveRoom(p, conn, s.Room, false)...)
		}
		p.Join(ev.CallID, conn, ev.User)

		others := p.ListOthers(ev.CallID, conn)
		current := make(core.CurrentUsers, 0, len(others))
		for _, m := range others {
			current = append(current, core.NewMemberDTO(m))
		}
		actions = append(actions,
			core.JoinGroup{Conn: conn, Room: ev.CallID},
			core.EmitToGroupExcept{Room: ev.CallID, Except: conn, Event: core.UserJoined{SocketID: conn, User: ev.User}},
			core.EmitTo{Conn: conn, Event: current},
		)
		return Session{State: Joined, Room: ev.CallID, Profile: ev.User}, actions

	case core.LeaveCall:
		if s.State != Joined || ev.CallID != s.Room {
			return s, nil
		}
		actions := leaveRoom(p, conn, s.Room, false)
		return Session{State: Left}, actions

	case core.Disconnect:
		var actions []core.Action
		if s.State == Joined {
			actions = leaveRoom(p, conn, s.Room, true)
		}
		return Session{State: Disconnected}, actions

	case core.Relay:
		if s.State != Joined {
			return s, nil
		}
		if room := ev.Room(); room != "" && room != s.Room {
			log.Debug().Str("module", "app.router").Str("conn", string(conn)).
				Str("room", string(s.Room)).Str("target", string(room)).Str("event", ev.Event()).
				Msg("relay to foreign room dropped")
			return s, nil
		}
		return s, []core.Action{
			core.EmitToGroupExcept{Room: s.Room, Except: conn, Event: ev.Stamp(s.sender(conn))},
		}

	default:
		log.Warn().Str("module", "app.router").Str("event", ev.Event()).Msg("unhandled inbound event")
		return s, nil
	}
}

// leaveRoom removes conn from room and notifies whoever remains.
func leaveRoom(p *Presence, conn domain.ConnID, room domain.CallID, disconnected bool) []core.Action {
	p.Leave(room, conn)
	notice := core.UserLeft(conn)
	if disconnected {
		return []core.Action{
			core.LeaveGroup{Conn: conn, Room: room},
			core.EmitToGroup{Room: room, Event: notice},
		}
	}
	return []core.Action{
		core.LeaveGroup{Conn: conn, Room: room},
		core.EmitToGroupExcept{Room: room, Except: conn, Event: notice},
	}
}
