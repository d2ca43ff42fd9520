package app

import (
	"github.com/dkeye/CallRoom/internal/core"
	"github.com/dkeye/CallRoom/internal/domain"
	"github.com/rs/zerolog/log"
)

// Presence maps each live room to its members.
// It is not safe for concurrent use; the Router confines it to its loop.
type Presence struct {
	rooms map[domain.CallID]map[domain.ConnID]domain.Profile
}

func NewPresence() *Presence {
	return &Presence{rooms: make(map[domain.CallID]map[domain.ConnID]domain.Profile)}
}

// Join creates the room on first use and inserts or overwrites conn's entry.
func (p *Presence) Join(room domain.CallID, conn domain.ConnID, profile domain.Profile) {
	members, ok := p.rooms[room]
	if !ok {
		members = make(map[domain.ConnID]domain.Profile)
		p.rooms[room] = members
		log.Debug().Str("module", "app.presence").Str("room", string(room)).Msg("room created")
	}
	members[conn] = profile
}

// Leave removes conn from room. Absent entries are ignored.
// A room that becomes empty is dropped.
func (p *Presence) Leave(room domain.CallID, conn domain.ConnID) {
	members, ok := p.rooms[room]
	if !ok {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(p.rooms, room)
		log.Debug().Str("module", "app.presence").Str("room", string(room)).Msg("room dropped")
	}
}

// ListOthers returns every member of room except the given connection.
// Order is unspecified.
func (p *Presence) ListOthers(room domain.CallID, except domain.ConnID) []domain.Member {
	members := p.rooms[room]
	out := make([]domain.Member, 0, len(members))
	for conn, profile := range members {
		if conn == except {
			continue
		}
		out = append(out, domain.NewMember(conn, profile))
	}
	return out
}

func (p *Presence) Members(room domain.CallID) []domain.Member {
	return p.ListOthers(room, "")
}

func (p *Presence) RoomExists(room domain.CallID) bool {
	_, ok := p.rooms[room]
	return ok
}

func (p *Presence) Contains(room domain.CallID, conn domain.ConnID) bool {
	_, ok := p.rooms[room][conn]
	return ok
}

func (p *Presence) MemberCount(room domain.CallID) int { return len(p.rooms[room]) }

func (p *Presence) RoomCount() int { return len(p.rooms) }

func (p *Presence) Rooms() []core.RoomInfo {
	out := make([]core.RoomInfo, 0, len(p.rooms))
	for id, members := range p.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: len(members)})
	}
	return out
}
