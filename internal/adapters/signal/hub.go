package signal

import (
	"errors"
	"sync"

	"github.com/dkeye/CallRoom/internal/app"
	"github.com/dkeye/CallRoom/internal/core"
	"github.com/dkeye/CallRoom/internal/domain"
	"github.com/rs/zerolog/log"
)

// Hub keeps the live connections and their group membership and implements
// core.Hub on top of them. Empty groups are dropped.
type Hub struct {
	mu        sync.RWMutex
	conns     map[domain.ConnID]core.SignalConnection
	groups    map[domain.CallID]map[domain.ConnID]struct{}
	connRooms map[domain.ConnID]map[domain.CallID]struct{}

	policy  app.Policy
	metrics *app.Metrics
}

var _ core.Hub = (*Hub)(nil)

func NewHub(policy app.Policy, metrics *app.Metrics) *Hub {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &Hub{
		conns:     make(map[domain.ConnID]core.SignalConnection),
		groups:    make(map[domain.CallID]map[domain.ConnID]struct{}),
		connRooms: make(map[domain.ConnID]map[domain.CallID]struct{}),
		policy:    policy,
		metrics:   metrics,
	}
}

func (h *Hub) Register(id domain.ConnID, conn core.SignalConnection) {
	h.mu.Lock()
	h.conns[id] = conn
	n := len(h.conns)
	h.mu.Unlock()
	h.metrics.Connections.Set(float64(n))
}

// Unregister forgets the connection and drops it from every group.
func (h *Hub) Unregister(id domain.ConnID) {
	h.mu.Lock()
	delete(h.conns, id)
	for room := range h.connRooms[id] {
		h.removeLocked(id, room)
	}
	delete(h.connRooms, id)
	n := len(h.conns)
	h.mu.Unlock()
	h.metrics.Connections.Set(float64(n))
}

func (h *Hub) JoinGroup(id domain.ConnID, room domain.CallID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[id]; !ok {
		return
	}
	if h.groups[room] == nil {
		h.groups[room] = make(map[domain.ConnID]struct{})
	}
	h.groups[room][id] = struct{}{}
	if h.connRooms[id] == nil {
		h.connRooms[id] = make(map[domain.CallID]struct{})
	}
	h.connRooms[id][room] = struct{}{}
}

func (h *Hub) LeaveGroup(id domain.ConnID, room domain.CallID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id, room)
}

func (h *Hub) removeLocked(id domain.ConnID, room domain.CallID) {
	if members := h.groups[room]; members != nil {
		delete(members, id)
		if len(members) == 0 {
			delete(h.groups, room)
		}
	}
	if rooms := h.connRooms[id]; rooms != nil {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(h.connRooms, id)
		}
	}
}

func (h *Hub) EmitTo(id domain.ConnID, ev core.Outbound) {
	frame, ok := h.encode(ev)
	if !ok {
		return
	}
	h.mu.RLock()
	conn, found := h.conns[id]
	h.mu.RUnlock()
	if !found {
		h.metrics.Dropped.WithLabelValues("gone").Inc()
		return
	}
	h.deliver(id, conn, frame)
}

func (h *Hub) EmitToGroupExcept(room domain.CallID, except domain.ConnID, ev core.Outbound) {
	h.emitGroup(room, except, ev)
}

func (h *Hub) EmitToGroup(room domain.CallID, ev core.Outbound) {
	h.emitGroup(room, "", ev)
}

// GroupSize reports how many connections are in room.
func (h *Hub) GroupSize(room domain.CallID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[room])
}

func (h *Hub) emitGroup(room domain.CallID, except domain.ConnID, ev core.Outbound) {
	frame, ok := h.encode(ev)
	if !ok {
		return
	}

	type target struct {
		id   domain.ConnID
		conn core.SignalConnection
	}
	h.mu.RLock()
	targets := make([]target, 0, len(h.groups[room]))
	for id := range h.groups[room] {
		if id == except {
			continue
		}
		if conn, ok := h.conns[id]; ok {
			targets = append(targets, target{id: id, conn: conn})
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		h.deliver(t.id, t.conn, frame)
	}
	log.Debug().Str("module", "signal.hub").Str("room", string(room)).
		Str("event", ev.Event()).Int("sent_to", len(targets)).Msg("group emit")
}

func (h *Hub) deliver(id domain.ConnID, conn core.SignalConnection, frame core.Frame) {
	err := conn.TrySend(frame)
	if err == nil {
		return
	}
	if !errors.Is(err, ErrBackpressure) {
		h.metrics.Dropped.WithLabelValues("closed").Inc()
		return
	}
	h.metrics.Dropped.WithLabelValues("backpressure").Inc()
	switch h.policy.OnBackPressure(id) {
	case app.KickMember:
		log.Warn().Str("module", "signal.hub").Str("conn", string(id)).Msg("slow consumer kicked")
		conn.Close()
	case app.DropFrame, app.NoAction:
	}
}

func (h *Hub) encode(ev core.Outbound) (core.Frame, bool) {
	frame, err := encodeOutbound(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Msg("encode outbound")
		return nil, false
	}
	return frame, true
}
