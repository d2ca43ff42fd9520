package app

import (
	"context"
	"errors"

	"github.com/dkeye/CallRoom/internal/core"
	"github.com/dkeye/CallRoom/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrRouterStopped = errors.New("router stopped")

const DefaultInboxSize = 1024

type envelope struct {
	conn  domain.ConnID
	ev    core.Inbound
	query func(*Presence)
}

// Router owns presence and every connection session. All mutations run on
// the goroutine executing Run, one envelope at a time.
type Router struct {
	presence *Presence
	sessions map[domain.ConnID]Session
	hub      core.Hub
	metrics  *Metrics

	inbox   chan envelope
	stopped chan struct{}
}

func NewRouter(presence *Presence, hub core.Hub, metrics *Metrics, inboxSize int) *Router {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	return &Router{
		presence: presence,
		sessions: make(map[domain.ConnID]Session),
		hub:      hub,
		metrics:  metrics,
		inbox:    make(chan envelope, inboxSize),
		stopped:  make(chan struct{}),
	}
}

// Run processes submitted events until ctx is done.
func (r *Router) Run(ctx context.Context) error {
	defer close(r.stopped)
	log.Info().Str("module", "app.router").Msg("router loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.router").Msg("router loop stopped")
			return nil
		case env := <-r.inbox:
			if env.query != nil {
				env.query(r.presence)
				continue
			}
			r.handle(env.conn, env.ev)
		}
	}
}

// Submit queues ev from conn for processing.
func (r *Router) Submit(ctx context.Context, conn domain.ConnID, ev core.Inbound) error {
	return r.enqueue(ctx, envelope{conn: conn, ev: ev})
}

func (r *Router) Rooms(ctx context.Context) ([]core.RoomInfo, error) {
	var out []core.RoomInfo
	err := r.run(ctx, func(p *Presence) { out = p.Rooms() })
	return out, err
}

func (r *Router) Members(ctx context.Context, room domain.CallID) ([]core.MemberDTO, error) {
	var out []core.MemberDTO
	err := r.run(ctx, func(p *Presence) {
		members := p.Members(room)
		out = make([]core.MemberDTO, 0, len(members))
		for _, m := range members {
			out = append(out, core.NewMemberDTO(m))
		}
	})
	return out, err
}

// run executes fn on the loop goroutine and waits for it.
func (r *Router) run(ctx context.Context, fn func(*Presence)) error {
	done := make(chan struct{})
	err := r.enqueue(ctx, envelope{query: func(p *Presence) {
		defer close(done)
		fn(p)
	}})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stopped:
		return ErrRouterStopped
	}
}

func (r *Router) enqueue(ctx context.Context, env envelope) error {
	select {
	case <-r.stopped:
		return ErrRouterStopped
	default:
	}
	select {
	case r.inbox <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stopped:
		return ErrRouterStopped
	}
}

func (r *Router) handle(conn domain.ConnID, ev core.Inbound) {
	r.metrics.Events.WithLabelValues(ev.Event()).Inc()

	prev := r.sessions[conn]
	next, actions := Transition(r.presence, conn, prev, ev)
	if next.State == Disconnected {
		delete(r.sessions, conn)
	} else {
		r.sessions[conn] = next
	}
	if prev.State != next.State || prev.Room != next.Room {
		log.Info().Str("module", "app.router").Str("conn", string(conn)).
			Str("from", prev.State.String()).Str("to", next.State.String()).
			Str("room", string(next.Room)).Str("name", next.Profile.Name).
			Msg("session transition")
	}

	r.dispatch(actions)
	r.metrics.Rooms.Set(float64(r.presence.RoomCount()))
}

func (r *Router) dispatch(actions []core.Action) {
	for _, a := range actions {
		switch a := a.(type) {
		case core.JoinGroup:
			r.hub.JoinGroup(a.Conn, a.Room)
		case core.LeaveGroup:
			r.hub.LeaveGroup(a.Conn, a.Room)
		case core.EmitTo:
			r.hub.EmitTo(a.Conn, a.Event)
		case core.EmitToGroupExcept:
			r.hub.EmitToGroupExcept(a.Room, a.Except, a.Event)
		case core.EmitToGroup:
			r.hub.EmitToGroup(a.Room, a.Event)
		default:
			log.Error().Str("module", "app.router").Msgf("unknown action %T", a)
		}
	}
}
