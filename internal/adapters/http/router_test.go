package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/CallRoom/internal/adapters/signal"
	"github.com/dkeye/CallRoom/internal/app"
	"github.com/dkeye/CallRoom/internal/config"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:         "test",
		Port:         8080,
		Secret:       "test-secret",
		CORSOrigin:   "*",
		ReadLimit:    1 << 16,
		PingPeriod:   time.Second,
		WriteWait:    time.Second,
		SendBuffer:   16,
		Backpressure: "kick",
		InboxSize:    64,
		JoinLimit:    10,
		JoinInterval: time.Second,
		ICEServers:   []string{"stun:stun.example.org:3478"},
	}
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	return startServerWith(t, testConfig())
}

func startServerWith(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := app.NewMetrics(reg)
	hub := signal.NewHub(app.SimplePolicy{}, metrics)
	rt := app.NewRouter(app.NewPresence(), hub, metrics, cfg.InboxSize)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rt.Run(ctx)
	}()

	engine := SetupRouter(ctx, cfg, Deps{
		Router:   rt,
		Signal:   signal.NewSignalWSController(cfg, rt, hub),
		Gatherer: reg,
	})
	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) emit(name string, arg any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON([]any{name, arg}))
}

func (c *client) next() (string, json.RawMessage) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var frame []json.RawMessage
	require.NoError(c.t, c.conn.ReadJSON(&frame))
	require.Len(c.t, frame, 2)
	var name string
	require.NoError(c.t, json.Unmarshal(frame[0], &name))
	return name, frame[1]
}

func (c *client) expect(name string) json.RawMessage {
	c.t.Helper()
	got, arg := c.next()
	require.Equal(c.t, name, got)
	return arg
}

func (c *client) expectSilence() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, data, err := c.conn.ReadMessage()
	require.Error(c.t, err, "unexpected frame %s", data)
}

func user(name string) map[string]string {
	return map[string]string{"name": name, "image": name + ".png"}
}

type memberView struct {
	SocketID string            `json:"socketId"`
	User     map[string]string `json:"user"`
}

func TestSignal_CallFlow(t *testing.T) {
	srv := startServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	a.emit("join-call", map[string]any{"callId": "r1", "user": user("ann")})
	assert.JSONEq(t, `[]`, string(a.expect("current-users")))

	b.emit("join-call", map[string]any{"callId": "r1", "user": user("bob")})
	var joinedB memberView
	require.NoError(t, json.Unmarshal(a.expect("user-joined"), &joinedB))
	assert.Equal(t, "bob", joinedB.User["name"])

	var others []memberView
	require.NoError(t, json.Unmarshal(b.expect("current-users"), &others))
	require.Len(t, others, 1)
	aID := others[0].SocketID
	assert.Equal(t, "ann", others[0].User["name"])
	assert.NotEqual(t, aID, joinedB.SocketID)

	a.emit("cursor-position", map[string]any{
		"callId": "r1", "position": map[string]int{"x": 1, "y": 2}, "tool": "pen",
	})
	cursor := b.expect("cursor-position")
	assert.JSONEq(t,
		`{"position":{"x":1,"y":2},"tool":"pen","user":{"name":"ann","socketId":"`+aID+`","image":"ann.png"}}`,
		string(cursor))

	// Disconnect without leave-call.
	require.NoError(t, a.conn.Close())
	left := b.expect("user-left")
	assert.JSONEq(t, `"`+aID+`"`, string(left))
	b.expectSilence()
}

func TestSignal_SlowConsumerIsKicked(t *testing.T) {
	cfg := testConfig()
	cfg.SendBuffer = 1
	cfg.ReadLimit = 1 << 20
	cfg.PingPeriod = time.Minute
	cfg.WriteWait = time.Minute
	srv := startServerWith(t, cfg)

	slow := dial(t, srv)
	slow.emit("join-call", map[string]any{"callId": "r1", "user": user("slow")})
	slow.expect("current-users")

	peer := dial(t, srv)
	peer.emit("join-call", map[string]any{"callId": "r1", "user": user("peer")})
	var others []memberView
	require.NoError(t, json.Unmarshal(peer.expect("current-users"), &others))
	require.Len(t, others, 1)
	slowID := others[0].SocketID

	// slow never reads again; flood it until its send buffer overflows.
	stop := make(chan struct{})
	flooded := make(chan struct{})
	code := strings.Repeat("x", 64<<10)
	go func() {
		defer close(flooded)
		_ = peer.conn.SetWriteDeadline(time.Now().Add(20 * time.Second))
		for {
			select {
			case <-stop:
				return
			default:
			}
			err := peer.conn.WriteJSON([]any{"code-update", map[string]any{"callId": "r1", "code": code}})
			if err != nil {
				return
			}
		}
	}()

	require.NoError(t, peer.conn.SetReadDeadline(time.Now().Add(15*time.Second)))
	var frame []json.RawMessage
	require.NoError(t, peer.conn.ReadJSON(&frame))
	close(stop)
	<-flooded

	require.Len(t, frame, 2)
	assert.JSONEq(t, `"user-left"`, string(frame[0]))
	assert.JSONEq(t, `"`+slowID+`"`, string(frame[1]))
	peer.expectSilence()

	resp, err := http.Get(srv.URL + "/api/rooms/r1/members")
	require.NoError(t, err)
	defer resp.Body.Close()
	var members struct {
		Members []memberView `json:"members"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&members))
	require.Len(t, members.Members, 1)
	assert.Equal(t, "peer", members.Members[0].User["name"])
}

func TestSignal_LeaveCallAndEmptyRoom(t *testing.T) {
	srv := startServer(t)
	a := dial(t, srv)

	a.emit("join-call", map[string]any{"callId": "r1", "user": user("ann")})
	a.expect("current-users")
	a.emit("leave-call", "r1")
	a.expectSilence()

	resp, err := http.Get(srv.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		Rooms []json.RawMessage `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.Rooms)

	b := dial(t, srv)
	b.emit("join-call", map[string]any{"callId": "r1", "user": user("bob")})
	assert.JSONEq(t, `[]`, string(b.expect("current-users")))
}

func TestSignal_RelayBeforeJoinIsDropped(t *testing.T) {
	srv := startServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	b.emit("join-call", map[string]any{"callId": "r1", "user": user("bob")})
	b.expect("current-users")

	a.emit("code-update", map[string]any{"callId": "r1", "code": "x"})
	a.emit("ping", nil)
	a.expect("pong")
	b.expectSilence()
}

func TestRouter_RoomMembersAndICE(t *testing.T) {
	srv := startServer(t)
	a := dial(t, srv)
	a.emit("join-call", map[string]any{"callId": "room 7", "user": user("ann")})
	a.expect("current-users")

	resp, err := http.Get(srv.URL + "/api/rooms/room%207/members")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var members struct {
		Members []memberView `json:"members"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&members))
	require.Len(t, members.Members, 1)
	assert.Equal(t, "ann", members.Members[0].User["name"])

	ice, err := http.Get(srv.URL + "/api/ice-servers")
	require.NoError(t, err)
	defer ice.Body.Close()
	var iceBody struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	require.NoError(t, json.NewDecoder(ice.Body).Decode(&iceBody))
	require.Len(t, iceBody.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.example.org:3478"}, iceBody.ICEServers[0].URLs)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	srv := startServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Set-Cookie"))

	m, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer m.Body.Close()
	assert.Equal(t, http.StatusOK, m.StatusCode)
}
