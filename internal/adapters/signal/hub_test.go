package signal

import (
	"sync"
	"testing"

	"github.com/dkeye/CallRoom/internal/app"
	"github.com/dkeye/CallRoom/internal/core"
	"github.com/dkeye/CallRoom/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []string
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if c.full {
		return ErrBackpressure
	}
	c.frames = append(c.frames, string(f))
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

func newTestHub(policy app.Policy) (*Hub, *app.Metrics) {
	m := app.NewMetrics(prometheus.NewRegistry())
	return NewHub(policy, m), m
}

func TestHub_GroupEmitExcludesSender(t *testing.T) {
	h, metrics := newTestHub(nil)
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	h.Register("a", a)
	h.Register("b", b)
	h.Register("c", c)
	h.JoinGroup("a", "r1")
	h.JoinGroup("b", "r1")
	h.JoinGroup("c", "r2")

	h.EmitToGroupExcept("r1", "a", core.UserLeft("x"))

	assert.Empty(t, a.sent())
	assert.Equal(t, []string{`["user-left","x"]`}, b.sent())
	assert.Empty(t, c.sent())
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.Connections))

	h.EmitToGroup("r1", core.UserLeft("y"))
	assert.Len(t, a.sent(), 1)
	assert.Len(t, b.sent(), 2)
}

func TestHub_EmitTo(t *testing.T) {
	h, metrics := newTestHub(nil)
	a := &fakeConn{}
	h.Register("a", a)

	h.EmitTo("a", core.CurrentUsers(nil))
	h.EmitTo("ghost", core.CurrentUsers(nil))

	assert.Equal(t, []string{`["current-users",[]]`}, a.sent())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dropped.WithLabelValues("gone")))
}

func TestHub_EmptyGroupsDropped(t *testing.T) {
	h, _ := newTestHub(nil)
	h.Register("a", &fakeConn{})
	h.Register("b", &fakeConn{})
	h.JoinGroup("a", "r1")
	h.JoinGroup("b", "r1")
	h.JoinGroup("ghost", "r1")
	assert.Equal(t, 2, h.GroupSize("r1"))

	h.LeaveGroup("a", "r1")
	h.Unregister("b")

	assert.Equal(t, 0, h.GroupSize("r1"))
	h.mu.RLock()
	defer h.mu.RUnlock()
	assert.Empty(t, h.groups)
	assert.Empty(t, h.connRooms)
}

func TestHub_BackpressurePolicies(t *testing.T) {
	tests := []struct {
		name       string
		policy     app.Policy
		wantClosed bool
	}{
		{"kick", app.SimplePolicy{}, true},
		{"drop", app.DropPolicy{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, metrics := newTestHub(tt.policy)
			slow, fast := &fakeConn{full: true}, &fakeConn{}
			h.Register("slow", slow)
			h.Register("fast", fast)
			h.JoinGroup("slow", "r1")
			h.JoinGroup("fast", "r1")

			h.EmitToGroup("r1", core.UserLeft("x"))

			require.Len(t, fast.sent(), 1)
			assert.Equal(t, tt.wantClosed, slow.closed)
			assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dropped.WithLabelValues("backpressure")))
		})
	}
}

func TestHub_ClosedConnDropsSilently(t *testing.T) {
	h, metrics := newTestHub(nil)
	gone := &fakeConn{closed: true}
	h.Register("gone", gone)
	h.JoinGroup("gone", domain.CallID("r1"))

	h.EmitToGroup("r1", core.UserLeft("x"))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dropped.WithLabelValues("closed")))
}
