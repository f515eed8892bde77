package subsbus

import (
	"sync"
	"time"
)

// ConnState is a connection's liveness state.
type ConnState int

const (
	Alive ConnState = iota
	AwaitingPong
	Dead
)

func (s ConnState) String() string {
	switch s {
	case Alive:
		return "alive"
	case AwaitingPong:
		return "awaiting_pong"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// HeartbeatConfig sets the ping cadence and pong grace period.
type HeartbeatConfig struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
}

// DefaultHeartbeatConfig mirrors common websocket keepalive practice: ping
// every 30s, allow 10s for a pong before declaring the connection dead.
func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{PingInterval: 30 * time.Second, PongTimeout: 10 * time.Second}
}

type heartbeatConn struct {
	state      ConnState
	lastPing   time.Time
	awaitSince time.Time
}

// Heartbeat tracks the Alive/AwaitingPong/Dead state machine for a set of
// connections, driven by an external ticker calling Tick.
type Heartbeat struct {
	mu     sync.Mutex
	cfg    HeartbeatConfig
	conns  map[string]*heartbeatConn
	onDead func(connID string)
}

// NewHeartbeat builds a tracker. onDead, if non-nil, is invoked (outside
// the internal lock) the moment a connection transitions to Dead, so the
// caller can drain its subscriptions.
func NewHeartbeat(cfg HeartbeatConfig, onDead func(connID string)) *Heartbeat {
	return &Heartbeat{cfg: cfg, conns: make(map[string]*heartbeatConn), onDead: onDead}
}

// Register starts tracking a connection as Alive.
func (h *Heartbeat) Register(connID string, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connID] = &heartbeatConn{state: Alive, lastPing: now}
}

// Forget stops tracking a connection.
func (h *Heartbeat) Forget(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
}

// State returns a connection's current liveness state.
func (h *Heartbeat) State(connID string) (ConnState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return Dead, false
	}
	return c.state, true
}

// Pong records a pong received from connID, returning it to Alive.
func (h *Heartbeat) Pong(connID string, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok || c.state == Dead {
		return
	}
	c.state = Alive
	c.lastPing = now
}

// Tick advances every tracked connection: one whose last ping exceeds
// PingInterval moves Alive -> AwaitingPong (the caller is expected to have
// sent a ping); one AwaitingPong past PongTimeout moves to Dead and fires
// onDead. toPing lists connections that need a ping sent this tick.
func (h *Heartbeat) Tick(now time.Time) (toPing []string) {
	var newlyDead []string

	h.mu.Lock()
	for id, c := range h.conns {
		switch c.state {
		case Alive:
			if now.Sub(c.lastPing) >= h.cfg.PingInterval {
				c.state = AwaitingPong
				c.awaitSince = now
				toPing = append(toPing, id)
			}
		case AwaitingPong:
			if now.Sub(c.awaitSince) >= h.cfg.PongTimeout {
				c.state = Dead
				newlyDead = append(newlyDead, id)
			}
		}
	}
	h.mu.Unlock()

	if h.onDead != nil {
		for _, id := range newlyDead {
			h.onDead(id)
		}
	}
	return toPing
}
