package subsbus

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/fraiseql/fraiseql-engine/internal/ferr"
)

// ResourceLimits bounds how many subscriptions a single user or
// connection may hold open at once.
type ResourceLimits struct {
	MaxSubscriptionsPerUser       int
	MaxSubscriptionsPerConnection int
}

// ConnectionMeta identifies one live connection.
type ConnectionMeta struct {
	ID       string
	UserID   string
	TenantID string
}

type connectionState struct {
	meta          ConnectionMeta
	subscriptions map[string]*Subscription
}

// ConnectionManager tracks live connections against ResourceLimits and a
// per-user token-bucket rate limiter for new subscription requests.
type ConnectionManager struct {
	mu          sync.Mutex
	limits      ResourceLimits
	connections map[string]*connectionState
	userCounts  map[string]int
	limiters    map[string]*rate.Limiter

	// ratePerSecond/burst configure each user's token bucket, lazily
	// created on first subscription attempt.
	ratePerSecond rate.Limit
	burst         int
}

// NewConnectionManager builds a manager enforcing limits, with each
// user's subscription-request rate bounded to ratePerSecond (burst
// tokens allowed instantaneously).
func NewConnectionManager(limits ResourceLimits, ratePerSecond float64, burst int) *ConnectionManager {
	return &ConnectionManager{
		limits: limits, connections: make(map[string]*connectionState),
		userCounts: make(map[string]int), limiters: make(map[string]*rate.Limiter),
		ratePerSecond: rate.Limit(ratePerSecond), burst: burst,
	}
}

// Register adds a new connection.
func (m *ConnectionManager) Register(meta ConnectionMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[meta.ID] = &connectionState{meta: meta, subscriptions: make(map[string]*Subscription)}
}

// Unregister drops a connection and unsubscribes all of its subscriptions.
func (m *ConnectionManager) Unregister(connID string) {
	m.mu.Lock()
	conn, ok := m.connections[connID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.connections, connID)
	if conn.meta.UserID != "" {
		m.userCounts[conn.meta.UserID] -= len(conn.subscriptions)
	}
	subs := make([]*Subscription, 0, len(conn.subscriptions))
	for _, s := range conn.subscriptions {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (m *ConnectionManager) limiterFor(userID string) *rate.Limiter {
	l, ok := m.limiters[userID]
	if !ok {
		l = rate.NewLimiter(m.ratePerSecond, m.burst)
		m.limiters[userID] = l
	}
	return l
}

// Allow attempts to register a new subscription on connID, key channel,
// enforcing both the resource limits and the per-user rate limiter.
func (m *ConnectionManager) Allow(connID, channel string, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[connID]
	if !ok {
		return ferr.Validation("connection %q is not registered", connID)
	}

	if m.limits.MaxSubscriptionsPerConnection > 0 && len(conn.subscriptions) >= m.limits.MaxSubscriptionsPerConnection {
		return ferr.Validation("connection %q exceeded max subscriptions per connection", connID)
	}
	if conn.meta.UserID != "" {
		if m.limits.MaxSubscriptionsPerUser > 0 && m.userCounts[conn.meta.UserID] >= m.limits.MaxSubscriptionsPerUser {
			return ferr.Validation("user %q exceeded max subscriptions per user", conn.meta.UserID)
		}
		if !m.limiterFor(conn.meta.UserID).Allow() {
			return ferr.Validation("user %q subscription rate limit exceeded", conn.meta.UserID)
		}
		m.userCounts[conn.meta.UserID]++
	}

	conn.subscriptions[channel] = sub
	return nil
}
