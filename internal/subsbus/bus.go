// Package subsbus implements the in-memory subscription event bus: a
// single-process, multi-producer/multi-consumer broadcast per channel,
// each subscriber owning a bounded mailbox with drop-oldest backpressure,
// plus the connection lifecycle, heartbeat and circuit-breaker machinery
// that sit around it.
package subsbus

import (
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// Event is one published message, shared by reference across every
// subscriber's mailbox.
type Event struct {
	Channel string
	Data    map[string]interface{}
}

// Stats reports bus-wide counters.
type Stats struct {
	TotalEvents      uint64
	ActiveSubscribers int
	DroppedEvents    uint64
}

// mailboxSize is the bounded channel depth every subscriber mailbox uses.
const mailboxSize = 256

// subscriber is one channel subscription's delivery endpoint.
type subscriber struct {
	id     xid.ID
	mbox   chan *Event
	filter RowFilter
	mu     sync.Mutex
	closed bool
}

// Bus is the in-memory multi-channel publish/subscribe broadcaster.
type Bus struct {
	mu          sync.RWMutex
	channels    map[string]map[xid.ID]*subscriber
	totalEvents uint64
	dropped     uint64
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{channels: make(map[string]map[xid.ID]*subscriber)}
}

// Subscription is a live handle returned by Subscribe; Events delivers
// published events matching the subscriber's filter, Unsubscribe tears it
// down.
type Subscription struct {
	bus     *Bus
	channel string
	sub     *subscriber
}

// Events returns the channel events are delivered on.
func (s *Subscription) Events() <-chan *Event { return s.sub.mbox }

// Unsubscribe removes this subscription from its channel and closes its
// mailbox. Safe to call more than once.
func (s *Subscription) Unsubscribe() { s.bus.unsubscribe(s.channel, s.sub) }

// Subscribe registers a new subscription on channel, optionally filtered
// by filter (a zero-value RowFilter matches everything).
func (b *Bus) Subscribe(channel string, filter RowFilter) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := xid.New()
	sub := &subscriber{id: id, mbox: make(chan *Event, mailboxSize), filter: filter}

	if b.channels[channel] == nil {
		b.channels[channel] = make(map[xid.ID]*subscriber)
	}
	b.channels[channel][id] = sub

	return &Subscription{bus: b, channel: channel, sub: sub}
}

func (b *Bus) unsubscribe(channel string, sub *subscriber) {
	b.mu.Lock()
	subs, ok := b.channels[channel]
	if ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(b.channels, channel)
		}
	}
	b.mu.Unlock()

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.mbox)
	}
}

// UnsubscribeChannel tears down every subscriber on channel.
func (b *Bus) UnsubscribeChannel(channel string) {
	b.mu.Lock()
	subs := b.channels[channel]
	delete(b.channels, channel)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		if !sub.closed {
			sub.closed = true
			close(sub.mbox)
		}
		sub.mu.Unlock()
	}
}

// Publish delivers event to every matching subscriber of event.Channel.
// A subscriber whose mailbox is full has its oldest queued event dropped
// to make room, so a slow consumer never blocks the publisher.
func (b *Bus) Publish(event *Event) {
	atomic.AddUint64(&b.totalEvents, 1)

	b.mu.RLock()
	subs := b.channels[event.Channel]
	targets := make([]*subscriber, 0, len(subs))
	for _, s := range subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		if !sub.filter.Matches(event) {
			continue
		}
		b.deliver(sub, event)
	}
}

func (b *Bus) deliver(sub *subscriber, event *Event) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}

	for i := 0; i <= mailboxSize; i++ {
		select {
		case sub.mbox <- event:
			return
		default:
		}

		select {
		case <-sub.mbox:
			atomic.AddUint64(&b.dropped, 1)
		default:
		}
	}
}

// Stats snapshots bus-wide counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	active := 0
	for _, subs := range b.channels {
		active += len(subs)
	}

	return Stats{
		TotalEvents:       atomic.LoadUint64(&b.totalEvents),
		ActiveSubscribers: active,
		DroppedEvents:     atomic.LoadUint64(&b.dropped),
	}
}
