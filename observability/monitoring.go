// Package observability aggregates in-process routing counters. It is for
// telemetry and side effects only, never for routing decisions.
package observability

import (
	"sync/atomic"
	"time"
)

// Snapshot is a point-in-time copy of the counters since process start.
type Snapshot struct {
	MessagesRouted   uint64 `json:"messages_routed"`
	EventsDelivered  uint64 `json:"events_delivered"`
	EventsDropped    uint64 `json:"events_dropped"`
	MessagesBlocked  uint64 `json:"messages_blocked"`
	EventsRelayed    uint64 `json:"events_relayed"`
	CensoredMessages uint64 `json:"censored_messages"`
	At               time.Time
}

// Monitoring holds lock-free counters mutated from the routing hot path.
type Monitoring struct {
	messagesRouted   atomic.Uint64
	eventsDelivered  atomic.Uint64
	eventsDropped    atomic.Uint64
	messagesBlocked  atomic.Uint64
	eventsRelayed    atomic.Uint64
	censoredMessages atomic.Uint64
}

func NewMonitoring() *Monitoring {
	return &Monitoring{}
}

func (m *Monitoring) IncrRouted()    { m.messagesRouted.Add(1) }
func (m *Monitoring) IncrDelivered() { m.eventsDelivered.Add(1) }
func (m *Monitoring) IncrDropped()   { m.eventsDropped.Add(1) }
func (m *Monitoring) IncrBlocked()   { m.messagesBlocked.Add(1) }
func (m *Monitoring) IncrRelayed()   { m.eventsRelayed.Add(1) }
func (m *Monitoring) IncrCensored()  { m.censoredMessages.Add(1) }

func (m *Monitoring) GetLatest() Snapshot {
	return Snapshot{
		MessagesRouted:   m.messagesRouted.Load(),
		EventsDelivered:  m.eventsDelivered.Load(),
		EventsDropped:    m.eventsDropped.Load(),
		MessagesBlocked:  m.messagesBlocked.Load(),
		EventsRelayed:    m.eventsRelayed.Load(),
		CensoredMessages: m.censoredMessages.Load(),
		At:               time.Now().UTC(),
	}
}
