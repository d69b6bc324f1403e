package events

import "sync/atomic"

// Stats is a point-in-time view of a hub's counters.
type Stats struct {
	Subscribers int64
	Pending     int64
	Emitted     uint64
	Delivered   uint64
	Missed      uint64
	Removed     uint64
	Dropped     uint64
}

type counters struct {
	subscribers atomic.Int64
	pending     atomic.Int64
	emitted     atomic.Uint64
	delivered   atomic.Uint64
	missed      atomic.Uint64
	removed     atomic.Uint64
	dropped     atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Subscribers: c.subscribers.Load(),
		Pending:     c.pending.Load(),
		Emitted:     c.emitted.Load(),
		Delivered:   c.delivered.Load(),
		Missed:      c.missed.Load(),
		Removed:     c.removed.Load(),
		Dropped:     c.dropped.Load(),
	}
}
