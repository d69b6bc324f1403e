package app

import (
	"context"
	"time"

	"warp/internal/events"
)

// BusShutdownRequester asks the app to stop. Requests travel on their own
// channel; the hub only carries the ShutdownRequested announcement, which a
// busy subscriber may miss.
type BusShutdownRequester struct {
	bus      *events.Hub[events.Event]
	requests chan string
}

func NewBusShutdownRequester(bus *events.Hub[events.Event]) *BusShutdownRequester {
	return &BusShutdownRequester{
		bus:      bus,
		requests: make(chan string, 1),
	}
}

func (r *BusShutdownRequester) RequestShutdown(ctx context.Context, reason string) {
	if r == nil {
		return
	}
	select {
	case r.requests <- reason:
	default:
		// one request is already pending
	}
	if r.bus != nil {
		r.bus.Emit(ctx, events.ShutdownRequested{
			Reason: reason,
			At:     time.Now().UTC(),
		})
	}
}

func (r *BusShutdownRequester) Requests() <-chan string {
	return r.requests
}
