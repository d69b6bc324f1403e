package events

import (
	"context"
	"strconv"
	"time"

	"warp/internal/logging"
)

// command is a request sent to the actor. A non-nil reply marks a
// subscribe request; otherwise the command carries an event to enqueue.
type command[T any] struct {
	reply chan *mailbox[T]
	event T
}

// actor owns the pending queue and the subscriber registry. Nothing else
// touches them, so neither needs a lock.
type actor[T any] struct {
	name     string
	cmds     <-chan command[T]
	wake     <-chan struct{}
	retry    time.Duration
	stats    *counters
	queue    queue[T]
	registry []*mailbox[T]
}

func (a *actor[T]) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	retry := time.NewTimer(a.retry)
	retry.Stop()
	defer retry.Stop()

	for {
		var retryC <-chan time.Time
		if a.deliver() {
			retry.Reset(a.retry)
			retryC = retry.C
		} else {
			retry.Stop()
		}

		select {
		case <-ctx.Done():
			logging.Log("EVENTS", "hub_stopped", map[string]string{
				"hub":         a.name,
				"pending":     strconv.Itoa(a.queue.len()),
				"subscribers": strconv.Itoa(len(a.registry)),
			})
			return
		case cmd := <-a.cmds:
			a.handle(cmd)
		case <-a.wake:
		case <-retryC:
		}
	}
}

func (a *actor[T]) handle(cmd command[T]) {
	if cmd.reply != nil {
		mb := newMailbox[T]()
		a.registry = append(a.registry, mb)
		a.stats.subscribers.Store(int64(len(a.registry)))
		cmd.reply <- mb
		return
	}
	a.queue.push(cmd.event)
	a.stats.emitted.Add(1)
	a.stats.pending.Store(int64(a.queue.len()))
}

// deliver runs rounds over the front of the queue until it is empty or a
// round finds no mailbox able to accept. It reports whether the queue is
// stalled on subscribers that are all at capacity.
func (a *actor[T]) deliver() bool {
	defer func() {
		a.stats.pending.Store(int64(a.queue.len()))
		a.stats.subscribers.Store(int64(len(a.registry)))
	}()

	for a.queue.len() > 0 {
		if a.round(a.queue.front()) == 0 {
			return len(a.registry) > 0
		}
		a.queue.pop()
	}
	return false
}

// round offers event to every registered mailbox once. Mailboxes at capacity
// are skipped; if anyone accepted, the caller drops the event and the skipped
// mailboxes never see it.
func (a *actor[T]) round(event T) int {
	var delivered, full, removed int

	live := a.registry[:0]
	for _, mb := range a.registry {
		switch mb.trySend(event) {
		case sendAccepted:
			delivered++
			live = append(live, mb)
		case sendFull:
			full++
			live = append(live, mb)
		case sendGone:
			removed++
		}
	}
	clear(a.registry[len(live):])
	a.registry = live

	a.stats.removed.Add(uint64(removed))
	if delivered > 0 {
		a.stats.delivered.Add(uint64(delivered))
		a.stats.missed.Add(uint64(full))
	}
	return delivered
}
