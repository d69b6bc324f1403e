package events

import "sync"

// MailboxCapacity is the number of undelivered events a single subscriber may
// hold. A subscriber that has not consumed its previous event is skipped.
const MailboxCapacity = 1

type sendResult int

const (
	sendAccepted sendResult = iota
	sendFull
	sendGone
)

// mailbox is the delivery channel between the actor and one subscriber. The
// actor owns the write side; gone is closed when the reader goes away.
type mailbox[T any] struct {
	ch       chan T
	gone     chan struct{}
	goneOnce sync.Once
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{
		ch:   make(chan T, MailboxCapacity),
		gone: make(chan struct{}),
	}
}

func (m *mailbox[T]) close() {
	m.goneOnce.Do(func() { close(m.gone) })
}

func (m *mailbox[T]) isClosed() bool {
	select {
	case <-m.gone:
		return true
	default:
		return false
	}
}

func (m *mailbox[T]) trySend(event T) sendResult {
	if m.isClosed() {
		return sendGone
	}
	select {
	case m.ch <- event:
		return sendAccepted
	default:
		return sendFull
	}
}

// queue is the actor's FIFO of events that no mailbox has accepted yet.
type queue[T any] struct {
	items []T
}

func (q *queue[T]) push(event T) {
	q.items = append(q.items, event)
}

func (q *queue[T]) front() T {
	return q.items[0]
}

func (q *queue[T]) pop() {
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
}

func (q *queue[T]) len() int {
	return len(q.items)
}
