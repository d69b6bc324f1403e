package events

import (
	"context"
	"iter"
)

// Subscription is the read end of one subscriber's mailbox.
type Subscription[T any] struct {
	mb   *mailbox[T]
	wake chan<- struct{}
	done <-chan struct{}
}

// Next waits for the next event. An event already in the mailbox is returned
// even after the hub has stopped; after that Next reports ErrHubClosed.
func (s *Subscription[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if s.mb.isClosed() {
		return zero, ErrSubscriptionClosed
	}

	select {
	case event := <-s.mb.ch:
		s.nudge()
		return event, nil
	default:
	}

	select {
	case event := <-s.mb.ch:
		s.nudge()
		return event, nil
	case <-s.mb.gone:
		return zero, ErrSubscriptionClosed
	case <-s.done:
		select {
		case event := <-s.mb.ch:
			return event, nil
		default:
		}
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// All yields events until ctx ends, the subscription is closed or the hub
// stops. The sequence is live and cannot be restarted.
func (s *Subscription[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			event, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(event) {
				return
			}
		}
	}
}

// Events exposes the mailbox for use in select statements. Slots freed by
// reading it directly are noticed on the hub's retry interval rather than
// immediately.
func (s *Subscription[T]) Events() <-chan T {
	return s.mb.ch
}

// Close detaches the subscriber. The hub drops its mailbox on the next
// delivery round.
func (s *Subscription[T]) Close() {
	s.mb.close()
	s.nudge()
}

// nudge tells the actor a mailbox slot may have opened up.
func (s *Subscription[T]) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
