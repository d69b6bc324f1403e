package events

import "errors"

var (
	// ErrHubClosed reports that the hub's actor has terminated and can no
	// longer register subscribers or deliver events.
	ErrHubClosed = errors.New("events: hub closed")
	// ErrSubscriptionClosed is returned by Next after the subscription itself
	// was closed.
	ErrSubscriptionClosed = errors.New("events: subscription closed")
)
