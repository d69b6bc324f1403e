package events

import "time"

// Event is the payload carried on the application hub.
type Event interface {
	EventName() string
}

type PeerConnected struct {
	PeerID     string    `json:"peer_id"`
	RemoteAddr string    `json:"remote_addr"`
	At         time.Time `json:"at"`
}

func (PeerConnected) EventName() string { return "peer.connected" }

type PeerDisconnected struct {
	PeerID     string    `json:"peer_id"`
	RemoteAddr string    `json:"remote_addr"`
	At         time.Time `json:"at"`
}

func (PeerDisconnected) EventName() string { return "peer.disconnected" }

type PeerPinged struct {
	PeerID string        `json:"peer_id"`
	OK     bool          `json:"ok"`
	RTT    time.Duration `json:"rtt"`
	At     time.Time     `json:"at"`
}

func (PeerPinged) EventName() string { return "peer.pinged" }

// HookTriggered announces that a named hook fired with the given data object.
type HookTriggered struct {
	Hook     string    `json:"hook"`
	Module   string    `json:"module"`
	ObjectID string    `json:"object_id"`
	At       time.Time `json:"at"`
}

func (HookTriggered) EventName() string { return "hook.triggered" }

type ShutdownRequested struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

func (ShutdownRequested) EventName() string { return "app.shutdown_requested" }
