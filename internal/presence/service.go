package presence

import (
	"context"
	"time"

	"warp/internal/events"
	"warp/internal/logging"
)

type PeerRepository interface {
	UpsertLastSeen(ctx context.Context, peerID, remoteAddr string, at time.Time) error
	MarkOffline(ctx context.Context, peerID string) error
	UpdatePingResult(ctx context.Context, peerID string, ok bool, rtt time.Duration, at time.Time) error
}

// Service keeps the peer table in step with peer events on the hub.
type Service struct {
	bus  *events.Hub[events.Event]
	repo PeerRepository
}

func NewService(bus *events.Hub[events.Event], repo PeerRepository) *Service {
	return &Service{
		bus:  bus,
		repo: repo,
	}
}

// Start subscribes to the hub and returns once the subscription is live.
// The consumer stops when ctx ends or the hub shuts down.
func (s *Service) Start(ctx context.Context) error {
	sub, err := s.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		defer sub.Close()
		for evt := range sub.All(ctx) {
			s.apply(ctx, evt)
		}
	}()
	return nil
}

func (s *Service) apply(ctx context.Context, evt events.Event) {
	switch e := evt.(type) {
	case events.PeerConnected:
		if err := s.repo.UpsertLastSeen(ctx, e.PeerID, e.RemoteAddr, e.At); err != nil {
			logging.Log("PRESENCE", "update_failed", map[string]string{
				"peer_id": e.PeerID,
				"reason":  err.Error(),
			})
		}
	case events.PeerDisconnected:
		if err := s.repo.MarkOffline(ctx, e.PeerID); err != nil {
			logging.Log("PRESENCE", "update_failed", map[string]string{
				"peer_id": e.PeerID,
				"reason":  err.Error(),
			})
		}
	case events.PeerPinged:
		if err := s.repo.UpdatePingResult(ctx, e.PeerID, e.OK, e.RTT, e.At); err != nil {
			logging.Log("PRESENCE", "ping_update_failed", map[string]string{
				"peer_id": e.PeerID,
				"reason":  err.Error(),
			})
		}
	}
}
