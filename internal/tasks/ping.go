package tasks

import (
	"context"
	"sync"
	"time"

	"warp/internal/events"
	"warp/internal/logging"

	peerstore "github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"
)

type PeerSource interface {
	GetAll() []peerstore.AddrInfo
}

// Pinger sends one ping to a peer. ping.PingService satisfies it.
type Pinger interface {
	Ping(ctx context.Context, p peerstore.ID) <-chan ping.Result
}

// PingTask pings every tracked peer and publishes the outcome as PeerPinged.
type PingTask struct {
	peers    PeerSource
	pinger   Pinger
	bus      *events.Hub[events.Event]
	interval time.Duration
	timeout  time.Duration
}

func NewPingTask(peers PeerSource, pinger Pinger, bus *events.Hub[events.Event], interval time.Duration) *PingTask {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &PingTask{
		peers:    peers,
		pinger:   pinger,
		bus:      bus,
		interval: interval,
		timeout:  5 * time.Second,
	}
}

func (t *PingTask) Name() string {
	return "ping-peers"
}

func (t *PingTask) Interval() time.Duration {
	return t.interval
}

func (t *PingTask) RunOnStart() bool {
	return false
}

func (t *PingTask) Run(ctx context.Context) error {
	peers := t.peers.GetAll()
	if len(peers) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, p := range peers {
		wg.Add(1)
		go func(peerID peerstore.ID) {
			defer wg.Done()
			t.bus.Emit(ctx, t.pingOne(ctx, peerID))
		}(p.ID)
	}
	wg.Wait()

	return nil
}

func (t *PingTask) pingOne(ctx context.Context, peerID peerstore.ID) events.PeerPinged {
	pingCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result := events.PeerPinged{PeerID: peerID.String()}
	select {
	case <-pingCtx.Done():
		logging.Log("PING", "timeout", map[string]string{
			"peer_id": peerID.String(),
			"reason":  pingCtx.Err().Error(),
		})
	case res := <-t.pinger.Ping(pingCtx, peerID):
		if res.Error != nil {
			logging.Log("PING", "failed", map[string]string{
				"peer_id": peerID.String(),
				"reason":  res.Error.Error(),
			})
			break
		}
		result.OK = true
		result.RTT = res.RTT
	}
	result.At = time.Now().UTC()
	return result
}
