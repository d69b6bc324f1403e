package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"warp/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu    sync.Mutex
	calls []string
}

func (r *fakeRepo) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *fakeRepo) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRepo) UpsertLastSeen(_ context.Context, peerID, _ string, _ time.Time) error {
	r.record("seen:" + peerID)
	return nil
}

func (r *fakeRepo) MarkOffline(_ context.Context, peerID string) error {
	r.record("offline:" + peerID)
	return nil
}

func (r *fakeRepo) UpdatePingResult(_ context.Context, peerID string, ok bool, _ time.Duration, _ time.Time) error {
	if ok {
		r.record("ping-ok:" + peerID)
	} else {
		r.record("ping-failed:" + peerID)
	}
	return nil
}

func TestServiceAppliesPeerEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus := events.New[events.Event]()
	defer bus.Close()
	repo := &fakeRepo{}

	require.NoError(t, NewService(bus, repo).Start(ctx))

	now := time.Now().UTC()
	bus.Emit(ctx, events.PeerConnected{PeerID: "a", RemoteAddr: "/ip4/1.2.3.4/tcp/1", At: now})
	bus.Emit(ctx, events.PeerPinged{PeerID: "a", OK: true, RTT: time.Millisecond, At: now})
	bus.Emit(ctx, events.HookTriggered{Hook: "FILESYSTEM::NEW_FILE", At: now})
	bus.Emit(ctx, events.PeerDisconnected{PeerID: "a", At: now})

	// A single subscriber never misses events, so every call arrives in order.
	assert.Eventually(t, func() bool {
		return len(repo.snapshot()) == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"seen:a", "ping-ok:a", "offline:a"}, repo.snapshot())
}

func TestServiceStartOnClosedHub(t *testing.T) {
	bus := events.New[events.Event]()
	bus.Close()
	<-bus.Done()

	err := NewService(bus, &fakeRepo{}).Start(context.Background())
	assert.ErrorIs(t, err, events.ErrHubClosed)
}
