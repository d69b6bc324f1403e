package journal

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"warp/internal/database"
	"warp/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu      sync.Mutex
	records []database.EventRecord
}

func (r *memRepo) Append(_ context.Context, rec database.EventRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *memRepo) Recent(_ context.Context, limit int) ([]database.EventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]database.EventRecord(nil), r.records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	var pruned int64
	for _, rec := range r.records {
		if rec.At.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return pruned, nil
}

func (r *memRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func TestRecord(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(nil, repo)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	require.NoError(t, svc.Record(context.Background(), events.ShutdownRequested{Reason: "test", At: at}))

	recs, err := svc.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "app.shutdown_requested", recs[0].Name)
	assert.Equal(t, at, recs[0].At)
	_, err = uuid.Parse(recs[0].ID)
	assert.NoError(t, err)

	var decoded events.ShutdownRequested
	require.NoError(t, json.Unmarshal([]byte(recs[0].Payload), &decoded))
	assert.Equal(t, "test", decoded.Reason)
}

func TestServiceJournalsHubEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus := events.New[events.Event]()
	defer bus.Close()
	repo := &memRepo{}

	require.NoError(t, NewService(bus, repo).Start(ctx))
	for i := 0; i < 5; i++ {
		bus.Emit(ctx, events.PeerConnected{PeerID: "p", At: time.Now().UTC()})
	}

	assert.Eventually(t, func() bool { return repo.len() == 5 }, 2*time.Second, 5*time.Millisecond)
}

func TestPrune(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(nil, repo)
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for _, age := range []time.Duration{time.Hour, 48 * time.Hour, 10 * 24 * time.Hour} {
		require.NoError(t, repo.Append(context.Background(), database.EventRecord{
			ID:   uuid.NewString(),
			Name: "peer.connected",
			At:   now.Add(-age),
		}))
	}

	pruned, err := svc.Prune(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pruned)
	assert.Equal(t, 1, repo.len())
}
