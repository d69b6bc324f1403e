// Package journal records every application event into the database so the
// recent history can be inspected after the fact.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"warp/internal/database"
	"warp/internal/events"
	"warp/internal/logging"

	"github.com/google/uuid"
)

type Repository interface {
	Append(ctx context.Context, rec database.EventRecord) error
	Recent(ctx context.Context, limit int) ([]database.EventRecord, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Service struct {
	bus  *events.Hub[events.Event]
	repo Repository
	now  func() time.Time
}

func NewService(bus *events.Hub[events.Event], repo Repository) *Service {
	return &Service{
		bus:  bus,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Start subscribes to the hub and returns once the subscription is live.
func (s *Service) Start(ctx context.Context) error {
	sub, err := s.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		defer sub.Close()
		for evt := range sub.All(ctx) {
			if err := s.Record(ctx, evt); err != nil {
				logging.Log("JOURNAL", "record_failed", map[string]string{
					"event":  evt.EventName(),
					"reason": err.Error(),
				})
			}
		}
	}()
	return nil
}

// Record appends evt to the journal.
func (s *Service) Record(ctx context.Context, evt events.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.EventName(), err)
	}
	return s.repo.Append(ctx, database.EventRecord{
		ID:      uuid.NewString(),
		Name:    evt.EventName(),
		Payload: string(payload),
		At:      s.now(),
	})
}

func (s *Service) Recent(ctx context.Context, limit int) ([]database.EventRecord, error) {
	return s.repo.Recent(ctx, limit)
}

// Prune drops entries older than retention.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.PruneBefore(ctx, s.now().Add(-retention))
}
