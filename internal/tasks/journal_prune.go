package tasks

import (
	"context"
	"strconv"
	"time"

	"warp/internal/logging"
)

type Pruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// JournalPruneTask removes journal entries older than the retention window.
type JournalPruneTask struct {
	journal   Pruner
	retention time.Duration
	interval  time.Duration
}

func NewJournalPruneTask(journal Pruner, retention, interval time.Duration) *JournalPruneTask {
	if interval <= 0 {
		interval = time.Hour
	}
	return &JournalPruneTask{journal: journal, retention: retention, interval: interval}
}

func (t *JournalPruneTask) Name() string {
	return "journal-prune"
}

func (t *JournalPruneTask) Interval() time.Duration {
	return t.interval
}

func (t *JournalPruneTask) RunOnStart() bool {
	return true
}

func (t *JournalPruneTask) Run(ctx context.Context) error {
	pruned, err := t.journal.Prune(ctx, t.retention)
	if err != nil {
		return err
	}
	if pruned > 0 {
		logging.Log("JOURNAL", "pruned", map[string]string{
			"rows":      strconv.FormatInt(pruned, 10),
			"retention": t.retention.String(),
		})
	}
	return nil
}
