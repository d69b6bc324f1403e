package tasks

import (
	"context"
	"strconv"
	"time"

	"warp/internal/events"
	"warp/internal/logging"
)

type StatsSource interface {
	Stats() events.Stats
}

// HubStatsTask logs a hub's counters periodically.
type HubStatsTask struct {
	name     string
	hub      StatsSource
	interval time.Duration
}

func NewHubStatsTask(name string, hub StatsSource, interval time.Duration) *HubStatsTask {
	if interval <= 0 {
		interval = time.Minute
	}
	return &HubStatsTask{name: name, hub: hub, interval: interval}
}

func (t *HubStatsTask) Name() string {
	return "hub-stats:" + t.name
}

func (t *HubStatsTask) Interval() time.Duration {
	return t.interval
}

func (t *HubStatsTask) RunOnStart() bool {
	return false
}

func (t *HubStatsTask) Run(_ context.Context) error {
	logging.Log("EVENTS", "hub_stats", StatsFields(t.name, t.hub.Stats()))
	return nil
}

func StatsFields(name string, s events.Stats) map[string]string {
	return map[string]string{
		"hub":         name,
		"subscribers": strconv.FormatInt(s.Subscribers, 10),
		"pending":     strconv.FormatInt(s.Pending, 10),
		"emitted":     strconv.FormatUint(s.Emitted, 10),
		"delivered":   strconv.FormatUint(s.Delivered, 10),
		"missed":      strconv.FormatUint(s.Missed, 10),
		"removed":     strconv.FormatUint(s.Removed, 10),
		"dropped":     strconv.FormatUint(s.Dropped, 10),
	}
}
