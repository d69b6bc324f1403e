// Package scheduler runs periodic tasks, each on its own ticker goroutine.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"warp/internal/logging"
)

// ErrTaskCompleted stops a task's loop without being reported as a failure.
var ErrTaskCompleted = errors.New("task completed")

type Task interface {
	Name() string
	Interval() time.Duration
	RunOnStart() bool
	Run(ctx context.Context) error
}

// TaskStats counts what a task's loop has done so far.
type TaskStats struct {
	Name      string
	Runs      uint64
	Failures  uint64
	LastError string
	Completed bool
}

type entry struct {
	task      Task
	runs      atomic.Uint64
	failures  atomic.Uint64
	lastError atomic.Value // string
	completed atomic.Bool
}

func (e *entry) stats() TaskStats {
	lastErr, _ := e.lastError.Load().(string)
	return TaskStats{
		Name:      e.task.Name(),
		Runs:      e.runs.Load(),
		Failures:  e.failures.Load(),
		LastError: lastErr,
		Completed: e.completed.Load(),
	}
}

// run executes the task once and reports whether its loop should go on.
func (e *entry) run(ctx context.Context) bool {
	e.runs.Add(1)
	err := e.task.Run(ctx)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrTaskCompleted):
		e.completed.Store(true)
		logging.Log("SCHED", "task_completed", map[string]string{
			"task": e.task.Name(),
			"runs": strconv.FormatUint(e.runs.Load(), 10),
		})
		return false
	default:
		e.failures.Add(1)
		e.lastError.Store(err.Error())
		logging.Log("SCHED", "task_failed", map[string]string{
			"task":   e.task.Name(),
			"reason": err.Error(),
		})
		return true
	}
}

type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	names   map[string]struct{}
	started bool
	wg      sync.WaitGroup
}

func New() *Scheduler {
	return &Scheduler{names: make(map[string]struct{})}
}

// Register adds a task. Names must be unique and registration closes once
// the scheduler has started.
func (s *Scheduler) Register(task Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if task.Interval() <= 0 {
		return fmt.Errorf("task %s has invalid interval %s", task.Name(), task.Interval())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("cannot register task %s after scheduler start", task.Name())
	}
	if _, ok := s.names[task.Name()]; ok {
		return fmt.Errorf("task %s is already registered", task.Name())
	}

	s.names[task.Name()] = struct{}{}
	s.entries = append(s.entries, &entry{task: task})
	return nil
}

// Start launches every registered task. Loops end when ctx does.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
	logging.Log("SCHED", "started", map[string]string{
		"tasks": strconv.Itoa(len(s.entries)),
	})
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Tasks returns the registered task names in registration order.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.task.Name())
	}
	return names
}

// Stats returns per-task counters in registration order.
func (s *Scheduler) Stats() []TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStats, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.stats())
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	if e.task.RunOnStart() && !e.run(ctx) {
		return
	}

	ticker := time.NewTicker(e.task.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.run(ctx) {
				return
			}
		}
	}
}
