package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTask struct {
	name     string
	interval time.Duration
	onStart  bool
	runs     atomic.Int32
	stopAt   int32
}

func (c *countingTask) Name() string            { return c.name }
func (c *countingTask) Interval() time.Duration { return c.interval }
func (c *countingTask) RunOnStart() bool        { return c.onStart }

func (c *countingTask) Run(context.Context) error {
	n := c.runs.Add(1)
	if c.stopAt > 0 && n >= c.stopAt {
		return ErrTaskCompleted
	}
	if n == 1 {
		return errors.New("first run fails")
	}
	return nil
}

func TestRegisterValidation(t *testing.T) {
	s := New()

	assert.Error(t, s.Register(nil))
	assert.Error(t, s.Register(&countingTask{name: "zero"}))
	require.NoError(t, s.Register(&countingTask{name: "a", interval: time.Second}))
	require.NoError(t, s.Register(&countingTask{name: "b", interval: time.Second}))
	assert.Error(t, s.Register(&countingTask{name: "a", interval: time.Minute}), "duplicate name")
	assert.Equal(t, []string{"a", "b"}, s.Tasks())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Wait()

	assert.Error(t, s.Register(&countingTask{name: "late", interval: time.Second}))
}

func TestTaskCompletedStopsLoop(t *testing.T) {
	task := &countingTask{name: "once", interval: time.Millisecond, onStart: true, stopAt: 3}
	s := New()
	require.NoError(t, s.Register(task))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Start(ctx)

	waited := make(chan struct{})
	go func() {
		s.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		t.Fatal("task loop did not stop after ErrTaskCompleted")
	}
	assert.EqualValues(t, 3, task.runs.Load())

	stats := s.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, TaskStats{
		Name:      "once",
		Runs:      3,
		Failures:  1,
		LastError: "first run fails",
		Completed: true,
	}, stats[0])
}

func TestStartTwiceIsNoop(t *testing.T) {
	task := &countingTask{name: "tick", interval: time.Hour, onStart: true}
	s := New()
	require.NoError(t, s.Register(task))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	s.Start(ctx)

	assert.Eventually(t, func() bool { return task.runs.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	s.Wait()
	assert.EqualValues(t, 1, task.runs.Load())
}
