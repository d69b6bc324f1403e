package hooks

import (
	"context"
	"testing"
	"time"

	"warp/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type file struct {
	Name string `json:"name"`
}

func TestHookTrigger(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus := events.New[events.Event]()
	defer bus.Close()
	announced, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	system := New(bus)
	defer system.Close()

	hook, err := system.Create("new_file", FileSystem)
	require.NoError(t, err)
	assert.Equal(t, "FILESYSTEM::NEW_FILE", hook.ID())

	got := make(chan DataObject, 1)
	stop, err := system.Subscribe(ctx, hook, func(h Hook, data DataObject) {
		assert.Equal(t, "NEW_FILE", h.Name)
		assert.Equal(t, FileSystem, h.Module)
		got <- data
	})
	require.NoError(t, err)
	defer stop()

	data, err := NewDataObject(FileSystem, file{Name: "test.txt"})
	require.NoError(t, err)
	require.NoError(t, system.Trigger(ctx, "FILESYSTEM::NEW_FILE", data))

	select {
	case obj := <-got:
		assert.Equal(t, FileSystem, obj.Module)
		var f file
		require.NoError(t, obj.Decode(&f))
		assert.Equal(t, "test.txt", f.Name)
	case <-ctx.Done():
		t.Fatal("hook subscriber was not called")
	}

	evt, err := announced.Next(ctx)
	require.NoError(t, err)
	trig, ok := evt.(events.HookTriggered)
	require.True(t, ok)
	assert.Equal(t, "FILESYSTEM::NEW_FILE", trig.Hook)
	assert.Equal(t, data.ID.String(), trig.ObjectID)
}

func TestHookTriggerBeforeSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	system := New(nil)
	defer system.Close()
	hook, err := system.Create("ADDED", Cache)
	require.NoError(t, err)

	data, err := NewDataObject(Cache, map[string]int{"n": 1})
	require.NoError(t, err)
	require.NoError(t, system.Trigger(ctx, hook.ID(), data))

	got := make(chan DataObject, 1)
	stop, err := system.Subscribe(ctx, hook, func(_ Hook, d DataObject) { got <- d })
	require.NoError(t, err)
	defer stop()

	select {
	case obj := <-got:
		assert.Equal(t, data.ID, obj.ID)
	case <-ctx.Done():
		t.Fatal("queued trigger was not replayed to the first subscriber")
	}
}

func TestRegistryErrors(t *testing.T) {
	ctx := context.Background()
	system := New(nil)
	defer system.Close()

	_, err := system.Create("NEW_FILE", FileSystem)
	require.NoError(t, err)

	_, err = system.Create("new_file", FileSystem)
	assert.ErrorIs(t, err, ErrHookExists)

	_, err = system.Create("NEW_FILE", Cache)
	assert.NoError(t, err, "same name under another module is a different hook")

	_, err = system.Create("  ", Cache)
	assert.ErrorIs(t, err, ErrInvalidHook)

	err = system.Trigger(ctx, "MESSAGING::NOPE", DataObject{})
	assert.ErrorIs(t, err, ErrHookNotFound)

	_, err = system.Subscribe(ctx, Hook{Name: "NOPE", Module: Vault}, func(Hook, DataObject) {})
	assert.ErrorIs(t, err, ErrHookNotFound)

	ids := []string{}
	for _, h := range system.Hooks() {
		ids = append(ids, h.ID())
	}
	assert.Equal(t, []string{"CACHE::NEW_FILE", "FILESYSTEM::NEW_FILE"}, ids)
}

func TestParseModule(t *testing.T) {
	m, err := ParseModule(" filesystem ")
	require.NoError(t, err)
	assert.Equal(t, FileSystem, m)

	_, err = ParseModule("teleporter")
	assert.Error(t, err)
	assert.Equal(t, "UNKNOWN", Module(42).String())
}
