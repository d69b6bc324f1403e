// Package hooks lets modules declare named hooks ("FILESYSTEM::NEW_FILE")
// that other modules subscribe to. Every hook is backed by its own event hub,
// so a slow hook subscriber never holds up the module that triggers it.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"warp/internal/events"
	"warp/internal/logging"
)

var (
	ErrHookExists   = errors.New("hooks: hook already exists")
	ErrHookNotFound = errors.New("hooks: hook not found")
	ErrInvalidHook  = errors.New("hooks: invalid hook name")
)

type Hook struct {
	Name   string
	Module Module
}

// ID is the hook's trigger identifier, MODULE::NAME.
func (h Hook) ID() string {
	return h.Module.String() + "::" + h.Name
}

// Trigger is one firing of a hook.
type Trigger struct {
	Hook Hook
	Data DataObject
}

type Registry struct {
	mu    sync.RWMutex
	hooks map[string]*entry
	bus   *events.Hub[events.Event]
}

type entry struct {
	hook Hook
	hub  *events.Hub[Trigger]
}

// New creates a registry. Triggers are announced on bus when it is non-nil.
func New(bus *events.Hub[events.Event]) *Registry {
	return &Registry{
		hooks: make(map[string]*entry),
		bus:   bus,
	}
}

func (r *Registry) Create(name string, module Module) (Hook, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" || strings.Contains(name, "::") {
		return Hook{}, fmt.Errorf("%w: %q", ErrInvalidHook, name)
	}
	hook := Hook{Name: name, Module: module}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hooks[hook.ID()]; ok {
		return Hook{}, fmt.Errorf("%w: %s", ErrHookExists, hook.ID())
	}
	r.hooks[hook.ID()] = &entry{
		hook: hook,
		hub:  events.New[Trigger](events.WithName("hook:" + hook.ID())),
	}
	return hook, nil
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.hooks[strings.ToUpper(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHookNotFound, id)
	}
	return e, nil
}

// Subscribe calls fn for each trigger of hook on a dedicated goroutine until
// the returned cancel func is called or ctx ends.
func (r *Registry) Subscribe(ctx context.Context, hook Hook, fn func(Hook, DataObject)) (func(), error) {
	e, err := r.lookup(hook.ID())
	if err != nil {
		return nil, err
	}

	sub, err := e.hub.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer sub.Close()
		for trig := range sub.All(subCtx) {
			fn(trig.Hook, trig.Data)
		}
	}()
	return cancel, nil
}

// Trigger fires the hook identified by id ("MODULE::NAME").
func (r *Registry) Trigger(ctx context.Context, id string, data DataObject) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}

	e.hub.Emit(ctx, Trigger{Hook: e.hook, Data: data})

	if r.bus != nil {
		r.bus.Emit(ctx, events.HookTriggered{
			Hook:     e.hook.ID(),
			Module:   e.hook.Module.String(),
			ObjectID: data.ID.String(),
			At:       time.Now().UTC(),
		})
	}
	return ctx.Err()
}

// Hooks lists registered hooks ordered by ID.
func (r *Registry) Hooks() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Hook, 0, len(r.hooks))
	for _, e := range r.hooks {
		out = append(out, e.hook)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Close stops every hook hub. Subscribers observe the end of their stream.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.hooks {
		e.hub.Close()
		delete(r.hooks, id)
	}
	logging.Log("HOOKS", "closed", nil)
}
