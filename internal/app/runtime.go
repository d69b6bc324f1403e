package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"warp/internal/config"
	"warp/internal/database"
	"warp/internal/events"
	"warp/internal/hooks"
	"warp/internal/journal"
	"warp/internal/logging"
	"warp/internal/network"
	"warp/internal/presence"
	"warp/internal/scheduler"
	"warp/internal/tasks"
)

// startShutdownBridge cancels the app context on SIGINT/SIGTERM or on a
// request made through shutdown. Signals keep being handled until the
// returned stop func is called.
func startShutdownBridge(ctx context.Context, cancel context.CancelFunc, shutdown *BusShutdownRequester) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				reason := fmt.Sprintf("signal:%s", sig.String())
				shutdown.RequestShutdown(ctx, reason)
				logging.Log("APP", "shutdown_requested", map[string]string{
					"reason": reason,
				})
				cancel()
			case reason := <-shutdown.Requests():
				logging.Log("APP", "shutdown_requested", map[string]string{
					"reason": reason,
				})
				cancel()
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
	}
}

type runtimeServices struct {
	journal *journal.Service
}

func startRuntimeServices(
	ctx context.Context,
	cfg *config.Config,
	bus *events.Hub[events.Event],
	node *network.Node,
	registry *hooks.Registry,
) (*runtimeServices, error) {
	if err := node.StartShutdownHandler(ctx); err != nil {
		return nil, err
	}

	peerPresence := presence.NewService(bus, database.NewPeerRepository())
	if err := peerPresence.Start(ctx); err != nil {
		return nil, err
	}

	services := &runtimeServices{}
	if cfg.Journal.Enabled {
		services.journal = journal.NewService(bus, database.NewEventRepository())
		if err := services.journal.Start(ctx); err != nil {
			return nil, err
		}
	}

	if err := startPeerHooks(ctx, bus, registry); err != nil {
		return nil, err
	}

	resolver := network.NewConfigResolver(node.Host.ID(), cfg.InitConnections, nil)
	node.StartBootstrap(ctx, resolver, cfg.Bootstrap.Std())

	return services, nil
}

// startPeerHooks exposes peer lifecycle events as MESSAGING hooks so other
// modules can react without watching the whole application hub.
func startPeerHooks(ctx context.Context, bus *events.Hub[events.Event], registry *hooks.Registry) error {
	online, err := registry.Create("peer_online", hooks.Messaging)
	if err != nil {
		return err
	}
	offline, err := registry.Create("peer_offline", hooks.Messaging)
	if err != nil {
		return err
	}

	for _, hook := range []hooks.Hook{online, offline} {
		if _, err := registry.Subscribe(ctx, hook, logHookTrigger); err != nil {
			return err
		}
	}

	sub, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		defer sub.Close()
		for evt := range sub.All(ctx) {
			var hook hooks.Hook
			switch evt.(type) {
			case events.PeerConnected:
				hook = online
			case events.PeerDisconnected:
				hook = offline
			default:
				continue
			}

			data, err := hooks.NewDataObject(hook.Module, evt)
			if err == nil {
				err = registry.Trigger(ctx, hook.ID(), data)
			}
			if err != nil {
				logging.Log("HOOKS", "trigger_failed", map[string]string{
					"hook":   hook.ID(),
					"reason": err.Error(),
				})
			}
		}
	}()
	return nil
}

func logHookTrigger(hook hooks.Hook, data hooks.DataObject) {
	logging.Log("HOOKS", "triggered", map[string]string{
		"hook":      hook.ID(),
		"object_id": data.ID.String(),
	})
}

func registerScheduledTasks(
	_ context.Context,
	s *scheduler.Scheduler,
	cfg *config.Config,
	bus *events.Hub[events.Event],
	node *network.Node,
	services *runtimeServices,
) error {
	if err := s.Register(tasks.NewPingTask(node.Tracker, node.PingService, bus, cfg.PingInterval.Std())); err != nil {
		return err
	}
	if err := s.Register(tasks.NewHubStatsTask("app", bus, cfg.Hub.StatsInterval.Std())); err != nil {
		return err
	}
	if services.journal != nil {
		prune := tasks.NewJournalPruneTask(services.journal, cfg.Journal.Retention.Std(), cfg.Journal.PruneInterval.Std())
		if err := s.Register(prune); err != nil {
			return err
		}
	}
	return nil
}
