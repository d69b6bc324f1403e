package app

import (
	"context"
	"errors"
	"flag"
	"os"
	"strconv"

	"warp/internal/config"
	"warp/internal/database"
	"warp/internal/events"
	"warp/internal/hooks"
	"warp/internal/logger"
	"warp/internal/logging"
	"warp/internal/network"
	"warp/internal/scheduler"

	"golang.org/x/sync/errgroup"
)

const AppVersion = "0.3.0"

func Run(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "config.json", "path to the JSON config file")
	dotenv := fs.String("env", ".env", "dotenv file applied before WARP_* variables")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath, *dotenv)
	if err != nil {
		return err
	}
	if err := initLogger(cfg.Log); err != nil {
		return err
	}
	defer logger.Close()

	logging.Log("APP", "version", map[string]string{
		"version": AppVersion,
	})

	if err := database.Init(cfg.DatabaseFile()); err != nil {
		return err
	}
	defer database.Close()

	bus := events.New[events.Event](
		events.WithName("app"),
		events.WithRetryInterval(cfg.Hub.RetryInterval.Std()),
	)
	defer bus.Close()

	privKey, err := network.LoadOrCreatePrivateKey(database.SettingsKeyStore{})
	if err != nil {
		return err
	}
	netNode, err := network.NewNode(cfg, privKey, bus)
	if err != nil {
		return err
	}
	defer netNode.Close()

	if err := netNode.LogLocalAddrs(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdownNotifier := NewBusShutdownRequester(bus)
	stopShutdownBridge := startShutdownBridge(ctx, cancel, shutdownNotifier)
	defer stopShutdownBridge()

	registry := hooks.New(bus)
	defer registry.Close()

	services, err := startRuntimeServices(ctx, cfg, bus, netNode, registry)
	if err != nil {
		return err
	}

	jobScheduler := scheduler.New()
	if err := registerScheduledTasks(ctx, jobScheduler, cfg, bus, netNode, services); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		jobScheduler.Start(gctx)
		jobScheduler.Wait()
		for _, st := range jobScheduler.Stats() {
			logging.Log("SCHED", "task_stats", map[string]string{
				"task":     st.Name,
				"runs":     strconv.FormatUint(st.Runs, 10),
				"failures": strconv.FormatUint(st.Failures, 10),
			})
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Log("APP", "shutdown", map[string]string{
			"reason": "context_done",
		})
		return nil
	})

	return g.Wait()
}

// loadConfig falls back to defaults when the config file does not exist.
func loadConfig(path, dotenv string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Log("CONFIG", "defaults", map[string]string{
			"path":   path,
			"reason": "not_found",
		})
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if err := config.ApplyEnv(cfg, dotenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogger(cfg config.LogConfig) error {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	if cfg.Path != "" {
		logger.Init(cfg.Path, cfg.MaxSizeMB)
		logger.SetLevel(level)
	}
	return nil
}
