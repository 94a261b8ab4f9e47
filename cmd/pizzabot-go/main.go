// Package main is the entrypoint for the pizzabot-go service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/activity"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/api"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/chat"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/chat/console"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/meetup"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/meetup/inviter"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/meetup/optout"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/meetup/planner"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/cache"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/config"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/http/server"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/logutil"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/schedule"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"

	// Register cache and store drivers
	_ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/cache/loader"
	_ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/loader"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	envFile := flag.String("env-file", ".env", "Dotenv file loaded before PIZZABOT_* variables are read (ignored when missing)")
	modeFlag := flag.String("mode", "", "Operating mode: production or dev (overrides config)")
	listenAddr := flag.String("listen", "", "Status API listen address (overrides config)")
	room := flag.String("room", "", "Channel to recruit from (overrides config)")
	city := flag.String("city", "", "City shown in invitations (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: memory, json, sqlite, postgres, mirror (overrides config)")
	dataDir := flag.String("data-dir", "", "Data directory for file-backed stores (overrides config)")
	workspaceFile := flag.String("workspace", "", "Console workspace YAML file (overrides config)")
	loggingLevel := flag.String("logging-level", "", "Log level: trace, debug, info, warn, error (overrides config)")
	flag.Parse()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := logutil.New(os.Stderr, "info")

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath:      *configPath,
		EnvFile:         *envFile,
		EnvFileOptional: true,
		ModeFlag:        *modeFlag,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:    listenAddr,
			Room:          room,
			City:          city,
			StoreDriver:   storeDriver,
			DataDir:       dataDir,
			WorkspaceFile: workspaceFile,
			LoggingLevel:  loggingLevel,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Stdout carries the console transcript, so logs go to stderr.
	logger := logutil.New(os.Stderr, cfg.Logging.Level)
	slog.SetDefault(logger)
	logger.Info("effective configuration", "config", cfg.Redacted())

	if err := run(cfg, logger); err != nil {
		logger.Error("pizzabot stopped with an error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	docs, err := store.New(&store.DriverConfig{
		Driver:  cfg.Store.Driver,
		DataDir: cfg.Store.DataDir,
		Options: cfg.StoreDriverOptions(),
	})
	if err != nil {
		return err
	}
	if err := docs.Init(ctx); err != nil {
		return err
	}
	defer docs.Close()
	logger.Info("store initialized", "driver", docs.Name())

	userCache, err := cache.NewFromConfig(cfg.Cache.Driver, cfg.Cache.Drivers)
	if err != nil {
		return err
	}
	defer userCache.Close()

	ws, err := console.LoadWorkspace(cfg.Chat.WorkspaceFile)
	if err != nil {
		return err
	}
	consoleGW := console.New(ws, os.Stdout, logger)
	gateway := chat.NewCachedGateway(consoleGW, userCache, 0, logger)
	bot := consoleGW.Bot()
	if cfg.Chat.BotID != "" {
		bot.ID = cfg.Chat.BotID
	}
	if cfg.Chat.BotName != "" {
		bot.Name = cfg.Chat.BotName
	}

	feed := activity.NewFeed(logger, nil)
	messages := meetup.NewMessages(loc, cfg.Room.BotRoom, cfg.Invites.PerEvent)

	optOuts := optout.NewState(docs)
	if err := optOuts.Load(ctx); err != nil {
		return err
	}
	gate := optout.NewGate(cfg.Room.Room, cfg.OptOut.ConfirmWindow, optOuts, gateway, messages, nil, feed, logger)

	inv := inviter.New(inviter.Config{
		RemindAfter: cfg.Invites.RemindAfter,
		ExpireAfter: cfg.Invites.ExpireAfter,
	}, docs, gateway, messages, nil, feed, logger)
	if err := inv.Start(ctx); err != nil {
		return err
	}

	plans := planner.New(planner.Config{
		Room:                    cfg.Room.Room,
		City:                    cfg.Room.City,
		PerEvent:                cfg.Invites.PerEvent,
		MinimumParticipants:     cfg.Invites.MinimumParticipants,
		DaysBeforeEventToCancel: cfg.Planner.DaysBeforeEventToCancel,
		HoursBeforeRemind:       cfg.Planner.HoursBeforeRemind,
		EventHour:               cfg.Planner.EventHour,
		WeeksAhead:              cfg.Planner.WeeksAhead,
		Location:                loc,
	}, planner.Deps{
		Docs:     docs,
		Gateway:  gateway,
		Inviter:  inv,
		OptOuts:  optOuts,
		Messages: messages,
		Activity: feed,
		Logger:   logger,
	})
	if err := plans.Start(ctx); err != nil {
		return err
	}

	runner := schedule.NewRunner(logger)
	for _, job := range []schedule.Job{
		{Name: "inviter", InitialDelay: cfg.Schedule.Inviter.InitialDelay, Period: cfg.Schedule.Inviter.Period, Run: inv.Tick},
		{Name: "planner", InitialDelay: cfg.Schedule.Planner.InitialDelay, Period: cfg.Schedule.Planner.Period, Run: plans.Tick},
	} {
		if err := runner.Add(job); err != nil {
			return err
		}
	}
	runner.Start()

	// Opt-out commands go first so "opt out" is never taken as a reply.
	dispatcher := chat.NewDispatcher(gateway, bot, messages.Help(), logger, gate, inv)
	go func() {
		err := consoleGW.Serve(ctx, os.Stdin, func(ctx context.Context, in chat.Incoming) {
			_, _ = dispatcher.Dispatch(ctx, in)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("console input stopped", "error", err)
			return
		}
		logger.Info("console input closed")
	}()

	var srv *server.Server
	serverErr := make(chan error, 1)
	if cfg.HTTPEnabled() {
		srv, err = server.New(cfg.HTTP, logger, api.NewHandlers(feed, plans, logger))
		if err != nil {
			return err
		}
		go func() {
			serverErr <- srv.Start()
		}()
	}

	logger.Info("pizzabot started", "room", cfg.Room.Room, "city", cfg.Room.City)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serverErr:
		if runErr != nil {
			logger.Error("status API failed", "error", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("status API shutdown error", "error", err)
		}
	}
	if err := runner.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduled jobs did not finish in time", "error", err)
	}

	logger.Info("pizzabot stopped")
	return runErr
}
