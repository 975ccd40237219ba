package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/api"
	"github.com/meikuraledutech/flowchart/config"
	"github.com/meikuraledutech/flowchart/postgres"
	"github.com/meikuraledutech/flowchart/session"
	"github.com/meikuraledutech/flowchart/sqlite"
)

func main() {
	configPath := flag.String("config", os.Getenv("FLOWCHART_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		config.NewLogger("error", "text", os.Stderr).Error("load config", "error", err)
		os.Exit(1)
	}
	log := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Wire up the configured implementation behind the Store interface.
	var store flowchart.Store
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = postgres.New(pool)
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Error("open sqlite", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		defer s.Close()
		store = s
	}

	if err := store.CreateSchema(ctx); err != nil {
		log.Error("create schema", "error", err)
		os.Exit(1)
	}

	sessions := session.NewManager(
		session.WithLogger(log),
		session.WithEditorOptions(flowchart.WithHistoryLimit(cfg.HistoryLimit)),
	)

	app := api.NewApp()
	api.Register(app, sessions, store, log)

	go func() {
		<-ctx.Done()
		log.Info("shutting down", "open_sessions", sessions.Len())
		if err := app.Shutdown(); err != nil {
			log.Error("shutdown", "error", err)
		}
	}()

	log.Info("listening", "addr", cfg.ListenAddr, "store", cfg.StoreDriver)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Error("listen", "error", err)
		os.Exit(1)
	}
}
