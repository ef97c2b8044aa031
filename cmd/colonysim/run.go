package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/colony-ai/internal/colony"
	"github.com/talgya/colony-ai/internal/config"
	"github.com/talgya/colony-ai/internal/discovery"
	"github.com/talgya/colony-ai/internal/engine"
	"github.com/talgya/colony-ai/internal/inmem"
	"github.com/talgya/colony-ai/internal/mission"
	"github.com/talgya/colony-ai/internal/persistence"
	"github.com/talgya/colony-ai/internal/sharedctx"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the decision loop for every configured settlement",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runColony(cmd.Context())
	},
}

func runColony(parent context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if v := os.Getenv("COLONY_TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COLONY_TICK_INTERVAL: %w", err)
		}
		cfg.TickInterval = d
	}
	cfg.Concurrency = envIntOrDefault("COLONY_CONCURRENCY", cfg.Concurrency)

	// ── Database ──────────────────────────────────────────────────────
	dbPath := envOrDefault("COLONY_DB_PATH", "data/colony.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	db, err := persistence.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── World ─────────────────────────────────────────────────────────
	world := inmem.NewSettlements()
	for i := range cfg.Settlements {
		s := cfg.Settlements[i]
		world.Put(&s)
	}

	blueprints := inmem.DefaultBlueprints()
	if cfg.Blueprints != "" {
		if blueprints, err = inmem.LoadBlueprints(cfg.Blueprints); err != nil {
			return err
		}
	}

	var defs mission.Definitions = mission.StaticDefinitions{}
	if dir := envOrDefault("COLONY_MISSIONS_DIR", cfg.MissionsDir); dir != "" {
		fd, err := mission.NewFileDefinitions(dir)
		if err != nil {
			return err
		}
		defs = fd
		slog.Info("mission definitions", "dir", dir)
	} else {
		slog.Warn("no missions directory configured; queued missions will fail to launch")
	}

	host := engine.Host{
		World:     world,
		Inventory: func(id string) colony.Inventory { return world.Inventory(id) },
		Accounts:  func(id string) colony.Accounts { return world.Accounts(id) },
		Acquirer: func(_ string, inv colony.Inventory, acc colony.Accounts) colony.Acquirer {
			return inmem.NewDepot(cfg.Depot.Name, inv, acc,
				inmem.WithSupply(cfg.Depot.Supply),
				inmem.WithPrices(cfg.Depot.Prices),
				inmem.WithCreditLine(cfg.Depot.CreditLine))
		},
		Construction: inmem.NewConstruction(),
		Blueprints:   blueprints,
		Tracker:      inmem.NewTracker(world),
		Store:        db,
		Definitions:  defs,
		Systems:      discovery.NewGenerator(cfg.Discovery),
		Decisions:    db,
		Logger:       slog.Default(),
	}

	var tickers []engine.Ticker
	managers := make([]*engine.Manager, 0, len(cfg.Settlements))
	for _, s := range cfg.Settlements {
		h := host
		h.Listeners = func(ctx *sharedctx.Context) []sharedctx.Listener {
			return []sharedctx.Listener{db.AuditRequests(s.ID, ctx)}
		}
		m, err := engine.Assemble(cfg, s.ID, s.SystemID, h)
		if err != nil {
			return err
		}
		managers = append(managers, m)
		tickers = append(tickers, m)
	}
	runner := engine.NewRunner(tickers, cfg.Concurrency, slog.Default())

	// ── Tick loop ─────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.NewEngine()
	eng.Interval = cfg.TickInterval
	if v, err := db.GetMeta("last_tick"); err == nil && v != "" {
		if t, err := strconv.ParseUint(v, 10, 64); err == nil {
			eng.Tick = t
		}
	}

	eng.OnTick = func(tick uint64) {
		runner.TickAll(ctx, tick)
	}
	eng.OnHour = func(tick uint64) {
		for _, m := range managers {
			st := m.Orchestrator().Status()
			slog.Info("settlement status",
				"settlement", m.SettlementID(),
				"clock", engine.SimTime(tick),
				"health_pct", st.HealthPercent,
				"queued_ops", st.QueuedOperations,
				"in_flight", len(m.Coordinator().InFlight()),
				"pending_requests", len(m.Context().PendingRequests()))
		}
	}
	eng.OnDay = func(tick uint64) {
		saveTick(db, tick)
	}

	slog.Info("colony core starting",
		"settlements", len(managers),
		"tick", eng.Tick,
		"clock", engine.SimTime(eng.Tick),
		"interval", eng.Interval)
	eng.Run(ctx)

	saveTick(db, eng.Tick)
	slog.Info("colony core stopped", "tick", eng.Tick)
	return nil
}

func saveTick(db *persistence.DB, tick uint64) {
	if err := db.SaveMeta("last_tick", strconv.FormatUint(tick, 10)); err != nil {
		slog.Error("checkpoint failed", "tick", tick, "error", err)
	}
}
