package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/colony-ai/internal/colony"
	"github.com/talgya/colony-ai/internal/config"
	"github.com/talgya/colony-ai/internal/coordinator"
	"github.com/talgya/colony-ai/internal/discovery"
	"github.com/talgya/colony-ai/internal/heuristic"
	"github.com/talgya/colony-ai/internal/mission"
	"github.com/talgya/colony-ai/internal/orchestrator"
	"github.com/talgya/colony-ai/internal/sharedctx"
	"github.com/talgya/colony-ai/internal/strategy"
)

// Host holds the collaborators every settlement's services work through.
// The per-settlement accessors are called once per settlement.
type Host struct {
	World        colony.WorldReader
	Inventory    func(settlementID string) colony.Inventory
	Accounts     func(settlementID string) colony.Accounts
	Acquirer     func(settlementID string, inv colony.Inventory, acc colony.Accounts) colony.Acquirer
	Construction mission.Construction
	Blueprints   colony.BlueprintLookup
	Tracker      colony.ResourceTracker
	Store        mission.Store
	Definitions  mission.Definitions
	Systems      *discovery.Generator
	Decisions    DecisionLog

	// Listeners returns extra subscribers for a settlement's context, such
	// as a request audit. Optional.
	Listeners func(ctx *sharedctx.Context) []sharedctx.Listener

	Logger *slog.Logger
}

// Assemble builds the full service stack for one settlement.
func Assemble(cfg config.Config, settlementID, originSystem string, h Host) (*Manager, error) {
	if h.World == nil || h.Inventory == nil || h.Definitions == nil {
		return nil, errors.New("assemble: host needs world, inventory and definitions")
	}
	log := h.Logger
	if log == nil {
		log = slog.Default()
	}

	ctx := sharedctx.New(settlementID, sharedctx.WithLogger(log))
	if h.Listeners != nil {
		for _, l := range h.Listeners(ctx) {
			ctx.AddListener(l)
		}
	}

	inv := h.Inventory(settlementID)
	var acc colony.Accounts
	if h.Accounts != nil {
		acc = h.Accounts(settlementID)
	}
	var acq colony.Acquirer
	if h.Acquirer != nil {
		acq = h.Acquirer(settlementID, inv, acc)
	}

	launch := coordinator.EngineLauncher(mission.Deps{
		Context:      ctx,
		Definitions:  h.Definitions,
		Store:        h.Store,
		Construction: h.Construction,
		Blueprints:   h.Blueprints,
		Inventory:    inv,
		Tracker:      h.Tracker,
		Logger:       log,
	}, cfg.Retry)

	deps := coordinator.Deps{
		Context:   ctx,
		Launcher:  launch,
		Inventory: inv,
		Accounts:  acc,
		Acquirer:  acq,
		Origin:    originSystem,
		Logger:    log,
	}
	// A nil *Generator must not become a non-nil interface.
	var systems strategy.SystemSource
	if h.Systems != nil {
		deps.Systems = h.Systems
		systems = h.Systems
	}
	coord, err := coordinator.New(deps)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", settlementID, err)
	}

	heur, err := heuristic.New(cfg.Heuristic)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", settlementID, err)
	}

	return &Manager{
		id:        settlementID,
		world:     h.World,
		heuristic: heur,
		selector:  strategy.NewSelector(cfg.Strategy, systems, coord, log.With("settlement", settlementID)),
		coord:     coord,
		orch:      orchestrator.New(cfg.Orchestrator, ctx, coord, orchestrator.WithLogger(log)),
		decisions: h.Decisions,
		retry:     cfg.Retry,
		log:       log.With("component", "manager", "settlement", settlementID),
	}, nil
}
