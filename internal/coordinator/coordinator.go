// Package coordinator exposes one settlement's mission, acquisition and
// scouting services behind a single façade. Cross-service state lives in the
// settlement's shared context, not here.
package coordinator

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/talgya/colony-ai/internal/colony"
	"github.com/talgya/colony-ai/internal/discovery"
	"github.com/talgya/colony-ai/internal/mission"
	"github.com/talgya/colony-ai/internal/sharedctx"
)

var (
	ErrUnknownMission = errors.New("unknown mission")
	ErrUnknownSystem  = errors.New("unknown system")
	ErrNoAcquirer     = errors.New("no acquisition service")
	ErrNoMissionID    = errors.New("mission id is empty")
)

// Launcher creates the engine that will own a mission.
type Launcher func(missionID string, params map[string]any) (*mission.Engine, error)

// EngineLauncher returns a Launcher that builds engines from shared deps.
func EngineLauncher(deps mission.Deps, policy mission.RetryPolicy) Launcher {
	return func(missionID string, _ map[string]any) (*mission.Engine, error) {
		return mission.NewEngine(missionID, deps, policy)
	}
}

// SystemLookup resolves a system id relative to an origin system.
type SystemLookup interface {
	System(originID, systemID string) (discovery.System, bool)
}

// Scout turns a system into a report.
type Scout interface {
	Analyze(s discovery.System) discovery.Report
}

// Deps are the services the coordinator fronts. Context and Launcher are
// required.
type Deps struct {
	Context   *sharedctx.Context
	Launcher  Launcher
	Inventory colony.Inventory
	Accounts  colony.Accounts
	Acquirer  colony.Acquirer
	Systems   SystemLookup
	Scout     Scout
	Origin    string // system the settlement is in
	Logger    *slog.Logger
}

// Coordinator is the settlement's service façade.
type Coordinator struct {
	deps Deps
	ctx  *sharedctx.Context
	log  *slog.Logger

	mu      sync.Mutex
	engines map[string]*mission.Engine
}

// New creates a coordinator and subscribes it to the shared context.
func New(deps Deps) (*Coordinator, error) {
	if deps.Context == nil {
		return nil, errors.New("coordinator: nil shared context")
	}
	if deps.Launcher == nil {
		return nil, errors.New("coordinator: nil launcher")
	}
	if deps.Scout == nil {
		deps.Scout = discovery.ScoutLogic{}
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	c := &Coordinator{
		deps:    deps,
		ctx:     deps.Context,
		log:     log.With("component", "coordinator", "settlement", deps.Context.SettlementID()),
		engines: make(map[string]*mission.Engine),
	}
	c.ctx.AddListener(c)
	return c, nil
}

// Context returns the shared context the coordinator works against.
func (c *Coordinator) Context() *sharedctx.Context { return c.ctx }

func (c *Coordinator) engine(missionID string, params map[string]any) (*mission.Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A finished run is replaced so the mission can run again.
	if e, ok := c.engines[missionID]; ok && !e.Record().Status.Terminal() {
		return e, nil
	}
	e, err := c.deps.Launcher(missionID, params)
	if err != nil {
		return nil, err
	}
	c.engines[missionID] = e
	return e, nil
}

func (c *Coordinator) lookup(missionID string) (*mission.Engine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.engines[missionID]
	return e, ok
}

// StartMission starts a mission and runs it until it completes or blocks.
// It reports whether the mission is running or done; false means it could
// not be started or has failed.
func (c *Coordinator) StartMission(missionID string, params map[string]any) bool {
	e, err := c.engine(missionID, params)
	if err != nil {
		c.log.Warn("mission launch failed", "mission", missionID, "error", err)
		return false
	}
	if _, err := e.Start(); err != nil {
		c.log.Warn("mission start blocked", "mission", missionID, "error", err)
	}
	rec := e.Record()
	c.retire(rec)
	return rec.Status == mission.StatusInProgress || rec.Status == mission.StatusCompleted
}

// AdvanceMission runs one task of a started mission and reports whether more
// remain.
func (c *Coordinator) AdvanceMission(missionID string) bool {
	e, ok := c.lookup(missionID)
	if !ok {
		c.log.Warn("advance of unknown mission", "mission", missionID)
		return false
	}
	more := e.Advance()
	c.retire(e.Record())
	return more
}

// retire drops terminal missions from the active registry.
func (c *Coordinator) retire(rec mission.Record) {
	if !rec.Status.Terminal() {
		return
	}
	if _, ok := c.ctx.ActiveMission(rec.MissionID); !ok {
		return
	}
	c.note(c.ctx.UnregisterActiveMission(rec.MissionID))
}

// MissionStatus returns the current record of a mission this coordinator owns.
func (c *Coordinator) MissionStatus(missionID string) (mission.Record, error) {
	e, ok := c.lookup(missionID)
	if !ok {
		return mission.Record{}, fmt.Errorf("mission %s: %w", missionID, ErrUnknownMission)
	}
	return e.Record(), nil
}

// InFlight returns the ids of missions that are started but not terminal,
// sorted.
func (c *Coordinator) InFlight() []string {
	c.mu.Lock()
	engines := make([]*mission.Engine, 0, len(c.engines))
	for _, e := range c.engines {
		engines = append(engines, e)
	}
	c.mu.Unlock()

	var out []string
	for _, e := range engines {
		if rec := e.Record(); rec.Status == mission.StatusInProgress {
			out = append(out, rec.MissionID)
		}
	}
	slices.Sort(out)
	return out
}

// QueueMission appends a mission to the settlement's queue. Listener
// failures are logged; the mission is queued regardless.
func (c *Coordinator) QueueMission(missionID string, params map[string]any) error {
	if strings.TrimSpace(missionID) == "" {
		return ErrNoMissionID
	}
	c.note(c.ctx.QueueMission(sharedctx.QueuedMission{MissionID: missionID, Params: params}))
	return nil
}

// ProcessPendingMissions drains the mission queue in FIFO order, starting
// each mission. It returns how many started.
func (c *Coordinator) ProcessPendingMissions() int {
	started := 0
	for {
		m, ok, err := c.ctx.DequeueMission()
		c.note(err)
		if !ok {
			return started
		}
		if c.StartMission(m.MissionID, m.Params) {
			started++
		}
	}
}

// note logs listener failures. Context mutations are applied even when a
// listener fails, so callers carry on.
func (c *Coordinator) note(err error) {
	if err != nil {
		c.log.Warn("listeners failed", "error", err)
	}
}
