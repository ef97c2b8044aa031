// Package mission executes declarative mission task lists against a
// settlement, one task per advance, persisting progress as it goes.
package mission

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/talgya/colony-ai/internal/colony"
	"github.com/talgya/colony-ai/internal/sharedctx"
)

// Deps are the collaborators an Engine works through. Context and
// Definitions are required; the rest may be nil, in which case effects
// that need them fail or are skipped.
type Deps struct {
	Context      *sharedctx.Context
	Definitions  Definitions
	Store        Store
	Construction Construction
	Blueprints   colony.BlueprintLookup
	Inventory    colony.Inventory
	Tracker      colony.ResourceTracker
	Logger       *slog.Logger
}

// Engine drives a single mission.
type Engine struct {
	missionID string
	deps      Deps
	policy    RetryPolicy
	log       *slog.Logger

	inFlight atomic.Bool

	mu      sync.Mutex
	def     *Definition
	rec     Record
	started bool
}

type notice struct {
	event   sharedctx.Event
	payload map[string]any
}

// NewEngine creates an engine for missionID in the settlement owning
// deps.Context.
func NewEngine(missionID string, deps Deps, policy RetryPolicy) (*Engine, error) {
	if deps.Context == nil {
		return nil, errors.New("mission engine: nil shared context")
	}
	if deps.Definitions == nil {
		return nil, errors.New("mission engine: nil definitions")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		missionID: missionID,
		deps:      deps,
		policy:    policy,
		log:       log.With("component", "mission", "mission", missionID),
		rec: Record{
			MissionID:    missionID,
			SettlementID: deps.Context.SettlementID(),
			Status:       StatusQueued,
			Produced:     make(map[string]float64),
			Consumed:     make(map[string]float64),
		},
	}, nil
}

// MissionID returns the mission this engine drives.
func (e *Engine) MissionID() string { return e.missionID }

// Policy returns the retry policy.
func (e *Engine) Policy() RetryPolicy { return e.policy }

// Record returns a copy of the current mission record.
func (e *Engine) Record() Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.clone()
}

// CurrentTaskIndex returns the index of the next task to run.
func (e *Engine) CurrentTaskIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.CurrentTask
}

// Start loads the mission, marks it in progress and advances until it
// completes or a task blocks. It reports whether the mission completed.
// A missing definition marks the mission failed.
func (e *Engine) Start() (bool, error) {
	if err := e.begin(); err != nil {
		return false, err
	}
	for {
		more, err := e.TryAdvance()
		if errors.Is(err, ErrMissionTerminal) {
			break
		}
		if err != nil {
			return false, err
		}
		if !more {
			break
		}
	}
	return e.Record().Status == StatusCompleted, nil
}

func (e *Engine) begin() error {
	e.mu.Lock()
	n, err := e.beginLocked()
	e.mu.Unlock()
	if n != nil {
		e.emit(n)
	}
	return err
}

func (e *Engine) beginLocked() (*notice, error) {
	if e.started {
		return nil, nil
	}
	if e.deps.Store != nil {
		stored, ok, err := e.deps.Store.LoadMission(e.rec.SettlementID, e.missionID)
		if err != nil {
			return nil, fmt.Errorf("loading mission record %s: %w", e.missionID, err)
		}
		// A terminal record belongs to a finished run; this engine starts a new one.
		if ok && !stored.Status.Terminal() {
			e.rec = stored
			if e.rec.Produced == nil {
				e.rec.Produced = make(map[string]float64)
			}
			if e.rec.Consumed == nil {
				e.rec.Consumed = make(map[string]float64)
			}
		}
	}
	def, err := e.deps.Definitions.Load(e.missionID)
	if err != nil {
		n := e.failLocked(fmt.Sprintf("loading definition: %v", err))
		e.save()
		return n, fmt.Errorf("loading mission %s: %w", e.missionID, err)
	}
	e.def = def
	e.rec.TotalTasks = len(def.Tasks)
	e.rec.Status = StatusInProgress
	e.started = true
	e.save()

	if err := e.deps.Context.RegisterActiveMission(e.missionID, string(StatusInProgress)); err != nil {
		e.log.Warn("active mission registration listeners failed", "error", err)
	}
	e.log.Info("mission started", "tasks", len(def.Tasks), "resume_at", e.rec.CurrentTask)
	return &notice{
		event: sharedctx.EventMissionStarted,
		payload: map[string]any{
			"mission_id":  e.missionID,
			"total_tasks": len(def.Tasks),
		},
	}, nil
}

// Advance runs one task and reports whether more remain. Blocking failures
// are logged; use TryAdvance to observe them.
func (e *Engine) Advance() bool {
	more, err := e.TryAdvance()
	if err != nil && !errors.Is(err, ErrMissionTerminal) {
		e.log.Warn("advance blocked", "error", err)
	}
	return more
}

// TryAdvance runs the task at the current index. On success the index moves
// forward and progress is recomputed; on failure the index stays put and the
// attempt is counted. A concurrent call returns ErrAdvanceInFlight without
// touching state.
func (e *Engine) TryAdvance() (bool, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return false, ErrAdvanceInFlight
	}
	defer e.inFlight.Store(false)

	e.mu.Lock()
	more, n, err := e.step()
	e.mu.Unlock()
	if n != nil {
		e.emit(n)
	}
	return more, err
}

func (e *Engine) step() (bool, *notice, error) {
	if !e.started {
		return false, nil, ErrNotStarted
	}
	if e.rec.Status.Terminal() {
		return false, nil, ErrMissionTerminal
	}
	tasks := e.def.Tasks
	idx := e.rec.CurrentTask
	if idx >= len(tasks) {
		return false, e.complete(), nil
	}

	task := tasks[idx]
	if err := e.runTask(task); err != nil {
		e.rec.Attempts++
		e.rec.LastError = err.Error()
		var n *notice
		if e.policy.MaxAttempts > 0 && e.rec.Attempts >= e.policy.MaxAttempts {
			n = e.failLocked(fmt.Sprintf("task %s failed %d times: %v", task.ID, e.rec.Attempts, err))
		}
		e.save()
		return false, n, fmt.Errorf("%w: %s at index %d: %v", ErrTaskFailed, task.ID, idx, err)
	}

	e.rec.CurrentTask++
	e.rec.AppliedEffects = 0
	e.rec.DeployedUnits = 0
	e.rec.Attempts = 0
	e.rec.LastError = ""
	e.rec.Progress = progressPercent(e.rec.CurrentTask, len(tasks))
	e.log.Debug("task completed", "task", task.ID, "progress", e.rec.Progress)
	if e.rec.CurrentTask >= len(tasks) {
		return false, e.complete(), nil
	}
	e.save()
	return true, nil, nil
}

func (e *Engine) complete() *notice {
	n := len(e.def.Tasks)
	e.rec.Status = StatusCompleted
	e.rec.Progress = 100
	e.rec.CompletionDate = e.deps.Context.Now()
	e.rec.CompletionMessage = fmt.Sprintf("All %d tasks completed successfully", n)
	e.save()
	if e.deps.Tracker != nil {
		e.deps.Tracker.TrackInventorySnapshot(e.rec.SettlementID)
	}
	e.log.Info("mission completed", "tasks", n)
	return &notice{
		event: sharedctx.EventMissionCompleted,
		payload: map[string]any{
			"mission_id": e.missionID,
			"tasks":      n,
			"produced":   e.rec.clone().Produced,
		},
	}
}

// Fail marks the mission failed. It is a no-op on a terminal mission.
func (e *Engine) Fail(reason string) {
	e.mu.Lock()
	if e.rec.Status.Terminal() {
		e.mu.Unlock()
		return
	}
	n := e.failLocked(reason)
	e.save()
	e.mu.Unlock()
	e.emit(n)
}

func (e *Engine) failLocked(reason string) *notice {
	e.rec.Status = StatusFailed
	e.rec.LastError = reason
	e.log.Error("mission failed", "reason", reason)
	return &notice{
		event: sharedctx.EventMissionFailed,
		payload: map[string]any{
			"mission_id": e.missionID,
			"reason":     reason,
			"task_index": e.rec.CurrentTask,
		},
	}
}

func (e *Engine) save() {
	e.rec.UpdatedAt = e.deps.Context.Now()
	if e.deps.Store == nil {
		return
	}
	if err := e.deps.Store.SaveMission(e.rec.clone()); err != nil {
		e.log.Error("saving mission record", "error", err)
	}
}

func (e *Engine) emit(n *notice) {
	if err := e.deps.Context.NotifyListeners(n.event, n.payload); err != nil {
		e.log.Warn("listeners failed", "event", n.event, "error", err)
	}
}

// progressPercent is round(done/total*100); an empty mission is 100.
func progressPercent(done, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
