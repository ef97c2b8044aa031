// Package orchestrator watches the health and load of a settlement's
// services, arbitrates their priorities and runs operations that span more
// than one service.
package orchestrator

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/talgya/colony-ai/internal/sharedctx"
)

var (
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrUnknownService     = errors.New("unknown service")
	ErrUnknownOperation   = errors.New("unknown operation")
)

// Service names.
const (
	TaskEngine  = "task_execution_engine"
	Acquisition = "resource_acquisition_service"
	Scouting    = "scout_logic"
)

// State is a service's health.
type State string

const (
	Idle       State = "idle"
	Active     State = "active"
	Stale      State = "stale"
	Overloaded State = "overloaded"
	Failed     State = "failed"
)

// Available reports whether a service in this state accepts work.
func (s State) Available() bool { return s == Idle || s == Active }

// Priority is a service's scheduling tier.
type Priority string

const (
	Low      Priority = "low"
	Medium   Priority = "medium"
	High     Priority = "high"
	Critical Priority = "critical"
)

var priorityRank = map[Priority]int{Low: 1, Medium: 2, High: 3, Critical: 4}

// ServiceState is the orchestrator's view of one service.
type ServiceState struct {
	Name             string    `json:"name"`
	State            State     `json:"state"`
	Priority         Priority  `json:"priority"`
	ActiveOperations int       `json:"active_operations"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Config tunes the health and priority passes.
type Config struct {
	FreshnessWindow  time.Duration `yaml:"freshness_window"`
	MaxConcurrentOps int           `yaml:"max_concurrent_operations"`

	// ExemptIdle keeps idle services out of the staleness check.
	ExemptIdle bool `yaml:"exempt_idle_services"`

	// Mission queue lengths that raise task execution priority.
	QueueHigh     int `yaml:"queue_high"`
	QueueCritical int `yaml:"queue_critical"`

	// Pending request counts that raise acquisition priority.
	RequestsHigh     int `yaml:"requests_high"`
	RequestsCritical int `yaml:"requests_critical"`

	StrategicScouting float64 `yaml:"strategic_scouting"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		FreshnessWindow:   5 * time.Minute,
		MaxConcurrentOps:  5,
		QueueHigh:         2,
		QueueCritical:     5,
		RequestsHigh:      5,
		RequestsCritical:  10,
		StrategicScouting: 0.8,
	}
}

// Orchestrator owns the service states of one settlement.
type Orchestrator struct {
	cfg Config
	ctx *sharedctx.Context
	svc Services
	now func() time.Time
	log *slog.Logger

	mu       sync.Mutex
	services map[string]*ServiceState
	pending  []Operation
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source used for staleness.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New creates an orchestrator and subscribes it to ctx.
func New(cfg Config, ctx *sharedctx.Context, svc Services, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg: cfg,
		ctx: ctx,
		svc: svc,
		now: time.Now,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With("component", "orchestrator", "settlement", ctx.SettlementID())
	now := o.now()
	o.services = map[string]*ServiceState{
		TaskEngine:  {Name: TaskEngine, State: Idle, Priority: High, LastUpdated: now},
		Acquisition: {Name: Acquisition, State: Idle, Priority: High, LastUpdated: now},
		Scouting:    {Name: Scouting, State: Idle, Priority: Medium, LastUpdated: now},
	}
	ctx.AddListener(o)
	return o
}

// UpdateServiceState records a service's state and operation count.
func (o *Orchestrator) UpdateServiceState(name string, state State, activeOps int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.services[name]
	if !ok {
		return fmt.Errorf("update %s: %w", name, ErrUnknownService)
	}
	s.State = state
	s.ActiveOperations = max(activeOps, 0)
	s.LastUpdated = o.now()
	return nil
}

// UpdateServicePriorities overrides priorities for the named services.
func (o *Orchestrator) UpdateServicePriorities(p map[string]Priority) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for name, pr := range p {
		s, ok := o.services[name]
		if !ok {
			return fmt.Errorf("prioritize %s: %w", name, ErrUnknownService)
		}
		s.Priority = pr
	}
	return nil
}

// Service returns a copy of one service's state.
func (o *Orchestrator) Service(name string) (ServiceState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.services[name]
	if !ok {
		return ServiceState{}, false
	}
	return *s, true
}

// Services returns copies of every service state, ordered by name.
func (o *Orchestrator) Services() []ServiceState {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ServiceState, 0, len(o.services))
	for _, s := range o.services {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b ServiceState) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// ServiceAvailable is true only for idle or active services.
func (o *Orchestrator) ServiceAvailable(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.services[name]
	return ok && s.State.Available()
}

// BeginOperation counts one more in-flight operation on a service.
func (o *Orchestrator) BeginOperation(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.services[name]; ok {
		s.ActiveOperations++
		if s.State == Idle {
			s.State = Active
		}
		s.LastUpdated = o.now()
	}
}

// EndOperation counts one finished operation on a service.
func (o *Orchestrator) EndOperation(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.services[name]; ok {
		s.ActiveOperations = max(s.ActiveOperations-1, 0)
		if s.ActiveOperations == 0 && s.State == Active {
			s.State = Idle
		}
		s.LastUpdated = o.now()
	}
}

// Heartbeat refreshes the named services that have no operation in flight.
// A service mid-operation is only fresh when it reports progress.
func (o *Orchestrator) Heartbeat(names ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, name := range names {
		if s, ok := o.services[name]; ok && s.ActiveOperations == 0 && s.State != Failed {
			s.LastUpdated = now
		}
	}
}

// OrchestrateServices runs the health, load-balancing, priority and
// compound-operation passes in that order. It returns the results of any
// queued operations that ran.
func (o *Orchestrator) OrchestrateServices() []Result {
	queueLen := o.ctx.MissionQueueLen()
	pendingReqs := len(o.ctx.PendingRequests())
	strategic, hasStrategic := o.ctx.EconomicFloat("strategic_position")

	o.mu.Lock()
	o.monitorHealth()
	o.balanceLoad()
	o.optimizePriorities(queueLen, pendingReqs, strategic, hasStrategic)
	ops := o.pending
	o.pending = nil
	o.mu.Unlock()

	return o.runQueued(ops)
}

func (o *Orchestrator) monitorHealth() {
	now := o.now()
	for _, s := range o.services {
		switch {
		case s.State == Failed:
		case s.ActiveOperations > o.cfg.MaxConcurrentOps:
			if s.State != Overloaded {
				o.log.Warn("service overloaded", "service", s.Name, "active_operations", s.ActiveOperations)
			}
			s.State = Overloaded
		case o.quiet(s) && now.Sub(s.LastUpdated) > o.cfg.FreshnessWindow:
			o.log.Warn("service stale", "service", s.Name, "last_updated", s.LastUpdated)
			s.State = Stale
		case s.State == Overloaded, s.State == Stale && now.Sub(s.LastUpdated) <= o.cfg.FreshnessWindow:
			s.State = Idle
			if s.ActiveOperations > 0 {
				s.State = Active
			}
			o.log.Info("service recovered", "service", s.Name, "state", s.State)
		}
	}
}

func (o *Orchestrator) quiet(s *ServiceState) bool {
	if s.State == Idle {
		return !o.cfg.ExemptIdle
	}
	return s.State == Active
}

func (o *Orchestrator) balanceLoad() {
	for _, s := range o.services {
		switch s.State {
		case Overloaded, Stale:
			s.Priority = Low
		case Idle:
			switch s.Priority {
			case Low:
				s.Priority = Medium
			case Medium:
				s.Priority = High
			}
		}
	}
}

func (o *Orchestrator) optimizePriorities(queueLen, pendingReqs int, strategic float64, hasStrategic bool) {
	raise := func(name string, p Priority) {
		s := o.services[name]
		if !s.State.Available() {
			return
		}
		if priorityRank[p] > priorityRank[s.Priority] {
			s.Priority = p
		}
	}
	switch {
	case queueLen > o.cfg.QueueCritical:
		raise(TaskEngine, Critical)
	case queueLen > o.cfg.QueueHigh:
		raise(TaskEngine, High)
	}
	switch {
	case pendingReqs > o.cfg.RequestsCritical:
		raise(Acquisition, Critical)
	case pendingReqs > o.cfg.RequestsHigh:
		raise(Acquisition, High)
	}
	if hasStrategic && strategic > o.cfg.StrategicScouting {
		raise(Scouting, High)
	}
}

// Summary is a point-in-time view of all services.
type Summary struct {
	Services         []ServiceState `json:"services"`
	ActiveOperations int            `json:"active_operations"`
	QueuedOperations int            `json:"queued_operations"`
	HealthPercent    float64        `json:"health_percent"`
}

// Status reports every service and the share that are available.
func (o *Orchestrator) Status() Summary {
	services := o.Services()
	o.mu.Lock()
	queued := len(o.pending)
	o.mu.Unlock()

	sum := Summary{Services: services, QueuedOperations: queued}
	healthy := 0
	for _, s := range services {
		sum.ActiveOperations += s.ActiveOperations
		if s.State.Available() {
			healthy++
		}
	}
	if len(services) > 0 {
		sum.HealthPercent = float64(healthy) / float64(len(services)) * 100
	}
	return sum
}

// HandleEvent maps service lifecycle events onto operation counts.
func (o *Orchestrator) HandleEvent(event sharedctx.Event, _ map[string]any) error {
	switch event {
	case sharedctx.EventMissionStarted:
		o.BeginOperation(TaskEngine)
	case sharedctx.EventMissionCompleted, sharedctx.EventMissionFailed:
		o.EndOperation(TaskEngine)
	case sharedctx.EventResourceAcquisitionStarted:
		o.BeginOperation(Acquisition)
	case sharedctx.EventResourceAcquisitionCompleted, sharedctx.EventResourceAcquisitionFailed:
		o.EndOperation(Acquisition)
	case sharedctx.EventScoutingStarted:
		o.BeginOperation(Scouting)
	case sharedctx.EventScoutingCompleted:
		o.EndOperation(Scouting)
	}
	return nil
}
