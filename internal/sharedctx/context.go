// Package sharedctx holds the per-settlement state every service coordinates
// through: an event bus, the mission queue, the resource-request ledger, the
// scouting cache, the active-mission registry, and economic readings.
//
// A Context belongs to exactly one settlement. Nothing in it is shared across
// settlements, and accessors return copies.
package sharedctx

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/colony-ai/internal/discovery"
)

// ErrRequestNotFound is returned when fulfilling an unknown request id.
var ErrRequestNotFound = errors.New("resource request not found")

// ErrRequestFulfilled is returned when fulfilling a request twice.
var ErrRequestFulfilled = errors.New("resource request already fulfilled")

// QueuedMission is a mission descriptor waiting to be started.
type QueuedMission struct {
	MissionID string         `json:"mission_id"`
	Params    map[string]any `json:"params,omitempty"`
	QueuedAt  time.Time      `json:"queued_at"`
}

// ActiveMission is an entry in the active-mission registry.
type ActiveMission struct {
	MissionID    string    `json:"mission_id"`
	Status       string    `json:"status"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RequestStatus is the lifecycle of a resource request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestFulfilled RequestStatus = "fulfilled"
)

// ResourceRequest is one entry in the append-only request ledger.
type ResourceRequest struct {
	ID          string        `json:"id"`
	Material    string        `json:"material"`
	Quantity    float64       `json:"quantity"`
	Priority    string        `json:"priority"`
	Requester   string        `json:"requester"`
	Status      RequestStatus `json:"status"`
	Source      string        `json:"source"`
	RequestedAt time.Time     `json:"requested_at"`
	FulfilledAt time.Time     `json:"fulfilled_at"`
}

// ScoutingResult is a cached scout report with its capture time.
type ScoutingResult struct {
	SystemID   string           `json:"system_id"`
	Report     discovery.Report `json:"report"`
	CapturedAt time.Time        `json:"captured_at"`
}

// Context is the single source of truth for cross-service state in one
// settlement.
//
// Every mutation holds deliverMu across apply+notify so no other mutation can
// interleave before listeners have seen the change. Data is guarded by mu,
// which is released before delivery so listeners can use the read accessors.
type Context struct {
	settlementID string
	now          func() time.Time
	log          *slog.Logger

	deliverMu sync.Mutex

	mu        sync.RWMutex
	listeners []Listener
	queue     []QueuedMission
	requests  []*ResourceRequest
	scouting  map[string]ScoutingResult
	active    map[string]ActiveMission
	economic  map[string]any
}

// Option configures a Context.
type Option func(*Context)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.log = l }
}

// New creates an empty Context for one settlement.
func New(settlementID string, opts ...Option) *Context {
	c := &Context{
		settlementID: settlementID,
		now:          time.Now,
		log:          slog.Default(),
		scouting:     make(map[string]ScoutingResult),
		active:       make(map[string]ActiveMission),
		economic:     make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "shared_context", "settlement", settlementID)
	return c
}

// SettlementID returns the owning settlement.
func (c *Context) SettlementID() string { return c.settlementID }

// Now returns the context's clock reading.
func (c *Context) Now() time.Time { return c.now() }

// AddListener registers a listener. Registering the same listener twice is a
// no-op. Listeners whose values cannot be compared, such as structs holding a
// map, are never deduplicated and cannot be removed; register a pointer to
// keep that ability.
func (c *Context) AddListener(l Listener) {
	if l == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.listeners {
		if sameListener(existing, l) {
			return
		}
	}
	c.listeners = append(c.listeners, l)
}

// RemoveListener unregisters a listener if present.
func (c *Context) RemoveListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.listeners {
		if sameListener(existing, l) {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			return
		}
	}
}

// sameListener compares without panicking on non-comparable dynamic values.
func sameListener(a, b Listener) bool {
	return reflect.ValueOf(a).Comparable() && reflect.ValueOf(b).Comparable() && a == b
}

// ListenerCount returns the number of registered listeners.
func (c *Context) ListenerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners)
}

// NotifyListeners delivers an event to every listener in order. A failing or
// panicking listener does not stop delivery; all failures are returned
// together as a *ListenerError once every listener has run.
func (c *Context) NotifyListeners(event Event, payload map[string]any) error {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	return c.deliver(event, payload)
}

// mutate applies fn under the data lock, then delivers the resulting event
// before any other mutation can start.
func (c *Context) mutate(event Event, fn func() map[string]any) error {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	payload := fn()
	c.mu.Unlock()

	return c.deliver(event, payload)
}

func (c *Context) deliver(event Event, payload map[string]any) error {
	c.mu.RLock()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.RUnlock()

	var errs []error
	for _, l := range listeners {
		if err := c.call(l, event, maps.Clone(payload)); err != nil {
			c.log.Warn("listener failed", "event", event, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &ListenerError{Event: event, Errs: errs}
	}
	return nil
}

func (c *Context) call(l Listener, event Event, payload map[string]any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("listener panic: %v", rec)
		}
	}()
	return l.HandleEvent(event, payload)
}

// QueueMission appends a mission to the FIFO queue.
func (c *Context) QueueMission(m QueuedMission) error {
	return c.mutate(EventMissionQueued, func() map[string]any {
		if m.QueuedAt.IsZero() {
			m.QueuedAt = c.now()
		}
		m.Params = maps.Clone(m.Params)
		c.queue = append(c.queue, m)
		return map[string]any{"mission_id": m.MissionID, "queue_length": len(c.queue)}
	})
}

// DequeueMission removes the oldest queued mission. ok is false on an empty
// queue, in which case nothing is emitted.
func (c *Context) DequeueMission() (m QueuedMission, ok bool, err error) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return QueuedMission{}, false, nil
	}
	m = c.queue[0]
	c.queue = c.queue[1:]
	remaining := len(c.queue)
	c.mu.Unlock()

	err = c.deliver(EventMissionDequeued, map[string]any{"mission_id": m.MissionID, "queue_length": remaining})
	return m, true, err
}

// MissionQueueLen returns the number of queued missions.
func (c *Context) MissionQueueLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.queue)
}

// QueuedMissions returns a copy of the queue in FIFO order.
func (c *Context) QueuedMissions() []QueuedMission {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]QueuedMission, len(c.queue))
	copy(out, c.queue)
	return out
}

// RequestResource appends a pending request to the ledger and returns a copy.
func (c *Context) RequestResource(material string, qty float64, priority, requester string) (ResourceRequest, error) {
	var created ResourceRequest
	err := c.mutate(EventResourceRequested, func() map[string]any {
		r := &ResourceRequest{
			ID:          uuid.NewString(),
			Material:    material,
			Quantity:    qty,
			Priority:    priority,
			Requester:   requester,
			Status:      RequestPending,
			RequestedAt: c.now(),
		}
		c.requests = append(c.requests, r)
		created = *r
		return map[string]any{"request_id": r.ID, "material": material, "quantity": qty, "priority": priority}
	})
	return created, err
}

// FulfillResourceRequest transitions a pending request to fulfilled. Only
// Status, Source and FulfilledAt change.
func (c *Context) FulfillResourceRequest(id, source string) (ResourceRequest, error) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	var r *ResourceRequest
	for _, candidate := range c.requests {
		if candidate.ID == id {
			r = candidate
			break
		}
	}
	if r == nil {
		c.mu.Unlock()
		return ResourceRequest{}, fmt.Errorf("fulfill %s: %w", id, ErrRequestNotFound)
	}
	if r.Status == RequestFulfilled {
		out := *r
		c.mu.Unlock()
		return out, fmt.Errorf("fulfill %s: %w", id, ErrRequestFulfilled)
	}
	r.Status = RequestFulfilled
	r.Source = source
	r.FulfilledAt = c.now()
	out := *r
	c.mu.Unlock()

	err := c.deliver(EventResourceRequestFulfilled, map[string]any{
		"request_id": id, "material": out.Material, "quantity": out.Quantity, "source": source,
	})
	return out, err
}

// Request returns a copy of one ledger entry.
func (c *Context) Request(id string) (ResourceRequest, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.requests {
		if r.ID == id {
			return *r, true
		}
	}
	return ResourceRequest{}, false
}

// Requests returns a copy of the whole ledger in append order.
func (c *Context) Requests() []ResourceRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ResourceRequest, len(c.requests))
	for i, r := range c.requests {
		out[i] = *r
	}
	return out
}

// PendingRequests returns copies of requests still pending, in append order.
func (c *Context) PendingRequests() []ResourceRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []ResourceRequest
	for _, r := range c.requests {
		if r.Status == RequestPending {
			out = append(out, *r)
		}
	}
	return out
}

// StoreScoutingResult caches a report, replacing any earlier one for the system.
func (c *Context) StoreScoutingResult(systemID string, report discovery.Report) error {
	return c.mutate(EventScoutingResultStored, func() map[string]any {
		c.scouting[systemID] = ScoutingResult{SystemID: systemID, Report: report.Clone(), CapturedAt: c.now()}
		return map[string]any{"system_id": systemID, "primary_characteristic": report.PrimaryCharacteristic}
	})
}

// ScoutingResult returns the cached report for a system.
func (c *Context) ScoutingResult(systemID string) (ScoutingResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.scouting[systemID]
	if ok {
		r.Report = r.Report.Clone()
	}
	return r, ok
}

// ScoutingResults returns copies of every cached report.
func (c *Context) ScoutingResults() map[string]ScoutingResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]ScoutingResult, len(c.scouting))
	for id, r := range c.scouting {
		r.Report = r.Report.Clone()
		out[id] = r
	}
	return out
}

// ScoutedSystems returns the ids of every cached system.
func (c *Context) ScoutedSystems() map[string]time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]time.Time, len(c.scouting))
	for id, r := range c.scouting {
		out[id] = r.CapturedAt
	}
	return out
}

// RegisterActiveMission adds or replaces a registry entry.
func (c *Context) RegisterActiveMission(missionID, status string) error {
	return c.mutate(EventActiveMissionRegistered, func() map[string]any {
		c.active[missionID] = ActiveMission{MissionID: missionID, Status: status, RegisteredAt: c.now()}
		return map[string]any{"mission_id": missionID, "status": status}
	})
}

// UnregisterActiveMission removes a registry entry.
func (c *Context) UnregisterActiveMission(missionID string) error {
	return c.mutate(EventActiveMissionUnregistered, func() map[string]any {
		delete(c.active, missionID)
		return map[string]any{"mission_id": missionID}
	})
}

// ActiveMission returns one registry entry.
func (c *Context) ActiveMission(missionID string) (ActiveMission, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.active[missionID]
	return m, ok
}

// ActiveMissions returns a copy of the registry.
func (c *Context) ActiveMissions() map[string]ActiveMission {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.active)
}

// UpdateEconomicState merges values into the economic map, last write wins.
func (c *Context) UpdateEconomicState(values map[string]any) error {
	return c.mutate(EventEconomicStateUpdated, func() map[string]any {
		keys := make([]string, 0, len(values))
		for k, v := range values {
			c.economic[k] = v
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return map[string]any{"keys": keys}
	})
}

// EconomicState returns a copy of the economic map.
func (c *Context) EconomicState() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.economic)
}

// EconomicFloat reads a numeric economic value.
func (c *Context) EconomicFloat(key string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch v := c.economic[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
