package coordinator

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/talgya/colony-ai/internal/colony"
	"github.com/talgya/colony-ai/internal/discovery"
	"github.com/talgya/colony-ai/internal/inmem"
	"github.com/talgya/colony-ai/internal/mission"
	"github.com/talgya/colony-ai/internal/sharedctx"
)

type eventLog struct{ events []sharedctx.Event }

func (l *eventLog) HandleEvent(e sharedctx.Event, _ map[string]any) error {
	l.events = append(l.events, e)
	return nil
}

type launch struct {
	id     string
	params map[string]any
}

type harness struct {
	co       *Coordinator
	ctx      *sharedctx.Context
	inv      *inmem.Inventory
	launches []launch
	events   *eventLog
}

func newHarness(t *testing.T, defs mission.StaticDefinitions) *harness {
	t.Helper()
	world := inmem.NewSettlements()
	world.Put(&colony.Settlement{ID: "luna-1", SystemID: "sol", Balance: 500})
	h := &harness{
		ctx:    sharedctx.New("luna-1"),
		inv:    world.Inventory("luna-1"),
		events: &eventLog{},
	}
	acc := world.Accounts("luna-1")
	base := EngineLauncher(mission.Deps{
		Context:      h.ctx,
		Definitions:  defs,
		Store:        inmem.NewMissionStore(),
		Construction: inmem.NewConstruction(),
		Blueprints:   inmem.DefaultBlueprints(),
		Inventory:    h.inv,
		Tracker:      inmem.NewTracker(world),
	}, mission.DefaultRetryPolicy())
	co, err := New(Deps{
		Context: h.ctx,
		Launcher: func(id string, params map[string]any) (*mission.Engine, error) {
			h.launches = append(h.launches, launch{id, params})
			return base(id, params)
		},
		Inventory: h.inv,
		Accounts:  acc,
		Acquirer: inmem.NewDepot("lagrange", h.inv, acc,
			inmem.WithSupply(map[string]float64{"titanium": 100}),
			inmem.WithPrices(map[string]float64{"titanium": 1})),
		Systems: discovery.NewGenerator(discovery.DefaultGenConfig()),
		Origin:  "sol",
	})
	if err != nil {
		t.Fatal(err)
	}
	h.co = co
	h.ctx.AddListener(h.events)
	return h
}

func noop(id string) *mission.Definition {
	return &mission.Definition{ID: id, Tasks: []mission.Task{{ID: id + "_t1"}}}
}

func TestProcessPendingMissionsDrainsFIFO(t *testing.T) {
	h := newHarness(t, mission.StaticDefinitions{"m1": noop("m1"), "m2": noop("m2"), "m3": noop("m3")})
	for i, id := range []string{"m1", "m2", "m3"} {
		if err := h.co.QueueMission(id, map[string]any{"n": i}); err != nil {
			t.Fatal(err)
		}
	}

	if got := h.co.ProcessPendingMissions(); got != 3 {
		t.Fatalf("started %d, want 3", got)
	}
	want := []launch{
		{"m1", map[string]any{"n": 0}},
		{"m2", map[string]any{"n": 1}},
		{"m3", map[string]any{"n": 2}},
	}
	if !reflect.DeepEqual(h.launches, want) {
		t.Errorf("launches = %+v", h.launches)
	}
	if n := h.ctx.MissionQueueLen(); n != 0 {
		t.Errorf("queue length = %d", n)
	}
	if n := len(h.ctx.ActiveMissions()); n != 0 {
		t.Errorf("completed missions still registered: %d", n)
	}
	rec, err := h.co.MissionStatus("m2")
	if err != nil || rec.Status != mission.StatusCompleted {
		t.Errorf("m2 = %+v, %v", rec, err)
	}
}

func TestRequeuedMissionRunsAgain(t *testing.T) {
	h := newHarness(t, mission.StaticDefinitions{"settlement_expansion": noop("settlement_expansion")})
	for round := 1; round <= 2; round++ {
		_ = h.co.QueueMission("settlement_expansion", nil)
		if got := h.co.ProcessPendingMissions(); got != 1 {
			t.Fatalf("round %d: started %d", round, got)
		}
	}
	if len(h.launches) != 2 {
		t.Errorf("launches = %d, want a fresh engine per run", len(h.launches))
	}
	completed := 0
	for _, e := range h.events.events {
		if e == sharedctx.EventMissionCompleted {
			completed++
		}
	}
	if completed != 2 {
		t.Errorf("completed %d runs, want 2", completed)
	}
}

func TestQueueMissionRejectsEmptyID(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.co.QueueMission(" ", nil); !errors.Is(err, ErrNoMissionID) {
		t.Errorf("err = %v", err)
	}
	if n := h.ctx.MissionQueueLen(); n != 0 {
		t.Errorf("queue length = %d", n)
	}
}

func TestStartMissionWithoutDefinitionFails(t *testing.T) {
	h := newHarness(t, mission.StaticDefinitions{})
	if h.co.StartMission("ghost", nil) {
		t.Fatal("mission without definition reported started")
	}
	rec, err := h.co.MissionStatus("ghost")
	if err != nil || rec.Status != mission.StatusFailed {
		t.Errorf("ghost = %+v, %v", rec, err)
	}
	if _, err := h.co.MissionStatus("never"); !errors.Is(err, ErrUnknownMission) {
		t.Errorf("unknown mission err = %v", err)
	}
}

func TestBlockedMissionStaysActive(t *testing.T) {
	def := &mission.Definition{ID: "stuck", Tasks: []mission.Task{
		{ID: "warp", Effects: []mission.Effect{{Action: "warp_drive"}}},
		{ID: "after"},
	}}
	h := newHarness(t, mission.StaticDefinitions{"stuck": def})

	if !h.co.StartMission("stuck", nil) {
		t.Fatal("blocked mission should still count as started")
	}
	if h.co.AdvanceMission("stuck") {
		t.Error("advance past a failing task")
	}
	rec, _ := h.co.MissionStatus("stuck")
	if rec.Status != mission.StatusInProgress || rec.CurrentTask != 0 || rec.Attempts != 2 {
		t.Errorf("record = %+v", rec)
	}
	if _, ok := h.ctx.ActiveMission("stuck"); !ok {
		t.Error("blocked mission dropped from registry")
	}
	if got := h.co.InFlight(); !reflect.DeepEqual(got, []string{"stuck"}) {
		t.Errorf("in flight = %v", got)
	}
	if h.co.AdvanceMission("nope") {
		t.Error("advance of unknown mission succeeded")
	}
}

func TestAcquireResource(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.co.AcquireResource("titanium", 40, "high"); err != nil {
		t.Fatal(err)
	}
	if h.inv.CurrentStock("titanium") != 40 {
		t.Errorf("titanium = %v", h.inv.CurrentStock("titanium"))
	}
	reqs := h.ctx.Requests()
	if len(reqs) != 1 || reqs[0].Status != sharedctx.RequestFulfilled || reqs[0].Source != "lagrange" {
		t.Fatalf("ledger = %+v", reqs)
	}
	for _, e := range []sharedctx.Event{sharedctx.EventResourceAcquisitionStarted, sharedctx.EventResourceAcquisitionCompleted} {
		if !slices.Contains(h.events.events, e) {
			t.Errorf("missing event %s", e)
		}
	}

	if err := h.co.AcquireResource("helium3", 5, "low"); err == nil {
		t.Fatal("acquired material the depot does not stock")
	}
	pending := h.ctx.PendingRequests()
	if len(pending) != 1 || pending[0].Material != "helium3" {
		t.Fatalf("pending = %+v", pending)
	}

	if got := h.co.ProcessResourceRequests(); got != 0 {
		t.Errorf("fulfilled %d with nothing available", got)
	}
	h.inv.AddItem("helium3", 10)
	if got := h.co.ProcessResourceRequests(); got != 1 {
		t.Errorf("fulfilled %d, want 1", got)
	}
	r, _ := h.ctx.Request(pending[0].ID)
	if r.Status != sharedctx.RequestFulfilled || r.Source != "local_inventory" {
		t.Errorf("request = %+v", r)
	}
}

func TestScoutSystem(t *testing.T) {
	h := newHarness(t, nil)
	id := discovery.NewGenerator(discovery.DefaultGenConfig()).Nearby("sol")[0].ID

	report, err := h.co.ScoutSystem(id)
	if err != nil {
		t.Fatal(err)
	}
	if report.SystemID != id {
		t.Errorf("report for %s", report.SystemID)
	}
	if _, ok := h.co.ScoutingResults()[id]; !ok {
		t.Error("report not cached")
	}
	if !slices.Contains(h.events.events, sharedctx.EventScoutingCompleted) {
		t.Error("scouting_completed not emitted")
	}
	if _, err := h.co.ScoutSystem("nowhere"); !errors.Is(err, ErrUnknownSystem) {
		t.Errorf("unknown system err = %v", err)
	}
}

func TestUpdateEconomicMetrics(t *testing.T) {
	h := newHarness(t, nil)
	_ = h.co.QueueMission("later", nil)
	h.co.UpdateEconomicMetrics(map[string]any{"strategic_position": 0.9})

	state := h.ctx.EconomicState()
	if state["mission_queue_length"] != 1 || state["balance"] != 500.0 {
		t.Errorf("state = %v", state)
	}
	if v, ok := h.ctx.EconomicFloat("strategic_position"); !ok || v != 0.9 {
		t.Errorf("strategic_position = %v", v)
	}
}
