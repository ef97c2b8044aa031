package mission

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/colony-ai/internal/colony"
	"github.com/talgya/colony-ai/internal/sharedctx"
)

type fakeInventory struct {
	items  map[string]float64
	jammed string
}

func (f *fakeInventory) CurrentStock(m string) float64 { return f.items[m] }
func (f *fakeInventory) AddItem(m string, q float64) { f.items[m] += q }
func (f *fakeInventory) Items() map[string]float64 { return f.items }
func (f *fakeInventory) RemoveItem(m string, q float64) error {
	if m == f.jammed {
		return errors.New("feeder jammed")
	}
	if f.items[m] < q {
		return colony.ErrInsufficientStock
	}
	f.items[m] -= q
	return nil
}

type fakeConstruction struct {
	units       []Unit
	structures  []string
	connections []string
	refuse      map[string]bool
}

func (f *fakeConstruction) DeployUnit(_, name, unitType string) (string, error) {
	if f.refuse[name] {
		delete(f.refuse, name)
		return "", errors.New("landing pad busy")
	}
	id := fmt.Sprintf("u%d", len(f.units)+1)
	f.units = append(f.units, Unit{ID: id, Name: name, Type: unitType, State: "deployed"})
	return id, nil
}

func (f *fakeConstruction) FindUnits(_, nameLike string) []Unit {
	var out []Unit
	for _, u := range f.units {
		if strings.Contains(u.Name, nameLike) {
			out = append(out, u)
		}
	}
	return out
}

func (f *fakeConstruction) FindUnit(_, name string) (Unit, bool) {
	for _, u := range f.units {
		if u.Name == name {
			return u, true
		}
	}
	return Unit{}, false
}

func (f *fakeConstruction) SetUnitState(id, state string) error {
	for i := range f.units {
		if f.units[i].ID == id {
			f.units[i].State = state
			return nil
		}
	}
	return colony.ErrNotFound
}

func (f *fakeConstruction) ConnectUnits(a, pa, b, pb string) error {
	f.connections = append(f.connections, a+":"+pa+"->"+b+":"+pb)
	return nil
}

func (f *fakeConstruction) ConstructStructure(_, structureType, _ string) (string, error) {
	if structureType == "unknown_dome" {
		return "", colony.ErrNotFound
	}
	f.structures = append(f.structures, structureType)
	return structureType, nil
}

func (f *fakeConstruction) SetStructureState(_, _, _ string) error { return nil }

type fakeBlueprints map[string]colony.Blueprint

func (f fakeBlueprints) Blueprint(name string) (colony.Blueprint, bool) {
	b, ok := f[name]
	return b, ok
}

type fakeTracker struct {
	snapshots int
	methods   map[string]colony.Procurement
}

func (f *fakeTracker) TrackProcurement(_, material string, _ float64, method colony.Procurement, _ map[string]any) {
	f.methods[material] = method
}

func (f *fakeTracker) TrackInventorySnapshot(string) { f.snapshots++ }

type memStore map[string]Record

func (m memStore) LoadMission(_, id string) (Record, bool, error) {
	r, ok := m[id]
	return r, ok, nil
}

func (m memStore) SaveMission(r Record) error {
	m[r.MissionID] = r
	return nil
}

type eventLog struct{ events []sharedctx.Event }

func (l *eventLog) HandleEvent(e sharedctx.Event, _ map[string]any) error {
	l.events = append(l.events, e)
	return nil
}

type fixture struct {
	ctx     *sharedctx.Context
	inv     *fakeInventory
	build   *fakeConstruction
	tracker *fakeTracker
	store   memStore
	events  *eventLog
}

func newFixture(t *testing.T, defs Definitions, policy RetryPolicy, id string) (*Engine, *fixture) {
	t.Helper()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := &fixture{
		ctx:     sharedctx.New("luna-1", sharedctx.WithClock(func() time.Time { return now })),
		inv:     &fakeInventory{items: map[string]float64{"lunar_regolith": 100}},
		build:   &fakeConstruction{},
		tracker: &fakeTracker{methods: map[string]colony.Procurement{}},
		store:   memStore{},
		events:  &eventLog{},
	}
	f.ctx.AddListener(f.events)
	e, err := NewEngine(id, Deps{
		Context:      f.ctx,
		Definitions:  defs,
		Store:        f.store,
		Construction: f.build,
		Blueprints:   fakeBlueprints{"regolith_excavator": {ID: "regolith_excavator"}},
		Inventory:    f.inv,
		Tracker:      f.tracker,
	}, policy)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, f
}

func beamTask(id string) Task {
	return Task{ID: id, Effects: []Effect{{
		Action:   "manufacture",
		Output:   "steel_beam",
		Quantity: 2,
		Inputs:   []Material{{Material: "lunar_regolith", Quantity: 5}, {Material: "carbon", Quantity: 1}},
	}}}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct{ done, total, want int }{
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{0, 0, 100},
	}
	for _, tt := range tests {
		if got := progressPercent(tt.done, tt.total); got != tt.want {
			t.Errorf("progressPercent(%d,%d) = %d, want %d", tt.done, tt.total, got, tt.want)
		}
	}
}

func TestStartRunsMissionToCompletion(t *testing.T) {
	def := &Definition{
		ID: "m1",
		Tasks: []Task{
			{ID: "deploy", Effects: []Effect{{Action: "deploy_unit", Unit: "excavator", Count: 2}}},
			{ID: "power", Effects: []Effect{{Action: "set_unit_state", Unit: "excavator", State: "active"}}},
			beamTask("print_ibeams"),
		},
		Manifest: Manifest{Units: []ManifestUnit{{Name: "excavator", Type: "regolith_excavator"}}},
	}
	e, f := newFixture(t, StaticDefinitions{"m1": def}, DefaultRetryPolicy(), "m1")

	done, err := e.Start()
	if err != nil || !done {
		t.Fatalf("Start = %v, %v", done, err)
	}
	rec := e.Record()
	if rec.Status != StatusCompleted || rec.Progress != 100 {
		t.Fatalf("record = %+v", rec)
	}
	if rec.CompletionMessage != "All 3 tasks completed successfully" {
		t.Errorf("message = %q", rec.CompletionMessage)
	}
	if rec.CompletionDate.IsZero() {
		t.Error("completion date not set")
	}
	if len(f.build.units) != 2 || f.build.units[1].Name != "excavator_2" || f.build.units[0].State != "active" {
		t.Errorf("units = %+v", f.build.units)
	}
	if rec.Consumed["lunar_regolith"] != 10 || rec.Consumed["carbon"] != 2 {
		t.Errorf("consumed = %v", rec.Consumed)
	}
	if rec.Produced["steel_beam"] != 2 || rec.Produced[colony.Oxygen] != 0.001 {
		t.Errorf("produced = %v", rec.Produced)
	}
	if f.inv.items["lunar_regolith"] != 90 || f.inv.items["steel_beam"] != 2 {
		t.Errorf("inventory = %v", f.inv.items)
	}
	if f.tracker.methods["lunar_regolith"] != colony.ProcurementLocalISRU ||
		f.tracker.methods["carbon"] != colony.ProcurementAutofulfill ||
		f.tracker.methods["steel_beam"] != colony.ProcurementLocalProduction {
		t.Errorf("tracked methods = %v", f.tracker.methods)
	}
	if f.tracker.snapshots != 1 {
		t.Errorf("inventory snapshots = %d, want 1", f.tracker.snapshots)
	}
	if _, ok := f.ctx.ActiveMission("m1"); !ok {
		t.Error("mission not registered as active")
	}
	want := []sharedctx.Event{
		sharedctx.EventActiveMissionRegistered,
		sharedctx.EventMissionStarted,
		sharedctx.EventMissionCompleted,
	}
	if fmt.Sprint(f.events.events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", f.events.events, want)
	}
	if f.store["m1"].Status != StatusCompleted {
		t.Error("completed record not persisted")
	}
}

func TestAdvanceOnCompletedMissionIsNoop(t *testing.T) {
	def := &Definition{ID: "m", Tasks: []Task{{ID: "t1"}}}
	e, f := newFixture(t, StaticDefinitions{"m": def}, DefaultRetryPolicy(), "m")
	if done, err := e.Start(); !done || err != nil {
		t.Fatalf("Start = %v, %v", done, err)
	}
	before := e.Record()
	nEvents := len(f.events.events)

	more, err := e.TryAdvance()
	if more || !errors.Is(err, ErrMissionTerminal) {
		t.Fatalf("TryAdvance = %v, %v", more, err)
	}
	if e.Advance() {
		t.Fatal("Advance on completed mission returned true")
	}
	after := e.Record()
	if !after.UpdatedAt.Equal(before.UpdatedAt) || after.CurrentTask != before.CurrentTask {
		t.Error("completed mission was mutated")
	}
	if len(f.events.events) != nEvents {
		t.Error("completed mission emitted events")
	}
}

func TestAdvanceBeforeStart(t *testing.T) {
	e, _ := newFixture(t, StaticDefinitions{}, DefaultRetryPolicy(), "m")
	if _, err := e.TryAdvance(); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("err = %v, want ErrNotStarted", err)
	}
}

func TestUnknownEffectHaltsAtIndex(t *testing.T) {
	def := &Definition{ID: "m", Tasks: []Task{
		{ID: "ok"},
		{ID: "bad", Effects: []Effect{{Action: "teleport"}}},
		{ID: "never"},
	}}
	e, _ := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{}, "m")

	done, err := e.Start()
	if done || !errors.Is(err, ErrTaskFailed) {
		t.Fatalf("Start = %v, %v", done, err)
	}
	rec := e.Record()
	if rec.Status != StatusInProgress || rec.CurrentTask != 1 || rec.Progress != 33 {
		t.Fatalf("record = status %s index %d progress %d", rec.Status, rec.CurrentTask, rec.Progress)
	}
	if rec.Attempts != 1 || !strings.Contains(rec.LastError, "teleport") {
		t.Errorf("attempts %d last error %q", rec.Attempts, rec.LastError)
	}

	// No retry limit: the mission stays stuck but alive.
	for i := 0; i < 10; i++ {
		e.Advance()
	}
	if got := e.Record(); got.Status != StatusInProgress || got.CurrentTask != 1 {
		t.Errorf("after retries: status %s index %d", got.Status, got.CurrentTask)
	}
}

func TestRetryLimitFailsMission(t *testing.T) {
	def := &Definition{ID: "m", Tasks: []Task{{ID: "bad", Type: "warp"}}}
	e, f := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{MaxAttempts: 2}, "m")

	if _, err := e.Start(); err == nil {
		t.Fatal("expected blocking error")
	}
	if e.Record().Status != StatusInProgress {
		t.Fatal("failed after one attempt")
	}
	e.Advance()
	if got := e.Record().Status; got != StatusFailed {
		t.Fatalf("status = %s, want failed", got)
	}
	last := f.events.events[len(f.events.events)-1]
	if last != sharedctx.EventMissionFailed {
		t.Errorf("last event = %s", last)
	}
}

func TestEffectsApplyExactlyOnceAcrossRetries(t *testing.T) {
	def := &Definition{ID: "m", Tasks: []Task{{ID: "mixed", Effects: []Effect{
		beamTask("").Effects[0],
		{Action: "deploy_unit", Unit: "excavator"},
	}}}}
	e, f := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{}, "m")

	if _, err := e.Start(); err == nil {
		t.Fatal("deploy of unlisted unit should block")
	}
	if got := e.Record().Consumed["lunar_regolith"]; got != 10 {
		t.Fatalf("consumed after first attempt = %v", got)
	}

	def.Manifest.Units = append(def.Manifest.Units, ManifestUnit{Name: "excavator", Type: "regolith_excavator"})
	if e.Advance() {
		t.Fatal("single-task mission reported more work")
	}
	rec := e.Record()
	if rec.Status != StatusCompleted {
		t.Fatalf("status = %s (%s)", rec.Status, rec.LastError)
	}
	if rec.Consumed["lunar_regolith"] != 10 || f.inv.items["lunar_regolith"] != 90 {
		t.Errorf("manufacture applied twice: consumed %v stock %v", rec.Consumed, f.inv.items["lunar_regolith"])
	}
}

func TestManufactureNeedsLocalInputs(t *testing.T) {
	def := &Definition{ID: "m", Tasks: []Task{beamTask("beams")}}
	e, f := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{}, "m")
	f.inv.items["lunar_regolith"] = 4

	_, err := e.Start()
	if !errors.Is(err, ErrTaskFailed) || !strings.Contains(err.Error(), colony.ErrInsufficientStock.Error()) {
		t.Fatalf("err = %v", err)
	}
	rec := e.Record()
	if len(rec.Consumed) != 0 || len(rec.Produced) != 0 {
		t.Errorf("ledgers changed on blocked manufacture: %v %v", rec.Consumed, rec.Produced)
	}
	if f.inv.items["lunar_regolith"] != 4 {
		t.Error("stock drawn on blocked manufacture")
	}
}

func TestManufactureDrawsAllOrNothing(t *testing.T) {
	tests := []struct {
		name   string
		inputs []Material
		jammed string
	}{
		{"repeated input exceeds stock", []Material{{Material: "lunar_regolith", Quantity: 5}, {Material: "lunar_regolith", Quantity: 3}}, ""},
		{"second draw fails", []Material{{Material: "lunar_regolith", Quantity: 5}, {Material: "processed_regolith", Quantity: 1}}, "processed_regolith"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := &Definition{ID: "m", Tasks: []Task{{ID: "t", Effects: []Effect{
				{Action: "manufacture", Output: "brick", Quantity: 1, Inputs: tt.inputs},
			}}}}
			e, f := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{}, "m")
			f.inv.items = map[string]float64{"lunar_regolith": 6, "processed_regolith": 4}
			f.inv.jammed = tt.jammed

			if _, err := e.Start(); !errors.Is(err, ErrTaskFailed) {
				t.Fatalf("err = %v", err)
			}
			if f.inv.items["lunar_regolith"] != 6 || f.inv.items["processed_regolith"] != 4 {
				t.Errorf("stock after blocked manufacture = %v", f.inv.items)
			}
			if rec := e.Record(); len(rec.Consumed) != 0 {
				t.Errorf("consumed = %v", rec.Consumed)
			}
		})
	}
}

func TestPartialDeployResumes(t *testing.T) {
	def := &Definition{
		ID:       "m",
		Tasks:    []Task{{ID: "deploy", Effects: []Effect{{Action: "deploy_unit", Unit: "excavator", Count: 3}}}},
		Manifest: Manifest{Units: []ManifestUnit{{Name: "excavator", Type: "regolith_excavator"}}},
	}
	e, f := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{}, "m")
	f.build.refuse = map[string]bool{"excavator_2": true}

	if _, err := e.Start(); !errors.Is(err, ErrTaskFailed) {
		t.Fatalf("err = %v", err)
	}
	if rec := e.Record(); rec.DeployedUnits != 1 {
		t.Fatalf("deployed units = %d, want 1", rec.DeployedUnits)
	}
	if e.Advance() {
		t.Fatal("single-task mission reported more work")
	}
	rec := e.Record()
	if rec.Status != StatusCompleted || rec.DeployedUnits != 0 {
		t.Fatalf("record = %+v", rec)
	}
	var names []string
	for _, u := range f.build.units {
		names = append(names, u.Name)
	}
	if strings.Join(names, ",") != "excavator_1,excavator_2,excavator_3" {
		t.Errorf("units = %v", names)
	}
}

func TestSoftEffectsSucceed(t *testing.T) {
	def := &Definition{ID: "m", Tasks: []Task{{ID: "soft", Effects: []Effect{
		{Action: "connect_units", Unit1: "ghost", Unit2: "phantom"},
		{Action: "check_unit_state", Unit: "ghost", State: "active"},
		{Action: "check_unit_connected", Unit: "ghost"},
		{Action: "set_unit_state", Unit: "ghost", State: "active"},
		{Action: "transfer_resource", Resource: "water", SourceUnit: "a", TargetUnit: "b"},
		{Action: "set_structure_state", Structure: "dome", State: "sealed"},
		{Action: "deploy_unit", Unit: "drill"},
	}}}, Manifest: Manifest{Units: []ManifestUnit{{Name: "drill", Type: "core_drill"}}}}
	e, f := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{}, "m")

	if done, err := e.Start(); !done || err != nil {
		t.Fatalf("Start = %v, %v", done, err)
	}
	if len(f.build.units) != 0 {
		t.Error("unit without blueprint was deployed")
	}
}

func TestConstructStructure(t *testing.T) {
	tests := []struct {
		name      string
		structure string
		wantDone  bool
	}{
		{"known", "landing_pad", true},
		{"unknown", "unknown_dome", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := &Definition{ID: "m", Tasks: []Task{{ID: "c", Effects: []Effect{{Action: "construct_structure", Structure: tt.structure}}}}}
			e, _ := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{}, "m")
			if done, _ := e.Start(); done != tt.wantDone {
				t.Errorf("done = %v, want %v", done, tt.wantDone)
			}
		})
	}
}

func TestLegacyTaskTypes(t *testing.T) {
	def := &Definition{ID: "m", Tasks: []Task{
		{ID: "1", Type: "deploy", UnitName: "rover", UnitType: "rover"},
		{ID: "2", Type: "construct", StructureType: "skylight_cover"},
		{ID: "3", Type: "construct", StructureType: "habitat", Name: "hab-a"},
		{ID: "4", Type: "survey"},
		{ID: "5", Type: "harvest"},
	}}
	e, f := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{}, "m")
	if done, err := e.Start(); !done || err != nil {
		t.Fatalf("Start = %v, %v", done, err)
	}
	if len(f.build.units) != 1 || len(f.build.structures) != 1 || f.build.structures[0] != "habitat" {
		t.Errorf("units %v structures %v", f.build.units, f.build.structures)
	}
}

func TestMissingDefinitionFailsMission(t *testing.T) {
	e, f := newFixture(t, StaticDefinitions{}, DefaultRetryPolicy(), "ghost")
	done, err := e.Start()
	if done || !errors.Is(err, ErrDefinitionNotFound) {
		t.Fatalf("Start = %v, %v", done, err)
	}
	if got := e.Record().Status; got != StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if f.store["ghost"].Status != StatusFailed {
		t.Error("failure not persisted")
	}
}

func TestConcurrentAdvanceRejected(t *testing.T) {
	def := &Definition{ID: "m", Tasks: []Task{{ID: "a"}, {ID: "b"}}}
	e, _ := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{}, "m")
	e.inFlight.Store(true)
	if _, err := e.TryAdvance(); !errors.Is(err, ErrAdvanceInFlight) {
		t.Fatalf("err = %v, want ErrAdvanceInFlight", err)
	}
	e.inFlight.Store(false)
}

func TestResumeFromStoredRecord(t *testing.T) {
	def := &Definition{ID: "m", Tasks: []Task{
		{ID: "a", Type: "deploy", UnitName: "x", UnitType: "x"},
		{ID: "b", Type: "deploy", UnitName: "y", UnitType: "y"},
		{ID: "c", Type: "deploy", UnitName: "z", UnitType: "z"},
	}}
	e, f := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{}, "m")
	f.store["m"] = Record{MissionID: "m", SettlementID: "luna-1", Status: StatusInProgress, CurrentTask: 2, Progress: 67}

	if done, err := e.Start(); !done || err != nil {
		t.Fatalf("Start = %v, %v", done, err)
	}
	if len(f.build.units) != 1 || f.build.units[0].Name != "z" {
		t.Errorf("resumed run deployed %+v", f.build.units)
	}
}

func TestFinishedRecordStartsNewRun(t *testing.T) {
	def := &Definition{ID: "m", Tasks: []Task{{ID: "a", Type: "deploy", UnitName: "x", UnitType: "x"}}}
	e, f := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{}, "m")
	f.store["m"] = Record{MissionID: "m", SettlementID: "luna-1", Status: StatusCompleted, CurrentTask: 1, Progress: 100}

	if done, err := e.Start(); !done || err != nil {
		t.Fatalf("Start = %v, %v", done, err)
	}
	if len(f.build.units) != 1 {
		t.Errorf("new run deployed %d units, want 1", len(f.build.units))
	}
}

func TestProductionSummary(t *testing.T) {
	def := &Definition{ID: "m", Tasks: []Task{beamTask("beams")}}
	e, _ := newFixture(t, StaticDefinitions{"m": def}, RetryPolicy{}, "m")
	if _, err := e.Start(); err != nil {
		t.Fatal(err)
	}
	s := e.ProductionSummary()
	for _, want := range []string{"MATERIALS PRODUCED", "steel_beam: 2", "MATERIALS CONSUMED", "lunar_regolith: 10"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileDefinitions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "luna", "luna_profile_v1.json"),
		`{"mission_id":"luna","phases":[{"name":"landing","task_list_file":"landing.json"},{"name":"build","task_list_file":"build.json"}]}`)
	writeFile(t, filepath.Join(root, "luna", "landing.json"),
		`[{"task_id":"land","effects":[{"action":"deploy_unit","unit":"lander"}]}]`)
	writeFile(t, filepath.Join(root, "luna", "build.json"),
		`[{"task_id":"beams","effects":[{"action":"manufacture","output":{"material":"beam"},"inputs":[{"material":"regolith","quantity":3}],"quantity":2}]}]`)
	writeFile(t, filepath.Join(root, "luna", "luna_manifest_v1.json"),
		`{"inventory":{"units":[{"name":"lander","count":1}]}}`)
	writeFile(t, filepath.Join(root, "old", "old_tasks_v1.json"),
		`[{"task_id":"legacy","type":"survey"}]`)
	writeFile(t, filepath.Join(root, "broken", "broken_tasks_v1.json"),
		`[{"task_id":"x","effects":[{"unit":"no-action"}]}]`)

	defs, err := NewFileDefinitions(root)
	if err != nil {
		t.Fatal(err)
	}

	def, err := defs.Load("luna")
	if err != nil {
		t.Fatalf("Load(luna): %v", err)
	}
	if len(def.Tasks) != 2 || def.Tasks[0].ID != "land" || def.Tasks[1].ID != "beams" {
		t.Fatalf("tasks = %+v", def.Tasks)
	}
	if out := def.Tasks[1].Effects[0].Output; out != "beam" {
		t.Errorf("object output decoded as %q", out)
	}
	if _, ok := def.Manifest.Unit("lander"); !ok {
		t.Error("manifest unit missing")
	}

	if def, err := defs.Load("old"); err != nil || len(def.Tasks) != 1 {
		t.Errorf("legacy task file: %v, %v", def, err)
	}
	if _, err := defs.Load("broken"); err == nil || errors.Is(err, ErrDefinitionNotFound) {
		t.Errorf("invalid task list err = %v", err)
	}
	if _, err := defs.Load("nowhere"); !errors.Is(err, ErrDefinitionNotFound) {
		t.Errorf("missing mission err = %v", err)
	}
}

func TestFileDefinitionsHyphenatedLayout(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "test-mission-001")
	writeFile(t, filepath.Join(dir, "test_mission_001_profile_v1.json"),
		`{"mission_id":"test_mission_001","phases":[{"name":"one","task_list_file":"test_mission_001_phase_1.json"},{"name":"two","task_list_file":"test_mission_001_phase_2.json"}]}`)
	writeFile(t, filepath.Join(dir, "test_mission_001_phase_1.json"),
		`{"tasks":[{"task_id":"deploy_rovers","effects":[{"action":"deploy_unit","unit":"rover","count":2}]},{"task_id":"survey","type":"survey"}]}`)
	writeFile(t, filepath.Join(dir, "test_mission_001_manifest_v1.json"),
		`{"inventory":{"units":[{"name":"rover","count":2}]}}`)
	writeFile(t, filepath.Join(root, "legacy-run", "legacy_run_tasks_v1.json"),
		`{"tasks":[{"task_id":"only"}]}`)
	writeFile(t, filepath.Join(root, "bad-tasks", "bad_tasks_tasks_v1.json"),
		`{"steps":[{"task_id":"only"}]}`)

	defs, err := NewFileDefinitions(root)
	if err != nil {
		t.Fatal(err)
	}
	def, err := defs.Load("test_mission_001")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(def.Tasks) != 2 || def.Tasks[0].ID != "deploy_rovers" || def.Tasks[1].ID != "survey" {
		t.Fatalf("tasks = %+v", def.Tasks)
	}
	if u, ok := def.Manifest.Unit("rover"); !ok || u.Count != 2 {
		t.Errorf("manifest rover = %+v, %v", u, ok)
	}
	if def, err := defs.Load("legacy_run"); err != nil || len(def.Tasks) != 1 {
		t.Errorf("object task file: %v, %v", def, err)
	}
	if _, err := defs.Load("bad_tasks"); err == nil || errors.Is(err, ErrDefinitionNotFound) {
		t.Errorf("object without tasks err = %v", err)
	}
}
