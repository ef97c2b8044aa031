package mission

import (
	"encoding/json"
	"errors"
	"maps"
	"time"
)

var (
	// ErrAdvanceInFlight rejects a second concurrent Advance on one mission.
	ErrAdvanceInFlight = errors.New("advance already in flight")
	// ErrMissionTerminal is returned when advancing a completed or failed mission.
	ErrMissionTerminal = errors.New("mission is terminal")
	// ErrNotStarted is returned when advancing before Start.
	ErrNotStarted = errors.New("mission not started")
	// ErrDefinitionNotFound is returned when no task list exists for a mission.
	ErrDefinitionNotFound = errors.New("mission definition not found")
	// ErrTaskFailed marks a blocking task failure; the mission stays in progress.
	ErrTaskFailed = errors.New("task failed")
)

// Status is the persisted mission status.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further advancement is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Material is one manufacture input.
type Material struct {
	Material string  `json:"material"`
	Quantity float64 `json:"quantity"`
}

// Output is a manufacture output, written either as a bare material name or
// as {"material": name}.
type Output string

func (o *Output) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*o = Output(s)
		return nil
	}
	var m struct {
		Material string `json:"material"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*o = Output(m.Material)
	return nil
}

// Effect is one declarative unit of task work.
type Effect struct {
	Action string `json:"action"`

	Unit  string `json:"unit,omitempty"`
	State string `json:"state,omitempty"`
	Count int    `json:"count,omitempty"`
	Port  string `json:"port,omitempty"`

	Unit1 string `json:"unit1,omitempty"`
	Unit2 string `json:"unit2,omitempty"`
	Port1 string `json:"port1,omitempty"`
	Port2 string `json:"port2,omitempty"`

	Structure string `json:"structure,omitempty"`

	Output   Output     `json:"output,omitempty"`
	Inputs   []Material `json:"inputs,omitempty"`
	Quantity float64    `json:"quantity,omitempty"`

	SourceUnit string `json:"source_unit,omitempty"`
	TargetUnit string `json:"target_unit,omitempty"`
	Resource   string `json:"resource,omitempty"`
	Continuous bool   `json:"continuous,omitempty"`
}

// Task is either a list of effects or a legacy single-purpose task selected
// by Type.
type Task struct {
	ID          string   `json:"task_id"`
	Description string   `json:"description,omitempty"`
	Effects     []Effect `json:"effects,omitempty"`

	Type          string `json:"type,omitempty"`
	UnitName      string `json:"unit_name,omitempty"`
	UnitType      string `json:"unit_type,omitempty"`
	StructureType string `json:"structure_type,omitempty"`
	Name          string `json:"name,omitempty"`
}

// ManifestUnit is a unit the mission is allowed to deploy.
type ManifestUnit struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Count int    `json:"count,omitempty"`
}

// Manifest lists the inventory a mission carries.
type Manifest struct {
	Units []ManifestUnit `json:"units"`
}

// Unit returns the manifest entry whose name or type matches.
func (m Manifest) Unit(name string) (ManifestUnit, bool) {
	for _, u := range m.Units {
		if u.Name == name || u.Type == name {
			return u, true
		}
	}
	return ManifestUnit{}, false
}

// Definition is a mission's flattened task program and manifest.
type Definition struct {
	ID       string
	Tasks    []Task
	Manifest Manifest
}

// Definitions loads mission definitions by identifier.
type Definitions interface {
	Load(missionID string) (*Definition, error)
}

// StaticDefinitions serves definitions from memory.
type StaticDefinitions map[string]*Definition

func (s StaticDefinitions) Load(missionID string) (*Definition, error) {
	d, ok := s[missionID]
	if !ok {
		return nil, ErrDefinitionNotFound
	}
	return d, nil
}

// Record is the persisted state this core owns for a mission.
type Record struct {
	MissionID         string             `json:"mission_id"`
	SettlementID      string             `json:"settlement_id"`
	Status            Status             `json:"status"`
	Progress          int                `json:"progress"`
	CurrentTask       int                `json:"current_task"`
	TotalTasks        int                `json:"total_tasks"`
	AppliedEffects    int                `json:"applied_effects"`
	DeployedUnits     int                `json:"deployed_units,omitempty"`
	Attempts          int                `json:"attempts"`
	LastError         string             `json:"last_error,omitempty"`
	CompletionDate    time.Time          `json:"completion_date"`
	CompletionMessage string             `json:"completion_message,omitempty"`
	Produced          map[string]float64 `json:"produced"`
	Consumed          map[string]float64 `json:"consumed"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func (r Record) clone() Record {
	r.Produced = maps.Clone(r.Produced)
	r.Consumed = maps.Clone(r.Consumed)
	return r
}

// Store persists mission records.
type Store interface {
	LoadMission(settlementID, missionID string) (Record, bool, error)
	SaveMission(r Record) error
}

// RetryPolicy decides what happens to a mission stuck at a failing task.
type RetryPolicy struct {
	// AutoRetry re-advances stuck missions on the next tick. Without it a
	// mission must be re-queued explicitly.
	AutoRetry bool `yaml:"auto_retry"`

	// MaxAttempts consecutive failures at one index mark the mission failed.
	// Zero disables the limit.
	MaxAttempts int `yaml:"max_attempts"`
}

// DefaultRetryPolicy retries automatically and gives up after five attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{AutoRetry: true, MaxAttempts: 5}
}

// Unit is a deployed unit as seen by the construction service.
type Unit struct {
	ID    string
	Name  string
	Type  string
	State string
}

// Construction creates and tracks units and structures for a settlement.
type Construction interface {
	DeployUnit(settlementID, name, unitType string) (string, error)
	FindUnits(settlementID, nameLike string) []Unit
	FindUnit(settlementID, name string) (Unit, bool)
	SetUnitState(unitID, state string) error
	ConnectUnits(unitA, portA, unitB, portB string) error
	ConstructStructure(settlementID, structureType, name string) (string, error)
	SetStructureState(settlementID, structure, state string) error
}
