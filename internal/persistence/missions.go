package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/talgya/colony-ai/internal/mission"
)

type missionRow struct {
	SettlementID      string `db:"settlement_id"`
	MissionID         string `db:"mission_id"`
	Status            string `db:"status"`
	Progress          int    `db:"progress"`
	CurrentTask       int    `db:"current_task"`
	TotalTasks        int    `db:"total_tasks"`
	AppliedEffects    int    `db:"applied_effects"`
	DeployedUnits     int    `db:"deployed_units"`
	Attempts          int    `db:"attempts"`
	LastError         string `db:"last_error"`
	CompletionDate    string `db:"completion_date"`
	CompletionMessage string `db:"completion_message"`
	ProducedJSON      string `db:"produced_json"`
	ConsumedJSON      string `db:"consumed_json"`
	UpdatedAt         string `db:"updated_at"`
}

func (r missionRow) record() (mission.Record, error) {
	rec := mission.Record{
		MissionID:         r.MissionID,
		SettlementID:      r.SettlementID,
		Status:            mission.Status(r.Status),
		Progress:          r.Progress,
		CurrentTask:       r.CurrentTask,
		TotalTasks:        r.TotalTasks,
		AppliedEffects:    r.AppliedEffects,
		DeployedUnits:     r.DeployedUnits,
		Attempts:          r.Attempts,
		LastError:         r.LastError,
		CompletionMessage: r.CompletionMessage,
	}
	var err error
	if rec.CompletionDate, err = parseTime(r.CompletionDate); err != nil {
		return rec, err
	}
	if rec.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(r.ProducedJSON), &rec.Produced); err != nil {
		return rec, fmt.Errorf("produced: %w", err)
	}
	if err := json.Unmarshal([]byte(r.ConsumedJSON), &rec.Consumed); err != nil {
		return rec, fmt.Errorf("consumed: %w", err)
	}
	return rec, nil
}

// LoadMission returns the stored record for a mission, if any.
func (db *DB) LoadMission(settlementID, missionID string) (mission.Record, bool, error) {
	var row missionRow
	err := db.conn.Get(&row,
		"SELECT * FROM missions WHERE settlement_id = ? AND mission_id = ?",
		settlementID, missionID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return mission.Record{}, false, nil
	}
	if err != nil {
		return mission.Record{}, false, fmt.Errorf("load mission %s: %w", missionID, err)
	}
	rec, err := row.record()
	if err != nil {
		return mission.Record{}, false, fmt.Errorf("load mission %s: %w", missionID, err)
	}
	return rec, true, nil
}

// SaveMission inserts or replaces a mission record.
func (db *DB) SaveMission(r mission.Record) error {
	produced, err := encodeJSON(r.Produced)
	if err != nil {
		return fmt.Errorf("save mission %s: %w", r.MissionID, err)
	}
	consumed, err := encodeJSON(r.Consumed)
	if err != nil {
		return fmt.Errorf("save mission %s: %w", r.MissionID, err)
	}

	_, err = db.conn.NamedExec(`INSERT OR REPLACE INTO missions
		(settlement_id, mission_id, status, progress, current_task, total_tasks,
		 applied_effects, deployed_units, attempts, last_error, completion_date, completion_message,
		 produced_json, consumed_json, updated_at)
		VALUES (:settlement_id, :mission_id, :status, :progress, :current_task, :total_tasks,
		 :applied_effects, :deployed_units, :attempts, :last_error, :completion_date, :completion_message,
		 :produced_json, :consumed_json, :updated_at)`,
		missionRow{
			SettlementID:      r.SettlementID,
			MissionID:         r.MissionID,
			Status:            string(r.Status),
			Progress:          r.Progress,
			CurrentTask:       r.CurrentTask,
			TotalTasks:        r.TotalTasks,
			AppliedEffects:    r.AppliedEffects,
		DeployedUnits:     r.DeployedUnits,
			Attempts:          r.Attempts,
			LastError:         r.LastError,
			CompletionDate:    formatTime(r.CompletionDate),
			CompletionMessage: r.CompletionMessage,
			ProducedJSON:      produced,
			ConsumedJSON:      consumed,
			UpdatedAt:         formatTime(r.UpdatedAt),
		},
	)
	if err != nil {
		return fmt.Errorf("save mission %s: %w", r.MissionID, err)
	}
	return nil
}

// Missions returns every stored record for a settlement, ordered by mission.
func (db *DB) Missions(settlementID string) ([]mission.Record, error) {
	var rows []missionRow
	if err := db.conn.Select(&rows,
		"SELECT * FROM missions WHERE settlement_id = ? ORDER BY mission_id",
		settlementID,
	); err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	out := make([]mission.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("list missions: %s: %w", row.MissionID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
