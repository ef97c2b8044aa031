package persistence

import (
	"fmt"
	"time"
)

// Decision is one tick's chosen action for a settlement.
type Decision struct {
	SettlementID string
	Tick         uint64
	Action       string
	Priority     string
	Score        float64
	Rationale    string
	Executed     bool
	CreatedAt    time.Time
}

type decisionRow struct {
	SettlementID string  `db:"settlement_id"`
	Tick         int64   `db:"tick"`
	Action       string  `db:"action"`
	Priority     string  `db:"priority"`
	Score        float64 `db:"score"`
	Rationale    string  `db:"rationale"`
	Executed     int     `db:"executed"`
	CreatedAt    string  `db:"created_at"`
}

// RecordDecision appends to the decision log.
func (db *DB) RecordDecision(d Decision) error {
	executed := 0
	if d.Executed {
		executed = 1
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	_, err := db.conn.Exec(`INSERT INTO decisions
		(settlement_id, tick, action, priority, score, rationale, executed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.SettlementID, int64(d.Tick), d.Action, d.Priority, d.Score, d.Rationale, executed, formatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// RecentDecisions returns a settlement's most recent N decisions, newest
// first.
func (db *DB) RecentDecisions(settlementID string, limit int) ([]Decision, error) {
	var rows []decisionRow
	err := db.conn.Select(&rows,
		`SELECT settlement_id, tick, action, priority, score, rationale, executed, created_at
		FROM decisions WHERE settlement_id = ? ORDER BY id DESC LIMIT ?`,
		settlementID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent decisions: %w", err)
	}
	out := make([]Decision, 0, len(rows))
	for _, row := range rows {
		at, err := parseTime(row.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, Decision{
			SettlementID: row.SettlementID,
			Tick:         uint64(row.Tick),
			Action:       row.Action,
			Priority:     row.Priority,
			Score:        row.Score,
			Rationale:    row.Rationale,
			Executed:     row.Executed != 0,
			CreatedAt:    at,
		})
	}
	return out, nil
}
