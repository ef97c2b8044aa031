package persistence

import (
	"fmt"

	"github.com/talgya/colony-ai/internal/sharedctx"
)

type requestRow struct {
	ID           string  `db:"id"`
	SettlementID string  `db:"settlement_id"`
	Material     string  `db:"material"`
	Quantity     float64 `db:"quantity"`
	Priority     string  `db:"priority"`
	Requester    string  `db:"requester"`
	Status       string  `db:"status"`
	Source       string  `db:"source"`
	RequestedAt  string  `db:"requested_at"`
	FulfilledAt  string  `db:"fulfilled_at"`
}

// SaveRequest records a ledger entry, updating status, source and
// fulfillment time if the request was seen before.
func (db *DB) SaveRequest(settlementID string, r sharedctx.ResourceRequest) error {
	_, err := db.conn.NamedExec(`INSERT INTO resource_requests
		(id, settlement_id, material, quantity, priority, requester, status, source, requested_at, fulfilled_at)
		VALUES (:id, :settlement_id, :material, :quantity, :priority, :requester, :status, :source, :requested_at, :fulfilled_at)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			source = excluded.source,
			fulfilled_at = excluded.fulfilled_at`,
		requestRow{
			ID:           r.ID,
			SettlementID: settlementID,
			Material:     r.Material,
			Quantity:     r.Quantity,
			Priority:     r.Priority,
			Requester:    r.Requester,
			Status:       string(r.Status),
			Source:       r.Source,
			RequestedAt:  formatTime(r.RequestedAt),
			FulfilledAt:  formatTime(r.FulfilledAt),
		},
	)
	if err != nil {
		return fmt.Errorf("save request %s: %w", r.ID, err)
	}
	return nil
}

// Requests returns a settlement's audited requests in request order.
func (db *DB) Requests(settlementID string) ([]sharedctx.ResourceRequest, error) {
	var rows []requestRow
	if err := db.conn.Select(&rows,
		"SELECT * FROM resource_requests WHERE settlement_id = ? ORDER BY requested_at, rowid",
		settlementID,
	); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	out := make([]sharedctx.ResourceRequest, 0, len(rows))
	for _, row := range rows {
		r := sharedctx.ResourceRequest{
			ID:        row.ID,
			Material:  row.Material,
			Quantity:  row.Quantity,
			Priority:  row.Priority,
			Requester: row.Requester,
			Status:    sharedctx.RequestStatus(row.Status),
			Source:    row.Source,
		}
		var err error
		if r.RequestedAt, err = parseTime(row.RequestedAt); err != nil {
			return nil, err
		}
		if r.FulfilledAt, err = parseTime(row.FulfilledAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// RequestLedger looks up ledger entries by ID.
type RequestLedger interface {
	Request(id string) (sharedctx.ResourceRequest, bool)
}

// RequestAudit copies every ledger transition of one settlement into the
// resource_requests table.
type RequestAudit struct {
	db           *DB
	settlementID string
	ledger       RequestLedger
}

// AuditRequests returns a listener that persists ledger changes read back
// from ledger.
func (db *DB) AuditRequests(settlementID string, ledger RequestLedger) *RequestAudit {
	return &RequestAudit{db: db, settlementID: settlementID, ledger: ledger}
}

func (a *RequestAudit) HandleEvent(event sharedctx.Event, payload map[string]any) error {
	if event != sharedctx.EventResourceRequested && event != sharedctx.EventResourceRequestFulfilled {
		return nil
	}
	id, _ := payload["request_id"].(string)
	r, ok := a.ledger.Request(id)
	if !ok {
		return fmt.Errorf("audit %s: request %q not in ledger", event, id)
	}
	if err := a.db.SaveRequest(a.settlementID, r); err != nil {
		a.db.log.Error("request audit failed", "settlement", a.settlementID, "request", id, "error", err)
		return err
	}
	return nil
}
