// Package journal appends flow step outcomes to the flow_events table so a
// borrower's path through the portal can be reconstructed per transaction.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"loan-portal/internal/common/logger"

	"github.com/google/uuid"
)

const Schema = `
CREATE TABLE IF NOT EXISTS flow_events (
	id             UUID PRIMARY KEY,
	session_id     TEXT NOT NULL DEFAULT '',
	user_id        TEXT NOT NULL DEFAULT '',
	transaction_id TEXT NOT NULL DEFAULT '',
	step           TEXT NOT NULL,
	outcome        TEXT NOT NULL,
	error_code     TEXT NOT NULL DEFAULT '',
	details        JSONB,
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS flow_events_transaction_idx ON flow_events (transaction_id, created_at);`

const (
	OutcomeSuccess = "success"
	OutcomeWaiting = "waiting"
	OutcomeFailed  = "failed"
)

// Event is one journal row.
type Event struct {
	ID            string                 `json:"id"`
	SessionID     string                 `json:"sessionId,omitempty"`
	UserID        string                 `json:"userId,omitempty"`
	TransactionID string                 `json:"transactionId,omitempty"`
	Step          string                 `json:"step"`
	Outcome       string                 `json:"outcome"`
	ErrorCode     string                 `json:"errorCode,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
}

// Recorder is what step handlers depend on.
type Recorder interface {
	Record(ctx context.Context, e Event) (string, error)
}

type Journal struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func New(db *sql.DB, log logger.Logger) *Journal {
	return &Journal{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "journal"}),
		now:    time.Now,
	}
}

// Migrate creates the table when missing.
func (j *Journal) Migrate(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate flow_events: %w", err)
	}
	return nil
}

// Record inserts e and returns its id. A nil Journal records nothing.
func (j *Journal) Record(ctx context.Context, e Event) (string, error) {
	if j == nil || j.db == nil {
		return "", nil
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.now().UTC()
	}

	var details []byte
	if len(e.Details) > 0 {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			j.logger.Warn("failed to marshal event details", map[string]interface{}{"error": err.Error()})
			details = []byte("{}")
		}
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO flow_events (
			id, session_id, user_id, transaction_id, step, outcome, error_code, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.SessionID, e.UserID, e.TransactionID, e.Step, e.Outcome, e.ErrorCode, details, e.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert flow event: %w", err)
	}
	return e.ID, nil
}

// History returns the events of one transaction, oldest first.
func (j *Journal) History(ctx context.Context, transactionID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, transaction_id, step, outcome, error_code, details, created_at
		FROM flow_events
		WHERE transaction_id = $1
		ORDER BY created_at ASC
		LIMIT $2`, transactionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query flow events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var details []byte
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.TransactionID, &e.Step, &e.Outcome, &e.ErrorCode, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan flow event: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				j.logger.Debug("skipping undecodable details", map[string]interface{}{"id": e.ID})
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Safe records e and only logs a failure; the journal never blocks a step.
func Safe(ctx context.Context, r Recorder, log logger.Logger, e Event) {
	if r == nil {
		return
	}
	if _, err := r.Record(ctx, e); err != nil {
		log.Warn("flow event not recorded", map[string]interface{}{
			"step":  e.Step,
			"error": err.Error(),
		})
	}
}
