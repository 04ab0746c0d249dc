package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/project-ledger/internal/saga"
)

// JournalAdapter implements saga.Journal using PostgreSQL.
type JournalAdapter struct {
	db *sql.DB
}

// NewJournalAdapter creates a journal sharing the given connection.
func NewJournalAdapter(db *sql.DB) *JournalAdapter {
	return &JournalAdapter{db: db}
}

// Record upserts the terminal result of one saga.
func (a *JournalAdapter) Record(ctx context.Context, rec saga.AuditRecord) error {
	stepsJSON, err := json.Marshal(rec.ExecutedSteps)
	if err != nil {
		return fmt.Errorf("saga journal: marshal steps: %w", err)
	}
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("saga journal: marshal context: %w", err)
	}

	_, err = a.db.ExecContext(ctx, queryUpsertSagaResult,
		rec.SagaID,
		rec.Name,
		string(rec.Status),
		stepsJSON,
		contextJSON,
		nullString(rec.Error),
		nullString(rec.CompensationError),
		rec.StartedAt,
		rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("saga journal: record %s: %w", rec.SagaID, err)
	}

	slog.Debug("[Postgres] Journaled saga result", "saga_id", rec.SagaID, "status", rec.Status)
	return nil
}

// Get returns the stored record, or saga.ErrNotFound.
func (a *JournalAdapter) Get(ctx context.Context, sagaID string) (*saga.AuditRecord, error) {
	var (
		rec                 saga.AuditRecord
		status              string
		stepsJSON, ctxJSON  []byte
		errText, compErrTxt sql.NullString
	)
	err := a.db.QueryRowContext(ctx, querySelectSagaResult, sagaID).Scan(
		&rec.SagaID,
		&rec.Name,
		&status,
		&stepsJSON,
		&ctxJSON,
		&errText,
		&compErrTxt,
		&rec.StartedAt,
		&rec.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, saga.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("saga journal: get %s: %w", sagaID, err)
	}

	rec.Status = saga.Status(status)
	rec.Error = errText.String
	rec.CompensationError = compErrTxt.String
	if err := json.Unmarshal(stepsJSON, &rec.ExecutedSteps); err != nil {
		return nil, fmt.Errorf("saga journal: unmarshal steps: %w", err)
	}
	if err := json.Unmarshal(ctxJSON, &rec.Context); err != nil {
		return nil, fmt.Errorf("saga journal: unmarshal context: %w", err)
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ saga.Journal = (*JournalAdapter)(nil)
