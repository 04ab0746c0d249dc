package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	v1 "github.com/aevon-lab/project-ledger/internal/api/v1"
	"github.com/aevon-lab/project-ledger/internal/core/storage"
	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// marshalEventJSON marshals an event's metadata and data fields to JSON.
//
// Nil metadata produces nil (SQL NULL) rather than JSON "null" string.
// Empty data is stored as an empty object.
func marshalEventJSON(event *v1.Event) (metadataJSON, dataJSON []byte, err error) {
	if len(event.Metadata) > 0 {
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	dataJSON = []byte(event.Data)
	if len(dataJSON) == 0 {
		dataJSON = []byte("{}")
	}
	if !json.Valid(dataJSON) {
		return nil, nil, fmt.Errorf("failed to marshal data: event %s carries invalid JSON", event.ID)
	}

	return metadataJSON, dataJSON, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventRow scans a database row into an Event struct.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanEventRow(row scanner) (*v1.Event, error) {
	var evt v1.Event
	var metadataJSON, dataJSON []byte

	err := row.Scan(
		&evt.ID,
		&evt.AggregateID,
		&evt.AggregateType,
		&evt.Sequence,
		&evt.Type,
		&evt.CommandHash,
		&evt.OccurredAt,
		&evt.RecordedAt,
		&metadataJSON,
		&dataJSON,
		&evt.LogSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &evt.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	evt.Data = json.RawMessage(dataJSON)

	return &evt, nil
}

// mapInsertError translates unique violations into the storage sentinels.
func mapInsertError(aggregateID string, evt *v1.Event, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		switch pqErr.Constraint {
		case constraintCommandHash:
			return fmt.Errorf("%w: aggregate %s hash %s", storage.ErrDuplicateCommand, aggregateID, evt.CommandHash)
		case constraintStreamSequence:
			return fmt.Errorf("%w: aggregate %s sequence %d already written", storage.ErrVersionConflict, aggregateID, evt.Sequence)
		}
	}
	return fmt.Errorf("failed to append event %s: %w", evt.ID, err)
}
