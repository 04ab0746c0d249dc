package postgres

// SQL queries for the event log and the saga journal.

const (
	// queryCurrentVersion reads the last sequence of one stream (0 when empty).
	queryCurrentVersion = `
		SELECT COALESCE(MAX(sequence), 0)
		FROM events
		WHERE aggregate_id = $1
	`

	// queryAppendEvent inserts one event of a stream.
	// The unique constraints on (aggregate_id, sequence) and
	// (aggregate_id, command_hash) reject concurrent writers and replayed commands.
	// RETURNING retrieves the auto-generated log_seq for cursor tailing.
	queryAppendEvent = `
		INSERT INTO events (
			id, aggregate_id, aggregate_type, partition_id, sequence, type,
			command_hash, occurred_at, recorded_at, metadata, data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING log_seq
	`

	// queryLoadStream fetches one stream in sequence order.
	queryLoadStream = `
		SELECT
			id, aggregate_id, aggregate_type, sequence, type, command_hash,
			occurred_at, recorded_at, metadata, data, log_seq
		FROM events
		WHERE aggregate_id = $1
		ORDER BY sequence ASC
	`

	queryHasCommandHash = `
		SELECT EXISTS (
			SELECT 1 FROM events
			WHERE aggregate_id = $1 AND command_hash = $2
		)
	`

	// queryRetrieveEventsAfterCursor fetches events after a cursor (log_seq).
	// Used by the stall monitor to tail every stream in strict total order.
	queryRetrieveEventsAfterCursor = `
		SELECT
			id, aggregate_id, aggregate_type, sequence, type, command_hash,
			occurred_at, recorded_at, metadata, data, log_seq
		FROM events
		WHERE log_seq > $1
		ORDER BY log_seq ASC
		LIMIT $2
	`

	// queryUpsertSagaResult stores the terminal result of one saga run.
	// A saga id is written once per run; the upsert keeps replays harmless.
	queryUpsertSagaResult = `
		INSERT INTO saga_results (
			saga_id, name, status, executed_steps, context,
			error, compensation_error, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (saga_id) DO UPDATE SET
			status             = EXCLUDED.status,
			executed_steps     = EXCLUDED.executed_steps,
			context            = EXCLUDED.context,
			error              = EXCLUDED.error,
			compensation_error = EXCLUDED.compensation_error,
			completed_at       = EXCLUDED.completed_at
	`

	querySelectSagaResult = `
		SELECT
			saga_id, name, status, executed_steps, context,
			error, compensation_error, started_at, completed_at
		FROM saga_results
		WHERE saga_id = $1
	`
)

// Constraint names from migrations/000001_create_events.up.sql.
const (
	constraintStreamSequence = "events_stream_sequence_key"
	constraintCommandHash    = "events_command_hash_key"
)
