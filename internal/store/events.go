package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Event is one immutable row of the event log. Events are never
// updated after insert; a merge only reassigns ownership.
type Event struct {
	EventID        string
	UID            string
	ScopeID        string
	EventType      string
	EventTS        string
	PayloadJSON    string
	IdempotencyKey string // empty means no key
	SchemaVersion  string
	CreatedAt      string
}

// InsertEvent appends an event to the log.
func InsertEvent(ctx context.Context, db DBTX, e Event) error {
	var key any
	if e.IdempotencyKey != "" {
		key = e.IdempotencyKey
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO events
		(event_id, uid, scope_id, event_type, event_ts, payload_json, idempotency_key, schema_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, '1', ?)
	`, e.EventID, e.UID, e.ScopeID, e.EventType, e.EventTS, e.PayloadJSON, key, e.EventTS)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// IdempotencyExists reports whether an event already carries the given
// idempotency key for (scopeID, uid).
func IdempotencyExists(ctx context.Context, db DBTX, scopeID, uid, key string) (bool, error) {
	var n int64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM events WHERE scope_id = ? AND uid = ? AND idempotency_key = ?
	`, scopeID, uid, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	return n > 0, nil
}

// LatestEvent returns the most recently ingested event for (uid,
// scopeID), or nil if the owner has no events in that scope.
func LatestEvent(ctx context.Context, db DBTX, uid, scopeID string) (*Event, error) {
	var e Event
	var key sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT event_id, uid, scope_id, event_type, event_ts, payload_json, idempotency_key, schema_version, created_at
		FROM events
		WHERE uid = ? AND scope_id = ?
		ORDER BY rowid DESC
		LIMIT 1
	`, uid, scopeID).Scan(
		&e.EventID, &e.UID, &e.ScopeID, &e.EventType, &e.EventTS,
		&e.PayloadJSON, &key, &e.SchemaVersion, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest event: %w", err)
	}
	e.IdempotencyKey = key.String
	return &e, nil
}

// MergeEvents moves fromUID's events to toUID. An event whose non-null
// idempotency key already exists among toUID's events in the same
// scope is an exact duplicate and is dropped instead of moved.
func MergeEvents(ctx context.Context, db DBTX, fromUID, toUID string) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM events
		WHERE uid = ?
		  AND idempotency_key IS NOT NULL
		  AND EXISTS (
			SELECT 1 FROM events t
			WHERE t.uid = ?
			  AND t.scope_id = events.scope_id
			  AND t.idempotency_key = events.idempotency_key
		  )
	`, fromUID, toUID)
	if err != nil {
		return fmt.Errorf("merge events: drop duplicates: %w", err)
	}

	_, err = db.ExecContext(ctx, `UPDATE events SET uid = ? WHERE uid = ?`, toUID, fromUID)
	if err != nil {
		return fmt.Errorf("merge events: reassign: %w", err)
	}
	return nil
}

// CountEvents returns the number of events owned by uid.
func CountEvents(ctx context.Context, db DBTX, uid string) (int64, error) {
	return countOwned(ctx, db, "events", uid)
}

// DeleteEventsByUID removes every event owned by uid.
func DeleteEventsByUID(ctx context.Context, db DBTX, uid string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM events WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	return nil
}

// ArchiveEventsBefore moves events with event_ts strictly before the
// cutoff into events_archive. Returns the number of archived rows.
func ArchiveEventsBefore(ctx context.Context, db DBTX, cutoff, now string) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO events_archive
		(event_id, uid, scope_id, event_type, event_ts, payload_json, idempotency_key, schema_version, created_at, archived_at)
		SELECT event_id, uid, scope_id, event_type, event_ts, payload_json, idempotency_key, schema_version, created_at, ?
		FROM events WHERE event_ts < ?
	`, now, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive events: copy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("archive events: rows affected: %w", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM events WHERE event_ts < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("archive events: prune: %w", err)
	}
	return n, nil
}
