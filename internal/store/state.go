package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// StateRow is one keyed state document owned by (scope_id, uid).
type StateRow struct {
	ScopeID   string
	UID       string
	Key       string
	ValueJSON string
	UpdatedAt string
}

// GetState returns the state document at key, or nil if absent.
func GetState(ctx context.Context, db DBTX, scopeID, uid, key string) (*StateRow, error) {
	var r StateRow
	err := db.QueryRowContext(ctx, `
		SELECT scope_id, uid, state_key, value_json, updated_at
		FROM state
		WHERE scope_id = ? AND uid = ? AND state_key = ?
	`, scopeID, uid, key).Scan(&r.ScopeID, &r.UID, &r.Key, &r.ValueJSON, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &r, nil
}

// SetState writes the state document at key, replacing any previous
// value.
func SetState(ctx context.Context, db DBTX, scopeID, uid, key, valueJSON, now string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO state (scope_id, uid, state_key, value_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(scope_id, uid, state_key)
		DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`, scopeID, uid, key, valueJSON, now)
	if err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

// DeleteState removes the state document at key. Returns rows deleted.
func DeleteState(ctx context.Context, db DBTX, scopeID, uid, key string) (int64, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM state WHERE scope_id = ? AND uid = ? AND state_key = ?
	`, scopeID, uid, key)
	if err != nil {
		return 0, fmt.Errorf("delete state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete state: rows affected: %w", err)
	}
	return n, nil
}

// MergeState upserts every state document owned by fromUID into
// toUID's keyspace with last-write-wins resolution (ties favor the
// incoming row), then removes the remaining fromUID rows.
func MergeState(ctx context.Context, db DBTX, fromUID, toUID string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO state (scope_id, uid, state_key, value_json, updated_at)
		SELECT scope_id, ?, state_key, value_json, updated_at
		FROM state WHERE uid = ?
		ON CONFLICT(scope_id, uid, state_key)
		DO UPDATE SET
			value_json = excluded.value_json,
			updated_at = excluded.updated_at
		WHERE excluded.updated_at >= state.updated_at
	`, toUID, fromUID)
	if err != nil {
		return fmt.Errorf("merge state: upsert: %w", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM state WHERE uid = ?`, fromUID); err != nil {
		return fmt.Errorf("merge state: prune: %w", err)
	}
	return nil
}

// CountState returns the number of state documents owned by uid.
func CountState(ctx context.Context, db DBTX, uid string) (int64, error) {
	return countOwned(ctx, db, "state", uid)
}

// DeleteStateByUID removes every state document owned by uid.
func DeleteStateByUID(ctx context.Context, db DBTX, uid string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM state WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}
