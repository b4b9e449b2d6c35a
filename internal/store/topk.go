package store

import (
	"context"
	"fmt"
)

// TopKRow is one rank of a materialized top-k projection. The
// projection is fully derived: it is always rebuilt from the counters,
// never patched in place.
type TopKRow struct {
	ScopeID   string
	UID       string
	Topic     string
	Rank      int64
	ItemKey   string
	Weight    float64
	UpdatedAt string
}

// ClearTopK removes all ranks for (scopeID, uid, topic).
func ClearTopK(ctx context.Context, db DBTX, scopeID, uid, topic string) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM topk WHERE scope_id = ? AND uid = ? AND topic = ?
	`, scopeID, uid, topic)
	if err != nil {
		return fmt.Errorf("clear topk: %w", err)
	}
	return nil
}

// InsertTopK inserts one rank row.
func InsertTopK(ctx context.Context, db DBTX, row TopKRow) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO topk (scope_id, uid, topic, rank, item_key, weight, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, row.ScopeID, row.UID, row.Topic, row.Rank, row.ItemKey, row.Weight, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert topk: %w", err)
	}
	return nil
}

// QueryTopK returns up to limit ranks for (scopeID, uid, topic),
// rank ascending.
func QueryTopK(ctx context.Context, db DBTX, scopeID, uid, topic string, limit int) ([]TopKRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT scope_id, uid, topic, rank, item_key, weight, updated_at
		FROM topk
		WHERE scope_id = ? AND uid = ? AND topic = ?
		ORDER BY rank ASC
		LIMIT ?
	`, scopeID, uid, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("query topk: %w", err)
	}
	defer rows.Close()

	var out []TopKRow
	for rows.Next() {
		var r TopKRow
		if err := rows.Scan(&r.ScopeID, &r.UID, &r.Topic, &r.Rank, &r.ItemKey, &r.Weight, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan topk: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query topk: %w", err)
	}
	return out, nil
}

// MergeTopK upserts fromUID's projection rows into toUID's keyspace
// with last-write-wins resolution (ties favor the incoming row), then
// removes the remaining fromUID rows. A caller that wants a coherent
// ranking afterwards should rebuild the affected topics from the
// merged counters.
func MergeTopK(ctx context.Context, db DBTX, fromUID, toUID string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO topk (scope_id, uid, topic, rank, item_key, weight, updated_at)
		SELECT scope_id, ?, topic, rank, item_key, weight, updated_at
		FROM topk WHERE uid = ?
		ON CONFLICT(scope_id, uid, topic, rank)
		DO UPDATE SET
			item_key = excluded.item_key,
			weight = excluded.weight,
			updated_at = excluded.updated_at
		WHERE excluded.updated_at >= topk.updated_at
	`, toUID, fromUID)
	if err != nil {
		return fmt.Errorf("merge topk: upsert: %w", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM topk WHERE uid = ?`, fromUID); err != nil {
		return fmt.Errorf("merge topk: prune: %w", err)
	}
	return nil
}

// CountTopK returns the number of projection rows owned by uid.
func CountTopK(ctx context.Context, db DBTX, uid string) (int64, error) {
	return countOwned(ctx, db, "topk", uid)
}

// DeleteTopKByUID removes every projection row owned by uid.
func DeleteTopKByUID(ctx context.Context, db DBTX, uid string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM topk WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("delete topk: %w", err)
	}
	return nil
}
