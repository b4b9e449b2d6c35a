package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Metric is one accumulating counter or document metric owned by
// (scope_id, uid).
type Metric struct {
	Key       string
	Value     float64
	JSON      string
	UpdatedAt string
}

// UpsertCounter adds delta to the counter at key, initializing it at
// delta if absent. Counters are only ever mutated additively.
func UpsertCounter(ctx context.Context, db DBTX, scopeID, uid, key string, delta float64, now string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO metrics (scope_id, uid, metric_key, metric_value, metric_json, updated_at)
		VALUES (?, ?, ?, ?, NULL, ?)
		ON CONFLICT(scope_id, uid, metric_key)
		DO UPDATE SET
			metric_value = COALESCE(metrics.metric_value, 0) + excluded.metric_value,
			updated_at = excluded.updated_at
	`, scopeID, uid, key, delta, now)
	if err != nil {
		return fmt.Errorf("upsert counter: %w", err)
	}
	return nil
}

// MetricByKey returns the metric at exactly key, or nil if absent.
func MetricByKey(ctx context.Context, db DBTX, scopeID, uid, key string) (*Metric, error) {
	var m Metric
	err := db.QueryRowContext(ctx, `
		SELECT metric_key, COALESCE(metric_value, 0), COALESCE(metric_json, ''), updated_at
		FROM metrics
		WHERE scope_id = ? AND uid = ? AND metric_key = ?
	`, scopeID, uid, key).Scan(&m.Key, &m.Value, &m.JSON, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metric by key: %w", err)
	}
	return &m, nil
}

// MetricsByPrefix returns all metrics whose key starts with prefix,
// ordered by key.
func MetricsByPrefix(ctx context.Context, db DBTX, scopeID, uid, prefix string) ([]Metric, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT metric_key, COALESCE(metric_value, 0), COALESCE(metric_json, ''), updated_at
		FROM metrics
		WHERE scope_id = ? AND uid = ? AND metric_key LIKE ?
		ORDER BY metric_key ASC
	`, scopeID, uid, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("metrics by prefix: %w", err)
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.Key, &m.Value, &m.JSON, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metrics by prefix: %w", err)
	}
	return out, nil
}

// TopCounters returns up to limit counters under the prefix, highest
// score first, ties broken by key ascending. This is the source query
// for the top-k rebuild; determinism of the tie-break is what makes
// the rebuild a pure function of counter state.
func TopCounters(ctx context.Context, db DBTX, scopeID, uid, prefix string, limit int) ([]Metric, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT metric_key, COALESCE(metric_value, 0) AS score
		FROM metrics
		WHERE scope_id = ? AND uid = ? AND metric_key LIKE ?
		ORDER BY score DESC, metric_key ASC
		LIMIT ?
	`, scopeID, uid, prefix+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("top counters: %w", err)
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.Key, &m.Value); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top counters: %w", err)
	}
	return out, nil
}

// MergeMetrics upserts every metric owned by fromUID into toUID's
// keyspace with last-write-wins resolution: on collision the row with
// the greater-or-equal updated_at wins, ties favoring the incoming
// row. Remaining fromUID rows are then removed.
func MergeMetrics(ctx context.Context, db DBTX, fromUID, toUID string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO metrics (scope_id, uid, metric_key, metric_value, metric_json, updated_at)
		SELECT scope_id, ?, metric_key, metric_value, metric_json, updated_at
		FROM metrics WHERE uid = ?
		ON CONFLICT(scope_id, uid, metric_key)
		DO UPDATE SET
			metric_value = excluded.metric_value,
			metric_json = excluded.metric_json,
			updated_at = excluded.updated_at
		WHERE excluded.updated_at >= metrics.updated_at
	`, toUID, fromUID)
	if err != nil {
		return fmt.Errorf("merge metrics: upsert: %w", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM metrics WHERE uid = ?`, fromUID); err != nil {
		return fmt.Errorf("merge metrics: prune: %w", err)
	}
	return nil
}

// CountMetrics returns the number of metrics owned by uid.
func CountMetrics(ctx context.Context, db DBTX, uid string) (int64, error) {
	return countOwned(ctx, db, "metrics", uid)
}

// DeleteMetricsByUID removes every metric owned by uid.
func DeleteMetricsByUID(ctx context.Context, db DBTX, uid string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM metrics WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("delete metrics: %w", err)
	}
	return nil
}
