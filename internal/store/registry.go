package store

import (
	"context"
	"fmt"
)

// RegistryEntry is the stored registration for one schema_id. Exactly
// one entry exists per schema_id; re-registration overwrites it in
// place (no version history at the registry level).
type RegistryEntry struct {
	SchemaID   string
	Version    string
	SchemaJSON string
	IsActive   bool
	CreatedAt  string
}

// UpsertRegistryEntry registers or re-registers a schema definition.
// The entry is always re-activated; the raw definition and version are
// blindly overwritten. The physical dynamic table is never altered
// here.
func UpsertRegistryEntry(ctx context.Context, db DBTX, schemaID, version, schemaJSON, now string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO schema_registry (schema_id, version, schema_json, is_active, created_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(schema_id)
		DO UPDATE SET version = excluded.version, schema_json = excluded.schema_json, is_active = 1
	`, schemaID, version, schemaJSON, now)
	if err != nil {
		return fmt.Errorf("upsert registry entry: %w", err)
	}
	return nil
}

// ListRegistryEntries returns all registered schemas, newest first.
func ListRegistryEntries(ctx context.Context, db DBTX) ([]RegistryEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT schema_id, version, schema_json, is_active, created_at
		FROM schema_registry ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list registry entries: %w", err)
	}
	defer rows.Close()

	var out []RegistryEntry
	for rows.Next() {
		var e RegistryEntry
		if err := rows.Scan(&e.SchemaID, &e.Version, &e.SchemaJSON, &e.IsActive, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registry entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registry entries: %w", err)
	}
	return out, nil
}

// EnqueueOutbox appends a fire-and-forget notification for downstream
// projection consumers. Delivery is not part of the core's consistency
// guarantees; consumers poll and prune on their own schedule.
func EnqueueOutbox(ctx context.Context, db DBTX, outboxID, stream, itemKey, payloadJSON, now string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO projection_outbox (outbox_id, stream, item_key, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, outboxID, stream, itemKey, payloadJSON, now)
	if err != nil {
		return fmt.Errorf("enqueue outbox: %w", err)
	}
	return nil
}

// TableExists reports whether a table with the given name exists.
func TableExists(ctx context.Context, db DBTX, name string) (bool, error) {
	var n int64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?
	`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("table exists: %w", err)
	}
	return n > 0, nil
}
