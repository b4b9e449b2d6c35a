package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/engramdb/engram/internal/schema"
	"github.com/engramdb/engram/internal/store"
)

// OutboxStreamSchemaRegistered is the outbox stream carrying schema
// registration notifications.
const OutboxStreamSchemaRegistered = "schema.registered"

// RegisterSchema validates a definition, stores it in the registry,
// and materializes its physical table, all in one transaction.
//
// Safe to call twice for an unchanged definition: the registry row is
// overwritten in place and the table DDL is create-if-absent. A later
// registration with changed fields does NOT alter an already-created
// table's columns; schema evolution has no migration path.
//
// raw is the original definition document stored verbatim in the
// registry; pass nil to store a re-serialization of def.
func (e *Engine) RegisterSchema(ctx context.Context, def *schema.Definition, raw []byte) (string, error) {
	if err := schema.Validate(def); err != nil {
		return "", &Error{Code: ErrCodeValidation, Message: err.Error(), Err: err}
	}

	if raw == nil {
		var err error
		raw, err = json.Marshal(def)
		if err != nil {
			return "", storageErr("serialize definition", err)
		}
	}

	spec := schema.Compile(def)
	now := e.now()

	notification, err := json.Marshal(map[string]string{
		"event":     OutboxStreamSchemaRegistered,
		"schema_id": def.SchemaID,
		"version":   def.Version,
		"table":     spec.Name,
	})
	if err != nil {
		return "", storageErr("serialize notification", err)
	}

	err = e.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := store.UpsertRegistryEntry(ctx, tx, def.SchemaID, def.Version, string(raw), now); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, spec.DDL()); err != nil {
			return fmt.Errorf("create dynamic table %s: %w", spec.Name, err)
		}
		for _, ddl := range spec.IndexDDL() {
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("create index for %s: %w", spec.Name, err)
			}
		}

		// Fire-and-forget for downstream consumers; written in the
		// same tx only because the outbox is local.
		return store.EnqueueOutbox(ctx, tx, e.ids.NewID("obx"),
			OutboxStreamSchemaRegistered, def.SchemaID, string(notification), now)
	})
	if err != nil {
		return "", storageErr("register schema", err)
	}

	slog.Debug("schema registered",
		"schema_id", def.SchemaID, "version", def.Version, "table", spec.Name)
	return spec.Name, nil
}

// ListSchemas returns all registered schemas, newest first.
func (e *Engine) ListSchemas(ctx context.Context) ([]store.RegistryEntry, error) {
	entries, err := store.ListRegistryEntries(ctx, e.store.DB())
	if err != nil {
		return nil, storageErr("list schemas", err)
	}
	return entries, nil
}
