package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdb/engram/internal/schema"
	"github.com/engramdb/engram/internal/store"
)

func foodPrefDef() *schema.Definition {
	return &schema.Definition{
		SchemaID: "user.food-pref",
		Version:  "2",
		Class:    schema.ClassUserContext,
		Fields: []schema.FieldDef{
			{Name: schema.RefUserField, Type: "string"},
			{Name: "cuisine", Type: "string", Nullable: true},
			{Name: "score", Type: "double"},
		},
	}
}

func TestRegisterSchema_MaterializesTable(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	db := e.Store().DB()

	table, err := e.RegisterSchema(ctx, foodPrefDef(), nil)
	require.NoError(t, err)
	assert.Equal(t, "dyn_user_food_pref_v2", table)

	ok, err := store.TableExists(ctx, db, table)
	require.NoError(t, err)
	assert.True(t, ok, "dynamic table must exist after registration")

	// The compiled columns are actually usable.
	_, err = db.ExecContext(ctx, `
		INSERT INTO dyn_user_food_pref_v2
		(record_id, created_at, updated_at, ref_user_id, refuserid, score)
		VALUES ('r1', '2026-01-01', '2026-01-01', 'u_1', 'u_1', 4.5)
	`)
	require.NoError(t, err)

	entries, err := e.ListSchemas(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user.food-pref", entries[0].SchemaID)
	assert.True(t, entries[0].IsActive)
}

func TestRegisterSchema_EnqueuesOutboxNotification(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.RegisterSchema(ctx, foodPrefDef(), nil)
	require.NoError(t, err)

	var stream, itemKey, payload string
	err = e.Store().DB().QueryRowContext(ctx, `
		SELECT stream, item_key, payload_json FROM projection_outbox
	`).Scan(&stream, &itemKey, &payload)
	require.NoError(t, err)

	assert.Equal(t, OutboxStreamSchemaRegistered, stream)
	assert.Equal(t, "user.food-pref", itemKey)
	assert.Contains(t, payload, `"table":"dyn_user_food_pref_v2"`)
}

func TestRegisterSchema_Reregistration(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := e.RegisterSchema(ctx, foodPrefDef(), nil)
	require.NoError(t, err)
	second, err := e.RegisterSchema(ctx, foodPrefDef(), nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := e.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "re-registration overwrites, never appends")
}

func TestRegisterSchema_ChangedFieldsNeverAlterTable(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	db := e.Store().DB()

	_, err := e.RegisterSchema(ctx, foodPrefDef(), nil)
	require.NoError(t, err)

	def := foodPrefDef()
	def.Fields = append(def.Fields, schema.FieldDef{Name: "spice_level", Type: "int"})
	_, err = e.RegisterSchema(ctx, def, nil)
	require.NoError(t, err)

	// The physical table keeps its original columns.
	_, err = db.ExecContext(ctx, `
		INSERT INTO dyn_user_food_pref_v2
		(record_id, created_at, updated_at, ref_user_id, refuserid, score, spice_level)
		VALUES ('r1', '2026-01-01', '2026-01-01', 'u_1', 'u_1', 4.5, 3)
	`)
	assert.Error(t, err, "new field must not appear in the existing table")

	// But the registry document is replaced.
	entries, _ := e.ListSchemas(ctx)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].SchemaJSON, "spice_level")
}

func TestRegisterSchema_RejectsInvalidDefinition(t *testing.T) {
	e, _ := newTestEngine(t)

	def := foodPrefDef()
	def.SchemaID = ""
	_, err := e.RegisterSchema(context.Background(), def, nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	entries, _ := e.ListSchemas(context.Background())
	assert.Empty(t, entries, "failed registration writes nothing")
}

func TestRegisterSchema_StoresRawDocumentVerbatim(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	raw := []byte(`{"schema_id":"user.food-pref","version":"2","class":"user_context","fields":[{"name":"refUserId","type":"string"},{"name":"cuisine","type":"string","nullable":true},{"name":"score","type":"double"}]}`)
	_, err := e.RegisterSchema(ctx, foodPrefDef(), raw)
	require.NoError(t, err)

	entries, err := e.ListSchemas(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(raw), entries[0].SchemaJSON)
}
