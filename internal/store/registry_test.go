package store

import (
	"context"
	"testing"
)

func TestUpsertRegistryEntry_Reactivates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := UpsertRegistryEntry(ctx, s.DB(), "user.food_pref", "1", `{"v":1}`, ts(0)); err != nil {
		t.Fatalf("UpsertRegistryEntry() failed: %v", err)
	}

	// Deactivate out of band, then re-register.
	if _, err := s.DB().ExecContext(ctx, `UPDATE schema_registry SET is_active = 0`); err != nil {
		t.Fatal(err)
	}
	if err := UpsertRegistryEntry(ctx, s.DB(), "user.food_pref", "2", `{"v":2}`, ts(1)); err != nil {
		t.Fatalf("re-register failed: %v", err)
	}

	entries, err := ListRegistryEntries(ctx, s.DB())
	if err != nil {
		t.Fatalf("ListRegistryEntries() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1 (upsert, not append)", len(entries))
	}
	e := entries[0]
	if !e.IsActive {
		t.Error("entry not re-activated on re-registration")
	}
	if e.Version != "2" || e.SchemaJSON != `{"v":2}` {
		t.Errorf("entry = %+v, want version 2 with replaced document", e)
	}
}

func TestEnqueueOutbox(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := EnqueueOutbox(ctx, s.DB(), "obx_1", "schema.registered", "user.food_pref", `{"table":"dyn_x_v1"}`, ts(0))
	if err != nil {
		t.Fatalf("EnqueueOutbox() failed: %v", err)
	}

	var stream, itemKey string
	err = s.DB().QueryRow(`SELECT stream, item_key FROM projection_outbox WHERE outbox_id = 'obx_1'`).
		Scan(&stream, &itemKey)
	if err != nil {
		t.Fatalf("outbox row missing: %v", err)
	}
	if stream != "schema.registered" || itemKey != "user.food_pref" {
		t.Errorf("outbox row = (%s, %s)", stream, itemKey)
	}
}

func TestTableExists(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ok, err := TableExists(ctx, s.DB(), "users")
	if err != nil {
		t.Fatalf("TableExists() failed: %v", err)
	}
	if !ok {
		t.Error("TableExists(users) = false")
	}

	ok, err = TableExists(ctx, s.DB(), "dyn_missing_v1")
	if err != nil {
		t.Fatalf("TableExists() failed: %v", err)
	}
	if ok {
		t.Error("TableExists(missing) = true")
	}
}
