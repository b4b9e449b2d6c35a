package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/engramdb/engram/internal/store"
)

// topKLimit bounds every materialized ranking to ten rows.
const topKLimit = 10

// IngestInput describes one event submission.
type IngestInput struct {
	UID            string
	ScopeID        string
	EventType      string
	Payload        map[string]any
	IdempotencyKey string // optional; empty means unconstrained
	EventID        string // optional; minted when empty
}

// IngestOutcome reports the result of an ingestion.
type IngestOutcome struct {
	// Duplicate is true when the idempotency key was already present
	// and the call committed as a no-op.
	Duplicate bool

	EventID        string
	EventType      string
	IdempotencyKey string
}

// CounterUpdate is the derived materialization target for an event.
type CounterUpdate struct {
	Topic string
	Item  string
}

// Key returns the counter store key "counter:{topic}:{item}".
func (c CounterUpdate) Key() string {
	return "counter:" + c.Topic + ":" + c.Item
}

// counterRule maps an event type to the payload field feeding its
// counter topic.
type counterRule struct {
	field string
	topic string
}

// counterRules is the fixed (extensible) derivation table. Event types
// not listed here derive no counter.
var counterRules = map[string]counterRule{
	"meal.rated":     {field: "cuisine", topic: "food_pref"},
	"expense.logged": {field: "category", topic: "spend_category"},
	"request.logged": {field: "pattern", topic: "request_pattern"},
}

// Derive computes the counter update for an event, or nil when the
// event type carries no derivation rule. A recognized event type whose
// required payload field is absent or not a string fails validation;
// the caller must not have written anything yet.
func Derive(eventType string, payload map[string]any) (*CounterUpdate, error) {
	rule, ok := counterRules[eventType]
	if !ok {
		return nil, nil
	}
	value, ok := payload[rule.field].(string)
	if !ok {
		return nil, validationErr("%s requires string field: %s", eventType, rule.field)
	}
	return &CounterUpdate{Topic: rule.topic, Item: value}, nil
}

// itemFromCounterKey extracts the item as the third colon-delimited
// segment of a counter key.
func itemFromCounterKey(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// Ingest persists one event and keeps its derived views consistent,
// all inside a single transaction:
//
//  1. duplicate idempotency key -> commit a no-op, report Duplicate
//  2. insert the event row
//  3. if the event derives a counter: add +1.0, then fully rebuild
//     the affected top-k ranking
//
// Derivation errors surface before the transaction opens, so a failed
// ingestion leaves the event log untouched.
func (e *Engine) Ingest(ctx context.Context, in IngestInput) (IngestOutcome, error) {
	derived, err := Derive(in.EventType, in.Payload)
	if err != nil {
		return IngestOutcome{}, err
	}

	payloadJSON, err := marshalPayload(in.Payload)
	if err != nil {
		return IngestOutcome{}, validationErr("invalid payload: %v", err)
	}

	eventID := in.EventID
	if eventID == "" {
		eventID = e.ids.NewID("evt")
	}
	now := e.now()

	var duplicate bool
	err = e.store.WithTx(ctx, func(tx *sql.Tx) error {
		if in.IdempotencyKey != "" {
			exists, err := store.IdempotencyExists(ctx, tx, in.ScopeID, in.UID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if exists {
				duplicate = true
				return nil
			}
		}

		if err := store.InsertEvent(ctx, tx, store.Event{
			EventID:        eventID,
			UID:            in.UID,
			ScopeID:        in.ScopeID,
			EventType:      in.EventType,
			EventTS:        now,
			PayloadJSON:    string(payloadJSON),
			IdempotencyKey: in.IdempotencyKey,
		}); err != nil {
			return err
		}

		if derived == nil {
			return nil
		}

		if err := store.UpsertCounter(ctx, tx, in.ScopeID, in.UID, derived.Key(), 1.0, now); err != nil {
			return err
		}
		return rebuildTopK(ctx, tx, in.ScopeID, in.UID, derived.Topic, now)
	})
	if err != nil {
		if store.IsConflict(err) {
			return IngestOutcome{}, conflictErr("ingest event", err)
		}
		return IngestOutcome{}, storageErr("ingest event", err)
	}

	if duplicate {
		slog.Debug("duplicate event ignored",
			"uid", in.UID, "scope_id", in.ScopeID, "idempotency_key", in.IdempotencyKey)
		return IngestOutcome{Duplicate: true, IdempotencyKey: in.IdempotencyKey}, nil
	}

	slog.Debug("event ingested",
		"event_id", eventID, "event_type", in.EventType, "uid", in.UID, "scope_id", in.ScopeID)
	return IngestOutcome{EventID: eventID, EventType: in.EventType}, nil
}

// rebuildTopK recomputes the full ranking for (scopeID, uid, topic)
// from the counter store: clear, select top counters by score
// descending (ties by key ascending), reinsert with contiguous ranks
// from 1. Correctness depends only on the counters being consistent at
// rebuild time, never on prior projection state.
func rebuildTopK(ctx context.Context, tx store.DBTX, scopeID, uid, topic, now string) error {
	if err := store.ClearTopK(ctx, tx, scopeID, uid, topic); err != nil {
		return err
	}

	counters, err := store.TopCounters(ctx, tx, scopeID, uid, "counter:"+topic+":", topKLimit)
	if err != nil {
		return err
	}

	for i, c := range counters {
		if err := store.InsertTopK(ctx, tx, store.TopKRow{
			ScopeID:   scopeID,
			UID:       uid,
			Topic:     topic,
			Rank:      int64(i + 1),
			ItemKey:   itemFromCounterKey(c.Key),
			Weight:    c.Value,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// RebuildTopK recomputes one ranking outside the ingestion path, e.g.
// after a merge or from an admin reindex.
func (e *Engine) RebuildTopK(ctx context.Context, scopeID, uid, topic string) error {
	now := e.now()
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		return rebuildTopK(ctx, tx, scopeID, uid, topic, now)
	})
	if err != nil {
		return storageErr(fmt.Sprintf("rebuild topk %s", topic), err)
	}
	return nil
}
