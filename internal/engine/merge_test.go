package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdb/engram/internal/store"
)

// seedMergeWorld builds two users with overlapping data across every
// owned relation:
//
//   - identities: u_from owns telegram, u_to owns discord
//   - memberships: both in family:1 (different roles), u_from alone
//     in work:9
//   - events: duplicate idempotency key in scope:a, plus each user's
//     own events
//   - state and counters: overlapping keys with u_from strictly newer
func seedMergeWorld(t *testing.T, e *Engine, clock interface{ Advance(time.Duration) }) {
	t.Helper()
	ctx := context.Background()
	db := e.Store().DB()

	require.NoError(t, store.InsertUser(ctx, db, "u_to", "Keeper", e.now()))
	require.NoError(t, store.InsertUser(ctx, db, "u_from", "Duplicate", e.now()))

	require.NoError(t, store.InsertIdentity(ctx, db, store.Identity{
		IdentityID: "ident_tg", UID: "u_from", Channel: "telegram", ChannelUserID: "tg-1", Confidence: 1,
	}, e.now()))
	require.NoError(t, store.InsertIdentity(ctx, db, store.Identity{
		IdentityID: "ident_dc", UID: "u_to", Channel: "discord", ChannelUserID: "dc-1", Confidence: 1,
	}, e.now()))

	require.NoError(t, store.InsertScope(ctx, db, "family:1", "shared", e.now()))
	require.NoError(t, store.InsertScope(ctx, db, "work:9", "shared", e.now()))
	require.NoError(t, store.InsertMember(ctx, db, "family:1", "u_from", "owner", e.now()))
	require.NoError(t, store.InsertMember(ctx, db, "family:1", "u_to", "member", e.now()))
	require.NoError(t, store.InsertMember(ctx, db, "work:9", "u_from", "member", e.now()))

	// u_to already ingested order-1; u_from carries the same key.
	for _, in := range []IngestInput{
		{UID: "u_to", ScopeID: "scope:a", EventType: "meal.rated",
			Payload: map[string]any{"cuisine": "japanese"}, IdempotencyKey: "order-1"},
		{UID: "u_from", ScopeID: "scope:a", EventType: "meal.rated",
			Payload: map[string]any{"cuisine": "korean"}, IdempotencyKey: "order-1"},
		{UID: "u_from", ScopeID: "scope:a", EventType: "meal.rated",
			Payload: map[string]any{"cuisine": "korean"}, IdempotencyKey: "order-2"},
	} {
		_, err := e.Ingest(ctx, in)
		require.NoError(t, err)
	}

	// Overlapping state: target written first, source later (newer).
	require.NoError(t, store.SetState(ctx, db, "scope:a", "u_to", "prefs", `{"lang":"en"}`, e.now()))
	clock.Advance(time.Second)
	require.NoError(t, store.SetState(ctx, db, "scope:a", "u_from", "prefs", `{"lang":"ko"}`, e.now()))
}

func TestMerge_ConsolidatesAllOwnedRelations(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	db := e.Store().DB()
	seedMergeWorld(t, e, clock)

	require.NoError(t, e.Merge(ctx, "u_from", "u_to"))

	// Identities all point at the target.
	uid, err := store.ResolveIdentity(ctx, db, "telegram", "tg-1")
	require.NoError(t, err)
	assert.Equal(t, "u_to", uid)
	n, _ := store.CountIdentities(ctx, db, "u_from")
	assert.Zero(t, n)

	// Overlapping membership keeps the target's role.
	family, err := store.ListMembers(ctx, db, "family:1")
	require.NoError(t, err)
	require.Len(t, family, 1)
	assert.Equal(t, "u_to", family[0].UID)
	assert.Equal(t, "member", family[0].Role)

	work, err := store.ListMembers(ctx, db, "work:9")
	require.NoError(t, err)
	require.Len(t, work, 1)
	assert.Equal(t, "u_to", work[0].UID)

	// The duplicate order-1 event was dropped; order-2 moved.
	events, err := store.CountEvents(ctx, db, "u_to")
	require.NoError(t, err)
	assert.Equal(t, int64(2), events)
	fromEvents, _ := store.CountEvents(ctx, db, "u_from")
	assert.Zero(t, fromEvents)

	// The newer source state document won.
	st, err := store.GetState(ctx, db, "scope:a", "u_to", "prefs")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, `{"lang":"ko"}`, st.ValueJSON)

	// Source user retained, marked merged.
	u, err := store.GetUser(ctx, db, "u_from")
	require.NoError(t, err)
	require.NotNil(t, u, "merged user row is retained")
	assert.Equal(t, store.UserStatusMerged, u.Status)

	target, _ := store.GetUser(ctx, db, "u_to")
	assert.Equal(t, store.UserStatusActive, target.Status)
}

func TestMerge_RejectsSelfMerge(t *testing.T) {
	e, _ := newTestEngine(t)

	err := e.Merge(context.Background(), "u_1", "u_1")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestMerge_UnknownUsers(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, store.InsertUser(ctx, e.Store().DB(), "u_1", "Ada", e.now()))

	err := e.Merge(ctx, "u_1", "u_missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	err = e.Merge(ctx, "u_missing", "u_1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	// Failed merge must not have touched the existing user.
	u, _ := store.GetUser(ctx, e.Store().DB(), "u_1")
	assert.Equal(t, store.UserStatusActive, u.Status)
}

func TestDelete_RejectsInvalidMode(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Delete(context.Background(), "u_1", DeleteOptions{Mode: "gently"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestDelete_UnknownUser(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Delete(context.Background(), "u_missing", DeleteOptions{Mode: DeleteModeSoft})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestDelete_DryRunCountsWithoutMutating(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	seedMergeWorld(t, e, clock)

	report, err := e.Delete(ctx, "u_from", DeleteOptions{Mode: DeleteModeHard, DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, int64(1), report.Counts.Identities)
	assert.Equal(t, int64(2), report.Counts.Memberships)
	assert.Equal(t, int64(2), report.Counts.Events)
	assert.Equal(t, int64(1), report.Counts.State)
	assert.Equal(t, int64(1), report.Counts.Metrics)
	assert.Equal(t, int64(1), report.Counts.TopK)

	// Nothing moved: the user is intact and still owns everything.
	u, _ := store.GetUser(ctx, e.Store().DB(), "u_from")
	require.NotNil(t, u)
	assert.Equal(t, store.UserStatusActive, u.Status)
	n, _ := store.CountEvents(ctx, e.Store().DB(), "u_from")
	assert.Equal(t, int64(2), n)
}

func TestDelete_SoftFlipsStatusOnly(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	seedMergeWorld(t, e, clock)

	report, err := e.Delete(ctx, "u_from", DeleteOptions{Mode: DeleteModeSoft})
	require.NoError(t, err)
	assert.False(t, report.DryRun)

	u, _ := store.GetUser(ctx, e.Store().DB(), "u_from")
	require.NotNil(t, u)
	assert.Equal(t, store.UserStatusDeleted, u.Status)

	// Owned rows survive a soft delete.
	n, _ := store.CountEvents(ctx, e.Store().DB(), "u_from")
	assert.Equal(t, int64(2), n)
}

func TestDelete_HardRequiresForce(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	seedMergeWorld(t, e, clock)

	_, err := e.Delete(ctx, "u_from", DeleteOptions{Mode: DeleteModeHard})
	require.Error(t, err)
	assert.True(t, IsConfirmationRequired(err))

	// The refusal must not have deleted anything.
	u, _ := store.GetUser(ctx, e.Store().DB(), "u_from")
	require.NotNil(t, u)
	n, _ := store.CountEvents(ctx, e.Store().DB(), "u_from")
	assert.Equal(t, int64(2), n)
}

func TestDelete_HardRemovesUserAndOwnedRows(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	db := e.Store().DB()
	seedMergeWorld(t, e, clock)

	report, err := e.Delete(ctx, "u_from", DeleteOptions{Mode: DeleteModeHard, Force: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Counts.Events, "report reflects pre-delete counts")

	u, _ := store.GetUser(ctx, db, "u_from")
	assert.Nil(t, u, "hard delete removes the user row")

	for name, count := range map[string]func() (int64, error){
		"identities":  func() (int64, error) { return store.CountIdentities(ctx, db, "u_from") },
		"memberships": func() (int64, error) { return store.CountMemberships(ctx, db, "u_from") },
		"events":      func() (int64, error) { return store.CountEvents(ctx, db, "u_from") },
		"state":       func() (int64, error) { return store.CountState(ctx, db, "u_from") },
		"metrics":     func() (int64, error) { return store.CountMetrics(ctx, db, "u_from") },
		"topk":        func() (int64, error) { return store.CountTopK(ctx, db, "u_from") },
	} {
		n, err := count()
		require.NoError(t, err)
		assert.Zero(t, n, "%s not removed", name)
	}

	// The other user's data is untouched.
	n, _ := store.CountEvents(ctx, db, "u_to")
	assert.Equal(t, int64(1), n)
}
