package engine

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/engramdb/engram/internal/store"
)

// Delete modes.
const (
	// DeleteModeSoft retires the user by status flip; every owned row
	// stays under the same uid. Reversible in principle.
	DeleteModeSoft = "soft"

	// DeleteModeHard physically removes the user and all owned rows.
	// Irreversible, gated by the Force flag.
	DeleteModeHard = "hard"
)

// DeleteOptions controls Delete.
type DeleteOptions struct {
	Mode   string
	Force  bool
	DryRun bool
}

// OwnedCounts tallies a user's rows across the six owned relations.
type OwnedCounts struct {
	Identities  int64 `json:"identities"`
	Memberships int64 `json:"scope_members"`
	Events      int64 `json:"events"`
	State       int64 `json:"state"`
	Metrics     int64 `json:"counters"`
	TopK        int64 `json:"topk"`
}

// DeleteReport describes what Delete did (or, for a dry run, would
// have done).
type DeleteReport struct {
	UID    string      `json:"uid"`
	Mode   string      `json:"mode"`
	DryRun bool        `json:"dry_run"`
	Counts OwnedCounts `json:"counts"`
}

// Merge consolidates fromUID into toUID across every owned relation,
// atomically:
//
//  1. identities: reassigned wholesale
//  2. scope memberships: target's existing row (and role) wins,
//     remainder reassigned
//  3. events: exact duplicates by (scope, idempotency key) dropped,
//     remainder reassigned
//  4. state, counters, top-k: last-write-wins upsert into the target
//     keyspace (greater-or-equal updated_at wins, ties favor the
//     incoming row), then source rows removed
//  5. source user marked merged; the record itself is retained
//
// Any step failing rolls the whole transaction back; no partial merge
// is observable.
func (e *Engine) Merge(ctx context.Context, fromUID, toUID string) error {
	if fromUID == toUID {
		return validationErr("cannot merge user %s into itself", fromUID)
	}

	now := e.now()
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, uid := range []string{fromUID, toUID} {
			u, err := store.GetUser(ctx, tx, uid)
			if err != nil {
				return err
			}
			if u == nil {
				return notFoundErr("user not found: %s", uid)
			}
		}

		if err := store.ReassignIdentities(ctx, tx, fromUID, toUID, now); err != nil {
			return err
		}
		if err := store.MergeMemberships(ctx, tx, fromUID, toUID); err != nil {
			return err
		}
		if err := store.MergeEvents(ctx, tx, fromUID, toUID); err != nil {
			return err
		}
		if err := store.MergeState(ctx, tx, fromUID, toUID); err != nil {
			return err
		}
		if err := store.MergeMetrics(ctx, tx, fromUID, toUID); err != nil {
			return err
		}
		if err := store.MergeTopK(ctx, tx, fromUID, toUID); err != nil {
			return err
		}

		_, err := store.SetUserStatus(ctx, tx, fromUID, store.UserStatusMerged, now)
		return err
	})
	if err != nil {
		if CodeOf(err) != "" {
			return err
		}
		return storageErr("merge users", err)
	}

	slog.Info("users merged", "from", fromUID, "to", toUID)
	return nil
}

// Delete retires or removes a user.
//
// DryRun short-circuits before any mutation and reports owned-row
// counts. Soft mode flips status to deleted. Hard mode physically
// deletes every owned row plus the user record, and is refused with a
// confirmation-required error unless Force is set.
func (e *Engine) Delete(ctx context.Context, uid string, opts DeleteOptions) (*DeleteReport, error) {
	if opts.Mode != DeleteModeSoft && opts.Mode != DeleteModeHard {
		return nil, validationErr("invalid delete mode %q (expected soft|hard)", opts.Mode)
	}

	u, err := store.GetUser(ctx, e.store.DB(), uid)
	if err != nil {
		return nil, storageErr("delete user", err)
	}
	if u == nil {
		return nil, notFoundErr("user not found: %s", uid)
	}

	report := &DeleteReport{UID: uid, Mode: opts.Mode, DryRun: opts.DryRun}
	report.Counts, err = e.countOwned(ctx, uid)
	if err != nil {
		return nil, storageErr("count owned rows", err)
	}

	if opts.DryRun {
		return report, nil
	}

	if opts.Mode == DeleteModeSoft {
		now := e.now()
		if _, err := store.SetUserStatus(ctx, e.store.DB(), uid, store.UserStatusDeleted, now); err != nil {
			return nil, storageErr("soft delete user", err)
		}
		slog.Info("user soft-deleted", "uid", uid)
		return report, nil
	}

	// Hard delete is irreversible; require explicit confirmation.
	if !opts.Force {
		return nil, &Error{
			Code:    ErrCodeConfirmationRequired,
			Message: "hard delete is irreversible; re-run with force to confirm",
		}
	}

	err = e.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := store.DeleteIdentitiesByUID(ctx, tx, uid); err != nil {
			return err
		}
		if err := store.DeleteMembershipsByUID(ctx, tx, uid); err != nil {
			return err
		}
		if err := store.DeleteEventsByUID(ctx, tx, uid); err != nil {
			return err
		}
		if err := store.DeleteStateByUID(ctx, tx, uid); err != nil {
			return err
		}
		if err := store.DeleteMetricsByUID(ctx, tx, uid); err != nil {
			return err
		}
		if err := store.DeleteTopKByUID(ctx, tx, uid); err != nil {
			return err
		}
		return store.DeleteUserRow(ctx, tx, uid)
	})
	if err != nil {
		return nil, storageErr("hard delete user", err)
	}

	slog.Info("user hard-deleted", "uid", uid, "events", report.Counts.Events)
	return report, nil
}

func (e *Engine) countOwned(ctx context.Context, uid string) (OwnedCounts, error) {
	db := e.store.DB()
	var c OwnedCounts
	var err error

	if c.Identities, err = store.CountIdentities(ctx, db, uid); err != nil {
		return c, err
	}
	if c.Memberships, err = store.CountMemberships(ctx, db, uid); err != nil {
		return c, err
	}
	if c.Events, err = store.CountEvents(ctx, db, uid); err != nil {
		return c, err
	}
	if c.State, err = store.CountState(ctx, db, uid); err != nil {
		return c, err
	}
	if c.Metrics, err = store.CountMetrics(ctx, db, uid); err != nil {
		return c, err
	}
	if c.TopK, err = store.CountTopK(ctx, db, uid); err != nil {
		return c, err
	}
	return c, nil
}
