package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/engramdb/engram/internal/store"
)

// NewAdminCommand creates the admin command group.
func NewAdminCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Database maintenance",
	}
	cmd.AddCommand(newAdminMigrateCommand(opts))
	cmd.AddCommand(newAdminReindexCommand(opts))
	cmd.AddCommand(newAdminCompactCommand(opts))
	cmd.AddCommand(newAdminArchiveCommand(opts))
	return cmd
}

func newAdminMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Opening the database applies the core schema and any pending
version migrations; migrate exists to do that explicitly, e.g. after
an upgrade, without running any other command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, _, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			return out.OK("migrations applied", map[string]string{"db": opts.DB})
		},
	}
}

func newAdminReindexCommand(opts *RootOptions) *cobra.Command {
	var uid, scopeID, topic string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild database indexes, optionally one top-k ranking",
		Long: `Reindex rebuilds every SQLite index from table data. With --uid,
--scope-id, and --topic it additionally recomputes that top-k ranking
from the counter store, which repairs a projection that has drifted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			if _, err := st.DB().ExecContext(cmd.Context(), `REINDEX`); err != nil {
				return out.Fail(fmt.Errorf("reindex: %w", err))
			}

			if topic != "" {
				if uid == "" || scopeID == "" {
					return out.CommandError("invalid flags", fmt.Errorf("--topic requires --uid and --scope-id"))
				}
				if err := eng.RebuildTopK(cmd.Context(), scopeID, uid, topic); err != nil {
					return out.Fail(err)
				}
				return out.OK(
					fmt.Sprintf("reindexed; rebuilt topk topic=%s uid=%s scope_id=%s", topic, uid, scopeID),
					map[string]string{"topic": topic, "uid": uid, "scope_id": scopeID},
				)
			}
			return out.OK("reindexed", nil)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user id for top-k rebuild")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "scope id for top-k rebuild")
	cmd.Flags().StringVar(&topic, "topic", "", "top-k topic to rebuild")
	return cmd
}

func newAdminCompactCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Checkpoint the WAL and reclaim free pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, _, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			ctx := cmd.Context()
			if _, err := st.DB().ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
				return out.Fail(fmt.Errorf("wal checkpoint: %w", err))
			}
			if _, err := st.DB().ExecContext(ctx, `VACUUM`); err != nil {
				return out.Fail(fmt.Errorf("vacuum: %w", err))
			}
			return out.OK("compacted", map[string]string{"db": opts.DB})
		},
	}
}

func newAdminArchiveCommand(opts *RootOptions) *cobra.Command {
	var before string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Move events older than a cutoff into the archive table",
		Long: `Archive copies events whose timestamp is strictly before the
cutoff into events_archive, then removes them from the live log.
Derived counters and rankings are untouched; they reflect all events
ever ingested, archived or not.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)

			cutoff, err := time.Parse(time.RFC3339, before)
			if err != nil {
				return out.CommandError("invalid --before timestamp (want RFC 3339)", err)
			}

			st, _, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			n, err := store.ArchiveEventsBefore(cmd.Context(), st.DB(),
				store.FormatTime(cutoff), store.FormatTime(time.Now()))
			if err != nil {
				return out.Fail(fmt.Errorf("archive events: %w", err))
			}
			return out.OK(
				fmt.Sprintf("archived %d events before %s", n, before),
				map[string]any{"archived": n, "before": before},
			)
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "cutoff timestamp, RFC 3339 (required)")
	_ = cmd.MarkFlagRequired("before")
	return cmd
}
