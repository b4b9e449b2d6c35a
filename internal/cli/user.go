package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/engramdb/engram/internal/engine"
)

// NewUserCommand creates the user command group.
func NewUserCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage canonical users",
	}
	cmd.AddCommand(newUserCreateCommand(opts))
	cmd.AddCommand(newUserListCommand(opts))
	cmd.AddCommand(newUserShowCommand(opts))
	cmd.AddCommand(newUserUpdateCommand(opts))
	cmd.AddCommand(newUserMergeCommand(opts))
	cmd.AddCommand(newUserDeleteCommand(opts))
	return cmd
}

func newUserCreateCommand(opts *RootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			uid, err := eng.CreateUser(cmd.Context(), name)
			if err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("created user uid=%s name=%s", uid, name),
				map[string]string{"uid": uid, "name": name},
			)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUserListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			users, err := eng.ListUsers(cmd.Context())
			if err != nil {
				return out.Fail(err)
			}

			lines := make([]string, 0, len(users))
			data := make([]map[string]string, 0, len(users))
			for _, u := range users {
				lines = append(lines, fmt.Sprintf("uid=%s name=%s status=%s", u.UID, u.DisplayName, u.Status))
				data = append(data, map[string]string{"uid": u.UID, "name": u.DisplayName, "status": u.Status})
			}
			return out.OK(strings.Join(lines, "\n"), data)
		},
	}
}

func newUserShowCommand(opts *RootOptions) *cobra.Command {
	var uid string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			u, err := eng.ShowUser(cmd.Context(), uid)
			if err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("uid=%s name=%s status=%s", u.UID, u.DisplayName, u.Status),
				map[string]string{"uid": u.UID, "name": u.DisplayName, "status": u.Status},
			)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}

func newUserUpdateCommand(opts *RootOptions) *cobra.Command {
	var uid, name string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a user's display name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			if err := eng.RenameUser(cmd.Context(), uid, name); err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("updated user uid=%s name=%s", uid, name),
				map[string]string{"uid": uid, "name": name},
			)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	cmd.Flags().StringVar(&name, "name", "", "new display name (required)")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUserMergeCommand(opts *RootOptions) *cobra.Command {
	var fromUID, toUID string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge one user into another across all owned data",
		Long: `Merge consolidates the source user into the target atomically:
identities and events move to the target (exact duplicate events are
dropped), scope memberships keep the target's role on overlap, and
state, counters, and top-k rankings resolve collisions by
last-write-wins. The source user is marked merged and retained.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			if err := eng.Merge(cmd.Context(), fromUID, toUID); err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("merged user %s into %s", fromUID, toUID),
				map[string]string{"from": fromUID, "to": toUID},
			)
		},
	}

	cmd.Flags().StringVar(&fromUID, "from", "", "source uid (required)")
	cmd.Flags().StringVar(&toUID, "to", "", "target uid (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newUserDeleteCommand(opts *RootOptions) *cobra.Command {
	var (
		uid    string
		mode   string
		force  bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Soft- or hard-delete a user",
		Long: `Soft delete flips the user's status to deleted and keeps all owned
rows. Hard delete physically removes the user and every owned row
across identities, memberships, events, state, counters, and top-k;
it refuses to run without --force. Use --dry-run to see the affected
row counts without mutating anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			report, err := eng.Delete(cmd.Context(), uid, engine.DeleteOptions{
				Mode:   mode,
				Force:  force,
				DryRun: dryRun,
			})
			if err != nil {
				return out.Fail(err)
			}

			if report.DryRun {
				line := fmt.Sprintf(
					"dry run uid=%s mode=%s identities=%d memberships=%d events=%d state=%d counters=%d topk=%d",
					report.UID, report.Mode,
					report.Counts.Identities, report.Counts.Memberships, report.Counts.Events,
					report.Counts.State, report.Counts.Metrics, report.Counts.TopK,
				)
				return out.OK(line, report)
			}
			return out.OK(fmt.Sprintf("deleted user uid=%s mode=%s", report.UID, report.Mode), report)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	cmd.Flags().StringVar(&mode, "mode", "soft", "delete mode (soft|hard)")
	cmd.Flags().BoolVar(&force, "force", false, "confirm irreversible hard delete")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report owned-row counts without mutating")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
