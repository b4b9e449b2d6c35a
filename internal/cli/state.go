package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStateCommand creates the state command group.
func NewStateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Read and write per-user keyed state documents",
	}
	cmd.AddCommand(newStateGetCommand(opts))
	cmd.AddCommand(newStateSetCommand(opts))
	cmd.AddCommand(newStateDeleteCommand(opts))
	return cmd
}

func newStateGetCommand(opts *RootOptions) *cobra.Command {
	var uid, scopeID, key string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Read one state document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			r, err := eng.GetState(cmd.Context(), uid, scopeID, key)
			if err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("key=%s value=%s updated_at=%s", r.Key, r.ValueJSON, r.UpdatedAt),
				map[string]string{"key": r.Key, "value": r.ValueJSON, "updated_at": r.UpdatedAt},
			)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "scope id (required)")
	cmd.Flags().StringVar(&key, "key", "", "state key (required)")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("scope-id")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newStateSetCommand(opts *RootOptions) *cobra.Command {
	var uid, scopeID, key, value string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Write one state document (upsert)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			if err := eng.SetState(cmd.Context(), uid, scopeID, key, value); err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("set key=%s", key),
				map[string]string{"key": key, "value": value},
			)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "scope id (required)")
	cmd.Flags().StringVar(&key, "key", "", "state key (required)")
	cmd.Flags().StringVar(&value, "value", "", "JSON value document (required)")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("scope-id")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newStateDeleteCommand(opts *RootOptions) *cobra.Command {
	var uid, scopeID, key string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete one state document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			if err := eng.DeleteState(cmd.Context(), uid, scopeID, key); err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("deleted key=%s", key),
				map[string]string{"key": key},
			)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "scope id (required)")
	cmd.Flags().StringVar(&key, "key", "", "state key (required)")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("scope-id")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
