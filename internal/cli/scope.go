package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewScopeCommand creates the scope command group.
func NewScopeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scope",
		Short: "Manage memory scopes and their members",
	}
	cmd.AddCommand(newScopeCreateCommand(opts))
	cmd.AddCommand(newScopeListCommand(opts))
	cmd.AddCommand(newScopeAddMemberCommand(opts))
	cmd.AddCommand(newScopeMembersCommand(opts))
	return cmd
}

func newScopeCreateCommand(opts *RootOptions) *cobra.Command {
	var scopeID, scopeType string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			if err := eng.CreateScope(cmd.Context(), scopeID, scopeType); err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("created scope scope_id=%s type=%s", scopeID, scopeType),
				map[string]string{"scope_id": scopeID, "scope_type": scopeType},
			)
		},
	}

	cmd.Flags().StringVar(&scopeID, "scope-id", "", "scope id (required)")
	cmd.Flags().StringVar(&scopeType, "type", "personal", "scope type (personal|shared)")
	_ = cmd.MarkFlagRequired("scope-id")
	return cmd
}

func newScopeListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scopes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			scopes, err := eng.ListScopes(cmd.Context())
			if err != nil {
				return out.Fail(err)
			}

			lines := make([]string, 0, len(scopes))
			data := make([]map[string]string, 0, len(scopes))
			for _, s := range scopes {
				lines = append(lines, fmt.Sprintf("scope_id=%s type=%s", s.ScopeID, s.ScopeType))
				data = append(data, map[string]string{"scope_id": s.ScopeID, "scope_type": s.ScopeType})
			}
			return out.OK(strings.Join(lines, "\n"), data)
		},
	}
}

func newScopeAddMemberCommand(opts *RootOptions) *cobra.Command {
	var scopeID, uid, role string

	cmd := &cobra.Command{
		Use:   "add-member",
		Short: "Add a user to a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			if err := eng.AddScopeMember(cmd.Context(), scopeID, uid, role); err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("added uid=%s to scope_id=%s role=%s", uid, scopeID, role),
				map[string]string{"scope_id": scopeID, "uid": uid, "role": role},
			)
		},
	}

	cmd.Flags().StringVar(&scopeID, "scope-id", "", "scope id (required)")
	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	cmd.Flags().StringVar(&role, "role", "member", "membership role")
	_ = cmd.MarkFlagRequired("scope-id")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}

func newScopeMembersCommand(opts *RootOptions) *cobra.Command {
	var scopeID string

	cmd := &cobra.Command{
		Use:   "members",
		Short: "List the members of a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			members, err := eng.ScopeMembers(cmd.Context(), scopeID)
			if err != nil {
				return out.Fail(err)
			}

			lines := make([]string, 0, len(members))
			data := make([]map[string]string, 0, len(members))
			for _, m := range members {
				lines = append(lines, fmt.Sprintf("uid=%s role=%s", m.UID, m.Role))
				data = append(data, map[string]string{"uid": m.UID, "role": m.Role})
			}
			return out.OK(strings.Join(lines, "\n"), data)
		},
	}

	cmd.Flags().StringVar(&scopeID, "scope-id", "", "scope id (required)")
	_ = cmd.MarkFlagRequired("scope-id")
	return cmd
}
