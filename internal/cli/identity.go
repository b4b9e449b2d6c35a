package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewIdentityCommand creates the identity command group.
func NewIdentityCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage channel identities",
	}
	cmd.AddCommand(newIdentityLinkCommand(opts))
	cmd.AddCommand(newIdentityResolveCommand(opts))
	cmd.AddCommand(newIdentityUnlinkCommand(opts))
	return cmd
}

func newIdentityLinkCommand(opts *RootOptions) *cobra.Command {
	var uid, channel, channelUserID string

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link a channel identity to a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			identityID, err := eng.LinkIdentity(cmd.Context(), uid, channel, channelUserID)
			if err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("linked %s:%s to uid=%s", channel, channelUserID, uid),
				map[string]string{"identity_id": identityID, "uid": uid, "channel": channel, "channel_user_id": channelUserID},
			)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	cmd.Flags().StringVar(&channel, "channel", "", "channel name, e.g. telegram (required)")
	cmd.Flags().StringVar(&channelUserID, "channel-user-id", "", "user id within the channel (required)")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("channel-user-id")
	return cmd
}

func newIdentityResolveCommand(opts *RootOptions) *cobra.Command {
	var channel, channelUserID string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a channel identity to its canonical uid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			uid, err := eng.ResolveIdentity(cmd.Context(), channel, channelUserID)
			if err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("uid=%s", uid),
				map[string]string{"uid": uid},
			)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "channel name (required)")
	cmd.Flags().StringVar(&channelUserID, "channel-user-id", "", "user id within the channel (required)")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("channel-user-id")
	return cmd
}

func newIdentityUnlinkCommand(opts *RootOptions) *cobra.Command {
	var channel, channelUserID string

	cmd := &cobra.Command{
		Use:   "unlink",
		Short: "Remove a channel identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			if err := eng.UnlinkIdentity(cmd.Context(), channel, channelUserID); err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("unlinked %s:%s", channel, channelUserID),
				map[string]string{"channel": channel, "channel_user_id": channelUserID},
			)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "channel name (required)")
	cmd.Flags().StringVar(&channelUserID, "channel-user-id", "", "user id within the channel (required)")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("channel-user-id")
	return cmd
}
