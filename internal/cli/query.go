package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewQueryCommand creates the query command group.
func NewQueryCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read events, counters, and rankings",
	}
	cmd.AddCommand(newQueryLatestCommand(opts))
	cmd.AddCommand(newQueryMetricCommand(opts))
	cmd.AddCommand(newQueryTopKCommand(opts))
	return cmd
}

func newQueryLatestCommand(opts *RootOptions) *cobra.Command {
	var uid, scopeID string

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recently ingested event for a user in a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			ev, err := eng.Latest(cmd.Context(), uid, scopeID)
			if err != nil {
				return out.Fail(err)
			}
			if ev == nil {
				return out.OK("no events", nil)
			}
			return out.OK(
				fmt.Sprintf("event_id=%s type=%s ts=%s payload=%s", ev.EventID, ev.EventType, ev.EventTS, ev.PayloadJSON),
				map[string]string{
					"event_id":   ev.EventID,
					"event_type": ev.EventType,
					"event_ts":   ev.EventTS,
					"payload":    ev.PayloadJSON,
				},
			)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "scope id (required)")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("scope-id")
	return cmd
}

func newQueryMetricCommand(opts *RootOptions) *cobra.Command {
	var uid, scopeID, key, prefix string

	cmd := &cobra.Command{
		Use:   "metric",
		Short: "Read counters by exact key or key prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			metrics, err := eng.Metric(cmd.Context(), uid, scopeID, key, prefix)
			if err != nil {
				return out.Fail(err)
			}

			lines := make([]string, 0, len(metrics))
			data := make([]map[string]any, 0, len(metrics))
			for _, m := range metrics {
				lines = append(lines, fmt.Sprintf("key=%s value=%g", m.Key, m.Value))
				data = append(data, map[string]any{"key": m.Key, "value": m.Value, "updated_at": m.UpdatedAt})
			}
			return out.OK(strings.Join(lines, "\n"), data)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "scope id (required)")
	cmd.Flags().StringVar(&key, "key", "", "exact metric key")
	cmd.Flags().StringVar(&prefix, "prefix", "", "metric key prefix")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("scope-id")
	return cmd
}

func newQueryTopKCommand(opts *RootOptions) *cobra.Command {
	var (
		uid     string
		scopeID string
		topic   string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "topk",
		Short: "Read the materialized top-k ranking for a topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			rows, err := eng.TopK(cmd.Context(), uid, scopeID, topic, limit)
			if err != nil {
				return out.Fail(err)
			}

			lines := make([]string, 0, len(rows))
			data := make([]map[string]any, 0, len(rows))
			for _, r := range rows {
				lines = append(lines, fmt.Sprintf("rank=%d item=%s weight=%g", r.Rank, r.ItemKey, r.Weight))
				data = append(data, map[string]any{"rank": r.Rank, "item": r.ItemKey, "weight": r.Weight})
			}
			return out.OK(strings.Join(lines, "\n"), data)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "user id (required)")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "scope id (required)")
	cmd.Flags().StringVar(&topic, "topic", "", "ranking topic, e.g. food_pref (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum rows to return (capped at 10)")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("scope-id")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
