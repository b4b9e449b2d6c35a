package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/engramdb/engram/internal/engine"
)

// NewIngestCommand creates the ingest command group.
func NewIngestCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest events and keep derived views in sync",
	}
	cmd.AddCommand(newIngestEventCommand(opts))
	cmd.AddCommand(newIngestBatchCommand(opts))
	return cmd
}

// readPayload accepts inline JSON, or @path to read the document from
// a file.
func readPayload(arg string) (map[string]any, error) {
	raw := []byte(arg)
	if strings.HasPrefix(arg, "@") {
		var err error
		raw, err = os.ReadFile(arg[1:])
		if err != nil {
			return nil, err
		}
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return payload, nil
}

func newIngestEventCommand(opts *RootOptions) *cobra.Command {
	var (
		uid            string
		scopeID        string
		eventType      string
		payloadArg     string
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   "event",
		Short: "Ingest a single event",
		Long: `Ingest one event transactionally: the event row, its derived
counter (when the event type carries a derivation rule), and the
affected top-k ranking commit together or not at all. A repeated
idempotency key within the same (scope, user) commits as a no-op.

The payload is a JSON object, inline or @file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)

			payload, err := readPayload(payloadArg)
			if err != nil {
				return out.CommandError("failed to read payload", err)
			}

			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			outcome, err := eng.Ingest(cmd.Context(), engine.IngestInput{
				UID:            uid,
				ScopeID:        scopeID,
				EventType:      eventType,
				Payload:        payload,
				IdempotencyKey: idempotencyKey,
			})
			if err != nil {
				return out.Fail(err)
			}

			if outcome.Duplicate {
				return out.OK(
					fmt.Sprintf("duplicate event ignored idempotency_key=%s", outcome.IdempotencyKey),
					map[string]any{"duplicate": true, "idempotency_key": outcome.IdempotencyKey},
				)
			}
			return out.OK(
				fmt.Sprintf("ingested event_id=%s type=%s", outcome.EventID, outcome.EventType),
				map[string]any{"duplicate": false, "event_id": outcome.EventID, "event_type": outcome.EventType},
			)
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "owning user id (required)")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "scope id (required)")
	cmd.Flags().StringVar(&eventType, "type", "", "event type, e.g. meal.rated (required)")
	cmd.Flags().StringVar(&payloadArg, "payload", "{}", "JSON payload object, inline or @file")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "optional dedup key within (scope, user)")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("scope-id")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// batchFile is the YAML document shape accepted by ingest batch.
type batchFile struct {
	Events []batchEvent `yaml:"events"`
}

type batchEvent struct {
	UID            string         `yaml:"uid"`
	ScopeID        string         `yaml:"scope_id"`
	Type           string         `yaml:"type"`
	Payload        map[string]any `yaml:"payload"`
	IdempotencyKey string         `yaml:"idempotency_key"`
}

func newIngestBatchCommand(opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Ingest events from a YAML batch file",
		Long: `Ingest events from a YAML file, in order, each in its own
transaction. The batch stops at the first failing event; events
already ingested stay committed. Duplicates (repeated idempotency
keys) are counted, not treated as failures.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)

			raw, err := os.ReadFile(file)
			if err != nil {
				return out.CommandError("failed to read batch file", err)
			}
			var batch batchFile
			if err := yaml.Unmarshal(raw, &batch); err != nil {
				return out.CommandError("failed to parse batch file", err)
			}

			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			var ingested, duplicates int
			for i, ev := range batch.Events {
				outcome, err := eng.Ingest(cmd.Context(), engine.IngestInput{
					UID:            ev.UID,
					ScopeID:        ev.ScopeID,
					EventType:      ev.Type,
					Payload:        ev.Payload,
					IdempotencyKey: ev.IdempotencyKey,
				})
				if err != nil {
					return out.Fail(fmt.Errorf("event %d (%s): %w", i, ev.Type, err))
				}
				if outcome.Duplicate {
					duplicates++
				} else {
					ingested++
				}
			}

			return out.OK(
				fmt.Sprintf("batch complete ingested=%d duplicates=%d", ingested, duplicates),
				map[string]int{"ingested": ingested, "duplicates": duplicates},
			)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to YAML batch file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
