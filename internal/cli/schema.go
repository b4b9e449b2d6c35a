package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/engramdb/engram/internal/schema"
)

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Register and inspect event schemas",
	}
	cmd.AddCommand(newSchemaRegisterCommand(opts))
	cmd.AddCommand(newSchemaValidateCommand(opts))
	cmd.AddCommand(newSchemaListCommand(opts))
	return cmd
}

func newSchemaRegisterCommand(opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a schema and materialize its table",
		Long: `Register parses a JSON schema definition, records it in the
registry, and creates the dynamic table (plus its indexes) for it.
Re-registering the same definition is a no-op on the table; the
registry entry is overwritten and re-activated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)

			raw, err := os.ReadFile(file)
			if err != nil {
				return out.CommandError("failed to read schema file", err)
			}

			def, err := schema.Parse(raw)
			if err != nil {
				return out.Fail(err)
			}

			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			table, err := eng.RegisterSchema(cmd.Context(), def, raw)
			if err != nil {
				return out.Fail(err)
			}
			return out.OK(
				fmt.Sprintf("registered schema %s v%s table=%s", def.SchemaID, def.Version, table),
				map[string]string{"schema_id": def.SchemaID, "version": def.Version, "table": table},
			)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to JSON schema definition (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSchemaValidateCommand(opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a schema definition without registering it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)

			raw, err := os.ReadFile(file)
			if err != nil {
				return out.CommandError("failed to read schema file", err)
			}

			def, err := schema.Parse(raw)
			if err != nil {
				return out.Fail(err)
			}

			table := schema.TableName(def)
			return out.OK(
				fmt.Sprintf("valid schema %s v%s table=%s", def.SchemaID, def.Version, table),
				map[string]string{"schema_id": def.SchemaID, "version": def.Version, "table": table},
			)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to JSON schema definition (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSchemaListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)
			st, eng, err := openEngine(opts)
			if err != nil {
				return out.CommandError("failed to open database", err)
			}
			defer st.Close()

			entries, err := eng.ListSchemas(cmd.Context())
			if err != nil {
				return out.Fail(err)
			}

			lines := make([]string, 0, len(entries))
			data := make([]map[string]any, 0, len(entries))
			for _, e := range entries {
				lines = append(lines, fmt.Sprintf("schema_id=%s version=%s active=%t", e.SchemaID, e.Version, e.IsActive))
				data = append(data, map[string]any{
					"schema_id": e.SchemaID,
					"version":   e.Version,
					"active":    e.IsActive,
				})
			}
			return out.OK(strings.Join(lines, "\n"), data)
		},
	}
}
