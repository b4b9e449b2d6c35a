package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/engramdb/engram/internal/store"
)

// NewDoctorCommand creates the doctor command, a quick setup check.
func NewDoctorCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate project setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(opts, cmd)

			_, statErr := os.Stat(opts.DB)
			dbExists := statErr == nil

			schemaInitialized := false
			if dbExists {
				if st, err := store.Open(opts.DB); err == nil {
					ok, err := store.TableExists(cmd.Context(), st.DB(), "users")
					schemaInitialized = err == nil && ok
					st.Close()
				}
			}

			data := map[string]any{
				"ok":                 true,
				"db_path":            opts.DB,
				"db_exists":          dbExists,
				"schema_initialized": schemaInitialized,
			}
			line := fmt.Sprintf("engram is ready\ndb_path=%s\ndb_exists=%t\nschema_initialized=%t",
				opts.DB, dbExists, schemaInitialized)
			return out.OK(line, data)
		},
	}
}
