package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/engramdb/engram/internal/engine"
	"github.com/engramdb/engram/internal/store"
)

// DefaultDBPath is where the memory database lives unless --db is
// given.
const DefaultDBPath = "data/engram.db"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DB      string
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the engram CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "engram",
		Short: "engram - local-first agent memory store",
		Long: `engram is a single-writer embedded memory store: it ingests
time-stamped events, materializes schema-defined dynamic tables, keeps
derived counters and top-k rankings in sync with ingested data, and
consolidates or retires user identities across all owned data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			logLevel := slog.LevelWarn
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.DB, "db", DefaultDBPath, "path to SQLite database")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewDoctorCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewIdentityCommand(opts))
	cmd.AddCommand(NewScopeCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// formatter builds the output formatter for a command invocation.
func formatter(opts *RootOptions, cmd *cobra.Command) *Formatter {
	return &Formatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

// openEngine opens (creating if necessary) the database and wires the
// engine with production clock and id generation. The caller must
// Close the returned store.
func openEngine(opts *RootOptions) (*store.Store, *engine.Engine, error) {
	if dir := filepath.Dir(opts.DB); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create db directory %s: %w", dir, err)
		}
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return nil, nil, err
	}
	eng := engine.New(st, nil, nil, nil)
	return st, eng, nil
}
