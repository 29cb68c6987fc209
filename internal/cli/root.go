// Package cli implements pandauractl, the operator command-line tool for
// the project/version/release/deploy/tag catalogue.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/pkg/config"
)

// RootOptions holds flags shared by every subcommand.
type RootOptions struct {
	DatabaseURL   string
	MigrationsDir string
	Format        string
}

var validFormats = []string{"text", "json"}

// NewRootCommand builds the pandauractl command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	defaults := config.Load()

	cmd := &cobra.Command{
		Use:   "pandauractl",
		Short: "pandauractl manages project catalogues, releases, and deployments",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", defaults.DatabaseURL, "postgres connection string")
	cmd.PersistentFlags().StringVar(&opts.MigrationsDir, "migrations-dir", defaults.MigrationsDir, "goose migration directory")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newProjectCommand(opts))
	cmd.AddCommand(newBranchCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))
	cmd.AddCommand(newTagCommand(opts))
	cmd.AddCommand(newLogicFileCommand(opts))
	cmd.AddCommand(newReleaseCommand(opts))
	cmd.AddCommand(newDeployCommand(opts))
	cmd.AddCommand(newEngineCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

func formatter(opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: os.Stdout}
}
