package cli

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply or inspect schema migrations",
	}

	var target int64

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, closeFn, err := migrateRunner(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := runner.Ensure(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "apply migrations", err)
			}
			return formatter(opts).Success("migrations applied")
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "print applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, closeFn, err := migrateRunner(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := runner.Status(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "fetch migration status", err)
			}
			return nil
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "roll back the most recent migration, or to --target",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, closeFn, err := migrateRunner(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := runner.Down(cmd.Context(), target); err != nil {
				return WrapExitError(ExitFailure, "roll back migration", err)
			}
			return formatter(opts).Success("rollback complete")
		},
	}
	downCmd.Flags().Int64Var(&target, "target", 0, "target schema version (0 = previous version)")

	cmd.AddCommand(upCmd, statusCmd, downCmd)
	return cmd
}
