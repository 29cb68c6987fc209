package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/project"
)

func newBranchCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "manage per-project branch pointers",
	}

	var projectID, branchName, stage string
	var isDefault bool

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "create a branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				b, err := a.projects.CreateBranch(ctx, project.CreateBranchInput{
					ProjectID: projectID,
					Name:      branchName,
					Stage:     stage,
					IsDefault: isDefault,
				})
				if err != nil {
					return WrapServiceError("create branch", err)
				}
				return formatter(opts).Success(b)
			})
		},
	}
	createCmd.Flags().StringVar(&projectID, "project", "", "project id")
	createCmd.Flags().StringVar(&branchName, "name", "", "branch name")
	createCmd.Flags().StringVar(&stage, "stage", domain.StageDev, "branch stage (main|dev|qa|staging|prod)")
	createCmd.Flags().BoolVar(&isDefault, "default", false, "mark this the project's default branch")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list a project's branches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				bs, err := a.projects.ListBranches(ctx, projectID)
				if err != nil {
					return WrapServiceError("list branches", err)
				}
				return formatter(opts).Success(bs)
			})
		},
	}
	listCmd.Flags().StringVar(&projectID, "project", "", "project id")

	cmd.AddCommand(createCmd, listCmd)
	return cmd
}
