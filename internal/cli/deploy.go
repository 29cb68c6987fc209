package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/deploy"
)

func newDeployCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "run and monitor the gated deployment pipeline",
	}

	var projectID, releaseID, deployName, environment, strategy, initiatedBy string
	var targetRuntimes []string

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "open a deployment attempt and run its safety-check suite",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				d, err := a.deploys.CreateDeployment(ctx, deploy.CreateDeploymentInput{
					ProjectID:      projectID,
					ReleaseID:      releaseID,
					DeployName:     deployName,
					Environment:    environment,
					Strategy:       strategy,
					InitiatedBy:    initiatedBy,
					TargetRuntimes: targetRuntimes,
				})
				if err != nil {
					return WrapServiceError("create deployment", err)
				}
				return formatter(opts).Success(d)
			})
		},
	}
	createCmd.Flags().StringVar(&projectID, "project", "", "project id")
	createCmd.Flags().StringVar(&releaseID, "release", "", "release id")
	createCmd.Flags().StringVar(&deployName, "name", "", "deployment name")
	createCmd.Flags().StringVar(&environment, "environment", "", "target environment")
	createCmd.Flags().StringVar(&strategy, "strategy", "", "atomic|canary|staged")
	createCmd.Flags().StringVar(&initiatedBy, "by", "", "initiator name")
	createCmd.Flags().StringSliceVar(&targetRuntimes, "runtime", nil, "a target runtime identifier (repeatable)")

	var deployID string

	startCmd := &cobra.Command{
		Use:   "start <deploy-id>",
		Short: "start a deployment's rollout script once approvals and checks pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := a.deploys.StartDeployment(ctx, args[0]); err != nil {
					return WrapServiceError("start deployment", err)
				}
				return formatter(opts).Success("started")
			})
		},
	}

	var approvalID, approverName, approvalStatus, comment string
	approveCmd := &cobra.Command{
		Use:   "approve",
		Short: "submit an approval-gate decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := a.deploys.SubmitApproval(ctx, deployID, approvalID, approverName, approvalStatus, comment); err != nil {
					return WrapServiceError("submit approval", err)
				}
				return formatter(opts).Success("recorded")
			})
		},
	}
	approveCmd.Flags().StringVar(&deployID, "deploy", "", "deploy id")
	approveCmd.Flags().StringVar(&approvalID, "approval", "", "approval id")
	approveCmd.Flags().StringVar(&approverName, "name", "", "approver name")
	approveCmd.Flags().StringVar(&approvalStatus, "status", "", "approved|rejected")
	approveCmd.Flags().StringVar(&comment, "comment", "", "approval comment")

	var reason, triggeredBy string
	rollbackCmd := &cobra.Command{
		Use:   "rollback <deploy-id>",
		Short: "roll back a deployment to its previous version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := a.deploys.ExecuteRollback(ctx, args[0], triggeredBy, reason, false); err != nil {
					return WrapServiceError("roll back deployment", err)
				}
				return formatter(opts).Success("rolled back")
			})
		},
	}
	rollbackCmd.Flags().StringVar(&triggeredBy, "by", "", "operator name")
	rollbackCmd.Flags().StringVar(&reason, "reason", "", "rollback reason")

	pauseCmd := &cobra.Command{
		Use:   "pause <deploy-id>",
		Short: "pause a running deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := a.deploys.PauseDeployment(ctx, args[0]); err != nil {
					return WrapServiceError("pause deployment", err)
				}
				return formatter(opts).Success("paused")
			})
		},
	}

	resumeCmd := &cobra.Command{
		Use:   "resume <deploy-id>",
		Short: "resume a paused deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := a.deploys.ResumeDeployment(ctx, args[0]); err != nil {
					return WrapServiceError("resume deployment", err)
				}
				return formatter(opts).Success("resumed")
			})
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel <deploy-id>",
		Short: "cancel a deployment before completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := a.deploys.CancelDeployment(ctx, args[0], reason); err != nil {
					return WrapServiceError("cancel deployment", err)
				}
				return formatter(opts).Success("cancelled")
			})
		},
	}
	cancelCmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")

	checksCmd := &cobra.Command{
		Use:   "checks <deploy-id>",
		Short: "rerun the safety-check suite against an existing deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				record, err := a.deploys.RerunChecks(ctx, args[0])
				if err != nil {
					return WrapServiceError("rerun deployment checks", err)
				}
				return formatter(opts).Success(record)
			})
		},
	}

	cmd.AddCommand(createCmd, startCmd, approveCmd, rollbackCmd, pauseCmd, resumeCmd, cancelCmd, checksCmd)
	return cmd
}
