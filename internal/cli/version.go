package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/version"
)

func newVersionCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "capture and manage immutable version nodes",
	}

	var projectID, branchID, author, label, message string
	var files []string
	var approvalsRequired int

	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "capture a version from one or more files on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				inputs, err := loadFileInputs(files)
				if err != nil {
					return WrapExitError(ExitCommandError, "read files", err)
				}
				v, err := a.versions.CreateVersion(ctx, version.CreateVersionInput{
					ProjectID:         projectID,
					BranchID:          branchID,
					Author:            author,
					Label:             label,
					Message:           message,
					Files:             inputs,
					ApprovalsRequired: approvalsRequired,
				})
				if err != nil {
					return WrapServiceError("capture version", err)
				}
				return formatter(opts).Success(v)
			})
		},
	}
	captureCmd.Flags().StringVar(&projectID, "project", "", "project id")
	captureCmd.Flags().StringVar(&branchID, "branch", "", "branch id")
	captureCmd.Flags().StringVar(&author, "author", "", "author name")
	captureCmd.Flags().StringVar(&label, "label", "", "version label")
	captureCmd.Flags().StringVar(&message, "message", "", "commit message")
	captureCmd.Flags().StringSliceVar(&files, "file", nil, "path to a logic/tag/config file to capture (repeatable)")
	captureCmd.Flags().IntVar(&approvalsRequired, "approvals-required", 0, "approvals required before release (0 = service default)")

	var versionID, actor, newStatus, signer, approver string

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "transition a version's lifecycle status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := a.versions.UpdateStatus(ctx, versionID, newStatus, actor); err != nil {
					return WrapServiceError("update version status", err)
				}
				return formatter(opts).Success("status updated")
			})
		},
	}
	statusCmd.Flags().StringVar(&versionID, "version", "", "version id")
	statusCmd.Flags().StringVar(&newStatus, "to", "", "target status (draft|staged|released|deprecated)")
	statusCmd.Flags().StringVar(&actor, "actor", "", "actor recorded in the changelog")

	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "record a detached signature over a version's checksum",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := a.versions.Sign(ctx, versionID, signer); err != nil {
					return WrapServiceError("sign version", err)
				}
				return formatter(opts).Success("signed")
			})
		},
	}
	signCmd.Flags().StringVar(&versionID, "version", "", "version id")
	signCmd.Flags().StringVar(&signer, "by", "", "signer name")

	approveCmd := &cobra.Command{
		Use:   "approve",
		Short: "record an approver's sign-off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := a.versions.Approve(ctx, versionID, approver); err != nil {
					return WrapServiceError("approve version", err)
				}
				return formatter(opts).Success("approved")
			})
		},
	}
	approveCmd.Flags().StringVar(&versionID, "version", "", "version id")
	approveCmd.Flags().StringVar(&approver, "by", "", "approver name")

	var left, right string
	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "diff two versions' file sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				result, err := a.versions.Compare(ctx, left, right)
				if err != nil {
					return WrapServiceError("compare versions", err)
				}
				return formatter(opts).Success(result)
			})
		},
	}
	compareCmd.Flags().StringVar(&left, "left", "", "left version id")
	compareCmd.Flags().StringVar(&right, "right", "", "right version id")

	cmd.AddCommand(captureCmd, statusCmd, signCmd, approveCmd, compareCmd)
	return cmd
}

func loadFileInputs(paths []string) ([]version.FileInput, error) {
	inputs := make([]version.FileInput, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, version.FileInput{
			Path:     p,
			Content:  string(content),
			FileType: fileTypeFor(p),
		})
	}
	return inputs, nil
}

func fileTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".st", ".scl", ".l5x":
		return domain.FileTypeLogic
	case ".json":
		return domain.FileTypeTag
	default:
		return domain.FileTypeConfig
	}
}
