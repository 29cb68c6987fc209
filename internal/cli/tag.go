package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/tag"
)

func newTagCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "manage a project's tag catalogue",
	}

	var projectID, name, tagType, udtType, vendorAddr, source, scope, alarmExpr string

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "create a tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				t, err := a.tags.CreateTag(ctx, tag.CreateTagInput{
					ProjectID:  projectID,
					Name:       name,
					Type:       tagType,
					UDTType:    udtType,
					VendorAddr: vendorAddr,
					Source:     source,
					Scope:      scope,
					AlarmExpr:  alarmExpr,
				})
				if err != nil {
					return WrapServiceError("create tag", err)
				}
				return formatter(opts).Success(t)
			})
		},
	}
	createCmd.Flags().StringVar(&projectID, "project", "", "project id")
	createCmd.Flags().StringVar(&name, "name", "", "tag name")
	createCmd.Flags().StringVar(&tagType, "type", "", "tag type (BOOL|INT|DINT|REAL|LREAL|STRING|TIME|ARRAY|UDT)")
	createCmd.Flags().StringVar(&udtType, "udt-type", "", "referenced UDT name, when type is UDT")
	createCmd.Flags().StringVar(&vendorAddr, "vendor-addr", "", "vendor-specific address")
	createCmd.Flags().StringVar(&source, "source", "", "shadow|live")
	createCmd.Flags().StringVar(&scope, "scope", "", "global|program|task")
	createCmd.Flags().StringVar(&alarmExpr, "alarm-expr", "", "CEL alarm expression")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list a project's tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				tags, err := a.tags.ListTags(ctx, projectID)
				if err != nil {
					return WrapServiceError("list tags", err)
				}
				return formatter(opts).Success(tags)
			})
		},
	}
	listCmd.Flags().StringVar(&projectID, "project", "", "project id")

	deleteCmd := &cobra.Command{
		Use:   "delete <tag-id>",
		Short: "delete a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := a.tags.DeleteTag(ctx, args[0]); err != nil {
					return WrapServiceError("delete tag", err)
				}
				return formatter(opts).Success("deleted")
			})
		},
	}

	var patchPath string
	previewCmd := &cobra.Command{
		Use:   "preview-bulk-op",
		Short: "dry-run a JSON Patch bulk edit against a project's tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				doc, err := readFile(patchPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "read patch document", err)
				}
				previews, err := a.tags.PreviewBulkOp(ctx, projectID, doc)
				if err != nil {
					return WrapServiceError("preview bulk op", err)
				}
				return formatter(opts).Success(previews)
			})
		},
	}
	previewCmd.Flags().StringVar(&projectID, "project", "", "project id")
	previewCmd.Flags().StringVar(&patchPath, "patch", "", "path to a JSON Patch document")

	cmd.AddCommand(createCmd, listCmd, deleteCmd, previewCmd)
	return cmd
}
