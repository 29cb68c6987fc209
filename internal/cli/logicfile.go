package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/logicfile"
)

func newLogicFileCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logicfile",
		Short: "manage and validate ST source files",
	}

	var projectID, name, path, vendor, author string

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "create a logic file from a source path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := requireArg("--path", path); err != nil {
					return err
				}
				content, err := readFile(path)
				if err != nil {
					return WrapExitError(ExitCommandError, "read source file", err)
				}
				f, err := a.logicFiles.CreateLogicFile(ctx, logicfile.CreateLogicFileInput{
					ProjectID: projectID,
					Name:      name,
					Content:   string(content),
					Vendor:    vendor,
					Author:    author,
				})
				if err != nil {
					return WrapServiceError("create logic file", err)
				}
				return formatter(opts).Success(f)
			})
		},
	}
	createCmd.Flags().StringVar(&projectID, "project", "", "project id")
	createCmd.Flags().StringVar(&name, "name", "", "logic file name")
	createCmd.Flags().StringVar(&path, "path", "", "path to the ST source file")
	createCmd.Flags().StringVar(&vendor, "vendor", "", "vendor (neutral|siemens|rockwell|beckhoff)")
	createCmd.Flags().StringVar(&author, "author", "", "author")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list a project's logic files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				files, err := a.logicFiles.ListLogicFiles(ctx, projectID)
				if err != nil {
					return WrapServiceError("list logic files", err)
				}
				return formatter(opts).Success(files)
			})
		},
	}
	listCmd.Flags().StringVar(&projectID, "project", "", "project id")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "syntactically validate a source file without storing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireArg("--path", path); err != nil {
				return err
			}
			content, err := readFile(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "read source file", err)
			}
			result := logicfile.Service{}.Validate(string(content), vendor)
			return formatter(opts).Success(result)
		},
	}
	validateCmd.Flags().StringVar(&path, "path", "", "path to the ST source file")
	validateCmd.Flags().StringVar(&vendor, "vendor", "", "vendor (neutral|siemens|rockwell|beckhoff)")

	cmd.AddCommand(createCmd, listCmd, validateCmd)
	return cmd
}
