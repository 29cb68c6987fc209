package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/project"
)

func newProjectCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "manage projects and their controller connection profile",
	}

	var name, vendor, address string
	var port, slot, rack int

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				p, err := a.projects.CreateProject(ctx, project.CreateProjectInput{
					Name: name,
					Connection: domain.ConnectionProfile{
						Vendor: vendor, Address: address, Port: port, Slot: slot, Rack: rack,
					},
				})
				if err != nil {
					return WrapServiceError("create project", err)
				}
				return formatter(opts).Success(p)
			})
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "project name")
	createCmd.Flags().StringVar(&vendor, "vendor", domain.VendorNeutral, "controller vendor")
	createCmd.Flags().StringVar(&address, "address", "", "controller address")
	createCmd.Flags().IntVar(&port, "port", 0, "controller port")
	createCmd.Flags().IntVar(&slot, "slot", 0, "controller slot")
	createCmd.Flags().IntVar(&rack, "rack", 0, "controller rack")

	getCmd := &cobra.Command{
		Use:   "get <project-id>",
		Short: "fetch a project by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				p, err := a.projects.GetProject(ctx, args[0])
				if err != nil {
					return WrapServiceError("get project", err)
				}
				return formatter(opts).Success(p)
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list every project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				ps, err := a.projects.ListProjects(ctx)
				if err != nil {
					return WrapServiceError("list projects", err)
				}
				return formatter(opts).Success(ps)
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "delete a project and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := a.projects.DeleteProject(ctx, args[0]); err != nil {
					return WrapServiceError("delete project", err)
				}
				return formatter(opts).Success("deleted")
			})
		},
	}

	cmd.AddCommand(createCmd, getCmd, listCmd, deleteCmd)
	return cmd
}
