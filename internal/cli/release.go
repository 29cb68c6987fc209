package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/release"
)

func newReleaseCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "bundle, promote, and track releases",
	}

	var projectID, versionID, snapshotID, name, description, createdBy, releaseVersion, environment string
	var tags []string

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "name a mutable pointer to a version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				s, err := a.releases.CreateSnapshot(ctx, release.CreateSnapshotInput{
					ProjectID:   projectID,
					VersionID:   versionID,
					Name:        name,
					Description: description,
					Tags:        tags,
					CreatedBy:   createdBy,
				})
				if err != nil {
					return WrapServiceError("create snapshot", err)
				}
				return formatter(opts).Success(s)
			})
		},
	}
	snapshotCmd.Flags().StringVar(&projectID, "project", "", "project id")
	snapshotCmd.Flags().StringVar(&versionID, "version", "", "version id")
	snapshotCmd.Flags().StringVar(&name, "name", "", "snapshot name")
	snapshotCmd.Flags().StringVar(&description, "description", "", "snapshot description")
	snapshotCmd.Flags().StringSliceVar(&tags, "tag", nil, "a label tag (repeatable)")
	snapshotCmd.Flags().StringVar(&createdBy, "by", "", "creator name")

	bundleCmd := &cobra.Command{
		Use:   "bundle",
		Short: "bundle a snapshot into a signed release artefact",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				r, err := a.releases.CreateRelease(ctx, release.CreateReleaseInput{
					ProjectID:   projectID,
					SnapshotID:  snapshotID,
					VersionID:   versionID,
					Name:        name,
					Version:     releaseVersion,
					Environment: environment,
					CreatedBy:   createdBy,
				})
				if err != nil {
					return WrapServiceError("bundle release", err)
				}
				return formatter(opts).Success(r)
			})
		},
	}
	bundleCmd.Flags().StringVar(&projectID, "project", "", "project id")
	bundleCmd.Flags().StringVar(&snapshotID, "snapshot", "", "snapshot id")
	bundleCmd.Flags().StringVar(&versionID, "version", "", "version id")
	bundleCmd.Flags().StringVar(&name, "name", "", "release name")
	bundleCmd.Flags().StringVar(&releaseVersion, "release-version", "", "release version string")
	bundleCmd.Flags().StringVar(&environment, "environment", "", "target environment")
	bundleCmd.Flags().StringVar(&createdBy, "by", "", "creator name")

	var releaseID, promotedBy string
	promoteCmd := &cobra.Command{
		Use:   "promote",
		Short: "promote a release to an environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				if err := a.releases.PromoteRelease(ctx, releaseID, environment, promotedBy); err != nil {
					return WrapServiceError("promote release", err)
				}
				return formatter(opts).Success("promoted")
			})
		},
	}
	promoteCmd.Flags().StringVar(&releaseID, "release", "", "release id")
	promoteCmd.Flags().StringVar(&environment, "environment", "", "target environment")
	promoteCmd.Flags().StringVar(&promotedBy, "by", "", "promoter name")

	var toStage, notes string
	promoteSnapshotCmd := &cobra.Command{
		Use:   "promote-snapshot",
		Short: "advance a snapshot's stage, minting a release as a side effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, func(ctx context.Context, a *app) error {
				promo, minted, err := a.releases.PromoteSnapshot(ctx, snapshotID, toStage, promotedBy, notes)
				if err != nil {
					return WrapServiceError("promote snapshot", err)
				}
				return formatter(opts).Success(struct {
					Promotion any
					Release   any
				}{Promotion: promo, Release: minted})
			})
		},
	}
	promoteSnapshotCmd.Flags().StringVar(&snapshotID, "snapshot", "", "snapshot id")
	promoteSnapshotCmd.Flags().StringVar(&toStage, "to-stage", "", "target stage")
	promoteSnapshotCmd.Flags().StringVar(&promotedBy, "by", "", "promoter name")
	promoteSnapshotCmd.Flags().StringVar(&notes, "notes", "", "promotion notes")

	cmd.AddCommand(snapshotCmd, bundleCmd, promoteCmd, promoteSnapshotCmd)
	return cmd
}
