// Package release implements spec.md §4.8: snapshots and signed release
// bundles.
package release

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/filestore"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/repository"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/pkg/crypto"
)

var (
	errProjectIDRequired   = fmt.Errorf("%w: project id required", apperr.ErrValidation)
	errVersionIDRequired   = fmt.Errorf("%w: version id required", apperr.ErrValidation)
	errSnapshotIDRequired  = fmt.Errorf("%w: snapshot id required", apperr.ErrValidation)
	errNameRequired        = fmt.Errorf("%w: name required", apperr.ErrValidation)
	errEnvironmentRequired = fmt.Errorf("%w: target environment required", apperr.ErrValidation)
	errDuplicateName       = fmt.Errorf("%w: snapshot name already exists in project", apperr.ErrConflict)
)

// fileLoader resolves a version's materialised file set by ID, abstracting
// over the version service's blob-reconstruction logic so this package
// doesn't need a direct dependency on it.
type fileLoader interface {
	LoadVersionFiles(ctx context.Context, versionID string) (map[string][]byte, error)
}

// Service coordinates snapshot creation/promotion and release bundling.
type Service struct {
	snapshots repository.SnapshotRepository
	releases  repository.ReleaseRepository
	versions  repository.VersionRepository
	blobs     repository.BlobRepository
	loader    fileLoader
	logger    *slog.Logger
}

// New constructs a release service.
func New(snapshots repository.SnapshotRepository, releases repository.ReleaseRepository, versions repository.VersionRepository, blobs repository.BlobRepository, loader fileLoader, logger *slog.Logger) Service {
	return Service{snapshots: snapshots, releases: releases, versions: versions, blobs: blobs, loader: loader, logger: logger}
}

// CreateSnapshotInput captures a named, mutable-metadata pointer to a
// version.
type CreateSnapshotInput struct {
	ProjectID   string
	VersionID   string
	Name        string
	Description string
	Tags        []string
	CreatedBy   string
}

// CreateSnapshot enforces name uniqueness within the project and records a
// reference-only pointer to the version, per spec.md §4.8.
func (s Service) CreateSnapshot(ctx context.Context, input CreateSnapshotInput) (*domain.Snapshot, error) {
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	input.VersionID = strings.TrimSpace(input.VersionID)
	input.Name = strings.TrimSpace(input.Name)
	if input.ProjectID == "" {
		return nil, errProjectIDRequired
	}
	if input.VersionID == "" {
		return nil, errVersionIDRequired
	}
	if input.Name == "" {
		return nil, errNameRequired
	}

	existing, err := s.snapshots.ListSnapshotsByProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	for _, sn := range existing {
		if sn.Name == input.Name {
			return nil, errDuplicateName
		}
	}

	snap := &domain.Snapshot{
		ID:          uuid.NewString(),
		ProjectID:   input.ProjectID,
		VersionID:   input.VersionID,
		Name:        input.Name,
		Description: input.Description,
		Tags:        input.Tags,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.snapshots.CreateSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// CreateReleaseInput captures the attributes of a new bundled release.
type CreateReleaseInput struct {
	ProjectID   string
	SnapshotID  string
	VersionID   string
	Name        string
	Version     string
	Environment string
	CreatedBy   string
}

// CreateRelease builds a release bundle via the file store, signs it, and
// transitions the underlying version to released, per spec.md §4.8.
func (s Service) CreateRelease(ctx context.Context, input CreateReleaseInput) (*domain.Release, error) {
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	input.VersionID = strings.TrimSpace(input.VersionID)
	if input.ProjectID == "" {
		return nil, errProjectIDRequired
	}
	if input.VersionID == "" {
		return nil, errVersionIDRequired
	}

	files, err := s.loader.LoadVersionFiles(ctx, input.VersionID)
	if err != nil {
		return nil, err
	}

	releaseID := uuid.NewString()
	now := time.Now().UTC()
	blob, checksum, err := filestore.PackBundle(input.ProjectID, input.VersionID, releaseID, now, files)
	if err != nil {
		return nil, err
	}
	if err := s.blobs.PutBlob(ctx, checksum, blob); err != nil {
		return nil, err
	}

	signedBy := input.CreatedBy
	signature := crypto.ChecksumConcat(releaseID, checksum, signedBy, now.Format(time.RFC3339Nano))

	rel := &domain.Release{
		ID:             releaseID,
		ProjectID:      input.ProjectID,
		SnapshotID:     input.SnapshotID,
		VersionID:      input.VersionID,
		Name:           input.Name,
		Version:        input.Version,
		Environment:    input.Environment,
		BundlePath:     checksum,
		BundleSize:     int64(len(blob)),
		BundleChecksum: checksum,
		Signed:         true,
		Signature:      signature,
		SignedBy:       signedBy,
		Status:         domain.ReleaseActive,
		CreatedAt:      now,
	}
	if err := s.releases.CreateRelease(ctx, rel); err != nil {
		return nil, err
	}
	if err := s.versions.UpdateVersionStatus(ctx, input.VersionID, domain.VersionReleased); err != nil {
		return nil, err
	}
	return rel, nil
}

// PromoteRelease appends a promotion entry and bumps linked-deploy
// bookkeeping, per spec.md §4.8. It does not itself create a deployment.
func (s Service) PromoteRelease(ctx context.Context, releaseID, targetEnvironment, promotedBy string) error {
	releaseID = strings.TrimSpace(releaseID)
	targetEnvironment = strings.TrimSpace(targetEnvironment)
	if releaseID == "" {
		return fmt.Errorf("%w: release id required", apperr.ErrValidation)
	}
	if targetEnvironment == "" {
		return errEnvironmentRequired
	}
	if _, err := s.releases.GetReleaseByID(ctx, releaseID); err != nil {
		return err
	}
	now := time.Now().UTC()
	promotion := domain.ReleasePromotion{Environment: targetEnvironment, PromotedBy: promotedBy, PromotedAt: now}
	if err := s.releases.RecordReleasePromotion(ctx, releaseID, promotion); err != nil {
		return err
	}
	return s.releases.IncrementLinkedDeploys(ctx, releaseID, promotion)
}

// PromoteSnapshot records a stage transition for a snapshot, deriving
// fromStage from its last promotion (default dev), and mints a Release
// when the target stage is staging or production, per spec.md §4.8.
func (s Service) PromoteSnapshot(ctx context.Context, snapshotID, toStage, promotedBy, notes string) (*domain.SnapshotPromotion, *domain.Release, error) {
	snapshotID = strings.TrimSpace(snapshotID)
	if snapshotID == "" {
		return nil, nil, errSnapshotIDRequired
	}

	snap, err := s.snapshots.GetSnapshotByID(ctx, snapshotID)
	if err != nil {
		return nil, nil, err
	}

	history, err := s.snapshots.ListSnapshotPromotions(ctx, snapshotID)
	if err != nil {
		return nil, nil, err
	}
	fromStage := domain.StageDev
	if len(history) > 0 {
		fromStage = history[len(history)-1].ToStage
	}

	promotion := &domain.SnapshotPromotion{
		ID:           uuid.NewString(),
		SnapshotID:   snapshotID,
		FromStage:    fromStage,
		ToStage:      toStage,
		PromotedBy:   promotedBy,
		PromotedAt:   time.Now().UTC(),
		Notes:        notes,
		ChecksPassed: true,
	}
	if err := s.snapshots.RecordSnapshotPromotion(ctx, promotion); err != nil {
		return nil, nil, err
	}

	if toStage != domain.StageStaging && toStage != domain.StageProd {
		return promotion, nil, nil
	}

	rel, err := s.CreateRelease(ctx, CreateReleaseInput{
		ProjectID:   snap.ProjectID,
		SnapshotID:  snapshotID,
		VersionID:   snap.VersionID,
		Name:        fmt.Sprintf("%s-%s", snap.Name, toStage),
		Environment: toStage,
		CreatedBy:   promotedBy,
	})
	if err != nil {
		return nil, nil, err
	}
	return promotion, rel, nil
}
