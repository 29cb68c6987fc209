// Package repository declares the narrow per-aggregate persistence
// interfaces used by the service layer. Each interface names one bounded
// aggregate from internal/domain; postgres implements all of them against
// PostgreSQL.
package repository

import (
	"context"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

// ProjectRepository persists projects and their connection profile.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProjectByID(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	UpdateProject(ctx context.Context, project *domain.Project) error
	DeleteProject(ctx context.Context, id string) error
}

// BlobRepository persists content-addressed file blobs keyed by SHA-256
// checksum, deduplicating identical content across versions.
type BlobRepository interface {
	PutBlob(ctx context.Context, sha256 string, content []byte) error
	GetBlob(ctx context.Context, sha256 string) ([]byte, error)
	BlobExists(ctx context.Context, sha256 string) (bool, error)
}

// LogicFileRepository persists mutable Structured Text sources.
type LogicFileRepository interface {
	CreateLogicFile(ctx context.Context, file *domain.LogicFile) error
	GetLogicFileByID(ctx context.Context, id string) (*domain.LogicFile, error)
	ListLogicFilesByProject(ctx context.Context, projectID string) ([]domain.LogicFile, error)
	UpdateLogicFile(ctx context.Context, file *domain.LogicFile) error
	DeleteLogicFile(ctx context.Context, id string) error
}

// TagRepository persists the addressable variable catalogue.
type TagRepository interface {
	CreateTag(ctx context.Context, tag *domain.Tag) error
	GetTagByID(ctx context.Context, id string) (*domain.Tag, error)
	GetTagByName(ctx context.Context, projectID, name string) (*domain.Tag, error)
	ListTagsByProject(ctx context.Context, projectID string) ([]domain.Tag, error)
	UpdateTag(ctx context.Context, tag *domain.Tag) error
	DeleteTag(ctx context.Context, id string) error
}

// UDTRepository persists composite type definitions.
type UDTRepository interface {
	CreateUDT(ctx context.Context, udt *domain.UDT) error
	GetUDTByID(ctx context.Context, id string) (*domain.UDT, error)
	ListUDTsByProject(ctx context.Context, projectID string) ([]domain.UDT, error)
	UpdateUDT(ctx context.Context, udt *domain.UDT) error
	DeleteUDT(ctx context.Context, id string) error
}

// BranchRepository persists branch pointers.
type BranchRepository interface {
	CreateBranch(ctx context.Context, branch *domain.Branch) error
	GetBranchByID(ctx context.Context, id string) (*domain.Branch, error)
	GetDefaultBranch(ctx context.Context, projectID string) (*domain.Branch, error)
	ListBranchesByProject(ctx context.Context, projectID string) ([]domain.Branch, error)
	UpdateBranch(ctx context.Context, branch *domain.Branch) error
	DeleteBranch(ctx context.Context, id string) error
}

// VersionRepository persists immutable version nodes and their file sets.
type VersionRepository interface {
	CreateVersion(ctx context.Context, version *domain.Version, files []domain.VersionFile) error
	GetVersionByID(ctx context.Context, id string) (*domain.Version, error)
	GetLatestVersionOnBranch(ctx context.Context, branchID string) (*domain.Version, error)
	ListVersionsByBranch(ctx context.Context, branchID string, limit int) ([]domain.Version, error)
	ListVersionFiles(ctx context.Context, versionID string) ([]domain.VersionFile, error)
	UpdateVersionStatus(ctx context.Context, versionID, status string) error
	SignVersion(ctx context.Context, versionID, signedBy, signature string) error
	RecordApproval(ctx context.Context, versionID string, approval domain.Approval) error
	AppendChangelog(ctx context.Context, entry *domain.ChangelogEntry) error
	ListChangelog(ctx context.Context, versionID string) ([]domain.ChangelogEntry, error)
}

// SnapshotRepository persists named pointers to versions and their
// promotion history.
type SnapshotRepository interface {
	CreateSnapshot(ctx context.Context, snapshot *domain.Snapshot) error
	GetSnapshotByID(ctx context.Context, id string) (*domain.Snapshot, error)
	ListSnapshotsByProject(ctx context.Context, projectID string) ([]domain.Snapshot, error)
	RecordSnapshotPromotion(ctx context.Context, promotion *domain.SnapshotPromotion) error
	ListSnapshotPromotions(ctx context.Context, snapshotID string) ([]domain.SnapshotPromotion, error)
}

// ReleaseRepository persists signed, bundled release artefacts.
type ReleaseRepository interface {
	CreateRelease(ctx context.Context, release *domain.Release) error
	GetReleaseByID(ctx context.Context, id string) (*domain.Release, error)
	ListReleasesByProject(ctx context.Context, projectID string) ([]domain.Release, error)
	UpdateReleaseStatus(ctx context.Context, id, status string) error
	RecordReleasePromotion(ctx context.Context, releaseID string, promotion domain.ReleasePromotion) error
	IncrementLinkedDeploys(ctx context.Context, id string, deployedAt domain.ReleasePromotion) error
}

// DeployRepository persists deployment attempts, their approvals, safety
// checks, logs, and rollbacks.
type DeployRepository interface {
	CreateDeploy(ctx context.Context, deploy *domain.DeployRecord, checks []domain.DeployCheck) error
	GetDeployByID(ctx context.Context, id string) (*domain.DeployRecord, error)
	ListDeploysByProject(ctx context.Context, projectID string, limit int) ([]domain.DeployRecord, error)
	UpdateDeploy(ctx context.Context, deploy *domain.DeployRecord) error

	ListChecks(ctx context.Context, deployID string) ([]domain.DeployCheck, error)
	UpdateCheck(ctx context.Context, check *domain.DeployCheck) error

	CreateApprovals(ctx context.Context, approvals []domain.DeployApproval) error
	ListApprovals(ctx context.Context, deployID string) ([]domain.DeployApproval, error)
	RecordApprovalResponse(ctx context.Context, approvalID, approverName, status, comment string) error

	AppendLog(ctx context.Context, log *domain.DeployLog) error
	ListLogs(ctx context.Context, deployID string, limit int) ([]domain.DeployLog, error)

	CreateRollback(ctx context.Context, rollback *domain.DeployRollback) error
	UpdateRollback(ctx context.Context, rollback *domain.DeployRollback) error
}
