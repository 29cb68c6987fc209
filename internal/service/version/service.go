// Package version implements spec.md §4.7: the immutable version model.
package version

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/diffengine"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/filestore"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/repository"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/pkg/config"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/pkg/crypto"
)

var (
	errProjectIDRequired = fmt.Errorf("%w: project id required", apperr.ErrValidation)
	errBranchIDRequired  = fmt.Errorf("%w: branch id required", apperr.ErrValidation)
	errAuthorRequired    = fmt.Errorf("%w: author required", apperr.ErrValidation)
	errVersionIDRequired = fmt.Errorf("%w: version id required", apperr.ErrValidation)
	errNoFiles           = fmt.Errorf("%w: at least one file required", apperr.ErrValidation)
	errApproverRequired  = fmt.Errorf("%w: approver name required", apperr.ErrValidation)
	errSignerRequired    = fmt.Errorf("%w: signer required", apperr.ErrValidation)
	errInvalidTransition = fmt.Errorf("%w: invalid status transition", apperr.ErrConflict)
	errAlreadyApproved   = fmt.Errorf("%w: approver already recorded", apperr.ErrConflict)
)

// FileInput is a single file supplied to CreateVersion.
type FileInput struct {
	Path     string
	Content  string
	FileType string
}

// CreateVersionInput captures the attributes of a new version capture.
type CreateVersionInput struct {
	ProjectID         string
	BranchID          string
	Author            string
	Label             string
	Message           string
	Files             []FileInput
	ApprovalsRequired int
	DeltaEnabled      bool
}

// Service coordinates version capture, status transitions, signing,
// approval, and comparison.
type Service struct {
	versions repository.VersionRepository
	branches repository.BranchRepository
	blobs    repository.BlobRepository
	logger   *slog.Logger
	cfg      config.Config
}

// New constructs a version service.
func New(versions repository.VersionRepository, branches repository.BranchRepository, blobs repository.BlobRepository, logger *slog.Logger, cfg config.Config) Service {
	return Service{versions: versions, branches: branches, blobs: blobs, logger: logger, cfg: cfg}
}

// validTransitions enumerates the only permitted status moves, per
// spec.md §4.7.
var validTransitions = map[string]string{
	domain.VersionDraft:    domain.VersionStaged,
	domain.VersionStaged:   domain.VersionReleased,
	domain.VersionReleased: domain.VersionDeprecated,
}

// CreateVersion captures a new immutable version, per spec.md §4.7 steps
// 1-8.
func (s Service) CreateVersion(ctx context.Context, input CreateVersionInput) (*domain.Version, error) {
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	input.BranchID = strings.TrimSpace(input.BranchID)
	input.Author = strings.TrimSpace(input.Author)
	if input.ProjectID == "" {
		return nil, errProjectIDRequired
	}
	if input.BranchID == "" {
		return nil, errBranchIDRequired
	}
	if input.Author == "" {
		return nil, errAuthorRequired
	}
	if len(input.Files) == 0 {
		return nil, errNoFiles
	}

	parent, err := s.versions.GetLatestVersionOnBranch(ctx, input.BranchID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	label := strings.TrimSpace(input.Label)
	if label == "" {
		label = nextLabel(parent)
	}

	approvalsRequired := input.ApprovalsRequired
	if approvalsRequired <= 0 {
		approvalsRequired = s.cfg.DefaultApprovalsRequired
	}

	parentFiles, err := s.parentFileIndex(ctx, parent)
	if err != nil {
		return nil, err
	}

	versionID := uuid.NewString()
	files := make([]domain.VersionFile, 0, len(input.Files))
	concatParts := make([]string, 0, len(input.Files)*2)
	var originalTotal, compressedTotal int64

	for _, fi := range input.Files {
		content := []byte(fi.Content)
		concatParts = append(concatParts, fi.Path, fi.Content)

		prior, hadParent := parentFiles[fi.Path]
		var baseContent []byte
		changeType := domain.ChangeAdded
		if hadParent {
			changeType = domain.ChangeModified
			baseContent, err = s.loadFileContent(ctx, prior)
			if err != nil {
				return nil, err
			}
		}

		sf, err := filestore.Store(content, baseContent, input.DeltaEnabled && hadParent)
		if err != nil {
			return nil, err
		}
		if err := s.blobs.PutBlob(ctx, sf.SHA256, sf.Blob); err != nil {
			return nil, err
		}
		originalTotal += sf.OriginalSize
		compressedTotal += sf.StoredSize

		vf := domain.VersionFile{
			VersionID:    versionID,
			Path:         fi.Path,
			FileType:     fi.FileType,
			ChangeType:   changeType,
			Size:         sf.OriginalSize,
			SHA256:       sf.SHA256,
			StoragePath:  sf.SHA256,
			IsCompressed: sf.IsCompressed,
			IsDelta:      sf.IsDelta,
		}
		if sf.IsDelta {
			base := sf.DeltaBaseSHA256
			vf.DeltaBaseFileID = &base
		}
		if hadParent {
			diff := diffengine.Compute(diffengine.SplitLines(string(baseContent)), diffengine.SplitLines(fi.Content), 3)
			vf.LinesAdded = diff.Summary.LinesAdded
			vf.LinesDeleted = diff.Summary.LinesDeleted
			vf.DiffPreview = truncatedUnifiedText(diff, 50)
		}
		files = append(files, vf)
		delete(parentFiles, fi.Path)
	}
	for path := range parentFiles {
		files = append(files, domain.VersionFile{
			VersionID:  versionID,
			Path:       path,
			ChangeType: domain.ChangeDeleted,
		})
	}

	var parentID *string
	if parent != nil {
		pid := parent.ID
		parentID = &pid
	}

	v := &domain.Version{
		ID:                versionID,
		ProjectID:         input.ProjectID,
		BranchID:          input.BranchID,
		Label:             label,
		Author:            input.Author,
		Timestamp:         time.Now().UTC(),
		Message:           input.Message,
		Status:            domain.VersionDraft,
		Checksum:          crypto.ChecksumConcat(concatParts...),
		ParentVersionID:   parentID,
		ApprovalsRequired: approvalsRequired,
		OriginalSize:      originalTotal,
		CompressedSize:    compressedTotal,
	}

	if err := s.versions.CreateVersion(ctx, v, files); err != nil {
		return nil, err
	}
	if err := s.appendChangelog(ctx, v.ID, domain.ChangeLogCreated, "version created", input.Author); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateStatus transitions a version's status, per spec.md §4.7.
func (s Service) UpdateStatus(ctx context.Context, versionID, newStatus, actor string) error {
	versionID = strings.TrimSpace(versionID)
	if versionID == "" {
		return errVersionIDRequired
	}
	v, err := s.versions.GetVersionByID(ctx, versionID)
	if err != nil {
		return err
	}
	if validTransitions[v.Status] != newStatus {
		return fmt.Errorf("%w: %s -> %s", errInvalidTransition, v.Status, newStatus)
	}
	if err := s.versions.UpdateVersionStatus(ctx, versionID, newStatus); err != nil {
		return err
	}
	return s.appendChangelog(ctx, versionID, domain.ChangeLogStatusChanged, fmt.Sprintf("status changed to %s", newStatus), actor)
}

// Sign computes and records a version signature, per spec.md §4.7.
// Re-signing by a different identity replaces signer and timestamp.
func (s Service) Sign(ctx context.Context, versionID, signedBy string) error {
	versionID = strings.TrimSpace(versionID)
	signedBy = strings.TrimSpace(signedBy)
	if versionID == "" {
		return errVersionIDRequired
	}
	if signedBy == "" {
		return errSignerRequired
	}
	v, err := s.versions.GetVersionByID(ctx, versionID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	signature := crypto.ChecksumConcat(v.ID, v.Checksum, signedBy, now.Format(time.RFC3339Nano))
	if err := s.versions.SignVersion(ctx, versionID, signedBy, signature); err != nil {
		return err
	}
	return s.appendChangelog(ctx, versionID, domain.ChangeLogSigned, fmt.Sprintf("signed by %s", signedBy), signedBy)
}

// Approve records an approver's sign-off, rejecting a duplicate approver.
func (s Service) Approve(ctx context.Context, versionID, approver string) error {
	versionID = strings.TrimSpace(versionID)
	approver = strings.TrimSpace(approver)
	if versionID == "" {
		return errVersionIDRequired
	}
	if approver == "" {
		return errApproverRequired
	}
	v, err := s.versions.GetVersionByID(ctx, versionID)
	if err != nil {
		return err
	}
	for _, a := range v.Approvals {
		if a.Name == approver {
			return errAlreadyApproved
		}
	}
	approval := domain.Approval{Name: approver, Timestamp: time.Now().UTC()}
	if err := s.versions.RecordApproval(ctx, versionID, approval); err != nil {
		return err
	}
	return s.appendChangelog(ctx, versionID, domain.ChangeLogApproved, fmt.Sprintf("approved by %s", approver), approver)
}

// CompareResult bundles the file-set comparison between two versions.
type CompareResult struct {
	Left   domain.Version
	Right  domain.Version
	Result diffengine.Result
}

// Compare materialises both versions' full file sets from the blob store
// and runs the diff engine across them, per spec.md §4.7.
func (s Service) Compare(ctx context.Context, leftID, rightID string) (*CompareResult, error) {
	left, err := s.versions.GetVersionByID(ctx, leftID)
	if err != nil {
		return nil, err
	}
	right, err := s.versions.GetVersionByID(ctx, rightID)
	if err != nil {
		return nil, err
	}
	leftFiles, err := s.versions.ListVersionFiles(ctx, leftID)
	if err != nil {
		return nil, err
	}
	rightFiles, err := s.versions.ListVersionFiles(ctx, rightID)
	if err != nil {
		return nil, err
	}

	leftSet, err := s.materializeFiles(ctx, leftFiles)
	if err != nil {
		return nil, err
	}
	rightSet, err := s.materializeFiles(ctx, rightFiles)
	if err != nil {
		return nil, err
	}

	result := diffengine.Compare(leftSet, rightSet, 3, true)
	return &CompareResult{Left: *left, Right: *right, Result: result}, nil
}

// LoadVersionFiles reconstructs every live file in a version, keyed by
// path, resolving blob storage and reversing delta encoding as needed. It
// lets other services (release bundling) reuse this version's content
// materialisation without depending on its storage internals.
func (s Service) LoadVersionFiles(ctx context.Context, versionID string) (map[string][]byte, error) {
	files, err := s.versions.ListVersionFiles(ctx, versionID)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(files))
	for _, f := range files {
		if f.ChangeType == domain.ChangeDeleted {
			continue
		}
		content, err := s.loadFileContent(ctx, f)
		if err != nil {
			return nil, err
		}
		out[f.Path] = content
	}
	return out, nil
}

func (s Service) materializeFiles(ctx context.Context, files []domain.VersionFile) (map[string]string, error) {
	out := make(map[string]string, len(files))
	for _, f := range files {
		if f.ChangeType == domain.ChangeDeleted {
			continue
		}
		content, err := s.loadFileContent(ctx, f)
		if err != nil {
			return nil, err
		}
		out[f.Path] = string(content)
	}
	return out, nil
}

// parentFileIndex returns the parent version's files keyed by path, or an
// empty map when there is no parent.
func (s Service) parentFileIndex(ctx context.Context, parent *domain.Version) (map[string]domain.VersionFile, error) {
	index := map[string]domain.VersionFile{}
	if parent == nil {
		return index, nil
	}
	existing, err := s.versions.ListVersionFiles(ctx, parent.ID)
	if err != nil {
		return nil, err
	}
	for _, f := range existing {
		if f.ChangeType == domain.ChangeDeleted {
			continue
		}
		index[f.Path] = f
	}
	return index, nil
}

// loadFileContent resolves a VersionFile's stored blob, reconstituting a
// delta against its base when necessary.
func (s Service) loadFileContent(ctx context.Context, f domain.VersionFile) ([]byte, error) {
	blob, err := s.blobs.GetBlob(ctx, f.SHA256)
	if err != nil {
		return nil, err
	}
	sf := filestore.StoredFile{
		SHA256:       f.SHA256,
		IsCompressed: f.IsCompressed,
		IsDelta:      f.IsDelta,
		Blob:         blob,
	}
	var base []byte
	if f.IsDelta && f.DeltaBaseFileID != nil {
		base, err = s.blobs.GetBlob(ctx, *f.DeltaBaseFileID)
		if err != nil {
			return nil, err
		}
	}
	return filestore.Load(sf, base)
}

func (s Service) appendChangelog(ctx context.Context, versionID, action, message, actor string) error {
	entry := &domain.ChangelogEntry{
		ID:        uuid.NewString(),
		VersionID: versionID,
		Action:    action,
		Message:   message,
		Actor:     actor,
		CreatedAt: time.Now().UTC(),
	}
	return s.versions.AppendChangelog(ctx, entry)
}

// nextLabel increments the patch component of parent's label, or returns
// v1.0.0 when there is no parent.
func nextLabel(parent *domain.Version) string {
	if parent == nil {
		return "v1.0.0"
	}
	major, minor, patch, ok := parseSemVer(parent.Label)
	if !ok {
		return "v1.0.0"
	}
	return fmt.Sprintf("v%d.%d.%d", major, minor, patch+1)
}

func parseSemVer(label string) (major, minor, patch int, ok bool) {
	trimmed := strings.TrimPrefix(label, "v")
	parts := strings.Split(trimmed, ".")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	var err error
	if major, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, false
	}
	if minor, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, false
	}
	if patch, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, 0, false
	}
	return major, minor, patch, true
}

// truncatedUnifiedText renders d's unified-diff text truncated to maxLines.
func truncatedUnifiedText(d diffengine.Diff, maxLines int) string {
	text := diffengine.UnifiedText(d)
	lines := strings.Split(text, "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}
