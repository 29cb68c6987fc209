package domain

import "time"

// Version status.
const (
	VersionDraft    = "draft"
	VersionStaged   = "staged"
	VersionReleased = "released"
	VersionDeprecated = "deprecated"
)

// Approval records a single approver's sign-off on a Version.
type Approval struct {
	Name      string
	Timestamp time.Time
}

// Version is an immutable capture of a project's file set at a point in
// time, forming a single-parent chain per branch.
type Version struct {
	ID                string
	ProjectID         string
	BranchID          string
	Label             string
	Author            string
	Timestamp         time.Time
	Message           string
	Status            string
	Checksum          string
	ParentVersionID   *string
	Approvals         []Approval
	ApprovalsRequired int
	Signed            bool
	SignedBy          string
	Signature         string
	SignedAt          *time.Time
	OriginalSize      int64
	CompressedSize    int64
}

// File change types recorded on a VersionFile.
const (
	ChangeAdded    = "added"
	ChangeModified = "modified"
	ChangeDeleted  = "deleted"
)

// VersionFile-level file types.
const (
	FileTypeLogic  = "logic"
	FileTypeTag    = "tag"
	FileTypeConfig = "config"
)

// VersionFile is the per-version record of a single captured file.
type VersionFile struct {
	VersionID      string
	Path           string
	FileType       string
	ChangeType     string
	LinesAdded     int
	LinesDeleted   int
	Size           int64
	SHA256         string
	StoragePath    string
	IsCompressed   bool
	IsDelta        bool
	DeltaBaseFileID *string
	DiffPreview    string
}

// ChangelogEntry is one append-only audit row tied to a Version.
type ChangelogEntry struct {
	ID        string
	VersionID string
	Action    string
	Message   string
	Actor     string
	CreatedAt time.Time
}

// Changelog actions.
const (
	ChangeLogCreated       = "created"
	ChangeLogStatusChanged = "status_changed"
	ChangeLogSigned        = "signed"
	ChangeLogApproved      = "approved"
)
