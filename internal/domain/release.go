package domain

import "time"

// Release status.
const (
	ReleaseActive     = "active"
	ReleaseDeprecated = "deprecated"
	ReleaseArchived   = "archived"
)

// ReleasePromotion records a promotion applied to a release's own metadata,
// distinct from a SnapshotPromotion.
type ReleasePromotion struct {
	Environment string
	PromotedBy  string
	PromotedAt  time.Time
}

// Release is an immutable, bundled, optionally signed artefact minted from
// a snapshot, either directly or as a side effect of a snapshot promotion.
type Release struct {
	ID              string
	ProjectID       string
	SnapshotID      string
	VersionID       string
	Name            string
	Version         string
	Environment     string
	BundlePath      string
	BundleSize      int64
	BundleChecksum  string
	Signed          bool
	Signature       string
	SignedBy        string
	Status          string
	LinkedDeploys   int
	LastDeployedAt  *time.Time
	Promotions      []ReleasePromotion
	CreatedAt       time.Time
}
