package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

const releaseColumns = `id, project_id, snapshot_id, version_id, name, version, environment, bundle_path, bundle_size,
	bundle_checksum, signed, signature, signed_by, status, linked_deploys, last_deployed_at, created_at`

func scanRelease(row interface{ Scan(dest ...any) error }) (*domain.Release, error) {
	var r domain.Release
	if err := row.Scan(&r.ID, &r.ProjectID, &r.SnapshotID, &r.VersionID, &r.Name, &r.Version, &r.Environment, &r.BundlePath,
		&r.BundleSize, &r.BundleChecksum, &r.Signed, &r.Signature, &r.SignedBy, &r.Status, &r.LinkedDeploys, &r.LastDeployedAt, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRelease inserts a bundled release artefact.
func (r *Repository) CreateRelease(ctx context.Context, rel *domain.Release) error {
	const query = `INSERT INTO releases
		(id, project_id, snapshot_id, version_id, name, version, environment, bundle_path, bundle_size, bundle_checksum,
		 signed, signature, signed_by, status, linked_deploys, last_deployed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.pool.Exec(ctx, query, rel.ID, rel.ProjectID, rel.SnapshotID, rel.VersionID, rel.Name, rel.Version, rel.Environment,
		rel.BundlePath, rel.BundleSize, rel.BundleChecksum, rel.Signed, rel.Signature, rel.SignedBy, rel.Status, rel.LinkedDeploys,
		rel.LastDeployedAt, rel.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert release: %v", apperr.ErrIO, err)
	}
	return nil
}

// GetReleaseByID fetches a release by identifier, including its promotion
// history.
func (r *Repository) GetReleaseByID(ctx context.Context, id string) (*domain.Release, error) {
	rel, err := scanRelease(r.pool.QueryRow(ctx, `SELECT `+releaseColumns+` FROM releases WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: release %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get release: %v", apperr.ErrIO, err)
	}
	promotions, err := r.listReleasePromotions(ctx, id)
	if err != nil {
		return nil, err
	}
	rel.Promotions = promotions
	return rel, nil
}

func (r *Repository) listReleasePromotions(ctx context.Context, releaseID string) ([]domain.ReleasePromotion, error) {
	rows, err := r.pool.Query(ctx, `SELECT environment, promoted_by, promoted_at FROM release_promotions WHERE release_id = $1 ORDER BY promoted_at`, releaseID)
	if err != nil {
		return nil, fmt.Errorf("%w: list release promotions: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.ReleasePromotion
	for rows.Next() {
		var p domain.ReleasePromotion
		if err := rows.Scan(&p.Environment, &p.PromotedBy, &p.PromotedAt); err != nil {
			return nil, fmt.Errorf("%w: scan release promotion: %v", apperr.ErrIO, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListReleasesByProject returns every release for a project, newest
// first.
func (r *Repository) ListReleasesByProject(ctx context.Context, projectID string) ([]domain.Release, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+releaseColumns+` FROM releases WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: list releases: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.Release
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan release: %v", apperr.ErrIO, err)
		}
		out = append(out, *rel)
	}
	return out, rows.Err()
}

// UpdateReleaseStatus transitions a release's lifecycle status.
func (r *Repository) UpdateReleaseStatus(ctx context.Context, id, status string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE releases SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("%w: update release status: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: release %s", apperr.ErrNotFound, id)
	}
	return nil
}

// RecordReleasePromotion appends a promotion record tied to a release's
// own metadata.
func (r *Repository) RecordReleasePromotion(ctx context.Context, releaseID string, p domain.ReleasePromotion) error {
	const query = `INSERT INTO release_promotions (release_id, environment, promoted_by, promoted_at) VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, releaseID, p.Environment, p.PromotedBy, p.PromotedAt)
	if err != nil {
		return fmt.Errorf("%w: record release promotion: %v", apperr.ErrIO, err)
	}
	return nil
}

// IncrementLinkedDeploys bumps a release's deploy counter and last-deployed
// timestamp.
func (r *Repository) IncrementLinkedDeploys(ctx context.Context, id string, deployedAt domain.ReleasePromotion) error {
	const query = `UPDATE releases SET linked_deploys = linked_deploys + 1, last_deployed_at = $2 WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, deployedAt.PromotedAt)
	if err != nil {
		return fmt.Errorf("%w: increment linked deploys: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: release %s", apperr.ErrNotFound, id)
	}
	return nil
}
