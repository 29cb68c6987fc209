package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

// CreateSnapshot inserts a named pointer to a version.
func (r *Repository) CreateSnapshot(ctx context.Context, s *domain.Snapshot) error {
	const query = `INSERT INTO snapshots (id, project_id, version_id, name, description, tags, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query, s.ID, s.ProjectID, s.VersionID, s.Name, s.Description, s.Tags, s.CreatedBy, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert snapshot: %v", apperr.ErrIO, err)
	}
	return nil
}

// GetSnapshotByID fetches a snapshot by identifier.
func (r *Repository) GetSnapshotByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	const query = `SELECT id, project_id, version_id, name, description, tags, created_by, created_at FROM snapshots WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var s domain.Snapshot
	if err := row.Scan(&s.ID, &s.ProjectID, &s.VersionID, &s.Name, &s.Description, &s.Tags, &s.CreatedBy, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: snapshot %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get snapshot: %v", apperr.ErrIO, err)
	}
	return &s, nil
}

// ListSnapshotsByProject returns every snapshot for a project, newest
// first.
func (r *Repository) ListSnapshotsByProject(ctx context.Context, projectID string) ([]domain.Snapshot, error) {
	const query = `SELECT id, project_id, version_id, name, description, tags, created_by, created_at
		FROM snapshots WHERE project_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: list snapshots: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.Snapshot
	for rows.Next() {
		var s domain.Snapshot
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.VersionID, &s.Name, &s.Description, &s.Tags, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan snapshot: %v", apperr.ErrIO, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecordSnapshotPromotion appends an immutable stage-transition record.
func (r *Repository) RecordSnapshotPromotion(ctx context.Context, p *domain.SnapshotPromotion) error {
	const query = `INSERT INTO snapshot_promotions (id, snapshot_id, from_stage, to_stage, promoted_by, promoted_at, notes, checks_passed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query, p.ID, p.SnapshotID, p.FromStage, p.ToStage, p.PromotedBy, p.PromotedAt, p.Notes, p.ChecksPassed)
	if err != nil {
		return fmt.Errorf("%w: record snapshot promotion: %v", apperr.ErrIO, err)
	}
	return nil
}

// ListSnapshotPromotions returns the promotion history of a snapshot,
// oldest first.
func (r *Repository) ListSnapshotPromotions(ctx context.Context, snapshotID string) ([]domain.SnapshotPromotion, error) {
	const query = `SELECT id, snapshot_id, from_stage, to_stage, promoted_by, promoted_at, notes, checks_passed
		FROM snapshot_promotions WHERE snapshot_id = $1 ORDER BY promoted_at`
	rows, err := r.pool.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("%w: list snapshot promotions: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.SnapshotPromotion
	for rows.Next() {
		var p domain.SnapshotPromotion
		if err := rows.Scan(&p.ID, &p.SnapshotID, &p.FromStage, &p.ToStage, &p.PromotedBy, &p.PromotedAt, &p.Notes, &p.ChecksPassed); err != nil {
			return nil, fmt.Errorf("%w: scan snapshot promotion: %v", apperr.ErrIO, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
