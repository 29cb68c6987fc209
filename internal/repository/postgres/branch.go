package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

// CreateBranch inserts a branch pointer.
func (r *Repository) CreateBranch(ctx context.Context, b *domain.Branch) error {
	const query = `INSERT INTO branches (id, project_id, name, stage, parent_branch_id, is_default) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, b.ID, b.ProjectID, b.Name, b.Stage, b.ParentBranchID, b.IsDefault)
	if err != nil {
		return fmt.Errorf("%w: insert branch: %v", apperr.ErrIO, err)
	}
	return nil
}

// GetBranchByID fetches a branch by identifier.
func (r *Repository) GetBranchByID(ctx context.Context, id string) (*domain.Branch, error) {
	const query = `SELECT id, project_id, name, stage, parent_branch_id, is_default FROM branches WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var b domain.Branch
	if err := row.Scan(&b.ID, &b.ProjectID, &b.Name, &b.Stage, &b.ParentBranchID, &b.IsDefault); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: branch %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get branch: %v", apperr.ErrIO, err)
	}
	return &b, nil
}

// GetDefaultBranch returns the project's default branch.
func (r *Repository) GetDefaultBranch(ctx context.Context, projectID string) (*domain.Branch, error) {
	const query = `SELECT id, project_id, name, stage, parent_branch_id, is_default FROM branches WHERE project_id = $1 AND is_default LIMIT 1`
	row := r.pool.QueryRow(ctx, query, projectID)
	var b domain.Branch
	if err := row.Scan(&b.ID, &b.ProjectID, &b.Name, &b.Stage, &b.ParentBranchID, &b.IsDefault); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: default branch for project %s", apperr.ErrNotFound, projectID)
		}
		return nil, fmt.Errorf("%w: get default branch: %v", apperr.ErrIO, err)
	}
	return &b, nil
}

// ListBranchesByProject returns every branch for a project.
func (r *Repository) ListBranchesByProject(ctx context.Context, projectID string) ([]domain.Branch, error) {
	const query = `SELECT id, project_id, name, stage, parent_branch_id, is_default FROM branches WHERE project_id = $1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: list branches: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.Branch
	for rows.Next() {
		var b domain.Branch
		if err := rows.Scan(&b.ID, &b.ProjectID, &b.Name, &b.Stage, &b.ParentBranchID, &b.IsDefault); err != nil {
			return nil, fmt.Errorf("%w: scan branch: %v", apperr.ErrIO, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBranch overwrites a branch's mutable fields.
func (r *Repository) UpdateBranch(ctx context.Context, b *domain.Branch) error {
	const query = `UPDATE branches SET name = $2, stage = $3, parent_branch_id = $4, is_default = $5 WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, b.ID, b.Name, b.Stage, b.ParentBranchID, b.IsDefault)
	if err != nil {
		return fmt.Errorf("%w: update branch: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: branch %s", apperr.ErrNotFound, b.ID)
	}
	return nil
}

// DeleteBranch removes a branch.
func (r *Repository) DeleteBranch(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete branch: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: branch %s", apperr.ErrNotFound, id)
	}
	return nil
}
