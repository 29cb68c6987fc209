package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

// CreateProject inserts a project.
func (r *Repository) CreateProject(ctx context.Context, p *domain.Project) error {
	const query = `INSERT INTO projects (id, name, conn_vendor, conn_address, conn_port, conn_slot, conn_rack, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query, p.ID, p.Name, p.Connection.Vendor, p.Connection.Address, p.Connection.Port, p.Connection.Slot, p.Connection.Rack, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert project: %v", apperr.ErrIO, err)
	}
	return nil
}

// GetProjectByID fetches a project by identifier.
func (r *Repository) GetProjectByID(ctx context.Context, id string) (*domain.Project, error) {
	const query = `SELECT id, name, conn_vendor, conn_address, conn_port, conn_slot, conn_rack, created_at, updated_at
		FROM projects WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var p domain.Project
	if err := row.Scan(&p.ID, &p.Name, &p.Connection.Vendor, &p.Connection.Address, &p.Connection.Port, &p.Connection.Slot, &p.Connection.Rack, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: project %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get project: %v", apperr.ErrIO, err)
	}
	return &p, nil
}

// ListProjects returns every project, newest first.
func (r *Repository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	const query = `SELECT id, name, conn_vendor, conn_address, conn_port, conn_slot, conn_rack, created_at, updated_at
		FROM projects ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list projects: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Connection.Vendor, &p.Connection.Address, &p.Connection.Port, &p.Connection.Slot, &p.Connection.Rack, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan project: %v", apperr.ErrIO, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProject updates a project's mutable fields.
func (r *Repository) UpdateProject(ctx context.Context, p *domain.Project) error {
	const query = `UPDATE projects SET name = $2, conn_vendor = $3, conn_address = $4, conn_port = $5, conn_slot = $6, conn_rack = $7, updated_at = $8
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, p.ID, p.Name, p.Connection.Vendor, p.Connection.Address, p.Connection.Port, p.Connection.Slot, p.Connection.Rack, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: update project: %v", apperr.ErrIO, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %s", apperr.ErrNotFound, p.ID)
	}
	return nil
}

// DeleteProject removes a project and, via foreign-key cascade, every
// owned logic file, tag, branch, version, snapshot, release, and deploy.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete project: %v", apperr.ErrIO, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %s", apperr.ErrNotFound, id)
	}
	return nil
}
