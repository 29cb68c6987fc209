package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

// CreateLogicFile inserts a logic file.
func (r *Repository) CreateLogicFile(ctx context.Context, f *domain.LogicFile) error {
	const query = `INSERT INTO logic_files (id, project_id, name, content, vendor, author, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, f.ID, f.ProjectID, f.Name, f.Content, f.Vendor, f.Author, f.ModifiedAt)
	if err != nil {
		return fmt.Errorf("%w: insert logic file: %v", apperr.ErrIO, err)
	}
	return nil
}

// GetLogicFileByID fetches a logic file by identifier.
func (r *Repository) GetLogicFileByID(ctx context.Context, id string) (*domain.LogicFile, error) {
	const query = `SELECT id, project_id, name, content, vendor, author, modified_at FROM logic_files WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var f domain.LogicFile
	if err := row.Scan(&f.ID, &f.ProjectID, &f.Name, &f.Content, &f.Vendor, &f.Author, &f.ModifiedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: logic file %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get logic file: %v", apperr.ErrIO, err)
	}
	return &f, nil
}

// ListLogicFilesByProject returns every logic file for a project.
func (r *Repository) ListLogicFilesByProject(ctx context.Context, projectID string) ([]domain.LogicFile, error) {
	const query = `SELECT id, project_id, name, content, vendor, author, modified_at FROM logic_files WHERE project_id = $1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: list logic files: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.LogicFile
	for rows.Next() {
		var f domain.LogicFile
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Name, &f.Content, &f.Vendor, &f.Author, &f.ModifiedAt); err != nil {
			return nil, fmt.Errorf("%w: scan logic file: %v", apperr.ErrIO, err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateLogicFile overwrites a logic file's mutable content.
func (r *Repository) UpdateLogicFile(ctx context.Context, f *domain.LogicFile) error {
	const query = `UPDATE logic_files SET name = $2, content = $3, vendor = $4, author = $5, modified_at = $6 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, f.ID, f.Name, f.Content, f.Vendor, f.Author, f.ModifiedAt)
	if err != nil {
		return fmt.Errorf("%w: update logic file: %v", apperr.ErrIO, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: logic file %s", apperr.ErrNotFound, f.ID)
	}
	return nil
}

// DeleteLogicFile removes a logic file.
func (r *Repository) DeleteLogicFile(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM logic_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete logic file: %v", apperr.ErrIO, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: logic file %s", apperr.ErrNotFound, id)
	}
	return nil
}
