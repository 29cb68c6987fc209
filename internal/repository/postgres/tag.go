package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

func marshalTag(t *domain.Tag) (hierarchy, alarms, permissions, aliases []byte, err error) {
	if hierarchy, err = json.Marshal(t.Hierarchy); err != nil {
		return
	}
	if alarms, err = json.Marshal(t.Alarms); err != nil {
		return
	}
	if permissions, err = json.Marshal(t.Permissions); err != nil {
		return
	}
	aliases, err = json.Marshal(t.Aliases)
	return
}

func scanTag(row interface {
	Scan(dest ...any) error
}) (*domain.Tag, error) {
	var t domain.Tag
	var value any
	var hierarchy, alarms, permissions, aliases []byte
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Type, &t.UDTType, &value, &t.VendorAddr, &t.Source, &t.Scope,
		&t.Lifecycle, &hierarchy, &alarms, &permissions, &t.AlarmExpr, &aliases); err != nil {
		return nil, err
	}
	t.Value = value
	_ = json.Unmarshal(hierarchy, &t.Hierarchy)
	_ = json.Unmarshal(alarms, &t.Alarms)
	_ = json.Unmarshal(permissions, &t.Permissions)
	_ = json.Unmarshal(aliases, &t.Aliases)
	return &t, nil
}

// CreateTag inserts a tag.
func (r *Repository) CreateTag(ctx context.Context, t *domain.Tag) error {
	hierarchy, alarms, permissions, aliases, err := marshalTag(t)
	if err != nil {
		return fmt.Errorf("%w: marshal tag: %v", apperr.ErrValidation, err)
	}
	const query = `INSERT INTO tags (id, project_id, name, type, udt_type, value, vendor_addr, source, scope, lifecycle, hierarchy, alarms, permissions, alarm_expr, aliases)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = r.pool.Exec(ctx, query, t.ID, t.ProjectID, t.Name, t.Type, t.UDTType, t.Value, t.VendorAddr, t.Source, t.Scope,
		t.Lifecycle, hierarchy, alarms, permissions, t.AlarmExpr, aliases)
	if err != nil {
		return fmt.Errorf("%w: insert tag: %v", apperr.ErrIO, err)
	}
	return nil
}

// GetTagByID fetches a tag by identifier.
func (r *Repository) GetTagByID(ctx context.Context, id string) (*domain.Tag, error) {
	const query = `SELECT id, project_id, name, type, udt_type, value, vendor_addr, source, scope, lifecycle, hierarchy, alarms, permissions, alarm_expr, aliases
		FROM tags WHERE id = $1`
	t, err := scanTag(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: tag %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get tag: %v", apperr.ErrIO, err)
	}
	return t, nil
}

// GetTagByName fetches a tag by its (project, name) unique key.
func (r *Repository) GetTagByName(ctx context.Context, projectID, name string) (*domain.Tag, error) {
	const query = `SELECT id, project_id, name, type, udt_type, value, vendor_addr, source, scope, lifecycle, hierarchy, alarms, permissions, alarm_expr, aliases
		FROM tags WHERE project_id = $1 AND name = $2`
	t, err := scanTag(r.pool.QueryRow(ctx, query, projectID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: tag %s", apperr.ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: get tag: %v", apperr.ErrIO, err)
	}
	return t, nil
}

// ListTagsByProject returns every tag for a project.
func (r *Repository) ListTagsByProject(ctx context.Context, projectID string) ([]domain.Tag, error) {
	const query = `SELECT id, project_id, name, type, udt_type, value, vendor_addr, source, scope, lifecycle, hierarchy, alarms, permissions, alarm_expr, aliases
		FROM tags WHERE project_id = $1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: list tags: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan tag: %v", apperr.ErrIO, err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateTag overwrites a tag's mutable fields.
func (r *Repository) UpdateTag(ctx context.Context, t *domain.Tag) error {
	hierarchy, alarms, permissions, aliases, err := marshalTag(t)
	if err != nil {
		return fmt.Errorf("%w: marshal tag: %v", apperr.ErrValidation, err)
	}
	const query = `UPDATE tags SET name = $2, type = $3, udt_type = $4, value = $5, vendor_addr = $6, source = $7, scope = $8,
		lifecycle = $9, hierarchy = $10, alarms = $11, permissions = $12, alarm_expr = $13, aliases = $14 WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, t.ID, t.Name, t.Type, t.UDTType, t.Value, t.VendorAddr, t.Source, t.Scope,
		t.Lifecycle, hierarchy, alarms, permissions, t.AlarmExpr, aliases)
	if err != nil {
		return fmt.Errorf("%w: update tag: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: tag %s", apperr.ErrNotFound, t.ID)
	}
	return nil
}

// DeleteTag removes a tag.
func (r *Repository) DeleteTag(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete tag: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: tag %s", apperr.ErrNotFound, id)
	}
	return nil
}

// CreateUDT inserts a composite type definition.
func (r *Repository) CreateUDT(ctx context.Context, u *domain.UDT) error {
	members, err := json.Marshal(u.Members)
	if err != nil {
		return fmt.Errorf("%w: marshal udt: %v", apperr.ErrValidation, err)
	}
	const query = `INSERT INTO udts (id, project_id, name, members) VALUES ($1, $2, $3, $4)`
	_, err = r.pool.Exec(ctx, query, u.ID, u.ProjectID, u.Name, members)
	if err != nil {
		return fmt.Errorf("%w: insert udt: %v", apperr.ErrIO, err)
	}
	return nil
}

// GetUDTByID fetches a composite type by identifier.
func (r *Repository) GetUDTByID(ctx context.Context, id string) (*domain.UDT, error) {
	const query = `SELECT id, project_id, name, members FROM udts WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var u domain.UDT
	var members []byte
	if err := row.Scan(&u.ID, &u.ProjectID, &u.Name, &members); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: udt %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get udt: %v", apperr.ErrIO, err)
	}
	_ = json.Unmarshal(members, &u.Members)
	return &u, nil
}

// ListUDTsByProject returns every composite type for a project.
func (r *Repository) ListUDTsByProject(ctx context.Context, projectID string) ([]domain.UDT, error) {
	const query = `SELECT id, project_id, name, members FROM udts WHERE project_id = $1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: list udts: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.UDT
	for rows.Next() {
		var u domain.UDT
		var members []byte
		if err := rows.Scan(&u.ID, &u.ProjectID, &u.Name, &members); err != nil {
			return nil, fmt.Errorf("%w: scan udt: %v", apperr.ErrIO, err)
		}
		_ = json.Unmarshal(members, &u.Members)
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateUDT overwrites a composite type's member list.
func (r *Repository) UpdateUDT(ctx context.Context, u *domain.UDT) error {
	members, err := json.Marshal(u.Members)
	if err != nil {
		return fmt.Errorf("%w: marshal udt: %v", apperr.ErrValidation, err)
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE udts SET name = $2, members = $3 WHERE id = $1`, u.ID, u.Name, members)
	if err != nil {
		return fmt.Errorf("%w: update udt: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: udt %s", apperr.ErrNotFound, u.ID)
	}
	return nil
}

// DeleteUDT removes a composite type definition.
func (r *Repository) DeleteUDT(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM udts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete udt: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: udt %s", apperr.ErrNotFound, id)
	}
	return nil
}
