package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

// CreateVersion inserts an immutable version node and its captured file
// set within a single transaction, adapted from the teacher's
// CreateEnvironmentVersion batch-insert idiom.
func (r *Repository) CreateVersion(ctx context.Context, v *domain.Version, files []domain.VersionFile) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", apperr.ErrIO, err)
	}
	defer tx.Rollback(ctx)

	const versionInsert = `INSERT INTO versions
		(id, project_id, branch_id, label, author, timestamp, message, status, checksum, parent_version_id,
		 approvals_required, signed, signed_by, signature, signed_at, original_size, compressed_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err = tx.Exec(ctx, versionInsert, v.ID, v.ProjectID, v.BranchID, v.Label, v.Author, v.Timestamp, v.Message, v.Status,
		v.Checksum, v.ParentVersionID, v.ApprovalsRequired, v.Signed, v.SignedBy, v.Signature, v.SignedAt, v.OriginalSize, v.CompressedSize)
	if err != nil {
		return fmt.Errorf("%w: insert version: %v", apperr.ErrIO, err)
	}

	if len(files) > 0 {
		const fileInsert = `INSERT INTO version_files
			(version_id, path, file_type, change_type, lines_added, lines_deleted, size, sha256, storage_path, is_compressed, is_delta, delta_base_file_id, diff_preview)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
		batch := &pgx.Batch{}
		for _, f := range files {
			batch.Queue(fileInsert, v.ID, f.Path, f.FileType, f.ChangeType, f.LinesAdded, f.LinesDeleted, f.Size, f.SHA256,
				f.StoragePath, f.IsCompressed, f.IsDelta, f.DeltaBaseFileID, f.DiffPreview)
		}
		br := tx.SendBatch(ctx, batch)
		for range files {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("%w: insert version file: %v", apperr.ErrIO, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("%w: close batch: %v", apperr.ErrIO, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit version: %v", apperr.ErrIO, err)
	}
	return nil
}

func scanVersion(row interface{ Scan(dest ...any) error }) (*domain.Version, error) {
	var v domain.Version
	if err := row.Scan(&v.ID, &v.ProjectID, &v.BranchID, &v.Label, &v.Author, &v.Timestamp, &v.Message, &v.Status, &v.Checksum,
		&v.ParentVersionID, &v.ApprovalsRequired, &v.Signed, &v.SignedBy, &v.Signature, &v.SignedAt, &v.OriginalSize, &v.CompressedSize); err != nil {
		return nil, err
	}
	return &v, nil
}

const versionColumns = `id, project_id, branch_id, label, author, timestamp, message, status, checksum, parent_version_id,
	approvals_required, signed, signed_by, signature, signed_at, original_size, compressed_size`

// GetVersionByID fetches a version and its recorded approvals.
func (r *Repository) GetVersionByID(ctx context.Context, id string) (*domain.Version, error) {
	v, err := scanVersion(r.pool.QueryRow(ctx, `SELECT `+versionColumns+` FROM versions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: version %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get version: %v", apperr.ErrIO, err)
	}
	approvals, err := r.listApprovals(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Approvals = approvals
	return v, nil
}

func (r *Repository) listApprovals(ctx context.Context, versionID string) ([]domain.Approval, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, timestamp FROM version_approvals WHERE version_id = $1 ORDER BY timestamp`, versionID)
	if err != nil {
		return nil, fmt.Errorf("%w: list approvals: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.Approval
	for rows.Next() {
		var a domain.Approval
		if err := rows.Scan(&a.Name, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: scan approval: %v", apperr.ErrIO, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetLatestVersionOnBranch returns the most recently created version on a
// branch.
func (r *Repository) GetLatestVersionOnBranch(ctx context.Context, branchID string) (*domain.Version, error) {
	const query = `SELECT ` + versionColumns + ` FROM versions WHERE branch_id = $1 ORDER BY timestamp DESC LIMIT 1`
	v, err := scanVersion(r.pool.QueryRow(ctx, query, branchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: latest version on branch %s", apperr.ErrNotFound, branchID)
		}
		return nil, fmt.Errorf("%w: get latest version: %v", apperr.ErrIO, err)
	}
	return v, nil
}

// ListVersionsByBranch returns up to limit versions on a branch, newest
// first.
func (r *Repository) ListVersionsByBranch(ctx context.Context, branchID string, limit int) ([]domain.Version, error) {
	const query = `SELECT ` + versionColumns + ` FROM versions WHERE branch_id = $1 ORDER BY timestamp DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, branchID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list versions: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan version: %v", apperr.ErrIO, err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// ListVersionFiles returns the captured file set for a version.
func (r *Repository) ListVersionFiles(ctx context.Context, versionID string) ([]domain.VersionFile, error) {
	const query = `SELECT version_id, path, file_type, change_type, lines_added, lines_deleted, size, sha256, storage_path,
		is_compressed, is_delta, delta_base_file_id, diff_preview FROM version_files WHERE version_id = $1 ORDER BY path`
	rows, err := r.pool.Query(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("%w: list version files: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.VersionFile
	for rows.Next() {
		var f domain.VersionFile
		if err := rows.Scan(&f.VersionID, &f.Path, &f.FileType, &f.ChangeType, &f.LinesAdded, &f.LinesDeleted, &f.Size, &f.SHA256,
			&f.StoragePath, &f.IsCompressed, &f.IsDelta, &f.DeltaBaseFileID, &f.DiffPreview); err != nil {
			return nil, fmt.Errorf("%w: scan version file: %v", apperr.ErrIO, err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateVersionStatus transitions a version's lifecycle status.
func (r *Repository) UpdateVersionStatus(ctx context.Context, versionID, status string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE versions SET status = $2 WHERE id = $1`, versionID, status)
	if err != nil {
		return fmt.Errorf("%w: update version status: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: version %s", apperr.ErrNotFound, versionID)
	}
	return nil
}

// SignVersion records a detached signature over a version's checksum.
func (r *Repository) SignVersion(ctx context.Context, versionID, signedBy, signature string) error {
	const query = `UPDATE versions SET signed = TRUE, signed_by = $2, signature = $3, signed_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, versionID, signedBy, signature)
	if err != nil {
		return fmt.Errorf("%w: sign version: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: version %s", apperr.ErrNotFound, versionID)
	}
	return nil
}

// RecordApproval appends an approver sign-off.
func (r *Repository) RecordApproval(ctx context.Context, versionID string, approval domain.Approval) error {
	const query = `INSERT INTO version_approvals (version_id, name, timestamp) VALUES ($1, $2, $3)`
	_, err := r.pool.Exec(ctx, query, versionID, approval.Name, approval.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: record approval: %v", apperr.ErrIO, err)
	}
	return nil
}

// AppendChangelog appends an audit entry tied to a version.
func (r *Repository) AppendChangelog(ctx context.Context, e *domain.ChangelogEntry) error {
	const query = `INSERT INTO changelog_entries (id, version_id, action, message, actor, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, e.ID, e.VersionID, e.Action, e.Message, e.Actor, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: append changelog: %v", apperr.ErrIO, err)
	}
	return nil
}

// ListChangelog returns the audit trail for a version, oldest first.
func (r *Repository) ListChangelog(ctx context.Context, versionID string) ([]domain.ChangelogEntry, error) {
	const query = `SELECT id, version_id, action, message, actor, created_at FROM changelog_entries WHERE version_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("%w: list changelog: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.ChangelogEntry
	for rows.Next() {
		var e domain.ChangelogEntry
		if err := rows.Scan(&e.ID, &e.VersionID, &e.Action, &e.Message, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan changelog: %v", apperr.ErrIO, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
