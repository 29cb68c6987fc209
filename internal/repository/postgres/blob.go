package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
)

// PutBlob stores content keyed by its SHA-256 checksum, deduplicating
// against an existing row with the same checksum.
func (r *Repository) PutBlob(ctx context.Context, sha256 string, content []byte) error {
	const query = `INSERT INTO blobs (sha256, content, size_bytes, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (sha256) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, sha256, content, len(content))
	if err != nil {
		return fmt.Errorf("%w: put blob: %v", apperr.ErrIO, err)
	}
	return nil
}

// GetBlob retrieves content by its SHA-256 checksum.
func (r *Repository) GetBlob(ctx context.Context, sha256 string) ([]byte, error) {
	const query = `SELECT content FROM blobs WHERE sha256 = $1`
	var content []byte
	if err := r.pool.QueryRow(ctx, query, sha256).Scan(&content); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: blob %s", apperr.ErrNotFound, sha256)
		}
		return nil, fmt.Errorf("%w: get blob: %v", apperr.ErrIO, err)
	}
	return content, nil
}

// BlobExists reports whether a blob with the given checksum is already
// stored.
func (r *Repository) BlobExists(ctx context.Context, sha256 string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM blobs WHERE sha256 = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, sha256).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: check blob existence: %v", apperr.ErrIO, err)
	}
	return exists, nil
}
