// Package postgres implements internal/repository on PostgreSQL via pgx,
// adapted from the teacher's pgxpool-backed repository.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/repository"
)

// Repository implements every internal/repository interface against one
// pgxpool.Pool.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var (
	_ repository.ProjectRepository  = (*Repository)(nil)
	_ repository.BlobRepository     = (*Repository)(nil)
	_ repository.LogicFileRepository = (*Repository)(nil)
	_ repository.TagRepository      = (*Repository)(nil)
	_ repository.UDTRepository      = (*Repository)(nil)
	_ repository.BranchRepository   = (*Repository)(nil)
	_ repository.VersionRepository  = (*Repository)(nil)
	_ repository.SnapshotRepository = (*Repository)(nil)
	_ repository.ReleaseRepository  = (*Repository)(nil)
	_ repository.DeployRepository   = (*Repository)(nil)
)
