package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
)

// RetentionPolicy names how many most-recent versions, by creation time, to
// keep on disk for a project. Caller decides separately whether to purge
// the corresponding metadata rows.
type RetentionPolicy struct {
	KeepMostRecent int
}

// VersionBlob is the on-disk location of one version's stored files,
// keyed by the version's creation time for retention ordering.
type VersionBlob struct {
	VersionID string
	Dir       string
	CreatedAt time.Time
}

// Prune deletes the on-disk blob directories for every version beyond the
// KeepMostRecent most recent, returning the version IDs it removed.
func Prune(blobs []VersionBlob, policy RetentionPolicy) ([]string, error) {
	if policy.KeepMostRecent <= 0 || len(blobs) <= policy.KeepMostRecent {
		return nil, nil
	}

	ordered := make([]VersionBlob, len(blobs))
	copy(ordered, blobs)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].CreatedAt.After(ordered[j-1].CreatedAt); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	var removed []string
	for _, b := range ordered[policy.KeepMostRecent:] {
		if err := os.RemoveAll(b.Dir); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("%w: prune %s: %v", apperr.ErrIO, b.Dir, err)
		}
		removed = append(removed, b.VersionID)
	}
	return removed, nil
}

// VersionBlobDir builds the conventional on-disk path for a version's
// stored files under root.
func VersionBlobDir(root, projectID, versionID string) string {
	return filepath.Join(root, projectID, versionID)
}
