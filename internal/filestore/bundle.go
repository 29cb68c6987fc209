package filestore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/pkg/crypto"
)

// BundleFile is one file's content embedded in a release bundle.
type BundleFile struct {
	Path    string `json:"path"`
	Content string `json:"content"` // base64-encoded
	Size    int64  `json:"size"`
}

// Bundle is the Brotli-compressed JSON document produced by PackBundle,
// per spec.md §4.5.
type Bundle struct {
	Version   string       `json:"version"`
	ProjectID string       `json:"projectId"`
	VersionID string       `json:"versionId"`
	ReleaseID string       `json:"releaseId"`
	CreatedAt time.Time    `json:"createdAt"`
	Files     []BundleFile `json:"files"`
}

// PackBundle serializes files to JSON, base64-encoding their content, and
// Brotli-compresses the result. It returns the compressed blob and its
// SHA-256 checksum.
func PackBundle(projectID, versionID, releaseID string, createdAt time.Time, files map[string][]byte) ([]byte, string, error) {
	bundle := Bundle{
		Version:   "1",
		ProjectID: projectID,
		VersionID: versionID,
		ReleaseID: releaseID,
		CreatedAt: createdAt,
	}
	for path, content := range files {
		bundle.Files = append(bundle.Files, BundleFile{
			Path:    path,
			Content: base64.StdEncoding.EncodeToString(content),
			Size:    int64(len(content)),
		})
	}

	raw, err := json.Marshal(bundle)
	if err != nil {
		return nil, "", fmt.Errorf("%w: marshal bundle: %v", apperr.ErrIO, err)
	}

	compressed, err := compress(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: compress bundle: %v", apperr.ErrIO, err)
	}
	return compressed, crypto.Checksum(compressed), nil
}

// UnpackBundle decompresses and validates a release bundle, returning its
// files as a (path -> content) map.
func UnpackBundle(blob []byte) (Bundle, map[string][]byte, error) {
	raw, err := decompress(blob)
	if err != nil {
		return Bundle{}, nil, err
	}

	var bundle Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return Bundle{}, nil, fmt.Errorf("%w: decode bundle: %v", apperr.ErrIntegrity, err)
	}
	if bundle.ProjectID == "" || bundle.VersionID == "" {
		return Bundle{}, nil, fmt.Errorf("%w: bundle missing required fields", apperr.ErrIntegrity)
	}

	files := make(map[string][]byte, len(bundle.Files))
	for _, f := range bundle.Files {
		content, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			return Bundle{}, nil, fmt.Errorf("%w: decode file %q: %v", apperr.ErrIntegrity, f.Path, err)
		}
		if int64(len(content)) != f.Size {
			return Bundle{}, nil, fmt.Errorf("%w: size mismatch for %q", apperr.ErrIntegrity, f.Path)
		}
		files[f.Path] = content
	}
	return bundle, files, nil
}
