// Package patch computes dry-run previews for tag bulk operations
// (spec.md §6 tag.* "bulk ops with dry-run preview"): a JSON Patch is
// applied to each affected tag's JSON projection without touching the
// stored tag, and the caller gets back the before/after documents.
package patch

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

// TagPreview is one tag's before/after projection under a proposed patch.
type TagPreview struct {
	TagID   string
	Before  json.RawMessage
	After   json.RawMessage
	Changed bool
}

// PreviewBulkOp decodes a JSON Patch document (RFC 6902) and applies it
// to each tag's JSON projection, returning every tag's before/after state
// without persisting anything. A tag the patch leaves unchanged is still
// returned with Changed=false so callers can render a full diff table.
func PreviewBulkOp(tags []domain.Tag, patchDoc []byte) ([]TagPreview, error) {
	decoded, err := jsonpatch.DecodePatch(patchDoc)
	if err != nil {
		return nil, fmt.Errorf("%w: decode patch: %v", apperr.ErrValidation, err)
	}

	previews := make([]TagPreview, 0, len(tags))
	for _, tag := range tags {
		before, err := json.Marshal(tag)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal tag %s: %v", apperr.ErrIO, tag.ID, err)
		}
		after, err := decoded.Apply(before)
		if err != nil {
			return nil, fmt.Errorf("%w: apply patch to tag %s: %v", apperr.ErrValidation, tag.ID, err)
		}
		previews = append(previews, TagPreview{
			TagID:   tag.ID,
			Before:  before,
			After:   after,
			Changed: !jsonEqual(before, after),
		})
	}
	return previews, nil
}

func jsonEqual(a, b []byte) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	am, err1 := json.Marshal(av)
	bm, err2 := json.Marshal(bv)
	if err1 != nil || err2 != nil {
		return string(a) == string(b)
	}
	return string(am) == string(bm)
}
