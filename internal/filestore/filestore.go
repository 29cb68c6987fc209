// Package filestore implements the content-addressed blob layer of
// spec.md §4.5: checksum, compress, optional line-delta against a base,
// and release-bundle pack/unpack.
package filestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/diffengine"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/pkg/crypto"
)

// brotliQuality matches spec.md §4.5's "Brotli at quality 6".
const brotliQuality = 6

// deltaThreshold is the fraction of the original serialized size below
// which a delta is preferred over the full compressed content.
const deltaThreshold = 0.70

// StoredFile is the result of applying Store to one file's content.
type StoredFile struct {
	SHA256         string
	OriginalSize   int64
	StoredSize     int64
	IsCompressed   bool
	IsDelta        bool
	Blob           []byte // the bytes to persist at StoragePath
	DeltaBaseSHA256 string
}

// Store computes the checksum of content, compresses it with Brotli
// (kept only if strictly smaller than the original), and — when baseContent
// is non-empty and deltaEnabled is set — also computes a line-delta against
// baseContent. The delta is stored whenever its serialized form is under
// 70% of the original size, even if the compressed form is smaller;
// otherwise the smaller of the raw and compressed content is stored.
func Store(content []byte, baseContent []byte, deltaEnabled bool) (StoredFile, error) {
	checksum := crypto.Checksum(content)

	compressed, err := compress(content)
	if err != nil {
		return StoredFile{}, fmt.Errorf("%w: compress: %v", apperr.ErrIO, err)
	}

	result := StoredFile{
		SHA256:       checksum,
		OriginalSize: int64(len(content)),
	}

	best := content
	bestCompressed := false
	if len(compressed) < len(content) {
		best = compressed
		bestCompressed = true
	}

	if deltaEnabled && len(baseContent) > 0 {
		delta, deltaErr := buildDelta(baseContent, content)
		if deltaErr == nil && len(delta) > 0 && float64(len(delta)) < deltaThreshold*float64(len(content)) {
			result.IsDelta = true
			result.DeltaBaseSHA256 = crypto.Checksum(baseContent)
			result.Blob = delta
			result.StoredSize = int64(len(delta))
			result.IsCompressed = false
			return result, nil
		}
	}

	result.Blob = best
	result.StoredSize = int64(len(best))
	result.IsCompressed = bestCompressed
	return result, nil
}

// Load reconstitutes original content from a StoredFile's blob, given the
// base content when IsDelta is set.
func Load(sf StoredFile, baseContent []byte) ([]byte, error) {
	if sf.IsDelta {
		return applyDelta(baseContent, sf.Blob)
	}
	if sf.IsCompressed {
		return decompress(sf.Blob)
	}
	return sf.Blob, nil
}

// Verify recomputes the checksum of reconstituted content and compares it
// against the expected digest, returning apperr.ErrIntegrity on mismatch.
func Verify(content []byte, expectedSHA256 string) error {
	if crypto.Checksum(content) != expectedSHA256 {
		return fmt.Errorf("%w: checksum mismatch", apperr.ErrIntegrity)
	}
	return nil
}

func compress(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotliQuality)
	if _, err := w.Write(content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(blob []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(blob))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", apperr.ErrIO, err)
	}
	return out, nil
}

// deltaOp is one line-edit operation in a serialized delta script, per
// spec.md §4.5.
type deltaOp struct {
	Type    string `json:"type"` // "add" or "delete"
	Line    int    `json:"line"`
	Content string `json:"content,omitempty"`
}

func buildDelta(base, target []byte) ([]byte, error) {
	baseLines := diffengine.SplitLines(string(base))
	targetLines := diffengine.SplitLines(string(target))
	d := diffengine.Compute(baseLines, targetLines, 0)

	ops := make([]deltaOp, 0, len(d.Changes))
	for _, c := range d.Changes {
		switch c.Type {
		case diffengine.ChangeAdd:
			ops = append(ops, deltaOp{Type: "add", Line: c.NewLine, Content: c.Content})
		case diffengine.ChangeDelete:
			ops = append(ops, deltaOp{Type: "delete", Line: c.OldLine, Content: c.Content})
		}
	}
	return json.Marshal(ops)
}

// applyDelta replays ops, in the order they were generated by diffLines,
// against base. Unchanged base lines are flushed up to each op's position
// before the op is applied: a delete's OldLine against the base cursor,
// an add's NewLine against the output built so far, since an add doesn't
// consume a base line and its Line is a target-side position.
func applyDelta(base []byte, blob []byte) ([]byte, error) {
	var ops []deltaOp
	if err := json.Unmarshal(blob, &ops); err != nil {
		return nil, fmt.Errorf("%w: decode delta: %v", apperr.ErrIntegrity, err)
	}

	lines := diffengine.SplitLines(string(base))
	result := make([]string, 0, len(lines)+len(ops))
	cursor := 1 // next unconsumed 1-indexed base line

	for _, op := range ops {
		switch op.Type {
		case "delete":
			for ; cursor < op.Line; cursor++ {
				result = append(result, lines[cursor-1])
			}
			cursor++ // skip the deleted line
		case "add":
			// op.Line is the 1-indexed position of op.Content in the
			// target, not a base line number, so the flush bound is
			// against the output built so far rather than cursor.
			for ; len(result) < op.Line-1; cursor++ {
				result = append(result, lines[cursor-1])
			}
			result = append(result, op.Content)
		}
	}
	for ; cursor <= len(lines); cursor++ {
		result = append(result, lines[cursor-1])
	}

	if len(result) == 0 {
		return nil, nil
	}
	return []byte(joinLines(result)), nil
}

func joinLines(lines []string) string {
	var b bytes.Buffer
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}
