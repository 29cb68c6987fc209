package diffengine

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestComputeIdenticalLines(t *testing.T) {
	d := Compute([]string{"a", "b", "c"}, []string{"a", "b", "c"}, 3)
	require.True(t, d.Summary.IsIdentical)
	require.Empty(t, d.Changes)
	require.Empty(t, d.Hunks)
}

func TestComputeSingleLineReplacement(t *testing.T) {
	d := Compute([]string{"a", "b", "c"}, []string{"a", "x", "c"}, 3)
	require.Equal(t, 1, d.Summary.LinesAdded)
	require.Equal(t, 1, d.Summary.LinesDeleted)
	require.Equal(t, 1, d.Summary.LinesModified)
	require.False(t, d.Summary.IsIdentical)
	require.Len(t, d.Hunks, 1)
}

// TestUnifiedTextGolden pins the rendered unified-diff text for a simple,
// hand-verified single-line replacement.
func TestUnifiedTextGolden(t *testing.T) {
	d := Compute([]string{"a", "b", "c"}, []string{"a", "x", "c"}, 3)
	text := UnifiedText(d)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "unified_basic", []byte(text))
}

func TestCompareMultiFile(t *testing.T) {
	oldFiles := map[string]string{
		"main.st":  "a\nb\nc\n",
		"tags.json": `{"old":true}`,
	}
	newFiles := map[string]string{
		"main.st":    "a\nx\nc\n",
		"extra.st":   "new file\n",
		"tags.json":  `{"new":true}`,
	}

	result := Compare(oldFiles, newFiles, 3, false)
	require.Len(t, result.Files, 2) // tags.json is skipped on both sides

	byPath := map[string]FileDiff{}
	for _, f := range result.Files {
		byPath[f.Path] = f
	}
	require.Equal(t, FileModified, byPath["main.st"].ChangeType)
	require.Equal(t, FileAdded, byPath["extra.st"].ChangeType)

	require.Equal(t, 2, result.Summary.FilesChanged)
	require.Equal(t, 1, result.Summary.FilesAdded)
	require.Equal(t, 1, result.Summary.FilesModified)
}

func TestDetectMovedFiles(t *testing.T) {
	oldFiles := map[string]string{"old/path.st": "line1\nline2\nline3\nline4\nline5\n"}
	newFiles := map[string]string{"new/path.st": "line1\nline2\nline3\nline4\nlineX\n"}

	result := Compare(oldFiles, newFiles, 3, true)
	require.Len(t, result.Moved, 1)
	require.Equal(t, "old/path.st", result.Moved[0].OldPath)
	require.Equal(t, "new/path.st", result.Moved[0].NewPath)
	require.GreaterOrEqual(t, result.Moved[0].Similarity, 0.8)
}
