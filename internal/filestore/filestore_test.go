package filestore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreCompressesLargeContent(t *testing.T) {
	content := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog\n", 200))
	sf, err := Store(content, nil, false)
	require.NoError(t, err)
	require.True(t, sf.IsCompressed)
	require.False(t, sf.IsDelta)
	require.Less(t, sf.StoredSize, sf.OriginalSize)

	restored, err := Load(sf, nil)
	require.NoError(t, err)
	require.Equal(t, content, restored)
	require.NoError(t, Verify(restored, sf.SHA256))
}

func TestStoreSkipsCompressionWhenNotSmaller(t *testing.T) {
	content := []byte("x")
	sf, err := Store(content, nil, false)
	require.NoError(t, err)
	require.False(t, sf.IsCompressed)
	require.Equal(t, content, sf.Blob)
}

func TestStorePrefersDeltaBelowThreshold(t *testing.T) {
	base := []byte(strings.Repeat("line unchanged\n", 50))
	target := append(append([]byte{}, base...), []byte("one new line\n")...)

	sf, err := Store(target, base, true)
	require.NoError(t, err)
	require.True(t, sf.IsDelta)

	restored, err := Load(sf, base)
	require.NoError(t, err)
	require.Equal(t, target, restored)
}

func TestStoreRejectsDeltaAboveThreshold(t *testing.T) {
	base := []byte("a\nb\n")
	target := []byte("completely different content that shares nothing with base\nmore lines here\nand more\n")

	sf, err := Store(target, base, true)
	require.NoError(t, err)
	require.False(t, sf.IsDelta)
}

func TestApplyDeltaWithInterleavedAddsAndDeletes(t *testing.T) {
	base := []byte("a\nb\nc\nd\ne\n")
	target := []byte("a\nX\nc\nY\nZ\ne\n")

	delta, err := buildDelta(base, target)
	require.NoError(t, err)

	restored, err := applyDelta(base, delta)
	require.NoError(t, err)
	require.Equal(t, target, restored)
}

func TestStorePrefersDeltaWhenContentIsLargeAndSimilar(t *testing.T) {
	lines := strings.Repeat("unchanged line of reasonable length here\n", 100)
	base := []byte(lines)
	target := []byte(strings.Replace(lines, "unchanged line of reasonable length here\n", "ONE CHANGED LINE HERE INSTEAD\n", 1))

	sf, err := Store(target, base, true)
	require.NoError(t, err)
	require.True(t, sf.IsDelta)

	restored, err := Load(sf, base)
	require.NoError(t, err)
	require.Equal(t, target, restored)
}

func TestVerifyDetectsIntegrityFailure(t *testing.T) {
	err := Verify([]byte("tampered"), "deadbeef")
	require.Error(t, err)
}

func TestPackAndUnpackBundle(t *testing.T) {
	files := map[string][]byte{
		"main.st":   []byte("PROGRAM Main\nEND_PROGRAM\n"),
		"tags.json": []byte(`{"tags":[]}`),
	}
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	blob, checksum, err := PackBundle("proj-1", "ver-1", "rel-1", createdAt, files)
	require.NoError(t, err)
	require.NotEmpty(t, checksum)

	bundle, unpacked, err := UnpackBundle(blob)
	require.NoError(t, err)
	require.Equal(t, "proj-1", bundle.ProjectID)
	require.Equal(t, "ver-1", bundle.VersionID)
	require.Equal(t, "rel-1", bundle.ReleaseID)
	require.Equal(t, files, unpacked)
}

func TestUnpackBundleRejectsMalformedBlob(t *testing.T) {
	_, _, err := UnpackBundle([]byte("not brotli"))
	require.Error(t, err)
}
