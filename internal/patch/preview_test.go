package patch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

func TestPreviewBulkOpFlagsChangedAndUnchangedTags(t *testing.T) {
	tags := []domain.Tag{
		{ID: "t1", Name: "Motor1", Lifecycle: domain.TagLifecycleDraft},
		{ID: "t2", Name: "Motor2", Lifecycle: domain.TagLifecycleActive},
	}
	patchDoc := []byte(`[{"op":"replace","path":"/Lifecycle","value":"active"}]`)

	previews, err := PreviewBulkOp(tags, patchDoc)
	require.NoError(t, err)
	require.Len(t, previews, 2)

	byID := map[string]TagPreview{}
	for _, p := range previews {
		byID[p.TagID] = p
	}
	require.True(t, byID["t1"].Changed)
	require.False(t, byID["t2"].Changed)
}

func TestPreviewBulkOpRejectsMalformedPatch(t *testing.T) {
	_, err := PreviewBulkOp([]domain.Tag{{ID: "t1"}}, []byte(`not json`))
	require.Error(t, err)
}
