package logicfile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

type memLogicFileRepo struct {
	files map[string]*domain.LogicFile
}

func newMemLogicFileRepo() *memLogicFileRepo {
	return &memLogicFileRepo{files: map[string]*domain.LogicFile{}}
}

func (m *memLogicFileRepo) CreateLogicFile(ctx context.Context, f *domain.LogicFile) error {
	cp := *f
	m.files[f.ID] = &cp
	return nil
}
func (m *memLogicFileRepo) GetLogicFileByID(ctx context.Context, id string) (*domain.LogicFile, error) {
	f, ok := m.files[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *f
	return &cp, nil
}
func (m *memLogicFileRepo) ListLogicFilesByProject(ctx context.Context, projectID string) ([]domain.LogicFile, error) {
	var out []domain.LogicFile
	for _, f := range m.files {
		if f.ProjectID == projectID {
			out = append(out, *f)
		}
	}
	return out, nil
}
func (m *memLogicFileRepo) UpdateLogicFile(ctx context.Context, f *domain.LogicFile) error {
	if _, ok := m.files[f.ID]; !ok {
		return apperr.ErrNotFound
	}
	cp := *f
	m.files[f.ID] = &cp
	return nil
}
func (m *memLogicFileRepo) DeleteLogicFile(ctx context.Context, id string) error {
	if _, ok := m.files[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.files, id)
	return nil
}

func newTestService() (Service, *memLogicFileRepo) {
	repo := newMemLogicFileRepo()
	return New(repo, nil), repo
}

const validProgram = "PROGRAM Main\nVAR\n  x : INT;\nEND_VAR\nx := 1;\nEND_PROGRAM\n"

func TestCreateLogicFileDefaultsVendorToNeutral(t *testing.T) {
	svc, _ := newTestService()
	f, err := svc.CreateLogicFile(context.Background(), CreateLogicFileInput{
		ProjectID: "p1",
		Name:      "main.st",
		Content:   validProgram,
	})
	require.NoError(t, err)
	require.Equal(t, domain.VendorNeutral, f.Vendor)
}

func TestCreateLogicFileRejectsUnknownVendor(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateLogicFile(context.Background(), CreateLogicFileInput{
		ProjectID: "p1",
		Name:      "main.st",
		Vendor:    "acme",
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateLogicFileAppliesPartialChangesAndStampsModifiedAt(t *testing.T) {
	svc, _ := newTestService()
	f, err := svc.CreateLogicFile(context.Background(), CreateLogicFileInput{
		ProjectID: "p1",
		Name:      "main.st",
		Content:   validProgram,
	})
	require.NoError(t, err)
	firstStamp := f.ModifiedAt

	newContent := validProgram + "// tweak\n"
	updated, err := svc.UpdateLogicFile(context.Background(), f.ID, UpdateLogicFileInput{Content: &newContent})
	require.NoError(t, err)
	require.Equal(t, newContent, updated.Content)
	require.False(t, updated.ModifiedAt.Before(firstStamp))
}

func TestValidateAcceptsWellFormedProgram(t *testing.T) {
	svc, _ := newTestService()
	result := svc.Validate(validProgram, domain.VendorNeutral)
	require.True(t, result.IsValid)
	require.Empty(t, result.Issues)
}

func TestValidateReportsLineAndColumnOnSyntaxError(t *testing.T) {
	svc, _ := newTestService()
	result := svc.Validate("PROGRAM Main\nVAR\n  x :: INT;\nEND_VAR\nEND_PROGRAM\n", domain.VendorNeutral)
	require.False(t, result.IsValid)
	require.NotEmpty(t, result.Issues)
	require.Equal(t, SeverityError, result.Issues[0].Severity)
	require.Greater(t, result.Issues[0].Line, 0)
}

func TestValidateFlagsTodoMarkerAsWarningWithoutFailingTheFile(t *testing.T) {
	svc, _ := newTestService()
	content := "PROGRAM Main\n// TODO: wire the real sensor\nEND_PROGRAM\n"
	result := svc.Validate(content, domain.VendorNeutral)
	require.True(t, result.IsValid)
	require.Len(t, result.Issues, 1)
	require.Equal(t, SeverityWarning, result.Issues[0].Severity)
}

func TestFormatIndentsNestedBlocks(t *testing.T) {
	content := "PROGRAM Main\nVAR\nx : INT;\nEND_VAR\nEND_PROGRAM"
	formatted := Format(content, FormatOptions{IndentWidth: 2})

	expected := "PROGRAM Main\n  VAR\n    x : INT;\n  END_VAR\nEND_PROGRAM"
	require.Equal(t, expected, formatted)
}

func TestFormatDefaultsIndentWidthWhenUnset(t *testing.T) {
	formatted := Format("VAR\nx : INT;\nEND_VAR", FormatOptions{})
	require.Equal(t, "VAR\n    x : INT;\nEND_VAR", formatted)
}
