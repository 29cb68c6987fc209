package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

type memProjectRepo struct {
	projects map[string]*domain.Project
}

func newMemProjectRepo() *memProjectRepo { return &memProjectRepo{projects: map[string]*domain.Project{}} }

func (m *memProjectRepo) CreateProject(ctx context.Context, p *domain.Project) error {
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}
func (m *memProjectRepo) GetProjectByID(ctx context.Context, id string) (*domain.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *p
	return &cp, nil
}
func (m *memProjectRepo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	for _, p := range m.projects {
		out = append(out, *p)
	}
	return out, nil
}
func (m *memProjectRepo) UpdateProject(ctx context.Context, p *domain.Project) error {
	if _, ok := m.projects[p.ID]; !ok {
		return apperr.ErrNotFound
	}
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}
func (m *memProjectRepo) DeleteProject(ctx context.Context, id string) error {
	if _, ok := m.projects[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

type memBranchRepo struct {
	branches map[string]*domain.Branch
}

func newMemBranchRepo() *memBranchRepo { return &memBranchRepo{branches: map[string]*domain.Branch{}} }

func (m *memBranchRepo) CreateBranch(ctx context.Context, b *domain.Branch) error {
	cp := *b
	m.branches[b.ID] = &cp
	return nil
}
func (m *memBranchRepo) GetBranchByID(ctx context.Context, id string) (*domain.Branch, error) {
	b, ok := m.branches[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *b
	return &cp, nil
}
func (m *memBranchRepo) GetDefaultBranch(ctx context.Context, projectID string) (*domain.Branch, error) {
	for _, b := range m.branches {
		if b.ProjectID == projectID && b.IsDefault {
			cp := *b
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}
func (m *memBranchRepo) ListBranchesByProject(ctx context.Context, projectID string) ([]domain.Branch, error) {
	var out []domain.Branch
	for _, b := range m.branches {
		if b.ProjectID == projectID {
			out = append(out, *b)
		}
	}
	return out, nil
}
func (m *memBranchRepo) UpdateBranch(ctx context.Context, b *domain.Branch) error {
	if _, ok := m.branches[b.ID]; !ok {
		return apperr.ErrNotFound
	}
	cp := *b
	m.branches[b.ID] = &cp
	return nil
}
func (m *memBranchRepo) DeleteBranch(ctx context.Context, id string) error {
	if _, ok := m.branches[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.branches, id)
	return nil
}

func newTestService() (Service, *memProjectRepo, *memBranchRepo) {
	projects := newMemProjectRepo()
	branches := newMemBranchRepo()
	return New(projects, branches, nil), projects, branches
}

func TestCreateProjectAlsoCreatesDefaultMainBranch(t *testing.T) {
	svc, _, branches := newTestService()

	p, err := svc.CreateProject(context.Background(), CreateProjectInput{Name: "Line 4"})
	require.NoError(t, err)

	branchList, err := svc.ListBranches(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, branchList, 1)
	require.True(t, branchList[0].IsDefault)
	require.Equal(t, domain.StageMain, branchList[0].Stage)
	_ = branches
}

func TestCreateProjectRejectsBlankName(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.CreateProject(context.Background(), CreateProjectInput{Name: "   "})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateBranchRejectsSecondDefault(t *testing.T) {
	svc, _, _ := newTestService()
	p, err := svc.CreateProject(context.Background(), CreateProjectInput{Name: "Line 4"})
	require.NoError(t, err)

	_, err = svc.CreateBranch(context.Background(), CreateBranchInput{
		ProjectID: p.ID,
		Name:      "dev",
		Stage:     domain.StageDev,
		IsDefault: true,
	})
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateBranchRejectsUnknownStage(t *testing.T) {
	svc, _, _ := newTestService()
	p, err := svc.CreateProject(context.Background(), CreateProjectInput{Name: "Line 4"})
	require.NoError(t, err)

	_, err = svc.CreateBranch(context.Background(), CreateBranchInput{
		ProjectID: p.ID,
		Name:      "weird",
		Stage:     "nowhere",
	})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateProjectAppliesPartialChanges(t *testing.T) {
	svc, _, _ := newTestService()
	p, err := svc.CreateProject(context.Background(), CreateProjectInput{Name: "Line 4"})
	require.NoError(t, err)

	newName := "Line 4 Renamed"
	updated, err := svc.UpdateProject(context.Background(), p.ID, UpdateProjectInput{Name: &newName})
	require.NoError(t, err)
	require.Equal(t, "Line 4 Renamed", updated.Name)
}
