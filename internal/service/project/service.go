// Package project implements spec.md §6's project.* surface: create,
// list, get, update, delete a project and its connection profile, plus
// the branch pointers owned by it.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/repository"
)

var (
	errNameRequired      = fmt.Errorf("%w: project name required", apperr.ErrValidation)
	errProjectIDRequired = fmt.Errorf("%w: project id required", apperr.ErrValidation)
	errBranchNameRequired = fmt.Errorf("%w: branch name required", apperr.ErrValidation)
	errUnknownStage      = fmt.Errorf("%w: unknown stage", apperr.ErrValidation)
	errSecondDefault     = fmt.Errorf("%w: project already has a default branch", apperr.ErrConflict)
)

// Service drives project and branch CRUD.
type Service struct {
	projects repository.ProjectRepository
	branches repository.BranchRepository
	logger   *slog.Logger
}

// New constructs a project service.
func New(projects repository.ProjectRepository, branches repository.BranchRepository, logger *slog.Logger) Service {
	return Service{projects: projects, branches: branches, logger: logger}
}

// CreateProjectInput captures the attributes of a new project. A default
// "main" branch is created alongside it.
type CreateProjectInput struct {
	Name       string
	Connection domain.ConnectionProfile
}

// CreateProject inserts a project and its implicit default branch.
func (s Service) CreateProject(ctx context.Context, input CreateProjectInput) (*domain.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errNameRequired
	}

	now := time.Now().UTC()
	p := &domain.Project{
		ID:         uuid.NewString(),
		Name:       name,
		Connection: input.Connection,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.projects.CreateProject(ctx, p); err != nil {
		return nil, err
	}

	branch := &domain.Branch{
		ID:        uuid.NewString(),
		ProjectID: p.ID,
		Name:      "main",
		Stage:     domain.StageMain,
		IsDefault: true,
	}
	if err := s.branches.CreateBranch(ctx, branch); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject fetches a project by id.
func (s Service) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errProjectIDRequired
	}
	return s.projects.GetProjectByID(ctx, id)
}

// ListProjects returns every known project.
func (s Service) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return s.projects.ListProjects(ctx)
}

// UpdateProjectInput captures the mutable attributes of a project.
type UpdateProjectInput struct {
	Name       *string
	Connection *domain.ConnectionProfile
}

// UpdateProject applies a partial update, including attaching or
// replacing the connection profile, per spec.md §6.
func (s Service) UpdateProject(ctx context.Context, id string, input UpdateProjectInput) (*domain.Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errProjectIDRequired
	}
	p, err := s.projects.GetProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errNameRequired
		}
		p.Name = name
	}
	if input.Connection != nil {
		p.Connection = *input.Connection
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.projects.UpdateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProject removes a project.
func (s Service) DeleteProject(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errProjectIDRequired
	}
	return s.projects.DeleteProject(ctx, id)
}

// CreateBranchInput captures the attributes of a new branch pointer.
type CreateBranchInput struct {
	ProjectID      string
	Name           string
	Stage          string
	ParentBranchID *string
	IsDefault      bool
}

// CreateBranch inserts a branch pointer. At most one branch per project
// may be marked default.
func (s Service) CreateBranch(ctx context.Context, input CreateBranchInput) (*domain.Branch, error) {
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	input.Name = strings.TrimSpace(input.Name)
	if input.ProjectID == "" {
		return nil, errProjectIDRequired
	}
	if input.Name == "" {
		return nil, errBranchNameRequired
	}
	if domain.StageRank(input.Stage) < 0 {
		return nil, errUnknownStage
	}
	if input.IsDefault {
		if existing, err := s.branches.GetDefaultBranch(ctx, input.ProjectID); err == nil && existing != nil {
			return nil, errSecondDefault
		}
	}

	branch := &domain.Branch{
		ID:             uuid.NewString(),
		ProjectID:      input.ProjectID,
		Name:           input.Name,
		Stage:          input.Stage,
		ParentBranchID: input.ParentBranchID,
		IsDefault:      input.IsDefault,
	}
	if err := s.branches.CreateBranch(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

// GetDefaultBranch returns a project's single default branch.
func (s Service) GetDefaultBranch(ctx context.Context, projectID string) (*domain.Branch, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	return s.branches.GetDefaultBranch(ctx, projectID)
}

// ListBranches returns every branch for a project.
func (s Service) ListBranches(ctx context.Context, projectID string) ([]domain.Branch, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	return s.branches.ListBranchesByProject(ctx, projectID)
}
