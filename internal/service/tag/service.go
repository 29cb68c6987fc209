// Package tag implements spec.md §6's tag.* surface: CRUD for tags and
// UDTs, hierarchy placement, alias management, validation-rule
// evaluation, and a dry-run preview of bulk JSON Patch operations (a bulk
// patch is previewed only; it is never applied to stored tags).
package tag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/patch"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/repository"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/rules"
)

var (
	errProjectIDRequired = fmt.Errorf("%w: project id required", apperr.ErrValidation)
	errTagIDRequired      = fmt.Errorf("%w: tag id required", apperr.ErrValidation)
	errUDTIDRequired      = fmt.Errorf("%w: udt id required", apperr.ErrValidation)
	errNameRequired       = fmt.Errorf("%w: tag name required", apperr.ErrValidation)
	errUDTNameRequired    = fmt.Errorf("%w: udt name required", apperr.ErrValidation)
	errUnknownType        = fmt.Errorf("%w: unknown tag type", apperr.ErrValidation)
	errDuplicateName      = fmt.Errorf("%w: tag name already exists in project", apperr.ErrConflict)
	errUDTTypeRequired    = fmt.Errorf("%w: udt type name required for UDT-typed tag", apperr.ErrValidation)
	errUDTInUse           = fmt.Errorf("%w: udt still referenced by one or more tags", apperr.ErrConflict)
)

// Service drives tag and UDT CRUD plus validation and bulk operations.
type Service struct {
	tags   repository.TagRepository
	udts   repository.UDTRepository
	rules  *rules.Evaluator
	logger *slog.Logger
}

// New constructs a tag service. A rule evaluator is created internally;
// construction only fails if the CEL environment itself fails to build.
func New(tags repository.TagRepository, udts repository.UDTRepository, logger *slog.Logger) (Service, error) {
	ev, err := rules.New()
	if err != nil {
		return Service{}, fmt.Errorf("build rule evaluator: %w", err)
	}
	return Service{tags: tags, udts: udts, rules: ev, logger: logger}, nil
}

func validTagType(t string) bool {
	switch t {
	case domain.TagBool, domain.TagInt, domain.TagDInt, domain.TagReal, domain.TagLReal,
		domain.TagString, domain.TagTime, domain.TagArray, domain.TagUDT:
		return true
	}
	return false
}

// CreateTagInput captures the attributes of a new tag.
type CreateTagInput struct {
	ProjectID   string
	Name        string
	Type        string
	UDTType     string
	Value       any
	VendorAddr  string
	Source      string
	Scope       string
	Hierarchy   domain.HierarchyPath
	Alarms      domain.AlarmThresholds
	Permissions domain.Permissions
	AlarmExpr   string
}

// CreateTag inserts a tag after checking for a duplicate name within the
// project and, for UDT-typed tags, that a UDT type name was given.
func (s Service) CreateTag(ctx context.Context, input CreateTagInput) (*domain.Tag, error) {
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	input.Name = strings.TrimSpace(input.Name)
	if input.ProjectID == "" {
		return nil, errProjectIDRequired
	}
	if input.Name == "" {
		return nil, errNameRequired
	}
	if !validTagType(input.Type) {
		return nil, errUnknownType
	}
	if input.Type == domain.TagUDT && strings.TrimSpace(input.UDTType) == "" {
		return nil, errUDTTypeRequired
	}
	if input.Source == "" {
		input.Source = domain.TagSourceShadow
	}
	if input.Scope == "" {
		input.Scope = domain.TagScopeGlobal
	}

	if existing, err := s.tags.GetTagByName(ctx, input.ProjectID, input.Name); err == nil && existing != nil {
		return nil, errDuplicateName
	}

	t := &domain.Tag{
		ID:          uuid.NewString(),
		ProjectID:   input.ProjectID,
		Name:        input.Name,
		Type:        input.Type,
		UDTType:     input.UDTType,
		Value:       input.Value,
		VendorAddr:  input.VendorAddr,
		Source:      input.Source,
		Scope:       input.Scope,
		Lifecycle:   domain.TagLifecycleDraft,
		Hierarchy:   input.Hierarchy,
		Alarms:      input.Alarms,
		Permissions: input.Permissions,
		AlarmExpr:   input.AlarmExpr,
	}
	if err := s.tags.CreateTag(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTag fetches a tag by id.
func (s Service) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errTagIDRequired
	}
	return s.tags.GetTagByID(ctx, id)
}

// ListTags returns every tag in a project.
func (s Service) ListTags(ctx context.Context, projectID string) ([]domain.Tag, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	return s.tags.ListTagsByProject(ctx, projectID)
}

// UpdateTagInput captures the mutable attributes of a tag.
type UpdateTagInput struct {
	Value       any
	VendorAddr  *string
	Lifecycle   *string
	Hierarchy   *domain.HierarchyPath
	Alarms      *domain.AlarmThresholds
	Permissions *domain.Permissions
	AlarmExpr   *string
	SetValue    bool
}

// UpdateTag applies a partial update to a tag. Permissions.ReadOnly and
// Permissions.RequiresApproval are enforced by the caller (the command
// surface), not here; this layer only persists the change.
func (s Service) UpdateTag(ctx context.Context, id string, input UpdateTagInput) (*domain.Tag, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errTagIDRequired
	}
	t, err := s.tags.GetTagByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.SetValue {
		t.Value = input.Value
	}
	if input.VendorAddr != nil {
		t.VendorAddr = *input.VendorAddr
	}
	if input.Lifecycle != nil {
		t.Lifecycle = *input.Lifecycle
	}
	if input.Hierarchy != nil {
		t.Hierarchy = *input.Hierarchy
	}
	if input.Alarms != nil {
		t.Alarms = *input.Alarms
	}
	if input.Permissions != nil {
		t.Permissions = *input.Permissions
	}
	if input.AlarmExpr != nil {
		t.AlarmExpr = *input.AlarmExpr
	}
	if err := s.tags.UpdateTag(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTag removes a tag.
func (s Service) DeleteTag(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errTagIDRequired
	}
	return s.tags.DeleteTag(ctx, id)
}

// AddAlias appends an alias name to a tag, ignoring a duplicate.
func (s Service) AddAlias(ctx context.Context, id, alias string) (*domain.Tag, error) {
	alias = strings.TrimSpace(alias)
	t, err := s.tags.GetTagByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	for _, a := range t.Aliases {
		if a == alias {
			return t, nil
		}
	}
	t.Aliases = append(t.Aliases, alias)
	if err := s.tags.UpdateTag(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// RemoveAlias drops an alias name from a tag.
func (s Service) RemoveAlias(ctx context.Context, id, alias string) (*domain.Tag, error) {
	t, err := s.tags.GetTagByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	out := t.Aliases[:0]
	for _, a := range t.Aliases {
		if a != alias {
			out = append(out, a)
		}
	}
	t.Aliases = out
	if err := s.tags.UpdateTag(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Dependents returns every tag in the project whose UDTType references
// the given UDT, or whose AlarmExpr mentions the given tag's name.
func (s Service) Dependents(ctx context.Context, projectID, tagOrUDTName string) ([]domain.Tag, error) {
	all, err := s.tags.ListTagsByProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return nil, err
	}
	var out []domain.Tag
	for _, t := range all {
		if t.UDTType == tagOrUDTName {
			out = append(out, t)
			continue
		}
		if t.AlarmExpr != "" && strings.Contains(t.AlarmExpr, tagOrUDTName) {
			out = append(out, t)
		}
	}
	return out, nil
}

// EvaluateAlarm reports whether a tag's alarm expression currently trips.
func (s Service) EvaluateAlarm(_ context.Context, t domain.Tag) (bool, error) {
	return s.rules.EvaluateAlarm(t)
}

// PreviewBulkOp applies patchDoc to every tag's JSON projection without
// persisting, returning each tag's before/after state and whether it
// actually changed.
func (s Service) PreviewBulkOp(ctx context.Context, projectID string, patchDoc []byte) ([]patch.TagPreview, error) {
	tags, err := s.tags.ListTagsByProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return nil, err
	}
	return patch.PreviewBulkOp(tags, patchDoc)
}

// CreateUDTInput captures the attributes of a new UDT definition.
type CreateUDTInput struct {
	ProjectID string
	Name      string
	Members   []domain.UDTMember
}

// CreateUDT inserts a composite type definition.
func (s Service) CreateUDT(ctx context.Context, input CreateUDTInput) (*domain.UDT, error) {
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	input.Name = strings.TrimSpace(input.Name)
	if input.ProjectID == "" {
		return nil, errProjectIDRequired
	}
	if input.Name == "" {
		return nil, errUDTNameRequired
	}
	u := &domain.UDT{ID: uuid.NewString(), ProjectID: input.ProjectID, Name: input.Name, Members: input.Members}
	if err := s.udts.CreateUDT(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUDT fetches a UDT by id.
func (s Service) GetUDT(ctx context.Context, id string) (*domain.UDT, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errUDTIDRequired
	}
	return s.udts.GetUDTByID(ctx, id)
}

// ListUDTs returns every UDT in a project.
func (s Service) ListUDTs(ctx context.Context, projectID string) ([]domain.UDT, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	return s.udts.ListUDTsByProject(ctx, projectID)
}

// UpdateUDT replaces a UDT's member list.
func (s Service) UpdateUDT(ctx context.Context, id string, members []domain.UDTMember) (*domain.UDT, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errUDTIDRequired
	}
	u, err := s.udts.GetUDTByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Members = members
	if err := s.udts.UpdateUDT(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUDT removes a UDT definition, refusing if any tag in the project
// still references it by type name.
func (s Service) DeleteUDT(ctx context.Context, projectID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errUDTIDRequired
	}
	u, err := s.udts.GetUDTByID(ctx, id)
	if err != nil {
		return err
	}
	dependents, err := s.Dependents(ctx, strings.TrimSpace(projectID), u.Name)
	if err != nil {
		return err
	}
	for _, t := range dependents {
		if t.UDTType == u.Name {
			return errUDTInUse
		}
	}
	return s.udts.DeleteUDT(ctx, id)
}
