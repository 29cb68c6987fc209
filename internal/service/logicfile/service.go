// Package logicfile implements spec.md §6's logic.* surface: CRUD for
// Structured Text sources plus syntax validation and reformatting.
package logicfile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/compiler/lexer"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/compiler/parser"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/repository"
)

var (
	errProjectIDRequired = fmt.Errorf("%w: project id required", apperr.ErrValidation)
	errFileIDRequired     = fmt.Errorf("%w: logic file id required", apperr.ErrValidation)
	errNameRequired       = fmt.Errorf("%w: logic file name required", apperr.ErrValidation)
	errUnknownVendor      = fmt.Errorf("%w: unknown vendor", apperr.ErrValidation)
)

// Service drives logic file CRUD and syntax tooling.
type Service struct {
	files  repository.LogicFileRepository
	logger *slog.Logger
}

// New constructs a logic file service.
func New(files repository.LogicFileRepository, logger *slog.Logger) Service {
	return Service{files: files, logger: logger}
}

func validVendor(v string) bool {
	switch v {
	case domain.VendorNeutral, domain.VendorSiemens, domain.VendorRockwell, domain.VendorBeckhoff:
		return true
	}
	return false
}

// CreateLogicFileInput captures the attributes of a new logic file.
type CreateLogicFileInput struct {
	ProjectID string
	Name      string
	Content   string
	Vendor    string
	Author    string
}

// CreateLogicFile inserts a new ST source.
func (s Service) CreateLogicFile(ctx context.Context, input CreateLogicFileInput) (*domain.LogicFile, error) {
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	input.Name = strings.TrimSpace(input.Name)
	if input.ProjectID == "" {
		return nil, errProjectIDRequired
	}
	if input.Name == "" {
		return nil, errNameRequired
	}
	if input.Vendor == "" {
		input.Vendor = domain.VendorNeutral
	}
	if !validVendor(input.Vendor) {
		return nil, errUnknownVendor
	}

	f := &domain.LogicFile{
		ID:         uuid.NewString(),
		ProjectID:  input.ProjectID,
		Name:       input.Name,
		Content:    input.Content,
		Vendor:     input.Vendor,
		Author:     input.Author,
		ModifiedAt: time.Now().UTC(),
	}
	if err := s.files.CreateLogicFile(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// GetLogicFile fetches a logic file by id.
func (s Service) GetLogicFile(ctx context.Context, id string) (*domain.LogicFile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errFileIDRequired
	}
	return s.files.GetLogicFileByID(ctx, id)
}

// ListLogicFiles returns every logic file for a project.
func (s Service) ListLogicFiles(ctx context.Context, projectID string) ([]domain.LogicFile, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	return s.files.ListLogicFilesByProject(ctx, projectID)
}

// UpdateLogicFileInput captures the mutable attributes of a logic file.
type UpdateLogicFileInput struct {
	Name    *string
	Content *string
	Vendor  *string
	Author  *string
}

// UpdateLogicFile applies a partial update and stamps ModifiedAt.
func (s Service) UpdateLogicFile(ctx context.Context, id string, input UpdateLogicFileInput) (*domain.LogicFile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errFileIDRequired
	}
	f, err := s.files.GetLogicFileByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errNameRequired
		}
		f.Name = name
	}
	if input.Content != nil {
		f.Content = *input.Content
	}
	if input.Vendor != nil {
		if !validVendor(*input.Vendor) {
			return nil, errUnknownVendor
		}
		f.Vendor = *input.Vendor
	}
	if input.Author != nil {
		f.Author = *input.Author
	}
	f.ModifiedAt = time.Now().UTC()
	if err := s.files.UpdateLogicFile(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// DeleteLogicFile removes a logic file.
func (s Service) DeleteLogicFile(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errFileIDRequired
	}
	return s.files.DeleteLogicFile(ctx, id)
}

// Issue is one syntax problem reported by Validate.
type Issue struct {
	Line     int
	Column   int
	Severity string
	Message  string
}

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationResult is the structured outcome of Validate, matching
// spec.md §6's `{isValid, issues}` shape.
type ValidationResult struct {
	IsValid bool
	Issues  []Issue
}

// Validate runs the lexer and parser over a source string and reports the
// first lex/parse failure plus an advisory warning for each line carrying
// a TODO/FIXME marker as structured issues (file size is not checked),
// never raising an error itself
// — a syntactically broken file is a valid Validate *result*, not a
// failed call.
func (s Service) Validate(content, vendor string) ValidationResult {
	result := ValidationResult{IsValid: true}

	if _, err := parser.Parse(content); err != nil {
		result.IsValid = false
		result.Issues = append(result.Issues, issueFromError(err))
	}

	for i, line := range strings.Split(content, "\n") {
		upper := strings.ToUpper(line)
		if strings.Contains(upper, "TODO") || strings.Contains(upper, "FIXME") {
			result.Issues = append(result.Issues, Issue{
				Line:     i + 1,
				Column:   1,
				Severity: SeverityWarning,
				Message:  "unresolved TODO/FIXME marker",
			})
		}
	}

	_ = vendor // vendor-specific lint rules are not yet differentiated beyond the shared grammar
	return result
}

func issueFromError(err error) Issue {
	switch e := err.(type) {
	case *lexer.Error:
		return Issue{Line: e.Pos.Line, Column: e.Pos.Column, Severity: SeverityError, Message: e.Error()}
	case *parser.Error:
		return Issue{Line: e.Pos.Line, Column: e.Pos.Column, Severity: SeverityError, Message: e.Error()}
	default:
		return Issue{Line: 1, Column: 1, Severity: SeverityError, Message: err.Error()}
	}
}

// FormatOptions controls Format's indentation.
type FormatOptions struct {
	IndentWidth int
}

// Format re-indents an ST source by nesting depth, tracking VAR/END_VAR,
// IF/END_IF, WHILE/END_WHILE, FOR/END_FOR, PROGRAM/END_PROGRAM block
// pairs. It does not reparse or rewrite statement content.
func Format(content string, opts FormatOptions) string {
	if opts.IndentWidth <= 0 {
		opts.IndentWidth = 4
	}
	openers := map[string]bool{"VAR": true, "IF": true, "WHILE": true, "FOR": true, "PROGRAM": true}
	closers := map[string]string{
		"END_VAR": "VAR", "END_IF": "IF", "END_WHILE": "WHILE", "END_FOR": "FOR", "END_PROGRAM": "PROGRAM",
	}

	depth := 0
	lines := strings.Split(content, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		firstWord := ""
		if fields := strings.Fields(trimmed); len(fields) > 0 {
			firstWord = strings.ToUpper(fields[0])
		}
		if _, isCloser := closers[firstWord]; isCloser && depth > 0 {
			depth--
		}
		out[i] = strings.Repeat(" ", depth*opts.IndentWidth) + trimmed
		if openers[firstWord] {
			depth++
		}
	}
	return strings.Join(out, "\n")
}
