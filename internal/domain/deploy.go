package domain

import "time"

// Deployment strategies.
const (
	StrategyAtomic = "atomic"
	StrategyCanary = "canary"
	StrategyStaged = "staged"
)

// Deployment statuses.
const (
	DeployPending    = "pending"
	DeployRunning    = "running"
	DeployPaused     = "paused"
	DeploySuccess    = "success"
	DeployFailed     = "failed"
	DeployRolledBack = "rolled-back"
)

// ChecksSummary aggregates the outcome of the safety-check pipeline.
type ChecksSummary struct {
	Total    int
	Passed   int
	Warnings int
	Failed   int
}

// DeployRecord captures a single deployment attempt of a release into an
// environment.
type DeployRecord struct {
	ID                string
	ProjectID         string
	ReleaseID         string
	VersionID         string
	SnapshotID        string
	DeployName        string
	Environment       string
	Strategy          string
	Status            string
	CreatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	DurationSeconds   *float64
	EstimatedDowntime time.Duration
	InitiatedBy       string
	ApprovedBy        string
	ApprovalCount     int
	ApprovalsRequired int
	TargetRuntimes    []string
	ProgressPercent   int
	ChecksPassed      bool
	ErrorMessage      string
	RollbackReason    string
	PreviousVersionID *string
	Checks            ChecksSummary
	LastCompletedStep string
}

// Approver roles.
const (
	RoleOperationsManager = "operations_manager"
	RoleSafetyEngineer    = "safety_engineer"
	RoleLeadDeveloper     = "lead_developer"
)

// Approval statuses.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// DeployApproval represents a single required or optional sign-off gating a
// DeployRecord's transition into running.
type DeployApproval struct {
	ID           string
	DeployID     string
	ApproverName string
	ApproverRole string
	Status       string
	Comment      string
	RequestedAt  time.Time
	RespondedAt  *time.Time
	IsRequired   bool
}

// Safety check types.
const (
	CheckTypeSyntax    = "syntax"
	CheckTypeTags      = "tags"
	CheckTypeConflicts = "conflicts"
	CheckTypeResources = "resources"
)

// Safety check statuses.
const (
	CheckPending = "pending"
	CheckRunning = "running"
	CheckPassed  = "passed"
	CheckWarning = "warning"
	CheckFailed  = "failed"
)

// Safety check severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// DeployCheck is one row of the fixed ordered safety-check suite.
type DeployCheck struct {
	ID       string
	DeployID string
	Name     string
	Type     string
	Status   string
	Severity string
	Message  string
	Details  map[string]any
	Timing   time.Duration
}

// DeployLog levels.
const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
	LogLevelSuccess = "success"
)

// DeployLog is an append-only structured entry describing deployment
// progress.
type DeployLog struct {
	ID        string
	DeployID  string
	Timestamp time.Time
	Level     string
	Message   string
	Step      string
}

// DeployRollback statuses.
const (
	RollbackPending = "pending"
	RollbackRunning = "running"
	RollbackSuccess = "success"
	RollbackFailed  = "failed"
)

// DeployRollback records an automatic or manual rollback of a DeployRecord.
type DeployRollback struct {
	ID          string
	DeployID    string
	TriggeredBy string
	Reason      string
	TriggeredAt time.Time
	CompletedAt *time.Time
	Status      string
	IsAutomatic bool
}

// RolloutSteps enumerates the ordered deployment script with their progress
// breadcrumbs.
var RolloutSteps = []struct {
	Name     string
	Progress int
}{
	{"validation", 10},
	{"backup", 25},
	{"upload", 40},
	{"compile", 60},
	{"apply", 75},
	{"verify", 90},
	{"complete", 100},
}
