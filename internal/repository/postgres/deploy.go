package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

const deployColumns = `id, project_id, release_id, version_id, snapshot_id, deploy_name, environment, strategy, status,
	created_at, started_at, completed_at, duration_seconds, estimated_downtime, initiated_by, approved_by, approval_count,
	approvals_required, target_runtimes, progress_percent, checks_passed, error_message, rollback_reason, previous_version_id,
	checks_total, checks_passed_count, checks_warnings, checks_failed, last_completed_step`

func scanDeploy(row interface{ Scan(dest ...any) error }) (*domain.DeployRecord, error) {
	var d domain.DeployRecord
	var estimatedDowntimeNS int64
	if err := row.Scan(&d.ID, &d.ProjectID, &d.ReleaseID, &d.VersionID, &d.SnapshotID, &d.DeployName, &d.Environment, &d.Strategy,
		&d.Status, &d.CreatedAt, &d.StartedAt, &d.CompletedAt, &d.DurationSeconds, &estimatedDowntimeNS, &d.InitiatedBy, &d.ApprovedBy,
		&d.ApprovalCount, &d.ApprovalsRequired, &d.TargetRuntimes, &d.ProgressPercent, &d.ChecksPassed, &d.ErrorMessage, &d.RollbackReason,
		&d.PreviousVersionID, &d.Checks.Total, &d.Checks.Passed, &d.Checks.Warnings, &d.Checks.Failed, &d.LastCompletedStep); err != nil {
		return nil, err
	}
	d.EstimatedDowntime = timeDurationFromNS(estimatedDowntimeNS)
	return &d, nil
}

// CreateDeploy inserts a deployment attempt and its fixed ordered
// safety-check suite within a single transaction.
func (r *Repository) CreateDeploy(ctx context.Context, d *domain.DeployRecord, checks []domain.DeployCheck) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", apperr.ErrIO, err)
	}
	defer tx.Rollback(ctx)

	const query = `INSERT INTO deploys
		(id, project_id, release_id, version_id, snapshot_id, deploy_name, environment, strategy, status, created_at, started_at,
		 completed_at, duration_seconds, estimated_downtime, initiated_by, approved_by, approval_count, approvals_required,
		 target_runtimes, progress_percent, checks_passed, error_message, rollback_reason, previous_version_id,
		 checks_total, checks_passed_count, checks_warnings, checks_failed, last_completed_step)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`
	_, err = tx.Exec(ctx, query, d.ID, d.ProjectID, d.ReleaseID, d.VersionID, d.SnapshotID, d.DeployName, d.Environment, d.Strategy,
		d.Status, d.CreatedAt, d.StartedAt, d.CompletedAt, d.DurationSeconds, int64(d.EstimatedDowntime), d.InitiatedBy, d.ApprovedBy,
		d.ApprovalCount, d.ApprovalsRequired, d.TargetRuntimes, d.ProgressPercent, d.ChecksPassed, d.ErrorMessage, d.RollbackReason,
		d.PreviousVersionID, d.Checks.Total, d.Checks.Passed, d.Checks.Warnings, d.Checks.Failed, d.LastCompletedStep)
	if err != nil {
		return fmt.Errorf("%w: insert deploy: %v", apperr.ErrIO, err)
	}

	if len(checks) > 0 {
		const checkInsert = `INSERT INTO deploy_checks (id, deploy_id, name, type, status, severity, message, details, timing_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		batch := &pgx.Batch{}
		for _, c := range checks {
			details, _ := json.Marshal(c.Details)
			batch.Queue(checkInsert, c.ID, d.ID, c.Name, c.Type, c.Status, c.Severity, c.Message, details, c.Timing.Milliseconds())
		}
		br := tx.SendBatch(ctx, batch)
		for range checks {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("%w: insert deploy check: %v", apperr.ErrIO, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("%w: close batch: %v", apperr.ErrIO, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit deploy: %v", apperr.ErrIO, err)
	}
	return nil
}

// GetDeployByID fetches a deployment attempt by identifier.
func (r *Repository) GetDeployByID(ctx context.Context, id string) (*domain.DeployRecord, error) {
	d, err := scanDeploy(r.pool.QueryRow(ctx, `SELECT `+deployColumns+` FROM deploys WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: deploy %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get deploy: %v", apperr.ErrIO, err)
	}
	return d, nil
}

// ListDeploysByProject returns up to limit deployment attempts for a
// project, newest first.
func (r *Repository) ListDeploysByProject(ctx context.Context, projectID string, limit int) ([]domain.DeployRecord, error) {
	const query = `SELECT ` + deployColumns + ` FROM deploys WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list deploys: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.DeployRecord
	for rows.Next() {
		d, err := scanDeploy(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan deploy: %v", apperr.ErrIO, err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// UpdateDeploy overwrites a deployment's mutable progress and outcome
// fields.
func (r *Repository) UpdateDeploy(ctx context.Context, d *domain.DeployRecord) error {
	const query = `UPDATE deploys SET status = $2, started_at = $3, completed_at = $4, duration_seconds = $5, initiated_by = $6,
		approved_by = $7, approval_count = $8, progress_percent = $9, checks_passed = $10, error_message = $11, rollback_reason = $12,
		checks_total = $13, checks_passed_count = $14, checks_warnings = $15, checks_failed = $16, last_completed_step = $17
		WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, d.ID, d.Status, d.StartedAt, d.CompletedAt, d.DurationSeconds, d.InitiatedBy, d.ApprovedBy,
		d.ApprovalCount, d.ProgressPercent, d.ChecksPassed, d.ErrorMessage, d.RollbackReason, d.Checks.Total, d.Checks.Passed,
		d.Checks.Warnings, d.Checks.Failed, d.LastCompletedStep)
	if err != nil {
		return fmt.Errorf("%w: update deploy: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: deploy %s", apperr.ErrNotFound, d.ID)
	}
	return nil
}

// ListChecks returns a deployment's safety-check results ordered by check
// name.
func (r *Repository) ListChecks(ctx context.Context, deployID string) ([]domain.DeployCheck, error) {
	const query = `SELECT id, deploy_id, name, type, status, severity, message, details, timing_ms FROM deploy_checks WHERE deploy_id = $1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, deployID)
	if err != nil {
		return nil, fmt.Errorf("%w: list checks: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.DeployCheck
	for rows.Next() {
		var c domain.DeployCheck
		var details []byte
		var timingMS int64
		if err := rows.Scan(&c.ID, &c.DeployID, &c.Name, &c.Type, &c.Status, &c.Severity, &c.Message, &details, &timingMS); err != nil {
			return nil, fmt.Errorf("%w: scan check: %v", apperr.ErrIO, err)
		}
		_ = json.Unmarshal(details, &c.Details)
		c.Timing = timeDurationFromMS(timingMS)
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCheck overwrites one safety-check's outcome.
func (r *Repository) UpdateCheck(ctx context.Context, c *domain.DeployCheck) error {
	details, err := json.Marshal(c.Details)
	if err != nil {
		return fmt.Errorf("%w: marshal check details: %v", apperr.ErrValidation, err)
	}
	const query = `UPDATE deploy_checks SET status = $2, severity = $3, message = $4, details = $5, timing_ms = $6 WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, c.ID, c.Status, c.Severity, c.Message, details, c.Timing.Milliseconds())
	if err != nil {
		return fmt.Errorf("%w: update check: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: deploy check %s", apperr.ErrNotFound, c.ID)
	}
	return nil
}

// CreateApprovals inserts a deployment's approval-gate rows in one batch.
func (r *Repository) CreateApprovals(ctx context.Context, approvals []domain.DeployApproval) error {
	if len(approvals) == 0 {
		return nil
	}
	const query = `INSERT INTO deploy_approvals (id, deploy_id, approver_name, approver_role, status, comment, requested_at, responded_at, is_required)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	batch := &pgx.Batch{}
	for _, a := range approvals {
		batch.Queue(query, a.ID, a.DeployID, a.ApproverName, a.ApproverRole, a.Status, a.Comment, a.RequestedAt, a.RespondedAt, a.IsRequired)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range approvals {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%w: insert approval: %v", apperr.ErrIO, err)
		}
	}
	return nil
}

// ListApprovals returns a deployment's approval-gate rows.
func (r *Repository) ListApprovals(ctx context.Context, deployID string) ([]domain.DeployApproval, error) {
	const query = `SELECT id, deploy_id, approver_name, approver_role, status, comment, requested_at, responded_at, is_required
		FROM deploy_approvals WHERE deploy_id = $1 ORDER BY requested_at`
	rows, err := r.pool.Query(ctx, query, deployID)
	if err != nil {
		return nil, fmt.Errorf("%w: list approvals: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.DeployApproval
	for rows.Next() {
		var a domain.DeployApproval
		if err := rows.Scan(&a.ID, &a.DeployID, &a.ApproverName, &a.ApproverRole, &a.Status, &a.Comment, &a.RequestedAt, &a.RespondedAt, &a.IsRequired); err != nil {
			return nil, fmt.Errorf("%w: scan approval: %v", apperr.ErrIO, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecordApprovalResponse records an approver's decision.
func (r *Repository) RecordApprovalResponse(ctx context.Context, approvalID, approverName, status, comment string) error {
	const query = `UPDATE deploy_approvals SET approver_name = $2, status = $3, comment = $4, responded_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, approvalID, approverName, status, comment)
	if err != nil {
		return fmt.Errorf("%w: record approval response: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: deploy approval %s", apperr.ErrNotFound, approvalID)
	}
	return nil
}

// AppendLog appends a structured progress entry.
func (r *Repository) AppendLog(ctx context.Context, l *domain.DeployLog) error {
	const query = `INSERT INTO deploy_logs (id, deploy_id, timestamp, level, message, step) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, l.ID, l.DeployID, l.Timestamp, l.Level, l.Message, l.Step)
	if err != nil {
		return fmt.Errorf("%w: append deploy log: %v", apperr.ErrIO, err)
	}
	return nil
}

// ListLogs returns up to limit progress entries for a deployment, oldest
// first.
func (r *Repository) ListLogs(ctx context.Context, deployID string, limit int) ([]domain.DeployLog, error) {
	const query = `SELECT id, deploy_id, timestamp, level, message, step FROM deploy_logs WHERE deploy_id = $1 ORDER BY timestamp LIMIT $2`
	rows, err := r.pool.Query(ctx, query, deployID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list deploy logs: %v", apperr.ErrIO, err)
	}
	defer rows.Close()

	var out []domain.DeployLog
	for rows.Next() {
		var l domain.DeployLog
		if err := rows.Scan(&l.ID, &l.DeployID, &l.Timestamp, &l.Level, &l.Message, &l.Step); err != nil {
			return nil, fmt.Errorf("%w: scan deploy log: %v", apperr.ErrIO, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateRollback inserts a rollback record.
func (r *Repository) CreateRollback(ctx context.Context, rb *domain.DeployRollback) error {
	const query = `INSERT INTO deploy_rollbacks (id, deploy_id, triggered_by, reason, triggered_at, completed_at, status, is_automatic)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query, rb.ID, rb.DeployID, rb.TriggeredBy, rb.Reason, rb.TriggeredAt, rb.CompletedAt, rb.Status, rb.IsAutomatic)
	if err != nil {
		return fmt.Errorf("%w: insert rollback: %v", apperr.ErrIO, err)
	}
	return nil
}

// UpdateRollback overwrites a rollback's outcome.
func (r *Repository) UpdateRollback(ctx context.Context, rb *domain.DeployRollback) error {
	const query = `UPDATE deploy_rollbacks SET completed_at = $2, status = $3 WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, rb.ID, rb.CompletedAt, rb.Status)
	if err != nil {
		return fmt.Errorf("%w: update rollback: %v", apperr.ErrIO, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: deploy rollback %s", apperr.ErrNotFound, rb.ID)
	}
	return nil
}
