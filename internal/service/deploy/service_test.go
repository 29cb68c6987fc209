package deploy

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

type memDeployRepo struct {
	mu        sync.Mutex
	deploys   map[string]*domain.DeployRecord
	checks    map[string][]domain.DeployCheck
	approvals map[string][]domain.DeployApproval
	logs      map[string][]domain.DeployLog
	rollbacks map[string][]domain.DeployRollback
}

func newMemDeployRepo() *memDeployRepo {
	return &memDeployRepo{
		deploys:   map[string]*domain.DeployRecord{},
		checks:    map[string][]domain.DeployCheck{},
		approvals: map[string][]domain.DeployApproval{},
		logs:      map[string][]domain.DeployLog{},
		rollbacks: map[string][]domain.DeployRollback{},
	}
}

func (m *memDeployRepo) CreateDeploy(ctx context.Context, d *domain.DeployRecord, checks []domain.DeployCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.deploys[d.ID] = &cp
	m.checks[d.ID] = checks
	return nil
}

func (m *memDeployRepo) GetDeployByID(ctx context.Context, id string) (*domain.DeployRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deploys[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDeployRepo) ListDeploysByProject(ctx context.Context, projectID string, limit int) ([]domain.DeployRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DeployRecord
	for _, d := range m.deploys {
		if d.ProjectID == projectID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memDeployRepo) UpdateDeploy(ctx context.Context, d *domain.DeployRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deploys[d.ID]; !ok {
		return apperr.ErrNotFound
	}
	cp := *d
	m.deploys[d.ID] = &cp
	return nil
}

func (m *memDeployRepo) ListChecks(ctx context.Context, deployID string) ([]domain.DeployCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checks[deployID], nil
}

func (m *memDeployRepo) UpdateCheck(ctx context.Context, c *domain.DeployCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.checks[c.DeployID]
	for i := range list {
		if list[i].ID == c.ID {
			list[i] = *c
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (m *memDeployRepo) CreateApprovals(ctx context.Context, approvals []domain.DeployApproval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(approvals) == 0 {
		return nil
	}
	m.approvals[approvals[0].DeployID] = append(m.approvals[approvals[0].DeployID], approvals...)
	return nil
}

func (m *memDeployRepo) ListApprovals(ctx context.Context, deployID string) ([]domain.DeployApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.approvals[deployID], nil
}

func (m *memDeployRepo) RecordApprovalResponse(ctx context.Context, approvalID, approverName, status, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for deployID, list := range m.approvals {
		for i := range list {
			if list[i].ID == approvalID {
				now := time.Now().UTC()
				list[i].ApproverName = approverName
				list[i].Status = status
				list[i].Comment = comment
				list[i].RespondedAt = &now
				m.approvals[deployID] = list
				return nil
			}
		}
	}
	return apperr.ErrNotFound
}

func (m *memDeployRepo) AppendLog(ctx context.Context, l *domain.DeployLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[l.DeployID] = append(m.logs[l.DeployID], *l)
	return nil
}

func (m *memDeployRepo) ListLogs(ctx context.Context, deployID string, limit int) ([]domain.DeployLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logs[deployID], nil
}

func (m *memDeployRepo) CreateRollback(ctx context.Context, rb *domain.DeployRollback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks[rb.DeployID] = append(m.rollbacks[rb.DeployID], *rb)
	return nil
}

func (m *memDeployRepo) UpdateRollback(ctx context.Context, rb *domain.DeployRollback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.rollbacks[rb.DeployID]
	for i := range list {
		if list[i].ID == rb.ID {
			list[i] = *rb
		}
	}
	m.rollbacks[rb.DeployID] = list
	return nil
}

type memReleaseRepoStub struct {
	releases map[string]*domain.Release
}

func newMemReleaseRepoStub() *memReleaseRepoStub {
	return &memReleaseRepoStub{releases: map[string]*domain.Release{}}
}

func (m *memReleaseRepoStub) CreateRelease(ctx context.Context, r *domain.Release) error {
	cp := *r
	m.releases[r.ID] = &cp
	return nil
}

func (m *memReleaseRepoStub) GetReleaseByID(ctx context.Context, id string) (*domain.Release, error) {
	r, ok := m.releases[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memReleaseRepoStub) ListReleasesByProject(ctx context.Context, projectID string) ([]domain.Release, error) {
	var out []domain.Release
	for _, r := range m.releases {
		if r.ProjectID == projectID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memReleaseRepoStub) UpdateReleaseStatus(ctx context.Context, id, status string) error {
	r, ok := m.releases[id]
	if !ok {
		return apperr.ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *memReleaseRepoStub) RecordReleasePromotion(ctx context.Context, releaseID string, promotion domain.ReleasePromotion) error {
	r, ok := m.releases[releaseID]
	if !ok {
		return apperr.ErrNotFound
	}
	r.Promotions = append(r.Promotions, promotion)
	return nil
}

func (m *memReleaseRepoStub) IncrementLinkedDeploys(ctx context.Context, id string, deployedAt domain.ReleasePromotion) error {
	r, ok := m.releases[id]
	if !ok {
		return apperr.ErrNotFound
	}
	r.LinkedDeploys++
	at := deployedAt.PromotedAt
	r.LastDeployedAt = &at
	return nil
}

type memSnapshotRepoStub struct {
	snapshots  map[string]*domain.Snapshot
	promotions map[string][]domain.SnapshotPromotion
}

func newMemSnapshotRepoStub() *memSnapshotRepoStub {
	return &memSnapshotRepoStub{
		snapshots:  map[string]*domain.Snapshot{},
		promotions: map[string][]domain.SnapshotPromotion{},
	}
}

func (m *memSnapshotRepoStub) CreateSnapshot(ctx context.Context, s *domain.Snapshot) error {
	cp := *s
	m.snapshots[s.ID] = &cp
	return nil
}

func (m *memSnapshotRepoStub) GetSnapshotByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	s, ok := m.snapshots[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSnapshotRepoStub) ListSnapshotsByProject(ctx context.Context, projectID string) ([]domain.Snapshot, error) {
	var out []domain.Snapshot
	for _, s := range m.snapshots {
		if s.ProjectID == projectID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSnapshotRepoStub) RecordSnapshotPromotion(ctx context.Context, promotion *domain.SnapshotPromotion) error {
	m.promotions[promotion.SnapshotID] = append(m.promotions[promotion.SnapshotID], *promotion)
	return nil
}

func (m *memSnapshotRepoStub) ListSnapshotPromotions(ctx context.Context, snapshotID string) ([]domain.SnapshotPromotion, error) {
	return m.promotions[snapshotID], nil
}

type stubTagRepo struct {
	tags []domain.Tag
}

func (s stubTagRepo) CreateTag(ctx context.Context, tag *domain.Tag) error { return nil }
func (s stubTagRepo) GetTagByID(ctx context.Context, id string) (*domain.Tag, error) {
	return nil, apperr.ErrNotFound
}
func (s stubTagRepo) GetTagByName(ctx context.Context, projectID, name string) (*domain.Tag, error) {
	return nil, apperr.ErrNotFound
}
func (s stubTagRepo) ListTagsByProject(ctx context.Context, projectID string) ([]domain.Tag, error) {
	return s.tags, nil
}
func (s stubTagRepo) UpdateTag(ctx context.Context, tag *domain.Tag) error { return nil }
func (s stubTagRepo) DeleteTag(ctx context.Context, id string) error      { return nil }

type stubLoaderDeploy struct {
	files map[string][]byte
	err   error
}

func (s stubLoaderDeploy) LoadVersionFiles(ctx context.Context, versionID string) (map[string][]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.files, nil
}

func newTestService(files map[string][]byte, tags []domain.Tag) (Service, *memDeployRepo, *memReleaseRepoStub, *memSnapshotRepoStub) {
	deploys := newMemDeployRepo()
	releases := newMemReleaseRepoStub()
	snapshots := newMemSnapshotRepoStub()
	tagRepo := stubTagRepo{tags: tags}
	loader := stubLoaderDeploy{files: files}
	svc := New(deploys, releases, snapshots, tagRepo, loader, nil)
	return svc, deploys, releases, snapshots
}

func seedRelease(releases *memReleaseRepoStub, id, projectID, snapshotID, versionID string) {
	releases.releases[id] = &domain.Release{
		ID:         id,
		ProjectID:  projectID,
		SnapshotID: snapshotID,
		VersionID:  versionID,
		Status:     domain.ReleaseActive,
	}
}

func TestCreateDeploymentRejectsStagingWithoutPriorQAPromotion(t *testing.T) {
	svc, _, releases, _ := newTestService(nil, nil)
	seedRelease(releases, "rel-1", "proj-1", "snap-1", "ver-1")

	_, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageStaging,
		InitiatedBy: "alice",
	})

	require.ErrorIs(t, err, apperr.ErrPreconditionFailed)
}

func TestCreateDeploymentAllowsStagingAfterQAPromotion(t *testing.T) {
	svc, _, releases, snapshots := newTestService(nil, nil)
	seedRelease(releases, "rel-1", "proj-1", "snap-1", "ver-1")
	snapshots.promotions["snap-1"] = []domain.SnapshotPromotion{
		{SnapshotID: "snap-1", FromStage: domain.StageDev, ToStage: domain.StageQA},
	}

	record, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageStaging,
		InitiatedBy: "alice",
	})

	require.NoError(t, err)
	require.Equal(t, 1, record.ApprovalsRequired)
	require.True(t, record.ChecksPassed)
}

func TestCreateDeploymentIntoDevRequiresNoApprovals(t *testing.T) {
	svc, deploys, releases, _ := newTestService(nil, nil)
	seedRelease(releases, "rel-1", "proj-1", "", "ver-1")

	record, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageDev,
		InitiatedBy: "alice",
	})

	require.NoError(t, err)
	require.Equal(t, 0, record.ApprovalsRequired)
	require.Empty(t, deploys.approvals[record.ID])
}

func TestCreateDeploymentIntoProductionRequestsTwoRoles(t *testing.T) {
	svc, deploys, releases, snapshots := newTestService(nil, nil)
	seedRelease(releases, "rel-1", "proj-1", "snap-1", "ver-1")
	snapshots.promotions["snap-1"] = []domain.SnapshotPromotion{
		{SnapshotID: "snap-1", FromStage: domain.StageQA, ToStage: domain.StageStaging},
	}

	record, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageProd,
		InitiatedBy: "alice",
	})

	require.NoError(t, err)
	require.Equal(t, 2, record.ApprovalsRequired)
	approvals := deploys.approvals[record.ID]
	require.Len(t, approvals, 2)
	require.ElementsMatch(t, []string{domain.RoleSafetyEngineer, domain.RoleLeadDeveloper},
		[]string{approvals[0].ApproverRole, approvals[1].ApproverRole})
}

func TestCreateDeploymentFailsChecksOnParseError(t *testing.T) {
	files := map[string][]byte{"main.st": []byte("this is not valid structured text {{{")}
	svc, _, releases, _ := newTestService(files, nil)
	seedRelease(releases, "rel-1", "proj-1", "", "ver-1")

	record, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageDev,
		InitiatedBy: "alice",
	})

	require.NoError(t, err)
	require.False(t, record.ChecksPassed)
	require.Equal(t, 1, record.Checks.Failed)
}

func TestCreateDeploymentFailsOnDuplicateIOAddress(t *testing.T) {
	tags := []domain.Tag{
		{Name: "Motor1", VendorAddr: "%IX0.0"},
		{Name: "Motor2", VendorAddr: "%IX0.0"},
	}
	svc, _, releases, _ := newTestService(nil, tags)
	seedRelease(releases, "rel-1", "proj-1", "", "ver-1")

	record, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageDev,
		InitiatedBy: "alice",
	})

	require.NoError(t, err)
	require.False(t, record.ChecksPassed)
}

func TestStartDeploymentRequiresChecksAndApprovals(t *testing.T) {
	svc, _, releases, snapshots := newTestService(nil, nil)
	seedRelease(releases, "rel-1", "proj-1", "snap-1", "ver-1")
	snapshots.promotions["snap-1"] = []domain.SnapshotPromotion{
		{SnapshotID: "snap-1", ToStage: domain.StageQA},
	}

	record, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageStaging,
		InitiatedBy: "alice",
	})
	require.NoError(t, err)

	err = svc.StartDeployment(context.Background(), record.ID)
	require.ErrorIs(t, err, apperr.ErrPreconditionFailed)
}

func TestRerunChecksSucceedsAfterFixingInputAndStartSucceeds(t *testing.T) {
	deploys := newMemDeployRepo()
	releases := newMemReleaseRepoStub()
	snapshots := newMemSnapshotRepoStub()
	loader := &stubLoaderDeploy{files: map[string][]byte{"main.st": []byte("this is not valid structured text {{{")}}
	svc := New(deploys, releases, snapshots, stubTagRepo{}, loader, nil)
	seedRelease(releases, "rel-1", "proj-1", "", "ver-1")

	record, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageDev,
		InitiatedBy: "alice",
	})
	require.NoError(t, err)
	require.False(t, record.ChecksPassed)
	require.Equal(t, 1, record.Checks.Failed)

	err = svc.StartDeployment(context.Background(), record.ID)
	require.ErrorIs(t, err, apperr.ErrPreconditionFailed)

	loader.files = map[string][]byte{"main.st": []byte("PROGRAM Main\nEND_PROGRAM\n")}

	rechecked, err := svc.RerunChecks(context.Background(), record.ID)
	require.NoError(t, err)
	require.True(t, rechecked.ChecksPassed)
	require.Equal(t, 0, rechecked.Checks.Failed)

	err = svc.StartDeployment(context.Background(), record.ID)
	require.NoError(t, err)

	final := deploys.deploys[record.ID]
	require.Equal(t, domain.DeploySuccess, final.Status)
	require.NotNil(t, final.CompletedAt)
	require.NotNil(t, final.DurationSeconds)
}

func TestStartDeploymentRunsToSuccessWhenNoApprovalIsRequired(t *testing.T) {
	svc, deploys, releases, _ := newTestService(nil, nil)
	seedRelease(releases, "rel-1", "proj-1", "", "ver-1")

	record, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageDev,
		InitiatedBy: "alice",
	})
	require.NoError(t, err)

	err = svc.StartDeployment(context.Background(), record.ID)
	require.NoError(t, err)

	final := deploys.deploys[record.ID]
	require.Equal(t, domain.DeploySuccess, final.Status)
	require.Equal(t, 100, final.ProgressPercent)
	require.NotNil(t, final.CompletedAt)
	require.NotNil(t, final.DurationSeconds)
	require.Len(t, deploys.logs[record.ID], len(domain.RolloutSteps))
}

func TestStartDeploymentTriggersAutomaticRollbackOnFailedHealthCheck(t *testing.T) {
	// A valid program padded with an oversized comment: it parses cleanly
	// (so the critical checks pass and StartDeployment's gate lets it
	// through) but trips the File Size Validation warning, which is what
	// fails the independent post-deploy health probe.
	oversizedComment := "// " + strings.Repeat("x", maxSafeFileSize+1) + "\n"
	files := map[string][]byte{"main.st": []byte("PROGRAM Foo\nEND_PROGRAM\n" + oversizedComment)}
	svc, deploys, releases, snapshots := newTestService(files, nil)
	seedRelease(releases, "rel-1", "proj-1", "snap-1", "ver-prev")
	snapshots.promotions["snap-1"] = []domain.SnapshotPromotion{{SnapshotID: "snap-1", ToStage: domain.StageQA}}

	deploys.deploys["earlier"] = &domain.DeployRecord{
		ID:          "earlier",
		ProjectID:   "proj-1",
		Environment: domain.StageStaging,
		Status:      domain.DeploySuccess,
		VersionID:   "ver-0",
		CompletedAt: timePtr(time.Now().UTC().Add(-time.Hour)),
	}

	record, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageStaging,
		InitiatedBy: "alice",
	})
	require.NoError(t, err)
	require.True(t, record.ChecksPassed)
	require.Greater(t, record.Checks.Warnings, 0)
	require.NotNil(t, record.PreviousVersionID)

	require.NoError(t, svc.SubmitApproval(context.Background(), record.ID, deploys.approvals[record.ID][0].ID, "ops", domain.ApprovalApproved, ""))

	err = svc.StartDeployment(context.Background(), record.ID)
	require.NoError(t, err)

	final := deploys.deploys[record.ID]
	require.Equal(t, domain.DeployRolledBack, final.Status)
	require.Equal(t, "Health checks failed", final.RollbackReason)
	require.Len(t, deploys.rollbacks[record.ID], 1)
	require.Equal(t, domain.RollbackSuccess, deploys.rollbacks[record.ID][0].Status)
}

func TestSubmitApprovalRecountsApprovalCountAndApprover(t *testing.T) {
	svc, deploys, releases, snapshots := newTestService(nil, nil)
	seedRelease(releases, "rel-1", "proj-1", "snap-1", "ver-1")
	snapshots.promotions["snap-1"] = []domain.SnapshotPromotion{{SnapshotID: "snap-1", ToStage: domain.StageQA}}

	record, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageStaging,
		InitiatedBy: "alice",
	})
	require.NoError(t, err)
	approvalID := deploys.approvals[record.ID][0].ID

	err = svc.SubmitApproval(context.Background(), record.ID, approvalID, "ops-bob", domain.ApprovalApproved, "looks fine")
	require.NoError(t, err)

	updated := deploys.deploys[record.ID]
	require.Equal(t, 1, updated.ApprovalCount)
	require.Equal(t, "ops-bob", updated.ApprovedBy)
}

func TestPauseAndResumeDeploymentReentersAfterLastCompletedStep(t *testing.T) {
	svc, deploys, releases, _ := newTestService(nil, nil)
	seedRelease(releases, "rel-1", "proj-1", "", "ver-1")

	record, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageDev,
		InitiatedBy: "alice",
	})
	require.NoError(t, err)

	stored := deploys.deploys[record.ID]
	stored.Status = domain.DeployRunning
	stored.LastCompletedStep = "upload"
	stored.ProgressPercent = 40
	started := time.Now().UTC()
	stored.StartedAt = &started

	require.NoError(t, svc.PauseDeployment(context.Background(), record.ID))
	require.Equal(t, domain.DeployPaused, deploys.deploys[record.ID].Status)

	require.NoError(t, svc.ResumeDeployment(context.Background(), record.ID))

	final := deploys.deploys[record.ID]
	require.Equal(t, domain.DeploySuccess, final.Status)
	for _, l := range deploys.logs[record.ID] {
		if l.Message == "deployment paused" {
			continue // the pause entry is filed under the step it paused after
		}
		require.NotEqual(t, "validation", l.Step)
		require.NotEqual(t, "backup", l.Step)
		require.NotEqual(t, "upload", l.Step)
	}
}

func TestExecuteRollbackRequiresPreviousVersion(t *testing.T) {
	svc, deploys, releases, _ := newTestService(nil, nil)
	seedRelease(releases, "rel-1", "proj-1", "", "ver-1")

	record, err := svc.CreateDeployment(context.Background(), CreateDeploymentInput{
		ProjectID:   "proj-1",
		ReleaseID:   "rel-1",
		Environment: domain.StageDev,
		InitiatedBy: "alice",
	})
	require.NoError(t, err)
	require.Nil(t, record.PreviousVersionID)

	err = svc.ExecuteRollback(context.Background(), record.ID, "alice", "manual revert", false)
	require.ErrorIs(t, err, apperr.ErrPreconditionFailed)
	_, exists := deploys.rollbacks[record.ID]
	require.False(t, exists || len(deploys.rollbacks[record.ID]) > 0)
}

func timePtr(t time.Time) *time.Time { return &t }
