package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/compiler/parser"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/repository"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/runtime"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/scan"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/logicfile"
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
	return nil, nil
}
func (m *memLogicFileRepo) UpdateLogicFile(ctx context.Context, f *domain.LogicFile) error { return nil }
func (m *memLogicFileRepo) DeleteLogicFile(ctx context.Context, id string) error           { return nil }

var _ repository.LogicFileRepository = (*memLogicFileRepo)(nil)

const testProgram = "PROGRAM Main\nVAR\n  Counter : DINT;\nEND_VAR\nCounter := Counter + 1;\nEND_PROGRAM\n"

func newTestEngine(t *testing.T) *scan.Engine {
	t.Helper()
	prog, err := parser.Parse(testProgram)
	require.NoError(t, err)

	cfg := scan.DefaultConfig()
	var eng *scan.Engine
	rt := runtime.New(func() float64 { return eng.Clock() })
	require.NoError(t, rt.Load(prog))
	eng = scan.New(rt, cfg, nil, nil)
	return eng
}

func newTestService(t *testing.T) (Service, *memLogicFileRepo) {
	t.Helper()
	files := newMemLogicFileRepo()
	svc := New(NewHub(), NewMemoryRateLimiter(), logicfile.New(files, nil), nil, 0, time.Minute)
	return svc, files
}

func TestSetVariableFailsWithoutRegisteredEngine(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.SetVariable(context.Background(), "caller", "missing-project", "Counter", int64(5))
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetVariableSucceedsAgainstRegisteredEngine(t *testing.T) {
	svc, _ := newTestService(t)
	eng := newTestEngine(t)
	svc.RegisterEngine("p1", eng)

	err := svc.SetVariable(context.Background(), "caller", "p1", "Counter", int64(9))
	require.NoError(t, err)
}

func TestRateLimiterBlocksExcessCommandsFromSameCaller(t *testing.T) {
	files := newMemLogicFileRepo()
	svc := New(NewHub(), NewMemoryRateLimiter(), logicfile.New(files, nil), nil, 1, time.Minute)
	eng := newTestEngine(t)
	svc.RegisterEngine("p1", eng)

	require.NoError(t, svc.SetVariable(context.Background(), "caller", "p1", "Counter", int64(1)))
	err := svc.SetVariable(context.Background(), "caller", "p1", "Counter", int64(2))
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestPushLogicRejectsInvalidSyntaxWithoutActivating(t *testing.T) {
	svc, files := newTestService(t)
	bad := &domain.LogicFile{ID: "f1", ProjectID: "p1", Content: "PROGRAM Main\nVAR x :: INT; END_VAR\nEND_PROGRAM\n"}
	require.NoError(t, files.CreateLogicFile(context.Background(), bad))

	result, err := svc.PushLogic(context.Background(), "p1", "f1", TargetShadow)
	require.NoError(t, err)
	require.False(t, result.Validation.IsValid)
	require.False(t, result.Applied)
}

func TestPushLogicToLiveWarnsOnEmergencyReferenceAndTodoMarker(t *testing.T) {
	svc, files := newTestService(t)
	content := "PROGRAM Main\n// TODO: confirm EMERGENCY stop wiring\nEND_PROGRAM\n"
	f := &domain.LogicFile{ID: "f1", ProjectID: "p1", Content: content}
	require.NoError(t, files.CreateLogicFile(context.Background(), f))

	result, err := svc.PushLogic(context.Background(), "p1", "f1", TargetLive)
	require.NoError(t, err)
	require.True(t, result.Validation.IsValid)
	require.True(t, result.Applied)
	require.Len(t, result.Warnings, 2)
}

func TestPushLogicToShadowRecordsNoWarnings(t *testing.T) {
	svc, files := newTestService(t)
	f := &domain.LogicFile{ID: "f1", ProjectID: "p1", Content: testProgram}
	require.NoError(t, files.CreateLogicFile(context.Background(), f))

	result, err := svc.PushLogic(context.Background(), "p1", "f1", TargetShadow)
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.Empty(t, result.Warnings)
}

func TestGetStatusReportsActiveProgramsAfterPush(t *testing.T) {
	svc, files := newTestService(t)
	eng := newTestEngine(t)
	svc.RegisterEngine("p1", eng)
	f := &domain.LogicFile{ID: "f1", ProjectID: "p1", Content: testProgram}
	require.NoError(t, files.CreateLogicFile(context.Background(), f))
	_, err := svc.PushLogic(context.Background(), "p1", "f1", TargetShadow)
	require.NoError(t, err)

	status, err := svc.GetStatus("p1")
	require.NoError(t, err)
	require.Equal(t, "f1", status.ActivePrograms[TargetShadow])
}

type recordingSubscriber struct {
	received chan scan.Event
}

func newRecordingSubscriber() *recordingSubscriber {
	return &recordingSubscriber{received: make(chan scan.Event, 10)}
}

func (r *recordingSubscriber) Send(evt scan.Event) error {
	r.received <- evt
	return nil
}
func (r *recordingSubscriber) Close() {}

func TestStreamTagsReceivesEventsPublishedThroughSink(t *testing.T) {
	svc, _ := newTestService(t)
	sub := newRecordingSubscriber()
	svc.StreamTags("p1", "", sub)

	sink := svc.SinkFor("p1")
	sink.Publish(scan.Event{Type: scan.EventVariableUpdate, Tag: "Counter", Value: int64(1)})

	select {
	case evt := <-sub.received:
		require.Equal(t, "Counter", evt.Tag)
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}
}
