package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/scan"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/service/logicfile"
)

// Logic push targets, per spec.md §4.10.
const (
	TargetShadow = "shadow"
	TargetLive   = "live"
)

var (
	errProjectIDRequired = fmt.Errorf("%w: project id required", apperr.ErrValidation)
	errUnknownProject     = fmt.Errorf("%w: no engine registered for project", apperr.ErrNotFound)
	errUnknownTarget      = fmt.Errorf("%w: target must be shadow or live", apperr.ErrValidation)
	errRateLimited        = fmt.Errorf("%w: command rate limit exceeded", apperr.ErrConflict)
)

const maxSafeLogicSize = 1 << 20 // 1 MiB, matching the deployment pipeline's file-size gate

// PushLogicResult reports the outcome of a pushLogic call.
type PushLogicResult struct {
	Validation logicfile.ValidationResult
	Warnings   []string
	Applied    bool
}

// Status summarizes a project's running engine for sync.* "get status".
type Status struct {
	ScanCount     int64
	Paused        bool
	Stopped       bool
	ActiveFaults  []scan.Fault
	ActivePrograms map[string]string
}

// Service implements spec.md §4.10's command surface over a registry of
// per-project scan engines, serialising every write through the engine's
// own command queue (scan.Engine.enqueue) rather than mutating runtime
// state directly.
type Service struct {
	hub     *Hub
	limiter RateLimiter
	logic   logicfile.Service
	logger  *slog.Logger

	limit  int
	window time.Duration

	mu      sync.RWMutex
	engines map[string]*scan.Engine
	active  map[string]map[string]string // projectID -> target -> logicFileID
}

// New constructs a command service. limit/window bound the weighted budget
// a single caller key may spend per window: setVariable costs
// WeightSetVariable and injectFault/removeFault cost WeightFault;
// limit<=0 disables rate limiting.
func New(hub *Hub, limiter RateLimiter, logic logicfile.Service, logger *slog.Logger, limit int, window time.Duration) Service {
	return Service{
		hub:     hub,
		limiter: limiter,
		logic:   logic,
		logger:  logger,
		limit:   limit,
		window:  window,
		engines: make(map[string]*scan.Engine),
		active:  make(map[string]map[string]string),
	}
}

// RegisterEngine attaches a running engine to a project so commands and
// status queries can reach it. Its events reach streamTags subscribers
// only if the engine was constructed with SinkFor(projectID) as its sink.
func (s *Service) RegisterEngine(projectID string, eng *scan.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engines[projectID] = eng
}

// UnregisterEngine detaches a project's engine, e.g. on project deletion.
func (s *Service) UnregisterEngine(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.engines, projectID)
	delete(s.active, projectID)
}

func (s *Service) engine(projectID string) (*scan.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eng, ok := s.engines[projectID]
	if !ok {
		return nil, errUnknownProject
	}
	return eng, nil
}

func (s *Service) allow(callerKey string, weight int) error {
	if s.limiter == nil || s.limit <= 0 {
		return nil
	}
	if !s.limiter.Allow(callerKey, weight, s.limit, s.window).Allowed {
		return errRateLimited
	}
	return nil
}

// SetVariable writes a value into a project's runtime per spec.md §4.10;
// the engine itself decides whether the write lands directly or is queued
// through the outbound latency outbox for an output tag.
func (s *Service) SetVariable(ctx context.Context, callerKey, projectID, tag string, value any) error {
	if err := s.allow(callerKey, WeightSetVariable); err != nil {
		return err
	}
	eng, err := s.engine(projectID)
	if err != nil {
		return err
	}
	eng.SetVariable(tag, value)
	return nil
}

// InjectFault queues a fault activation on a project's engine.
func (s *Service) InjectFault(ctx context.Context, callerKey, projectID string, req scan.InjectFaultRequest) error {
	if err := s.allow(callerKey, WeightFault); err != nil {
		return err
	}
	eng, err := s.engine(projectID)
	if err != nil {
		return err
	}
	eng.InjectFault(req)
	return nil
}

// RemoveFault queues removal of any active fault on target.
func (s *Service) RemoveFault(ctx context.Context, callerKey, projectID, target string) error {
	if err := s.allow(callerKey, WeightFault); err != nil {
		return err
	}
	eng, err := s.engine(projectID)
	if err != nil {
		return err
	}
	eng.RemoveFault(target)
	return nil
}

// PushLogic validates a logic file syntactically and, only if valid,
// records it as the target's active program. Live pushes additionally
// collect advisory warnings without blocking the push, per spec.md
// §4.10: an emergency-system reference, an oversized source, or an
// unresolved TODO/FIXME marker.
func (s *Service) PushLogic(ctx context.Context, projectID, logicFileID, target string) (PushLogicResult, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return PushLogicResult{}, errProjectIDRequired
	}
	if target != TargetShadow && target != TargetLive {
		return PushLogicResult{}, errUnknownTarget
	}

	file, err := s.logic.GetLogicFile(ctx, logicFileID)
	if err != nil {
		return PushLogicResult{}, err
	}

	result := PushLogicResult{Validation: s.logic.Validate(file.Content, file.Vendor)}
	if !result.Validation.IsValid {
		return result, nil
	}

	if target == TargetLive {
		result.Warnings = livePushWarnings(file.Content)
	}

	s.mu.Lock()
	if _, ok := s.active[projectID]; !ok {
		s.active[projectID] = map[string]string{}
	}
	s.active[projectID][target] = logicFileID
	s.mu.Unlock()

	result.Applied = true
	return result, nil
}

func livePushWarnings(content string) []string {
	var warnings []string
	if len(content) > maxSafeLogicSize {
		warnings = append(warnings, fmt.Sprintf("source exceeds %d bytes", maxSafeLogicSize))
	}
	upper := strings.ToUpper(content)
	for _, marker := range []string{"EMERGENCY", "E_STOP", "ESTOP"} {
		if strings.Contains(upper, marker) {
			warnings = append(warnings, "references an emergency system tag or routine")
			break
		}
	}
	if strings.Contains(upper, "TODO") || strings.Contains(upper, "FIXME") {
		warnings = append(warnings, "contains an unresolved TODO/FIXME marker")
	}
	return warnings
}

// StreamTags subscribes client to a project's event feed. An empty tag
// subscribes to every tag in the project.
func (s *Service) StreamTags(projectID, tag string, client Subscriber) {
	s.hub.Subscribe(projectID, tag, client)
}

// StopStreamingTags unsubscribes client from a topic it previously joined.
func (s *Service) StopStreamingTags(projectID, tag string, client Subscriber) {
	s.hub.Unsubscribe(projectID, tag, client)
}

// SinkFor returns the scan.Sink a newly constructed engine should be
// given so its events reach this service's hub.
func (s *Service) SinkFor(projectID string) scan.Sink {
	return s.hub.SinkFor(projectID)
}

// GetStatus reports a project's engine state and active logic targets.
func (s *Service) GetStatus(projectID string) (Status, error) {
	eng, err := s.engine(projectID)
	if err != nil {
		return Status{}, err
	}
	s.mu.RLock()
	programs := make(map[string]string, len(s.active[projectID]))
	for target, id := range s.active[projectID] {
		programs[target] = id
	}
	s.mu.RUnlock()

	return Status{
		ScanCount:      eng.ScanCount(),
		Paused:         eng.Paused(),
		Stopped:        eng.Stopped(),
		ActiveFaults:   eng.ActiveFaults(),
		ActivePrograms: programs,
	}, nil
}
