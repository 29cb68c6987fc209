package scan

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/runtime"
)

// Engine drives a runtime.Runtime at a fixed interval, implementing the
// seven-step tick described in spec.md §4.3. A tick is atomic: external
// readers and the event sink only ever observe state between ticks.
type Engine struct {
	rt      *runtime.Runtime
	cfg     Config
	sink    Sink
	metrics *Metrics
	physics []PhysicsRule

	faults *faultInjector
	inbox  *latencyQueue
	outbox *latencyQueue

	mu        sync.Mutex
	nowMS     float64
	scanCount int64
	paused    bool
	stopped   bool
	pending   []func()

	scheduled []*Fault
}

// New constructs an Engine over rt using cfg. A nil sink discards events; a
// nil metrics disables Prometheus publication.
func New(rt *runtime.Runtime, cfg Config, sink Sink, metrics *Metrics) *Engine {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Engine{
		rt:      rt,
		cfg:     cfg,
		sink:    sink,
		metrics: metrics,
		physics: DefaultPhysicsRules(),
		faults:  newFaultInjector(),
		inbox:   newLatencyQueue(float64(cfg.IOLatencyBase.Milliseconds()), float64(cfg.IOLatencyJitter.Microseconds())/1000, rand.New(rand.NewSource(1))),
		outbox:  newLatencyQueue(float64(cfg.IOLatencyBase.Milliseconds()), float64(cfg.IOLatencyJitter.Microseconds())/1000, rand.New(rand.NewSource(2))),
	}
}

// Clock returns the engine's current logical time in milliseconds, for use
// as the runtime.Clock passed to runtime.New. It takes no lock: the runtime
// reads its clock only while Tick already holds the engine's lock.
func (e *Engine) Clock() float64 {
	return e.nowMS
}

// isOutputName reports whether tag follows the output naming convention of
// spec.md §4.3 step 6.
func isOutputName(tag string) bool {
	return strings.HasPrefix(tag, "Output") || strings.HasSuffix(tag, "_OUT") || strings.Contains(tag, "OUTPUT")
}

func (e *Engine) enqueue(fn func()) {
	e.mu.Lock()
	e.pending = append(e.pending, fn)
	e.mu.Unlock()
}

// SetVariable queues an external write. Non-output tags are routed through
// the inbound I/O latency queue so producers and the runtime observe a
// consistent, maturation-delayed ordering; writes to an output tag are
// recorded on the outbound queue instead of mutating the live cell,
// matching spec.md §4.10.
func (e *Engine) SetVariable(tag string, value any) {
	e.enqueue(func() {
		if isOutputName(tag) {
			e.outbox.enqueue(tag, value, e.nowMS)
			return
		}
		e.inbox.enqueue(tag, value, e.nowMS)
	})
}

// InjectFault queues a fault activation; req.DelayMS defers the fault's
// effective start relative to the moment the command is processed.
func (e *Engine) InjectFault(req InjectFaultRequest) {
	e.enqueue(func() {
		start := e.nowMS + req.DelayMS
		f := &Fault{
			ID:        req.ID,
			Target:    req.Target,
			Type:      req.Type,
			Parameter: req.Parameter,
			StartMS:   start,
			EndMS:     start + req.DurationMS,
		}
		if req.DelayMS > 0 {
			e.scheduled = append(e.scheduled, f)
			return
		}
		e.faults.inject(f)
	})
}

// RemoveFault queues removal of any active fault on target.
func (e *Engine) RemoveFault(target string) {
	e.enqueue(func() {
		e.faults.remove(target)
	})
}

// Pause suspends scheduling without tearing down engine state.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

// Resume restarts scheduling from the next period.
func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
}

// Stop requests the run loop exit at the next cycle boundary.
func (e *Engine) Stop() {
	e.enqueue(func() {
		e.stopped = true
	})
}

// Reset tears down runtime variable cells and FB instances, per spec.md
// §5. The compiled program, fault history, and scan counter are retained.
func (e *Engine) Reset() {
	e.enqueue(func() {
		_ = e.rt.Reset()
		e.faults.active = map[string]*Fault{}
		e.inbox.entries = nil
		e.outbox.entries = nil
	})
}

// Paused reports whether the engine is currently paused.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Stopped reports whether the engine's run loop has exited.
func (e *Engine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// ScanCount returns the number of completed ticks.
func (e *Engine) ScanCount() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scanCount
}

// ActiveFaults returns a snapshot of the currently active fault set.
func (e *Engine) ActiveFaults() []Fault {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.faults.list()
}

// SnapshotVariables returns a point-in-time copy of every runtime cell.
func (e *Engine) SnapshotVariables() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rt.SnapshotVariables()
}

// Run drives the engine on cfg.ScanTime until Stop takes effect or stop is
// closed. It
// never overlaps ticks: Go's time.Ticker drops a tick if the previous
// callback has not returned, matching spec.md §4.3's scheduling model.
func (e *Engine) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(e.cfg.ScanTime)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if e.Paused() {
				continue
			}
			e.Tick()
			if e.Stopped() {
				return
			}
		}
	}
}

// StepOnce runs exactly one tick synchronously and returns, for step-mode
// operation and deterministic tests.
func (e *Engine) StepOnce() {
	e.Tick()
}

// Tick executes the full seven-step cycle described in spec.md §4.3.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	e.drainPendingLocked()
	e.activateScheduledLocked()

	// Step 1: publish system variables.
	e.nowMS += float64(e.cfg.ScanTime.Milliseconds())
	_ = e.rt.WriteVariable("ScanTime_ms", float64(e.cfg.ScanTime.Milliseconds()))
	_ = e.rt.WriteVariable("ScanCount", e.scanCount)

	// Step 2: process the I/O latency inbox.
	for _, entry := range e.inbox.drainMature(e.nowMS) {
		_ = e.rt.WriteVariable(entry.tag, entry.value)
	}

	// Step 3: apply active fault injections.
	e.faults.apply(e.nowMS,
		func(tag string) (any, bool) {
			v, err := e.rt.ReadVariable(tag)
			return v, err == nil
		},
		func(tag string, value any) {
			_ = e.rt.WriteVariable(tag, value)
		},
	)

	// Step 4: execute the program once, watchdog-timed.
	diags := e.rt.Cycle()
	elapsed := time.Since(start)
	if elapsed > e.cfg.WatchdogLimit {
		e.sink.Publish(Event{
			Type:      EventFaultStatus,
			Timestamp: time.Now(),
			ScanCount: e.scanCount,
			Extra:     map[string]any{"fault": "WATCHDOG_TIMEOUT", "elapsedMs": elapsed.Milliseconds()},
		})
		if e.metrics != nil {
			e.metrics.watchdogTotal.Inc()
		}
	}
	for _, d := range diags {
		e.sink.Publish(Event{Type: EventFaultStatus, Timestamp: time.Now(), ScanCount: e.scanCount, Extra: map[string]any{"diagnostic": d.Message}})
	}

	// Step 5: integer overflow wrap.
	e.wrapOverflows()

	// Step 6: queue outbound I/O.
	for _, name := range e.rt.CellNames() {
		if !isOutputName(name) {
			continue
		}
		cell, ok := e.rt.Cell(name)
		if !ok {
			continue
		}
		e.outbox.enqueue(name, cell.Value, e.nowMS)
	}

	// Step 7: physics post-pass.
	e.applyPhysics()

	e.roundNumericCells()

	e.scanCount++
	if e.metrics != nil {
		e.metrics.tickTotal.Inc()
		e.metrics.tickDuration.Observe(elapsed.Seconds())
		e.metrics.faultActiveGauge.Set(float64(len(e.faults.active)))
	}
	e.publishVariableEvents()
}

func (e *Engine) drainPendingLocked() {
	pending := e.pending
	e.pending = nil
	for _, fn := range pending {
		fn()
	}
}

func (e *Engine) activateScheduledLocked() {
	if len(e.scheduled) == 0 {
		return
	}
	var remaining []*Fault
	for _, f := range e.scheduled {
		if e.nowMS >= f.StartMS {
			e.faults.inject(f)
			continue
		}
		remaining = append(remaining, f)
	}
	e.scheduled = remaining
}

// wrapOverflows implements spec.md §4.3 step 5: wrap integer cells outside
// the configured range, recording exactly one diagnostic per offending
// cycle per cell.
func (e *Engine) wrapOverflows() {
	lo, hi := e.cfg.IntMin, e.cfg.IntMax
	for _, name := range e.rt.CellNames() {
		cell, ok := e.rt.Cell(name)
		if !ok {
			continue
		}
		bounds := [2]int64{lo, hi}
		if cell.Type == "DINT" && e.cfg.WideOverflow {
			bounds = [2]int64{e.cfg.DIntMin, e.cfg.DIntMax}
		}
		iv, ok := cell.Value.(int64)
		if !ok {
			continue
		}
		if iv >= bounds[0] && iv <= bounds[1] {
			continue
		}
		span := bounds[1] - bounds[0] + 1
		wrapped := bounds[0] + ((iv-bounds[0])%span+span)%span
		cell.Value = wrapped
		if e.metrics != nil {
			e.metrics.overflowTotal.Inc()
		}
		e.sink.Publish(Event{
			Type:      EventFaultStatus,
			Timestamp: time.Now(),
			ScanCount: e.scanCount,
			Extra:     map[string]any{"fault": "INT_OVERFLOW", "tag": name},
		})
	}
}

func (e *Engine) applyPhysics() {
	for _, rule := range e.physics {
		pv, ok := e.rt.Cell(rule.PV)
		if !ok {
			continue
		}
		driverVal, err := e.rt.ReadVariable(rule.Driver)
		if err != nil {
			continue
		}
		next := rule.Apply(toF(pv.Value), toF(driverVal))
		pv.Value = clamp(next, rule.ClampLo, rule.ClampHi)
	}
}

// roundNumericCells rounds every REAL/LREAL/TIME cell to two decimal
// places, per spec.md §4.3: "All writes from engine into runtime round
// numeric values to two decimal places to suppress accumulated FP drift."
func (e *Engine) roundNumericCells() {
	for _, name := range e.rt.CellNames() {
		cell, ok := e.rt.Cell(name)
		if !ok {
			continue
		}
		if fv, ok := cell.Value.(float64); ok {
			cell.Value = math.Round(fv*100) / 100
		}
	}
}

func (e *Engine) publishVariableEvents() {
	for name, value := range e.rt.SnapshotVariables() {
		e.sink.Publish(Event{Type: EventVariableUpdate, Tag: name, Value: value, Timestamp: time.Now(), ScanCount: e.scanCount})
	}
}
