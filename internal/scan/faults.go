package scan

import (
	"sort"
	"time"
)

// Fault type identifiers from spec.md §4.4.
const (
	FaultValueDrift   = "VALUE_DRIFT"
	FaultLockValue    = "LOCK_VALUE"
	FaultForceIOError = "FORCE_IO_ERROR"
)

// Fault is one active fault injection targeting a tag.
type Fault struct {
	ID        string
	Target    string
	Type      string
	Parameter float64
	StartMS   float64
	EndMS     float64

	// lockedValue/lastUpdate/driftValue carry the per-kind state needed to
	// apply the fault on each subsequent cycle.
	lockedValue any
	lastUpdate  float64
	driftValue  float64
	activated   bool
}

// InjectFaultRequest describes a pending fault activation, optionally
// deferred by DelayMS relative to the moment it is queued.
type InjectFaultRequest struct {
	ID          string
	Target      string
	Type        string
	Parameter   float64
	DurationMS  float64
	DelayMS     float64
}

// FaultEvent records an activation or expiry for the fault history log.
type FaultEvent struct {
	Fault    Fault
	Action   string // "activated" | "expired" | "removed"
	AtMS     float64
	WallTime time.Time
}

// faultInjector owns the active-fault table, keyed by target tag name so
// that only one fault may be active on a tag at once; a new injection on
// the same target replaces whatever fault was already active there,
// regardless of kind.
type faultInjector struct {
	active  map[string]*Fault // key: target
	history []FaultEvent
}

func newFaultInjector() *faultInjector {
	return &faultInjector{active: map[string]*Fault{}}
}

func (fi *faultInjector) inject(f *Fault) {
	fi.active[f.Target] = f
	fi.history = append(fi.history, FaultEvent{Fault: *f, Action: "activated", AtMS: f.StartMS})
}

func (fi *faultInjector) remove(target string) (Fault, bool) {
	f, ok := fi.active[target]
	if !ok {
		return Fault{}, false
	}
	delete(fi.active, target)
	fi.history = append(fi.history, FaultEvent{Fault: *f, Action: "removed"})
	return *f, true
}

// list returns the currently active faults sorted by target name, for
// deterministic iteration in callers/tests.
func (fi *faultInjector) list() []Fault {
	out := make([]Fault, 0, len(fi.active))
	for _, f := range fi.active {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// apply runs one cycle of fault application against the runtime accessor
// functions supplied by the engine, expiring faults whose EndMS has
// passed.
func (fi *faultInjector) apply(nowMS float64, read func(string) (any, bool), write func(string, any)) []FaultEvent {
	var expired []FaultEvent
	for target, f := range fi.active {
		if nowMS >= f.EndMS {
			if f.Type == FaultForceIOError {
				write(target+"_ERROR", false)
			}
			expired = append(expired, FaultEvent{Fault: *f, Action: "expired", AtMS: nowMS})
			delete(fi.active, target)
			continue
		}

		switch f.Type {
		case FaultValueDrift:
			if !f.activated {
				cur, ok := read(target)
				if ok {
					f.driftValue = toF(cur)
				}
				f.lastUpdate = nowMS
				f.activated = true
			}
			elapsedS := (nowMS - f.lastUpdate) / 1000
			f.driftValue += f.Parameter * elapsedS
			f.lastUpdate = nowMS
			write(target, f.driftValue)
		case FaultLockValue:
			if !f.activated {
				cur, ok := read(target)
				if ok {
					f.lockedValue = cur
				}
				f.activated = true
			}
			write(target, f.lockedValue)
		case FaultForceIOError:
			write(target+"_ERROR", true)
		}
	}
	fi.history = append(fi.history, expired...)
	return expired
}

func toF(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
}
