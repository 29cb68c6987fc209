package scan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFaultInjectorLockValueHoldsBaseline(t *testing.T) {
	fi := newFaultInjector()
	cells := map[string]any{"Valve_PV": 10.0}
	read := func(tag string) (any, bool) { v, ok := cells[tag]; return v, ok }
	write := func(tag string, v any) { cells[tag] = v }

	fi.inject(&Fault{ID: "f1", Target: "Valve_PV", Type: FaultLockValue, StartMS: 0, EndMS: 100})

	cells["Valve_PV"] = 55.0 // the program moves it, but the lock should hold
	fi.apply(10, read, write)
	require.Equal(t, 10.0, cells["Valve_PV"])

	cells["Valve_PV"] = 99.0
	fi.apply(20, read, write)
	require.Equal(t, 10.0, cells["Valve_PV"])
}

func TestFaultInjectorForceIOErrorSetsFlag(t *testing.T) {
	fi := newFaultInjector()
	cells := map[string]any{}
	read := func(tag string) (any, bool) { v, ok := cells[tag]; return v, ok }
	write := func(tag string, v any) { cells[tag] = v }

	fi.inject(&Fault{ID: "f1", Target: "Sensor1", Type: FaultForceIOError, StartMS: 0, EndMS: 50})
	fi.apply(10, read, write)
	require.Equal(t, true, cells["Sensor1_ERROR"])

	expired := fi.apply(60, read, write)
	require.Len(t, expired, 1)
	require.Equal(t, false, cells["Sensor1_ERROR"])
	require.Empty(t, fi.active)
}

func TestFaultInjectorReplacesExistingFaultOnSameTarget(t *testing.T) {
	fi := newFaultInjector()
	fi.inject(&Fault{ID: "f1", Target: "T1", Type: FaultLockValue, StartMS: 0, EndMS: 100})
	fi.inject(&Fault{ID: "f2", Target: "T1", Type: FaultValueDrift, StartMS: 0, EndMS: 100})

	active := fi.list()
	require.Len(t, active, 1)
	require.Equal(t, "f2", active[0].ID)
}

func TestFaultInjectorRemove(t *testing.T) {
	fi := newFaultInjector()
	fi.inject(&Fault{ID: "f1", Target: "T1", Type: FaultLockValue, StartMS: 0, EndMS: 100})

	removed, ok := fi.remove("T1")
	require.True(t, ok)
	require.Equal(t, "f1", removed.ID)
	require.Empty(t, fi.active)

	_, ok = fi.remove("T1")
	require.False(t, ok)
}
