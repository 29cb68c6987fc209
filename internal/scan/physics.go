package scan

// PhysicsRule nudges one process variable from another each cycle,
// modeling a simple first-order plant response. spec.md §4.3 step 7 calls
// these "illustrative" and says implementations may make the table
// data-driven; DefaultPhysicsRules below encodes the two named pairings.
type PhysicsRule struct {
	Name    string
	PV      string // process variable tag to update
	Driver  string // driving tag read each cycle
	Apply   func(pv, driver float64) float64
	ClampLo float64
	ClampHi float64
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DefaultPhysicsRules returns the two pairings named in spec.md §4.3.
func DefaultPhysicsRules() []PhysicsRule {
	return []PhysicsRule{
		{
			Name:   "temperature",
			PV:     "Temperature_PV",
			Driver: "Heater_Output",
			Apply: func(pv, heater float64) float64 {
				return clamp(pv+(heater/100)*0.3-0.05, 0, 150)
			},
			ClampLo: 0,
			ClampHi: 150,
		},
		{
			Name:   "tank_level",
			PV:     "Tank_Level",
			Driver: "Pump_Run",
			Apply: func(pv, pumpRun float64) float64 {
				run := 0.0
				if pumpRun != 0 {
					run = 0.5
				}
				return clamp(pv+run-0.15, 0, 100)
			},
			ClampLo: 0,
			ClampHi: 100,
		},
	}
}
