package runtime

// Built-in function-block type names.
const (
	FBTon    = "TON"
	FBToff   = "TOF"
	FBTp     = "TP"
	FBRTrig  = "R_TRIG"
	FBFTrig  = "F_TRIG"
)

// dispatchFB applies one cycle's worth of input to a function-block
// instance, per spec.md §4.2: timer blocks accept IN/PT and return
// {Q, ET}; edge-trigger blocks accept the clock signal and return
// {Q=rising|falling}.
func (r *Runtime) dispatchFB(fb *FBInstance, args map[string]any) error {
	switch fb.FBType {
	case FBTon:
		r.stepTON(fb, args)
	case FBToff:
		r.stepTOF(fb, args)
	case FBTp:
		r.stepTP(fb, args)
	case FBRTrig:
		r.stepRTrig(fb, args)
	case FBFTrig:
		r.stepFTrig(fb, args)
	default:
		// User-defined / unrecognised block: record the call's keyword
		// arguments verbatim so callers can read them back, but leave
		// Q/ET untouched since there is no built-in semantics for them.
		for k, v := range args {
			if k == "" {
				continue
			}
			fb.Fields[k] = v
		}
	}
	return nil
}

func (r *Runtime) stepTON(fb *FBInstance, args map[string]any) {
	in := toBool(args["IN"])
	pt := toFloat(args["PT"])
	now := r.clock()

	if in {
		if !fb.running {
			fb.running = true
			fb.activeAt = now
		}
		fb.ET = now - fb.activeAt
		if fb.ET > pt {
			fb.ET = pt
		}
		fb.Q = fb.ET >= pt
	} else {
		fb.running = false
		fb.ET = 0
		fb.Q = false
	}
}

func (r *Runtime) stepTOF(fb *FBInstance, args map[string]any) {
	in := toBool(args["IN"])
	pt := toFloat(args["PT"])
	now := r.clock()

	if in {
		fb.running = false
		fb.ET = 0
		fb.Q = true
		return
	}
	// IN has gone false: start (or continue) the off-delay countdown.
	if !fb.running {
		fb.running = true
		fb.activeAt = now
		fb.Q = true
	}
	fb.ET = now - fb.activeAt
	if fb.ET > pt {
		fb.ET = pt
	}
	if fb.ET >= pt {
		fb.Q = false
	}
}

func (r *Runtime) stepTP(fb *FBInstance, args map[string]any) {
	in := toBool(args["IN"])
	pt := toFloat(args["PT"])
	now := r.clock()

	rising := in && fb.haveLastIn && !fb.prevIn
	if !fb.haveLastIn {
		rising = in
	}
	if rising && !fb.pulsing {
		fb.pulsing = true
		fb.activeAt = now
	}
	if fb.pulsing {
		fb.ET = now - fb.activeAt
		if fb.ET >= pt {
			fb.ET = pt
			fb.pulsing = false
			fb.Q = false
		} else {
			fb.Q = true
		}
	}
	fb.prevIn = in
	fb.haveLastIn = true
}

func (r *Runtime) stepRTrig(fb *FBInstance, args map[string]any) {
	clk := toBool(args["CLK"])
	fb.Q = fb.haveLastIn && clk && !fb.prevIn
	if !fb.haveLastIn {
		fb.Q = false
	}
	fb.prevIn = clk
	fb.haveLastIn = true
}

func (r *Runtime) stepFTrig(fb *FBInstance, args map[string]any) {
	clk := toBool(args["CLK"])
	fb.Q = fb.haveLastIn && !clk && fb.prevIn
	if !fb.haveLastIn {
		fb.Q = false
	}
	fb.prevIn = clk
	fb.haveLastIn = true
}
