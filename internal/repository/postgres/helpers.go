package postgres

import "time"

func timeDurationFromNS(ns int64) time.Duration {
	return time.Duration(ns)
}

func timeDurationFromMS(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
