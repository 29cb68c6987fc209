// Package rules evaluates CEL expressions attached to tags: alarm
// conditions (Tag.AlarmExpr) and ad-hoc validation rules used by tag bulk
// operations. Compiled programs are cached by expression text since the
// same alarm/rule expression is typically re-evaluated on every scan tick
// or bulk preview.
package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/apperr"
	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/domain"
)

// Evaluator compiles and caches CEL programs over a tag's value and
// thresholds.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]cel.Program
	env   *cel.Env
}

// New constructs an Evaluator with the fixed variable set every rule
// expression is compiled against: value, low, high, critical.
func New() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DynType),
		cel.Variable("low", cel.DynType),
		cel.Variable("high", cel.DynType),
		cel.Variable("critical", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: build cel env: %v", apperr.ErrIO, err)
	}
	return &Evaluator{env: env, cache: make(map[string]cel.Program)}, nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: compile rule %q: %v", apperr.ErrValidation, expr, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: build program for %q: %v", apperr.ErrValidation, expr, err)
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()
	return prg, nil
}

func activation(t domain.Tag) map[string]any {
	vars := map[string]any{"value": t.Value}
	if t.Alarms.Low != nil {
		vars["low"] = *t.Alarms.Low
	} else {
		vars["low"] = nil
	}
	if t.Alarms.High != nil {
		vars["high"] = *t.Alarms.High
	} else {
		vars["high"] = nil
	}
	if t.Alarms.Critical != nil {
		vars["critical"] = *t.Alarms.Critical
	} else {
		vars["critical"] = nil
	}
	return vars
}

// EvaluateAlarm runs a tag's AlarmExpr against its current value and
// thresholds. A tag with no AlarmExpr never alarms.
func (e *Evaluator) EvaluateAlarm(t domain.Tag) (bool, error) {
	return e.EvaluateBool(t.AlarmExpr, t)
}

// EvaluateBool runs an arbitrary boolean validation rule (spec.md §6
// tag.* "validation rules") against a tag's current value and thresholds.
func (e *Evaluator) EvaluateBool(expr string, t domain.Tag) (bool, error) {
	if expr == "" {
		return false, nil
	}
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(activation(t))
	if err != nil {
		return false, fmt.Errorf("%w: evaluate rule %q: %v", apperr.ErrValidation, expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: rule %q did not evaluate to a boolean", apperr.ErrValidation, expr)
	}
	return result, nil
}
