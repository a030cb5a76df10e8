// Package rules provides the CEL-Go based claim check engine and the
// evaluators built on it: fraud checks, damage confidence and claim tiering.
package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/ext"
)

// Engine holds one compiled CEL program per check type.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*CompiledCheck
}

// CompiledCheck holds a pre-compiled CEL program.
type CompiledCheck struct {
	RuleType   string
	Expression string
	Program    cel.Program
}

// Facts are the claim values a check expression can read.
type Facts struct {
	DatesKnown       bool
	DaysSinceStart   int
	EarlyClaimWindow int
	LossDescription  string
	YearKnown        bool
	VehicleYear      int
	CurrentYear      int
	HasPhotos        bool
}

func (f Facts) activation() map[string]any {
	return map[string]any{
		"dates_known":        f.DatesKnown,
		"days_since_start":   int64(f.DaysSinceStart),
		"early_claim_window": int64(f.EarlyClaimWindow),
		"loss_description":   f.LossDescription,
		"year_known":         f.YearKnown,
		"vehicle_year":       int64(f.VehicleYear),
		"current_year":       int64(f.CurrentYear),
		"has_photos":         f.HasPhotos,
	}
}

// NewEngine creates a check engine loaded with the built-in checks.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		ext.Strings(),
		cel.Variable("dates_known", cel.BoolType),
		cel.Variable("days_since_start", cel.IntType),
		cel.Variable("early_claim_window", cel.IntType),
		cel.Variable("loss_description", cel.StringType),
		cel.Variable("year_known", cel.BoolType),
		cel.Variable("vehicle_year", cel.IntType),
		cel.Variable("current_year", cel.IntType),
		cel.Variable("has_photos", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{
		env:      env,
		compiled: make(map[string]*CompiledCheck),
	}
	for ruleType, expr := range BuiltinChecks() {
		if err := e.LoadCheck(ruleType, expr); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// LoadCheck compiles expr and registers it for ruleType, replacing any previous check.
func (e *Engine) LoadCheck(ruleType, expr string) error {
	compiled, err := e.compile(ruleType, expr)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.compiled[ruleType] = compiled
	e.mu.Unlock()
	return nil
}

// Check evaluates the check registered for ruleType.
// A missing check or an evaluation error counts as passed.
func (e *Engine) Check(ruleType string, facts Facts) bool {
	e.mu.RLock()
	compiled, ok := e.compiled[ruleType]
	e.mu.RUnlock()
	if !ok {
		return true
	}

	out, _, err := compiled.Program.Eval(facts.activation())
	if err != nil {
		slog.Debug("check evaluation failed", "rule_type", ruleType, "error", err)
		return true
	}

	passed, ok := out.(types.Bool)
	if !ok {
		return true
	}
	return bool(passed)
}

// Checks returns the registered check types in sorted order.
func (e *Engine) Checks() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.compiled))
	for name := range e.compiled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) compile(ruleType, expr string) (*CompiledCheck, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile check %s: %w", ruleType, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("check %s: expression must return bool, got %s", ruleType, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for check %s: %w", ruleType, err)
	}

	return &CompiledCheck{
		RuleType:   ruleType,
		Expression: expr,
		Program:    program,
	}, nil
}
