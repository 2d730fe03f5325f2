package match

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/weftlabs/weft/internal/ir"
)

// WhereEvaluator evaluates where-clause predicates with CEL. Expressions
// reference bound variables through the top-level `bound` map, e.g.
//
//	bound.role == "admin" && bound.count >= 3
//
// Programs are compiled once per expression and cached.
type WhereEvaluator struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewWhereEvaluator builds the CEL environment.
func NewWhereEvaluator() (*WhereEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("bound", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &WhereEvaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Eval evaluates an expression over a binding set. The empty expression is
// vacuously true. Non-boolean results are an error.
func (e *WhereEvaluator) Eval(expr string, bindings ir.Object) (bool, error) {
	if expr == "" {
		return true, nil
	}

	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]any{
		"bound": bindings.ToMap(),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate where-clause: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("where-clause did not evaluate to bool: %T", out.Value())
	}
	return result, nil
}

// program returns the cached program for an expression, compiling on miss.
func (e *WhereEvaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile where-clause %q: %w", expr, issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build where-clause program: %w", err)
	}

	e.mu.Lock()
	e.programs[expr] = prg
	e.mu.Unlock()
	return prg, nil
}
