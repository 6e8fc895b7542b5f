// Package expr implements the engine's restricted expression language: a
// safe, deterministic subset of boolean/value expressions evaluated over a
// named scope, with no arbitrary code execution and no I/O. It is built on
// top of github.com/google/cel-go, which already supplies the comparison,
// logical, arithmetic and string operators the language needs; this
// package adds the `exists`/`empty` existence predicates and exposes a
// fixed `state.data` / `state.metadata` / `result` scope.
package expr

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// ErrInvalidExpression is returned for parse or type-check failures. It is
// distinct from a runtime evaluation failure (missing identifier, guard
// that throws), which callers of EvaluateBool should treat as false per
// the Conditional Router's guard semantics.
var ErrInvalidExpression = fmt.Errorf("expr: invalid expression")

// Scope is the named environment an expression evaluates against: the
// current workflow state's data and metadata, plus the previous node's
// result.
type Scope struct {
	Data       map[string]any
	Metadata   map[string]string
	PrevResult map[string]any
}

func (s Scope) asVars() map[string]any {
	meta := make(map[string]any, len(s.Metadata))
	for k, v := range s.Metadata {
		meta[k] = v
	}
	return map[string]any{
		"state": map[string]any{
			"data":     s.Data,
			"metadata": meta,
		},
		"result": s.PrevResult,
	}
}

// Evaluator compiles and runs expressions against a Scope. It caches
// compiled programs by expression text so the common case of re-evaluating
// the same guard across many thread steps avoids re-parsing.
type Evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// New builds an Evaluator with the engine's expression grammar: CEL's
// built-in comparison, logical, arithmetic, `in`, `matches`,
// `contains`/`startsWith`/`endsWith` operators, plus `exists(x)` and
// `empty(x)` existence predicates.
func New() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("state", cel.DynType),
		cel.Variable("result", cel.DynType),
		cel.Function("exists",
			cel.Overload("exists_dyn", []*cel.Type{cel.DynType}, cel.BoolType,
				cel.UnaryBinding(existsImpl)),
		),
		cel.Function("empty",
			cel.Overload("empty_dyn", []*cel.Type{cel.DynType}, cel.BoolType,
				cel.UnaryBinding(emptyImpl)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("expr: building CEL environment: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

func existsImpl(val ref.Val) ref.Val {
	if val == nil {
		return types.False
	}
	if _, isErr := val.(*types.Err); isErr {
		return types.False
	}
	if val.Type() == types.NullType {
		return types.False
	}
	return types.True
}

func emptyImpl(val ref.Val) ref.Val {
	if val == nil {
		return types.True
	}
	switch v := val.(type) {
	case types.String:
		return types.Bool(len(string(v)) == 0)
	case traits.Sizer:
		return types.Bool(v.Size() == types.IntZero)
	case *types.Err:
		return types.True
	default:
		return types.False
	}
}

func (e *Evaluator) compile(exprText string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[exprText]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(exprText)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidExpression, exprText, iss.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidExpression, exprText, err)
	}

	e.mu.Lock()
	e.programs[exprText] = prg
	e.mu.Unlock()
	return prg, nil
}

// Evaluate parses (or reuses a cached parse of) exprText, evaluates it
// against scope, and returns the result value. Parse/type-check failures
// return ErrInvalidExpression; runtime failures (e.g. a missing field
// treated as strict by CEL) return the underlying evaluation error
// unwrapped.
func (e *Evaluator) Evaluate(exprText string, scope Scope) (any, error) {
	prg, err := e.compile(exprText)
	if err != nil {
		return nil, err
	}
	out, _, err := prg.Eval(scope.asVars())
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

// EvaluateBool evaluates exprText as a guard. Per the Conditional Router's
// algorithm, a missing/invalid expression or a guard that throws at
// runtime is treated as false, not propagated as an error; only an empty
// expression is treated as unconditionally true (no guard).
func (e *Evaluator) EvaluateBool(exprText string, scope Scope) bool {
	if exprText == "" {
		return true
	}
	val, err := e.Evaluate(exprText, scope)
	if err != nil {
		return false
	}
	b, ok := val.(bool)
	return ok && b
}
