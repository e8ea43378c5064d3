package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// ProgramPool caches compiled check expressions.
type ProgramPool struct {
	mu       sync.RWMutex
	programs map[string]cel.Program
	env      *cel.Env
}

// NewProgramPool creates a pool backed by NewEnvironment.
func NewProgramPool() (*ProgramPool, error) {
	env, err := NewEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create environment: %w", err)
	}
	return NewProgramPoolWithEnv(env)
}

// NewProgramPoolWithEnv creates a pool with a custom CEL environment.
func NewProgramPoolWithEnv(env *cel.Env) (*ProgramPool, error) {
	if env == nil {
		return nil, fmt.Errorf("CEL environment cannot be nil")
	}
	return &ProgramPool{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Program retrieves or compiles expr. Expressions must produce a bool, or a
// dyn value that is checked at evaluation time.
func (p *ProgramPool) Program(expr string) (cel.Program, error) {
	p.mu.RLock()
	if program, ok := p.programs[expr]; ok {
		p.mu.RUnlock()
		return program, nil
	}
	p.mu.RUnlock()

	ast, issues := p.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile check '%s': %w", expr, issues.Err())
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("check '%s' must evaluate to bool, not %s", expr, out)
	}

	program, err := p.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for '%s': %w", expr, err)
	}

	p.mu.Lock()
	p.programs[expr] = program
	p.mu.Unlock()
	return program, nil
}

// Len returns the number of cached programs.
func (p *ProgramPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.programs)
}

// Eval runs program against vars and requires a bool result.
func (p *ProgramPool) Eval(program cel.Program, vars map[string]any) (bool, error) {
	val, _, err := program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("expression evaluation error: %w", err)
	}
	b, ok := val.(types.Bool)
	if !ok {
		return false, fmt.Errorf("expression returned %s, not bool", val.Type())
	}
	return bool(b), nil
}
