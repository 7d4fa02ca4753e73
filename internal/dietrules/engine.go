// Package dietrules provides the CEL-Go based diet filter engine.
//
// Each user may store a single CEL expression describing which foods fit
// their diet. Expressions see one food at a time through flat variables
// (category, calories, protein, ...) and must evaluate to a boolean.
package dietrules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/openmealplan/mealplanner/internal/domain"
)

// Engine compiles and evaluates diet filter expressions.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	programs map[string]cel.Program
}

// NewEngine creates a new diet filter engine.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("calories", cel.DoubleType),
		cel.Variable("protein", cel.DoubleType),
		cel.Variable("carbs", cel.DoubleType),
		cel.Variable("fat", cel.DoubleType),
		cel.Variable("fiber", cel.DoubleType),
		cel.Variable("serving_size", cel.DoubleType),
		cel.Variable("unit", cel.StringType),
		cel.Variable("non_inflammatory", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Validate compiles an expression without caching it. Used when a user
// saves a new diet filter, so malformed expressions are rejected up front.
func (e *Engine) Validate(expr string) error {
	if expr == "" {
		return nil
	}
	_, err := e.compile(expr)
	return err
}

// Matches reports whether a food satisfies the filter expression.
// An empty expression matches every food.
func (e *Engine) Matches(expr string, food *domain.Food) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if food == nil {
		return false, fmt.Errorf("food is required")
	}

	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(activation(food))
	if err != nil {
		return false, fmt.Errorf("evaluation error: %w", err)
	}

	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("filter must evaluate to a boolean, got %s", out.Type().TypeName())
	}

	return bool(b), nil
}

// Filter returns the subset of foods that satisfy the expression,
// preserving order.
func (e *Engine) Filter(expr string, foods []*domain.Food) ([]*domain.Food, error) {
	if expr == "" {
		return foods, nil
	}

	matched := make([]*domain.Food, 0, len(foods))
	for _, food := range foods {
		ok, err := e.Matches(expr, food)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, food)
		}
	}
	return matched, nil
}

// program returns a cached compiled program, compiling on first use.
func (e *Engine) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	prg, err := e.compile(expr)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[expr] = prg
	e.mu.Unlock()

	return prg, nil
}

func (e *Engine) compile(expr string) (cel.Program, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter must evaluate to a boolean, got %s", ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build program: %w", err)
	}

	return prg, nil
}

// activation maps a food onto the flat CEL variable set.
func activation(food *domain.Food) map[string]any {
	return map[string]any{
		"name":             food.Name,
		"category":         string(food.Category),
		"calories":         food.Calories,
		"protein":          food.Protein,
		"carbs":            food.Carbs,
		"fat":              food.Fat,
		"fiber":            food.Fiber,
		"serving_size":     food.ServingSize,
		"unit":             food.Unit,
		"non_inflammatory": food.NonInflammatory,
	}
}
