package rules

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

// operatorExpressions maps each supported operator to the CEL expression that
// implements it. Both sides are bound as strings: actual is the record's
// value, expected is the rule's value.
var operatorExpressions = map[Operator]string{
	OpEquals:      `fold(actual.trim()) == fold(expected.trim())`,
	OpGreaterThan: `num(actual.trim()) > num(expected.trim())`,
	OpLessThan:    `num(actual.trim()) < num(expected.trim())`,
}

// Engine holds one compiled CEL program per operator.
// It is immutable after construction and safe for concurrent use.
type Engine struct {
	env      *cel.Env
	programs map[Operator]cel.Program
}

// NewEngine creates the CEL environment and compiles every operator
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("actual", cel.StringType),
		cel.Variable("expected", cel.StringType),
		ext.Strings(),
		cel.Function("fold",
			cel.Overload("fold_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					s, ok := v.(types.String)
					if !ok {
						return types.NewErr("fold: invalid string value")
					}
					return types.String(strings.ToLower(string(s)))
				}),
			),
		),
		cel.Function("num",
			cel.Overload("num_string", []*cel.Type{cel.StringType}, cel.DoubleType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					s, ok := v.(types.String)
					if !ok {
						return types.NewErr("num: invalid string value")
					}
					f, err := ParseNumber(string(s))
					if err != nil {
						return types.WrapErr(err)
					}
					return types.Double(f)
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	en := &Engine{
		env:      env,
		programs: make(map[Operator]cel.Program, len(operatorExpressions)),
	}
	for op, expr := range operatorExpressions {
		if err := en.compile(op, expr); err != nil {
			return nil, fmt.Errorf("failed to compile operator %s: %w", op, err)
		}
	}

	return en, nil
}

// MustNewEngine is like NewEngine but panics on error
func MustNewEngine() *Engine {
	en, err := NewEngine()
	if err != nil {
		panic(err)
	}
	return en
}

func (en *Engine) compile(op Operator, expression string) error {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("compile error: %w", issues.Err())
	}

	// no cost limit: the expressions are fixed and linear in the cell size
	prog, err := en.env.Program(ast)
	if err != nil {
		return fmt.Errorf("program creation error: %w", err)
	}

	en.programs[op] = prog
	return nil
}

// Supports reports whether the engine knows how to evaluate op
func (en *Engine) Supports(op Operator) bool {
	_, ok := en.programs[op]
	return ok
}

// Evaluate reports whether record satisfies rule.
//
// Rules without a field or operator, unknown operators, and comparisons that
// cannot be carried out (a non-numeric side of greater_than, say) all yield
// false. Evaluate never fails.
func (en *Engine) Evaluate(record Record, rule *Rule) bool {
	if rule == nil || rule.Field == "" || rule.Operator == "" {
		return false
	}

	prog, ok := en.programs[rule.Operator]
	if !ok {
		return false
	}

	// absent columns compare as empty strings
	out, _, err := prog.Eval(map[string]any{
		"actual":   record[rule.Field],
		"expected": rule.Value,
	})
	if err != nil {
		return false
	}

	matched, ok := out.Value().(bool)
	return ok && matched
}

var defaultEngine = sync.OnceValue(MustNewEngine)

// Evaluate reports whether record satisfies rule using a shared engine
func Evaluate(record Record, rule *Rule) bool {
	return defaultEngine().Evaluate(record, rule)
}
