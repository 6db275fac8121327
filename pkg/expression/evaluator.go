// Package expression evaluates the restricted boolean expression grammar
// used by condition nodes and connection branches.
//
// The grammar is fixed: variable references (optionally dotted), string,
// number and boolean literals, the comparison operators ==, !=, <, <=, >,
// >=, the logical operators &&, || and !, and a single whitelisted function
// includes(haystack, needle). Everything else is rejected before
// compilation, so user-authored conditions can never reach arbitrary code.
package expression

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// ErrInvalidExpression is returned when an expression falls outside the
// supported grammar.
var ErrInvalidExpression = errors.New("expression outside the supported grammar")

var allowedBinaryOperators = map[string]struct{}{
	"==": {}, "!=": {},
	"<": {}, "<=": {}, ">": {}, ">=": {},
	"&&": {}, "||": {},
}

// identifierPattern pins variable references to plain names, keeping the
// parser's special identifiers (such as $env) out of the grammar.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Evaluator compiles and runs grammar-checked expressions, caching compiled
// programs by source text.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewEvaluator creates an Evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Parse checks that the expression stays inside the supported grammar
// without evaluating it. The validator uses this on connection conditions.
func (e *Evaluator) Parse(expression string) error {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}

	tree, err := parser.Parse(expression)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	visitor := &grammarVisitor{}
	ast.Walk(&tree.Node, visitor)

	if visitor.err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExpression, visitor.err)
	}

	return nil
}

// Evaluate runs the expression against the variable context and coerces the
// result to a boolean. Grammar violations return ErrInvalidExpression;
// runtime lookups that cannot complete (comparisons against undefined
// variables) evaluate to false rather than failing the caller.
func (e *Evaluator) Evaluate(expression string, variables map[string]any) (bool, error) {
	program, err := e.getOrCompile(expression)
	if err != nil {
		return false, err
	}

	if variables == nil {
		variables = map[string]any{}
	}

	output, err := vm.Run(program, variables)
	if err != nil {
		return false, nil
	}

	return Truthy(output), nil
}

func (e *Evaluator) getOrCompile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[expression]
	e.mu.RUnlock()

	if ok {
		return program, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok = e.cache[expression]; ok {
		return program, nil
	}

	if err := e.Parse(expression); err != nil {
		return nil, err
	}

	program, err := expr.Compile(strings.TrimSpace(expression),
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.Function("includes", includes),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	e.cache[expression] = program

	return program, nil
}

// grammarVisitor rejects every AST construct outside the fixed grammar.
type grammarVisitor struct {
	err error
}

func (v *grammarVisitor) Visit(node *ast.Node) {
	if v.err != nil {
		return
	}

	switch typed := (*node).(type) {
	case *ast.IdentifierNode:
		if !identifierPattern.MatchString(typed.Value) {
			v.err = fmt.Errorf("identifier %q not allowed", typed.Value)
		}
	case *ast.StringNode, *ast.IntegerNode, *ast.FloatNode, *ast.BoolNode:
	case *ast.UnaryNode:
		if typed.Operator != "!" {
			v.err = fmt.Errorf("unary operator %q not allowed", typed.Operator)
		}
	case *ast.BinaryNode:
		if _, ok := allowedBinaryOperators[typed.Operator]; !ok {
			v.err = fmt.Errorf("operator %q not allowed", typed.Operator)
		}
	case *ast.MemberNode:
		property, ok := typed.Property.(*ast.StringNode)
		if !ok {
			v.err = errors.New("only dotted member access is allowed")

			return
		}

		if property.Value == "" {
			v.err = errors.New("empty member name")
		}
	case *ast.CallNode:
		callee, ok := typed.Callee.(*ast.IdentifierNode)
		if !ok || callee.Value != "includes" {
			v.err = errors.New("only the includes function may be called")

			return
		}

		if len(typed.Arguments) != 2 {
			v.err = fmt.Errorf("includes takes 2 arguments, got %d", len(typed.Arguments))

			return
		}

		switch typed.Arguments[0].(type) {
		case *ast.IdentifierNode, *ast.MemberNode:
		default:
			v.err = errors.New("includes haystack must be a variable reference")

			return
		}

		switch typed.Arguments[1].(type) {
		case *ast.StringNode, *ast.IntegerNode, *ast.FloatNode, *ast.BoolNode:
		default:
			v.err = errors.New("includes needle must be a literal")
		}
	default:
		v.err = fmt.Errorf("construct %T not allowed", typed)
	}
}

// includes reports substring containment for strings and membership for
// slices.
func includes(params ...any) (any, error) {
	if len(params) != 2 {
		return false, fmt.Errorf("includes takes 2 arguments, got %d", len(params))
	}

	haystack, needle := params[0], params[1]

	switch typed := haystack.(type) {
	case string:
		needleText, ok := needle.(string)
		if !ok {
			return false, nil
		}

		return strings.Contains(typed, needleText), nil
	case []string:
		for _, item := range typed {
			if equalLoose(item, needle) {
				return true, nil
			}
		}
	case []any:
		for _, item := range typed {
			if equalLoose(item, needle) {
				return true, nil
			}
		}
	}

	return false, nil
}

// equalLoose compares values across the numeric types JSON decoding and the
// expression compiler produce.
func equalLoose(a, b any) bool {
	if aNum, aOK := toFloat(a); aOK {
		if bNum, bOK := toFloat(b); bOK {
			return aNum == bNum
		}

		return false
	}

	return a == b
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	default:
		return 0, false
	}
}

// Truthy coerces a value to a boolean: false, zero, empty string and empty
// collections are false, everything else true.
func Truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0
	case []any:
		return len(typed) > 0
	case []string:
		return len(typed) > 0
	case map[string]any:
		return len(typed) > 0
	default:
		return true
	}
}
