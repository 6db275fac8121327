// Package interpolate resolves {{expr}} placeholders inside node data
// strings against an execution's variable context.
//
// Supported expression forms, in priority order: a ternary
// "cond ? whenTrue : whenFalse", a dotted path "a.b.c", and a plain
// variable name. Anything else, and any placeholder that fails to resolve,
// is left in the output verbatim.
package interpolate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MaxDepth bounds nested resolutions inside a single placeholder, keeping
// ternary chains from recursing without limit.
const MaxDepth = 10

const (
	openMarker  = "{{"
	closeMarker = "}}"
)

// ConditionFunc evaluates a boolean condition against the variable context.
// The engine wires the restricted-grammar evaluator here.
type ConditionFunc func(expression string, variables map[string]any) (bool, error)

// Interpolator renders placeholder templates. Ternary conditions are
// delegated to the condition evaluator; everything else is plain lookup.
type Interpolator struct {
	conditions ConditionFunc
}

// New creates an Interpolator. A nil conditions func makes every ternary
// select its false branch.
func New(conditions ConditionFunc) *Interpolator {
	return &Interpolator{conditions: conditions}
}

// Render replaces every {{expr}} occurrence in template. Unresolvable
// placeholders stay literal, including their original spacing.
func (i *Interpolator) Render(template string, variables map[string]any) string {
	var out strings.Builder

	rest := template

	for {
		start := strings.Index(rest, openMarker)
		if start == -1 {
			out.WriteString(rest)

			return out.String()
		}

		out.WriteString(rest[:start])

		closing := strings.Index(rest[start+len(openMarker):], closeMarker)
		if closing == -1 {
			// No closing marker: the remainder is literal text.
			out.WriteString(rest[start:])

			return out.String()
		}

		tokenEnd := start + len(openMarker) + closing + len(closeMarker)
		token := rest[start:tokenEnd]
		expression := strings.TrimSpace(rest[start+len(openMarker) : tokenEnd-len(closeMarker)])

		if value, ok := i.resolve(expression, variables, 0); ok {
			out.WriteString(stringify(value))
		} else {
			out.WriteString(token)
		}

		rest = rest[tokenEnd:]
	}
}

// Fields returns a deep copy of data with every string leaf rendered.
// Nested maps and slices are walked recursively; non-string values pass
// through untouched.
func (i *Interpolator) Fields(data map[string]any, variables map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = i.walk(value, variables)
	}

	return out
}

func (i *Interpolator) walk(value any, variables map[string]any) any {
	switch typed := value.(type) {
	case string:
		return i.Render(typed, variables)
	case map[string]any:
		nested := make(map[string]any, len(typed))
		for key, item := range typed {
			nested[key] = i.walk(item, variables)
		}

		return nested
	case []any:
		items := make([]any, len(typed))
		for idx, item := range typed {
			items[idx] = i.walk(item, variables)
		}

		return items
	default:
		return typed
	}
}

func (i *Interpolator) resolve(expression string, variables map[string]any, depth int) (any, bool) {
	if depth >= MaxDepth || expression == "" {
		return nil, false
	}

	if cond, whenTrue, whenFalse, ok := splitTernary(expression); ok {
		arm := whenFalse
		if i.conditionTruthy(cond, variables) {
			arm = whenTrue
		}

		return i.resolveArm(arm, variables, depth+1)
	}

	return lookup(expression, variables)
}

// resolveArm interprets one branch of a ternary: a quoted string, a number
// or boolean literal, or another expression form.
func (i *Interpolator) resolveArm(arm string, variables map[string]any, depth int) (any, bool) {
	arm = strings.TrimSpace(arm)

	if literal, ok := unquote(arm); ok {
		return literal, true
	}

	if number, err := strconv.ParseInt(arm, 10, 64); err == nil {
		return number, true
	}

	if number, err := strconv.ParseFloat(arm, 64); err == nil {
		return number, true
	}

	if arm == "true" || arm == "false" {
		return arm == "true", true
	}

	return i.resolve(arm, variables, depth)
}

func (i *Interpolator) conditionTruthy(cond string, variables map[string]any) bool {
	if i.conditions == nil {
		return false
	}

	result, err := i.conditions(cond, variables)
	if err != nil {
		// Undefined or malformed conditions select the false branch.
		return false
	}

	return result
}

// unquote strips one matching pair of single or double quotes.
func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}

	open := s[0]
	if open != '\'' && open != '"' {
		return "", false
	}

	if s[len(s)-1] != open {
		return "", false
	}

	return s[1 : len(s)-1], true
}

// splitTernary splits "cond ? whenTrue : whenFalse" at the top level,
// ignoring markers inside quoted literals. Ternaries nest right:
// "a ? b : c ? d : e" parses as "a ? b : (c ? d : e)".
func splitTernary(expression string) (cond, whenTrue, whenFalse string, ok bool) {
	question := scanFor(expression, '?', 0)
	if question == -1 {
		return "", "", "", false
	}

	rest := expression[question+1:]

	colon := scanFor(rest, ':', 0)
	if colon == -1 {
		return "", "", "", false
	}

	return strings.TrimSpace(expression[:question]),
		strings.TrimSpace(rest[:colon]),
		strings.TrimSpace(rest[colon+1:]),
		true
}

// scanFor finds the index of target outside quotes, skipping over nested
// "?"/":" pairs so the colon matched belongs to the first question mark.
func scanFor(s string, target byte, level int) int {
	var quote byte

	for idx := 0; idx < len(s); idx++ {
		ch := s[idx]

		if quote != 0 {
			if ch == quote {
				quote = 0
			}

			continue
		}

		switch ch {
		case '\'', '"':
			quote = ch
		case target:
			if level == 0 {
				return idx
			}

			if target == ':' {
				level--
			}
		case '?':
			if target == ':' {
				level++
			}
		}
	}

	return -1
}

// lookup resolves a plain name or dotted path against the variables map.
func lookup(path string, variables map[string]any) (any, bool) {
	if variables == nil {
		return nil, false
	}

	if !strings.Contains(path, ".") {
		value, ok := variables[path]

		return value, ok
	}

	var current any = variables

	for _, part := range strings.Split(path, ".") {
		container, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = container[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}

		return string(encoded)
	}
}
