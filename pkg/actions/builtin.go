package actions

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Built-in actions receive their inputs keyed by variable name. Actions that
// take a single value use the first input in variable-name order, concat
// joins all of them in that order.
//
// RegisterBuiltins installs the default action set on the table.
func RegisterBuiltins(t *Table) {
	t.Register("concat", concatAction)
	t.Register("length", lengthAction)
	t.Register("lowercase", lowercaseAction)
	t.Register("uppercase", uppercaseAction)
	t.Register("now", nowAction)
	t.Register("randomNumber", randomNumberAction)
	t.Register("parseNumber", parseNumberAction)
}

var errNoInput = errors.New("requires at least one input variable")

func sortedValues(inputs map[string]any) []any {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}

	sort.Strings(names)

	values := make([]any, 0, len(names))
	for _, name := range names {
		values = append(values, inputs[name])
	}

	return values
}

func firstValue(inputs map[string]any) (any, error) {
	values := sortedValues(inputs)
	if len(values) == 0 {
		return nil, errNoInput
	}

	return values[0], nil
}

func asString(value any) string {
	if value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}

func concatAction(_ context.Context, inputs map[string]any) (any, error) {
	var builder strings.Builder
	for _, value := range sortedValues(inputs) {
		builder.WriteString(asString(value))
	}

	return builder.String(), nil
}

func lengthAction(_ context.Context, inputs map[string]any) (any, error) {
	value, err := firstValue(inputs)
	if err != nil {
		return nil, fmt.Errorf("length: %w", err)
	}

	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		return utf8.RuneCountInString(v), nil
	case []any:
		return len(v), nil
	case []string:
		return len(v), nil
	case map[string]any:
		return len(v), nil
	default:
		return nil, fmt.Errorf("length: unsupported type %T", value)
	}
}

func lowercaseAction(_ context.Context, inputs map[string]any) (any, error) {
	value, err := firstValue(inputs)
	if err != nil {
		return nil, fmt.Errorf("lowercase: %w", err)
	}

	return strings.ToLower(asString(value)), nil
}

func uppercaseAction(_ context.Context, inputs map[string]any) (any, error) {
	value, err := firstValue(inputs)
	if err != nil {
		return nil, fmt.Errorf("uppercase: %w", err)
	}

	return strings.ToUpper(asString(value)), nil
}

func nowAction(_ context.Context, _ map[string]any) (any, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}

// randomNumberAction returns an integer in [min, max], bounds taken from the
// "min" and "max" inputs when present, defaulting to [0, 100].
func randomNumberAction(_ context.Context, inputs map[string]any) (any, error) {
	lower, upper := 0, 100

	if value, ok := inputs["min"]; ok {
		parsed, err := asInt(value)
		if err != nil {
			return nil, fmt.Errorf("randomNumber: min: %w", err)
		}

		lower = parsed
	}

	if value, ok := inputs["max"]; ok {
		parsed, err := asInt(value)
		if err != nil {
			return nil, fmt.Errorf("randomNumber: max: %w", err)
		}

		upper = parsed
	}

	if upper < lower {
		return nil, fmt.Errorf("randomNumber: max %d is below min %d", upper, lower)
	}

	return lower + rand.IntN(upper-lower+1), nil
}

func parseNumberAction(_ context.Context, inputs map[string]any) (any, error) {
	value, err := firstValue(inputs)
	if err != nil {
		return nil, fmt.Errorf("parseNumber: %w", err)
	}

	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("parseNumber: %q is not a number", v)
		}

		return parsed, nil
	default:
		return nil, fmt.Errorf("parseNumber: unsupported type %T", value)
	}
}

func asInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v)
		}

		return parsed, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
