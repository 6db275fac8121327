package actions

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialora/dialora/pkg/protocol"
)

func TestTableInvokesRegisteredAction(t *testing.T) {
	table := NewTable()
	table.Register("echo", func(_ context.Context, inputs map[string]any) (any, error) {
		return inputs["value"], nil
	})

	result, err := table.Invoke(context.Background(), "echo", map[string]any{"value": 42})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestTableUnknownActionError(t *testing.T) {
	table := NewTable()

	_, err := table.Invoke(context.Background(), "missing", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrUnknownAction)
	assert.Contains(t, err.Error(), "missing")
}

func TestTableNamesSorted(t *testing.T) {
	table := NewTable()
	RegisterBuiltins(table)

	assert.Equal(t, []string{"concat", "length", "lowercase", "now", "parseNumber", "randomNumber", "uppercase"}, table.Names())
}

func TestConcatJoinsInputsInNameOrder(t *testing.T) {
	table := NewTable()
	RegisterBuiltins(table)

	result, err := table.Invoke(context.Background(), "concat", map[string]any{
		"b_last":  "World",
		"a_first": "Hello ",
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello World", result)
}

func TestLength(t *testing.T) {
	table := NewTable()
	RegisterBuiltins(table)

	tests := []struct {
		name  string
		value any
		want  int
	}{
		{name: "ascii string", value: "hello", want: 5},
		{name: "unicode string", value: "héllo", want: 5},
		{name: "slice", value: []any{1, 2, 3}, want: 3},
		{name: "map", value: map[string]any{"a": 1}, want: 1},
		{name: "nil", value: nil, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := table.Invoke(context.Background(), "length", map[string]any{"value": tc.value})

			require.NoError(t, err)
			assert.Equal(t, tc.want, result)
		})
	}
}

func TestLengthRejectsNumbers(t *testing.T) {
	table := NewTable()
	RegisterBuiltins(table)

	_, err := table.Invoke(context.Background(), "length", map[string]any{"value": 42})

	require.Error(t, err)
	assert.NotErrorIs(t, err, protocol.ErrUnknownAction)
}

func TestCaseActions(t *testing.T) {
	table := NewTable()
	RegisterBuiltins(table)

	lowered, err := table.Invoke(context.Background(), "lowercase", map[string]any{"value": "HeLLo"})
	require.NoError(t, err)
	assert.Equal(t, "hello", lowered)

	upper, err := table.Invoke(context.Background(), "uppercase", map[string]any{"value": "HeLLo"})
	require.NoError(t, err)
	assert.Equal(t, "HELLO", upper)
}

func TestCaseActionsRequireInput(t *testing.T) {
	table := NewTable()
	RegisterBuiltins(table)

	_, err := table.Invoke(context.Background(), "uppercase", map[string]any{})

	require.Error(t, err)
	assert.ErrorIs(t, err, errNoInput)
}

func TestNowReturnsRFC3339(t *testing.T) {
	table := NewTable()
	RegisterBuiltins(table)

	result, err := table.Invoke(context.Background(), "now", nil)

	require.NoError(t, err)

	stamp, ok := result.(string)
	require.True(t, ok)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`, stamp)
}

func TestRandomNumberHonorsBounds(t *testing.T) {
	table := NewTable()
	RegisterBuiltins(table)

	for range 50 {
		result, err := table.Invoke(context.Background(), "randomNumber", map[string]any{
			"min": 10,
			"max": 12,
		})

		require.NoError(t, err)

		n, ok := result.(int)
		require.True(t, ok)
		assert.GreaterOrEqual(t, n, 10)
		assert.LessOrEqual(t, n, 12)
	}
}

func TestRandomNumberRejectsInvertedBounds(t *testing.T) {
	table := NewTable()
	RegisterBuiltins(table)

	_, err := table.Invoke(context.Background(), "randomNumber", map[string]any{"min": 10, "max": 2})

	require.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	table := NewTable()
	RegisterBuiltins(table)

	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{name: "integer string", value: "42", want: 42},
		{name: "decimal string", value: " 4.5 ", want: 4.5},
		{name: "float passthrough", value: 7.25, want: 7.25},
		{name: "int widened", value: 3, want: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := table.Invoke(context.Background(), "parseNumber", map[string]any{"value": tc.value})

			require.NoError(t, err)
			assert.InDelta(t, tc.want, result, 1e-9)
		})
	}
}

func TestParseNumberRejectsText(t *testing.T) {
	table := NewTable()
	RegisterBuiltins(table)

	_, err := table.Invoke(context.Background(), "parseNumber", map[string]any{"value": "tomorrow"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), strconv.Quote("tomorrow"))
}
