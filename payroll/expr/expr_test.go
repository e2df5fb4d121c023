package expr_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/site-timesheets/payroll/expr"
)

func TestEvaluate_MealAllowance(t *testing.T) {
	// GIVEN: 22 worked days at 10.10 per day
	vars := expr.Vars{"jours_travailles": 22, "montant_unitaire": 10.10}

	// WHEN: evaluating the product
	v, err := expr.Evaluate("jours_travailles * montant_unitaire", vars)

	// THEN: 222.20
	require.NoError(t, err)
	assert.InDelta(t, 222.20, v, 1e-9)
}

func TestEvaluate_Arithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 / 4", 2.5},
		{"7 // 2", 3},
		{"-7 // 2", -4},
		{"7 % 3", 1},
		{"-7 % 3", 2},
		{"7 % -3", -2},
		{"2 ** 3 ** 2", 512},
		{"-2 ** 2", -4},
		{"2 ** -1", 0.5},
		{"--3", 3},
		{"+4", 4},
		{"1e3 / 8", 125},
		{".5 * 4", 2},
		{"min(3, 1, 2)", 1},
		{"max(3, 1, 2)", 3},
		{"abs(-4.5)", 4.5},
		{"int(3.9)", 3},
		{"int(-3.9)", -3},
		{"float(2)", 2},
		{"round(2.5)", 3},
		{"round(-2.5)", -3},
		{"round(3.14159, 2)", 3.14},
		{"round(1234, -2)", 1200},
		{"max(x, 10) * 2", 24},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, err := expr.Evaluate(tt.src, expr.Vars{"x": 12})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, v, 1e-9)
		})
	}
}

func TestEvaluate_RejectsUnsafeConstructs(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"attribute access", "os.system"},
		{"dotted variable", "worker.rate * 2"},
		{"import", "import os"},
		{"dunder import", "__import__('os')"},
		{"dunder name", "__class__"},
		{"lambda", "lambda: 1"},
		{"conditional", "1 if x else 2"},
		{"comprehension", "sum(x for x in y)"},
		{"indexing", "rates[0]"},
		{"string literal", "'abc'"},
		{"assignment", "x = 1"},
		{"comparison", "x == 1"},
		{"non-whitelisted call", "pow(2, 3)"},
		{"floor is not whitelisted", "floor(1.5)"},
		{"ceil is not whitelisted", "ceil(1.5)"},
		{"eval", "eval(1)"},
		{"open", "open(1)"},
		{"call on a parenthesised expression", "(min)(1, 2)"},
		{"call on a number", "3(4)"},
		{"call on a call result", "abs(1)(2)"},
		{"statement separator", "1; 2"},
		{"collection", "{1: 2}"},
		{"empty", "   "},
		{"dangling operator", "1 +"},
		{"unbalanced parenthesis", "(1 + 2"},
		{"stray parenthesis", "1 + 2)"},
		{"missing operator", "1 2"},
		{"malformed number", "1.2.3"},
		{"wrong arity", "abs(1, 2)"},
		{"min with one argument", "min(1)"},
		{"empty call", "max()"},
		{"trailing comma", "max(1, 2,)"},
		{"unicode", "1 × 2"},
		{"too long", strings.Repeat("1+", expr.MaxLength) + "1"},
		{"too deep", strings.Repeat("(", expr.MaxDepth+1) + "1" + strings.Repeat(")", expr.MaxDepth+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := expr.Evaluate(tt.src, expr.Vars{"x": 1, "y": 2})

			var unsafe *expr.UnsafeExpressionError
			require.ErrorAs(t, err, &unsafe)
			assert.ErrorIs(t, err, expr.ErrUnsafeExpression)
			assert.Zero(t, v)
		})
	}
}

func TestEvaluate_UnknownVariable(t *testing.T) {
	v, err := expr.Evaluate("jours_travailles * taux", expr.Vars{"jours_travailles": 22})

	var unknown *expr.UnknownVariableError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "taux", unknown.Name)
	assert.ErrorIs(t, err, expr.ErrUnknownVariable)
	assert.Zero(t, v)
}

func TestEvaluate_ArithmeticErrors(t *testing.T) {
	for _, src := range []string{"1 / 0", "1 // (2 - 2)", "5 % 0", "0 ** -1", "(-8) ** 0.5", "10 ** 400"} {
		t.Run(src, func(t *testing.T) {
			_, err := expr.Evaluate(src, nil)
			assert.ErrorIs(t, err, expr.ErrArithmetic)
		})
	}
}

func TestParse_NamesAndShape(t *testing.T) {
	n, err := expr.Parse("round(distance_km * taux_km, 2) + min(heures_supplementaires, plafond) - taux_km")
	require.NoError(t, err)

	assert.Equal(t, []string{"distance_km", "heures_supplementaires", "plafond", "taux_km"}, expr.Names(n))
	assert.Equal(t, "((round((distance_km * taux_km), 2) + min(heures_supplementaires, plafond)) - taux_km)", n.String())
}

func TestParse_ReusableTree(t *testing.T) {
	// GIVEN: one parsed tree
	n, err := expr.Parse("a * 2")
	require.NoError(t, err)

	// WHEN: evaluated against two contexts
	v1, err1 := expr.Eval(n, expr.Vars{"a": 1})
	v2, err2 := expr.Eval(n, expr.Vars{"a": 5})

	// THEN: results are independent
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, 2.0, v1)
	assert.Equal(t, 10.0, v2)
}
