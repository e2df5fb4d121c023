/*
Package expr is the sandboxed arithmetic interpreter behind pay formulas.

PURPOSE:
  Administrators write formulas such as

      jours_travailles * montant_unitaire
      min(heures_supplementaires, 10) * taux + round(distance_km * 0.32, 2)

  and the engine evaluates them against values derived from timesheets.
  The only observable effect of an accepted expression is a number.

WHAT IS ACCEPTED:
  numeric literals, variable names, unary + and -, binary + - * / // % **,
  and calls to min, max, round, abs, int and float.

WHAT IS REJECTED (UnsafeExpressionError):
  attribute access, indexing, strings, assignment, comparison, reserved
  words (import, lambda, if, for, ...), dunder names, calls to anything
  outside the whitelist, calls on non-names, malformed input, input longer
  than MaxLength and nesting deeper than MaxDepth.

SEMANTICS:
  Arithmetic runs in float64. "//" floors, "%" takes the sign of the
  divisor, round rounds half away from zero. Division or modulo by zero
  and non-finite results fail with ArithmeticError. Unknown names fail
  with UnknownVariableError.

SEE ALSO:
  - payroll/formula.go: merges context and parameters, rounds to cents
*/
package expr

import (
	"math"

	"github.com/shopspring/decimal"
)

// Vars maps variable names to values.
type Vars map[string]float64

// Evaluate parses and evaluates src in one step.
func Evaluate(src string, vars Vars) (float64, error) {
	n, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return Eval(n, vars)
}

// Eval walks a tree produced by Parse.
func Eval(n Node, vars Vars) (float64, error) {
	v, err := eval(n, vars)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ArithmeticError{Op: "result", Reason: "not a finite number"}
	}
	return v, nil
}

func eval(n Node, vars Vars) (float64, error) {
	switch n := n.(type) {
	case Number:
		return n.Value, nil

	case Name:
		v, ok := vars[n.Ident]
		if !ok {
			return 0, &UnknownVariableError{Name: n.Ident}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &ArithmeticError{Op: n.Ident, Reason: "not a finite number"}
		}
		return v, nil

	case Unary:
		v, err := eval(n.Operand, vars)
		if err != nil {
			return 0, err
		}
		if n.Op == "-" {
			return -v, nil
		}
		return v, nil

	case Binary:
		l, err := eval(n.Left, vars)
		if err != nil {
			return 0, err
		}
		r, err := eval(n.Right, vars)
		if err != nil {
			return 0, err
		}
		return binary(n.Op, l, r)

	case Call:
		args := make([]float64, len(n.Args))
		for i, a := range n.Args {
			v, err := eval(a, vars)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return call(n.Func, args)

	default:
		return 0, unsafe(0, "unsupported node %T", n)
	}
}

func binary(op string, l, r float64) (float64, error) {
	var v float64
	switch op {
	case "+":
		v = l + r
	case "-":
		v = l - r
	case "*":
		v = l * r
	case "/":
		if r == 0 {
			return 0, &ArithmeticError{Op: op, Reason: "division by zero"}
		}
		v = l / r
	case "//":
		if r == 0 {
			return 0, &ArithmeticError{Op: op, Reason: "division by zero"}
		}
		v = math.Floor(l / r)
	case "%":
		if r == 0 {
			return 0, &ArithmeticError{Op: op, Reason: "modulo by zero"}
		}
		v = math.Mod(l, r)
		if v != 0 && (v < 0) != (r < 0) {
			v += r
		}
	case "**":
		if l == 0 && r < 0 {
			return 0, &ArithmeticError{Op: op, Reason: "zero raised to a negative power"}
		}
		v = math.Pow(l, r)
	default:
		return 0, unsafe(0, "unsupported operator %q", op)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ArithmeticError{Op: op, Reason: "not a finite number"}
	}
	return v, nil
}

func call(fn string, args []float64) (float64, error) {
	switch fn {
	case "min":
		v := args[0]
		for _, a := range args[1:] {
			v = math.Min(v, a)
		}
		return v, nil
	case "max":
		v := args[0]
		for _, a := range args[1:] {
			v = math.Max(v, a)
		}
		return v, nil
	case "abs":
		return math.Abs(args[0]), nil
	case "int":
		return math.Trunc(args[0]), nil
	case "float":
		return args[0], nil
	case "round":
		places := 0.0
		if len(args) == 2 {
			places = args[1]
			if places != math.Trunc(places) {
				return 0, &ArithmeticError{Op: "round", Reason: "digits must be an integer"}
			}
			places = math.Max(-maxRoundPlaces, math.Min(maxRoundPlaces, places))
		}
		return RoundHalfAwayFromZero(args[0], int32(places)), nil
	default:
		return 0, unsafe(0, "function %q is not allowed", fn)
	}
}

const maxRoundPlaces = 15

// RoundHalfAwayFromZero rounds v to places decimals, 2.5 → 3 and -2.5 → -3.
func RoundHalfAwayFromZero(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
