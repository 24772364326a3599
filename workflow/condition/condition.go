// Package condition implements the predicate mini-language used by
// transition guards and step-level conditions: a single comparison of
// the form "<path> <op> <literal>". It is a pure function, grounded on
// the same dot-path comparator discipline a policy-rule evaluator would
// use, deliberately kept free of any general expression grammar.
package condition

import (
	"strconv"
	"strings"
)

// operators in longest-match-first order so "===" is tried before "=="
// and "!==" before "!=".
var operators = []string{"===", "!==", "==", "!=", ">=", "<=", ">", "<"}

// Evaluate parses and evaluates predicate against data, returning the
// boolean result and whether the predicate was well-formed. Callers
// that need the conservative per-site default (false for transitions,
// true for step conditions) should use EvaluateTransition /
// EvaluateStepCondition instead of calling this directly.
func Evaluate(predicate string, data map[string]interface{}) (result bool, ok bool) {
	predicate = strings.TrimSpace(predicate)
	for _, op := range operators {
		idx := strings.Index(predicate, op)
		if idx < 0 {
			continue
		}
		path := strings.TrimSpace(predicate[:idx])
		literal := strings.TrimSpace(predicate[idx+len(op):])
		if path == "" || literal == "" {
			return false, false
		}
		left, _ := lookup(data, path)
		return compareValues(left, unquote(literal), op), true
	}
	return false, false
}

// EvaluateTransition evaluates predicate, defaulting to false (don't
// follow the edge) when predicate is unparseable.
func EvaluateTransition(predicate string, data map[string]interface{}) bool {
	result, ok := Evaluate(predicate, data)
	if !ok {
		return false
	}
	return result
}

// EvaluateStepCondition evaluates predicate, defaulting to true (don't
// spuriously block the step) when predicate is unparseable.
func EvaluateStepCondition(predicate string, data map[string]interface{}) bool {
	result, ok := Evaluate(predicate, data)
	if !ok {
		return true
	}
	return result
}

// EvaluateAll AND-joins a list of step-level conditions, each evaluated
// with EvaluateStepCondition's conservative default.
func EvaluateAll(predicates []string, data map[string]interface{}) bool {
	for _, p := range predicates {
		if !EvaluateStepCondition(p, data) {
			return false
		}
	}
	return true
}

func unquote(literal string) string {
	if len(literal) >= 2 {
		if (literal[0] == '"' && literal[len(literal)-1] == '"') ||
			(literal[0] == '\'' && literal[len(literal)-1] == '\'') {
			return literal[1 : len(literal)-1]
		}
	}
	return literal
}

func lookup(data map[string]interface{}, path string) (interface{}, bool) {
	if path == "null" {
		return nil, true
	}
	segments := strings.Split(path, ".")
	var cur interface{} = data
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func compareValues(left interface{}, right string, op string) bool {
	if left == nil {
		switch op {
		case "===", "==":
			return right == "null" || right == ""
		case "!==", "!=":
			return !(right == "null" || right == "")
		default:
			return false
		}
	}

	leftNum, leftIsNum := toNumber(left)
	rightNum, rightIsNum := strconvFloat(right)
	if leftIsNum && rightIsNum {
		switch op {
		case "===", "==":
			return leftNum == rightNum
		case "!==", "!=":
			return leftNum != rightNum
		case ">":
			return leftNum > rightNum
		case "<":
			return leftNum < rightNum
		case ">=":
			return leftNum >= rightNum
		case "<=":
			return leftNum <= rightNum
		}
		return false
	}

	leftStr := toString(left)
	switch op {
	case "===", "==":
		return leftStr == right
	case "!==", "!=":
		return leftStr != right
	case ">":
		return leftStr > right
	case "<":
		return leftStr < right
	case ">=":
		return leftStr >= right
	case "<=":
		return leftStr <= right
	}
	return false
}

func toNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		return strconvFloat(t)
	case bool:
		return 0, false
	default:
		return 0, false
	}
}

func strconvFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
