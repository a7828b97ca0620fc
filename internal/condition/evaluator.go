// Package condition evaluates the fixed JSON condition DSL used by workflow
// edges and triggers.
package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/floworc/engine/internal/domain"
)

// Evaluate walks a Condition tree against ctx and reports whether it holds.
// A nil condition always holds, matching the "unconditional edge" rule.
func Evaluate(c *domain.Condition, ctx map[string]any) bool {
	if c == nil {
		return true
	}
	if len(c.And) > 0 {
		for _, sub := range c.And {
			if !Evaluate(sub, ctx) {
				return false
			}
		}
		return true
	}
	if len(c.Or) > 0 {
		for _, sub := range c.Or {
			if Evaluate(sub, ctx) {
				return true
			}
		}
		return false
	}
	if c.Not != nil {
		return !Evaluate(c.Not, ctx)
	}
	return evaluateLeaf(c, ctx)
}

func evaluateLeaf(c *domain.Condition, ctx map[string]any) bool {
	left, found := lookupPath(ctx, c.Path)

	switch c.Op {
	case domain.OpEq:
		return found && deepEqual(left, c.Value)
	case domain.OpNeq:
		return !found || !deepEqual(left, c.Value)
	case domain.OpGt, domain.OpGte, domain.OpLt, domain.OpLte:
		return compareNumeric(c.Op, left, c.Value)
	case domain.OpContains:
		return strings.Contains(strings.ToLower(toString(left)), strings.ToLower(toString(c.Value)))
	case domain.OpRegex:
		pattern := toString(c.Value)
		matched, err := regexp.MatchString(pattern, toString(left))
		if err != nil {
			return false
		}
		return matched
	default:
		// Unknown operator: fall back to the truthiness of the leaf itself.
		return truthy(c)
	}
}

// lookupPath resolves a dotted path ("a.b.c") against a nested map. It
// returns (nil, false) as soon as an intermediate segment isn't a map,
// rather than panicking or erroring.
func lookupPath(ctx map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	var cur any = ctx
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
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

func deepEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareNumeric(op domain.ConditionOp, left, right any) bool {
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return false
	}
	switch op {
	case domain.OpGt:
		return lf > rf
	case domain.OpGte:
		return lf >= rf
	case domain.OpLt:
		return lf < rf
	case domain.OpLte:
		return lf <= rf
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// truthy mirrors Python's bool(cond) fallback for an unrecognized operator:
// a leaf with a non-empty path or non-nil value is considered true.
func truthy(c *domain.Condition) bool {
	return c.Path != "" || c.Value != nil
}
