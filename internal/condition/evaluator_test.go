package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/floworc/engine/internal/domain"
)

func leaf(op domain.ConditionOp, path string, value any) *domain.Condition {
	return &domain.Condition{Op: op, Path: path, Value: value}
}

func TestEvaluate_NilConditionAlwaysHolds(t *testing.T) {
	assert.True(t, Evaluate(nil, map[string]any{}))
}

func TestEvaluate_EqLeaf(t *testing.T) {
	ctx := map[string]any{"data": map[string]any{"status": "open"}}
	assert.True(t, Evaluate(leaf(domain.OpEq, "data.status", "open"), ctx))
	assert.False(t, Evaluate(leaf(domain.OpEq, "data.status", "closed"), ctx))
}

func TestEvaluate_EqMissingPathIsFalse(t *testing.T) {
	ctx := map[string]any{"data": map[string]any{}}
	assert.False(t, Evaluate(leaf(domain.OpEq, "data.missing", "x"), ctx))
}

func TestEvaluate_NeqMissingPathIsTrue(t *testing.T) {
	ctx := map[string]any{"data": map[string]any{}}
	assert.True(t, Evaluate(leaf(domain.OpNeq, "data.missing", "x"), ctx))
}

func TestEvaluate_NumericComparators(t *testing.T) {
	ctx := map[string]any{"data": map[string]any{"count": 5.0}}
	assert.True(t, Evaluate(leaf(domain.OpGt, "data.count", 3), ctx))
	assert.True(t, Evaluate(leaf(domain.OpGte, "data.count", 5), ctx))
	assert.False(t, Evaluate(leaf(domain.OpLt, "data.count", 5), ctx))
	assert.True(t, Evaluate(leaf(domain.OpLte, "data.count", 5), ctx))
}

func TestEvaluate_NumericComparatorNonNumericIsFalse(t *testing.T) {
	ctx := map[string]any{"data": map[string]any{"count": "not a number"}}
	assert.False(t, Evaluate(leaf(domain.OpGt, "data.count", 3), ctx))
}

func TestEvaluate_ContainsIsCaseInsensitive(t *testing.T) {
	ctx := map[string]any{"data": map[string]any{"title": "Urgent Ticket"}}
	assert.True(t, Evaluate(leaf(domain.OpContains, "data.title", "urgent"), ctx))
	assert.False(t, Evaluate(leaf(domain.OpContains, "data.title", "resolved"), ctx))
}

func TestEvaluate_Regex(t *testing.T) {
	ctx := map[string]any{"data": map[string]any{"code": "ERR-404"}}
	assert.True(t, Evaluate(leaf(domain.OpRegex, "data.code", `^ERR-\d+$`), ctx))
	assert.False(t, Evaluate(leaf(domain.OpRegex, "data.code", `^OK-\d+$`), ctx))
}

func TestEvaluate_RegexInvalidPatternIsFalse(t *testing.T) {
	ctx := map[string]any{"data": map[string]any{"code": "x"}}
	assert.False(t, Evaluate(leaf(domain.OpRegex, "data.code", `(`), ctx))
}

func TestEvaluate_UnknownOperatorFallsBackToTruthiness(t *testing.T) {
	ctx := map[string]any{}
	truthy := &domain.Condition{Op: "unknown-op", Path: "data.x"}
	falsy := &domain.Condition{Op: "unknown-op"}
	assert.True(t, Evaluate(truthy, ctx))
	assert.False(t, Evaluate(falsy, ctx))
}

func TestEvaluate_AndRequiresAllSubconditions(t *testing.T) {
	ctx := map[string]any{"data": map[string]any{"a": 1.0, "b": 2.0}}
	c := &domain.Condition{And: []*domain.Condition{
		leaf(domain.OpEq, "data.a", 1),
		leaf(domain.OpEq, "data.b", 2),
	}}
	assert.True(t, Evaluate(c, ctx))

	c.And[1] = leaf(domain.OpEq, "data.b", 99)
	assert.False(t, Evaluate(c, ctx))
}

func TestEvaluate_OrRequiresAnySubcondition(t *testing.T) {
	ctx := map[string]any{"data": map[string]any{"a": 1.0}}
	c := &domain.Condition{Or: []*domain.Condition{
		leaf(domain.OpEq, "data.a", 99),
		leaf(domain.OpEq, "data.a", 1),
	}}
	assert.True(t, Evaluate(c, ctx))

	c.Or = []*domain.Condition{leaf(domain.OpEq, "data.a", 99)}
	assert.False(t, Evaluate(c, ctx))
}

func TestEvaluate_NotNegatesSubcondition(t *testing.T) {
	ctx := map[string]any{"data": map[string]any{"a": 1.0}}
	c := &domain.Condition{Not: leaf(domain.OpEq, "data.a", 1)}
	assert.False(t, Evaluate(c, ctx))

	c = &domain.Condition{Not: leaf(domain.OpEq, "data.a", 2)}
	assert.True(t, Evaluate(c, ctx))
}

func TestEvaluate_IntermediateNonMapSegmentIsNotFound(t *testing.T) {
	ctx := map[string]any{"data": map[string]any{"a": "scalar"}}
	assert.False(t, Evaluate(leaf(domain.OpEq, "data.a.b", "x"), ctx))
}
