package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_WellFormed(t *testing.T) {
	result := Validate(sampleSelect(), 2)

	assert.True(t, result.OK())
	assert.Empty(t, result.Violations)
	assert.NoError(t, result.Err())
}

func TestValidate_SourceOutOfRange(t *testing.T) {
	result := Validate(sampleSelect(), 1)

	assert.False(t, result.OK())
	joined := result.Err().Error()
	assert.Contains(t, joined, "source ref 1 out of range")
	assert.Contains(t, joined, "take key 1 out of range")
	assert.Contains(t, joined, "field ref source 1 out of range")
}

func TestValidate_ParamOrder(t *testing.T) {
	cs := &CompiledSelect{
		Tree: ListNode{Children: []Tree{
			LeafExpr{Expr: ParamRef{Index: 1}},
			LeafExpr{Expr: ParamRef{Index: 0}},
		}},
		Params: []Param{{Name: "a", Type: ParamTypeAny}, {Name: "b", Type: ParamTypeAny}},
		Take:   Take{},
	}

	result := Validate(cs, 1)

	require.False(t, result.OK())
	assert.Contains(t, result.Violations[0], "param ref 1 out of order (expected 0)")
}

func TestValidate_ParamCountMismatch(t *testing.T) {
	cs := &CompiledSelect{
		Tree:   SourceRef{Index: 0},
		Params: []Param{{Name: "unused", Type: ParamTypeAny}},
		Take:   Take{},
	}

	result := Validate(cs, 1)

	require.Len(t, result.Violations, 1)
	assert.Contains(t, result.Violations[0], "tree references 0 params, params has 1")
}

func TestValidate_Normalization(t *testing.T) {
	cs := &CompiledSelect{Tree: SourceRef{Index: 0}}

	result := Validate(cs, 1)

	assert.Equal(t, []string{"params is nil", "take is nil"}, result.Violations)
}

func TestValidate_Projections(t *testing.T) {
	cs := &CompiledSelect{
		Tree:   SourceRef{Index: 0},
		Params: []Param{},
		Take: Take{
			0: Restricted{Fields: FieldList{{Name: "a", Nested: FieldList{{Name: ""}}}}},
			1: Deferred{},
		},
	}

	result := Validate(cs, 2)

	assert.Equal(t, []string{
		"take[0]: empty field name",
		"take[1]: deferred projection without a name",
	}, result.Violations)
}

func TestValidate_ParamType(t *testing.T) {
	cs := &CompiledSelect{
		Tree:   LeafExpr{Expr: ParamRef{Index: 0}},
		Params: []Param{{Name: "x", Type: "integer"}},
		Take:   Take{},
	}

	result := Validate(cs, 1)

	require.Len(t, result.Violations, 1)
	assert.Contains(t, result.Violations[0], `has type "integer"`)
}

func TestValidate_Nil(t *testing.T) {
	assert.False(t, Validate(nil, 1).OK())
	assert.Contains(t, Validate(&CompiledSelect{Params: []Param{}, Take: Take{}}, 1).Err().Error(), "nil tree node")
}
