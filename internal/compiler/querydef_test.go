package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/selectir/internal/queryir"
)

func lookupQuery(t *testing.T, src, name string) cue.Value {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("queries.cue"))
	require.NoError(t, v.Err())
	return v.LookupPath(cue.ParsePath(`query."` + name + `"`))
}

func TestCompileQuery(t *testing.T) {
	src := `query: "users-with-city": {
	from: ["users"]
	bind: ["u"]
	select: "project(u, [:id, {:address, [:city]}])"
}
`
	def, err := CompileQuery(lookupQuery(t, src, "users-with-city"))
	require.NoError(t, err)

	assert.Equal(t, "users-with-city", def.Name)
	assert.Equal(t, []string{"users"}, def.From)
	assert.Equal(t, []string{"u"}, def.Bind)
	assert.Equal(t, "project(u, [:id, {:address, [:city]}])", def.Select)
	assert.Equal(t, queryir.Location{File: "queries.cue", Line: 4, Column: 11}, def.SelectLocation)
}

func TestCompileQuery_OptionalBind(t *testing.T) {
	src := `query: "ids": {
	from: ["users"]
	select: "[:id]"
}
`
	def, err := CompileQuery(lookupQuery(t, src, "ids"))
	require.NoError(t, err)
	assert.Nil(t, def.Bind)
}

func TestCompileQuery_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		contains string
	}{
		{"missing from", `query: "q": { select: "u" }`, "from: field is required"},
		{"from not a list", `query: "q": { from: "users", select: "u" }`, "from: must be a list of strings"},
		{"from element not string", `query: "q": { from: [1], select: "u" }`, "from[0]: must be a string"},
		{"missing select", `query: "q": { from: ["users"] }`, "select: select clause is required"},
		{"select not string", `query: "q": { from: ["users"], select: 3 }`, "select: must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileQuery(lookupQuery(t, tt.src, "q"))
			require.Error(t, err)

			var cerr *CompileError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, ErrInvalidQueryDef, cerr.Code)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestBuildQuery(t *testing.T) {
	src := `query: "orders": {
	from: ["users", "orders"]
	bind: ["u", "o"]
	select: "{u.name, project(o, [:id, :total]), ^limit}"
}
`
	def, err := CompileQuery(lookupQuery(t, src, "orders"))
	require.NoError(t, err)

	q, err := NewBuilder().BuildQuery(def)
	require.NoError(t, err)

	assert.NotEmpty(t, q.ID)
	assert.Equal(t, []string{"users", "orders"}, q.Sources)
	require.NotNil(t, q.Select)
	assert.Equal(t, []string{"limit"}, paramNames(q.Select))
	assert.Equal(t, queryir.Take{
		1: queryir.Restricted{Fields: queryir.FieldList{{Name: "id"}, {Name: "total"}}},
	}, q.Select.Take)
	assert.Equal(t, queryir.Location{File: "queries.cue", Line: 4, Column: 11}, q.Select.Location)
}

func TestBuildQuery_CompileErrorPointsIntoCUEFile(t *testing.T) {
	def := &QueryDef{
		Name:           "bad",
		From:           []string{"users"},
		Bind:           []string{"u"},
		Select:         "{u, x}",
		Location:       queryir.Location{File: "queries.cue", Line: 1, Column: 8},
		SelectLocation: queryir.Location{File: "queries.cue", Line: 4, Column: 10},
	}

	_, err := NewBuilder().BuildQuery(def)
	require.Error(t, err)

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrUnboundVariable, cerr.Code)
	assert.Equal(t, queryir.Location{File: "queries.cue", Line: 4, Column: 14}, cerr.Location)
	assert.Contains(t, err.Error(), `query "bad"`)
}

func TestBuildQuery_InvalidDefinition(t *testing.T) {
	_, err := NewBuilder().BuildQuery(&QueryDef{Name: "q", From: []string{"a", "b"}, Select: "x"})
	require.Error(t, err)

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrInvalidQueryDef, cerr.Code)
	assert.Contains(t, err.Error(), "bind is required")
}
