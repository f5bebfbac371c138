package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/selectir/internal/binding"
	"github.com/roach88/selectir/internal/ir"
	"github.com/roach88/selectir/internal/queryir"
	"github.com/roach88/selectir/internal/surface"
)

func newEscaper(t *testing.T, names ...string) Escaper {
	t.Helper()
	env, err := binding.Resolve(names)
	require.NoError(t, err)
	return Escaper{Env: env, Base: queryir.Location{File: "q.cue", Line: 10, Column: 11}}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       queryir.Expr
		wantParams []string
	}{
		{"int literal", "1", queryir.Lit{Value: ir.IRInt(1)}, nil},
		{"nil literal", "nil", queryir.Lit{Value: ir.IRNull{}}, nil},
		{"atom", ":id", queryir.Atom{Name: "id"}, nil},
		{"interp", "^limit", queryir.ParamRef{Index: 0}, []string{"limit"}},
		{"bound var", "o", queryir.SourceExpr{Source: 1}, nil},
		{"field", "u.name", queryir.FieldRef{Source: 0, Field: "name"}, nil},
		{"operators", "u.price * ^rate + 1", queryir.Call{Name: "+", Args: []queryir.Expr{
			queryir.Call{Name: "*", Args: []queryir.Expr{
				queryir.FieldRef{Source: 0, Field: "price"},
				queryir.ParamRef{Index: 0},
			}},
			queryir.Lit{Value: ir.IRInt(1)},
		}}, []string{"rate"}},
		{"unary", "not u.active", queryir.Call{Name: "not", Args: []queryir.Expr{
			queryir.FieldRef{Source: 0, Field: "active"},
		}}, nil},
		{"call", "coalesce(^a, u.x, ^b)", queryir.Call{Name: "coalesce", Args: []queryir.Expr{
			queryir.ParamRef{Index: 0},
			queryir.FieldRef{Source: 0, Field: "x"},
			queryir.ParamRef{Index: 1},
		}}, []string{"a", "b"}},
		{"list", "[^a, 2]", queryir.ListExpr{Elems: []queryir.Expr{
			queryir.ParamRef{Index: 0},
			queryir.Lit{Value: ir.IRInt(2)},
		}}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEscaper(t, "u", "o")

			got, params, err := e.Escape(surface.MustParse(tt.input), queryir.ParamTypeAny, []queryir.Param{})
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Escape(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}

			names := make([]string, len(params))
			for i, p := range params {
				names[i] = p.Name
				assert.Equal(t, queryir.ParamTypeAny, p.Type)
			}
			if tt.wantParams == nil {
				assert.Empty(t, names)
			} else {
				assert.Equal(t, tt.wantParams, names)
			}
		})
	}
}

func TestEscapeParamLocation(t *testing.T) {
	e := newEscaper(t, "u")

	_, params, err := e.Escape(surface.MustParse("u.x + ^p"), queryir.ParamTypeAny, nil)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, queryir.Location{File: "q.cue", Line: 10, Column: 17}, params[0].At)
}

func TestEscapeDoesNotWriteThroughParams(t *testing.T) {
	e := newEscaper(t, "u")
	backing := make([]queryir.Param, 1, 4)
	backing[0] = queryir.Param{Name: "first", Type: queryir.ParamTypeAny}

	_, left, err := e.Escape(surface.MustParse("^left"), queryir.ParamTypeAny, backing[:1])
	require.NoError(t, err)
	_, right, err := e.Escape(surface.MustParse("^right"), queryir.ParamTypeAny, backing[:1])
	require.NoError(t, err)

	assert.Equal(t, "left", left[1].Name)
	assert.Equal(t, "right", right[1].Name)
}

func TestEscapeErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind ErrorKind
		wantErr  string
	}{
		{"unbound var", "x", Unbound, `unbound variable "x"`},
		{"unbound field", "x.name", Unbound, `unbound variable "x"`},
		{"field on call", "f(u).name", Unsupported, "only supported on a bound variable"},
		{"nested project", "1 + project(u, [:id])", Unsupported, "project/2 is only allowed in select position"},
		{"tuple in call", "f({u, 1})", Unsupported, "unsupported expression {u, 1}"},
		{"map", "%{a: 1}", Unsupported, "unsupported expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEscaper(t, "u")

			_, _, err := e.Escape(surface.MustParse(tt.input), queryir.ParamTypeAny, nil)
			require.Error(t, err)

			var eerr *Error
			require.ErrorAs(t, err, &eerr)
			assert.Equal(t, tt.wantKind, eerr.Kind)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
