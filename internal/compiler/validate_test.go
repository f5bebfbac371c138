package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDef() *QueryDef {
	return &QueryDef{
		Name:   "orders",
		From:   []string{"users", "orders"},
		Bind:   []string{"u", "o"},
		Select: "{u, o}",
	}
}

func TestValidateQuery_Valid(t *testing.T) {
	assert.Empty(t, ValidateQuery(validDef()))
}

func TestValidateQuery_ImplicitBinding(t *testing.T) {
	def := &QueryDef{Name: "ids", From: []string{"users"}, Select: "[:id]"}
	assert.Empty(t, ValidateQuery(def))
}

func TestValidateQuery_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*QueryDef)
		code   string
		field  string
	}{
		{"empty name", func(d *QueryDef) { d.Name = " " }, ErrQueryNameEmpty, "name"},
		{"no sources", func(d *QueryDef) { d.From = nil; d.Bind = nil }, ErrQueryNoSources, "from"},
		{"bad table", func(d *QueryDef) { d.From[1] = "orders; DROP TABLE x" }, ErrInvalidTableName, "from[1]"},
		{"bind required", func(d *QueryDef) { d.Bind = nil }, ErrBindArity, "bind"},
		{"bind arity", func(d *QueryDef) { d.Bind = []string{"u"} }, ErrBindArity, "bind"},
		{"duplicate binding", func(d *QueryDef) { d.Bind = []string{"u", "u"} }, ErrDuplicateBinding, "bind[1]"},
		{"bad binding", func(d *QueryDef) { d.Bind = []string{"u", "1o"} }, ErrInvalidBindingRef, "bind[1]"},
		{"empty select", func(d *QueryDef) { d.Select = "  " }, ErrQuerySelectEmpty, "select"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDef()
			tt.modify(def)

			errs := ValidateQuery(def)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidateQuery_CollectsAll(t *testing.T) {
	errs := ValidateQuery(&QueryDef{})

	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}
	assert.Equal(t, []string{ErrQueryNameEmpty, ErrQueryNoSources, ErrQuerySelectEmpty}, codes)
}

func TestValidateQueries_DuplicateNames(t *testing.T) {
	errs := ValidateQueries([]*QueryDef{validDef(), validDef()})

	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateQuery, errs[0].Code)
	assert.Equal(t, `[E107] name: duplicate query name "orders"`, errs[0].Error())
}

func TestValidationError_WithLine(t *testing.T) {
	err := ValidationError{Field: "from", Message: "boom", Code: ErrQueryNoSources, Line: 3}
	assert.Equal(t, "[E102] line 3: from: boom", err.Error())
}
