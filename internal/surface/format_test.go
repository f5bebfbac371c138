package surface

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"project(u, [:id, {:address, [:city]}])", "project(u, [:id, {:address, [:city]}])"},
		{"[:id, address: [:city]]", "[:id, {:address, [:city]}]"},
		{"%{u | name: ^n}", "%{u | :name => ^n}"},
		{"{a,b,c}", "{a, b, c}"},
		{"a + b * 2", "a + (b * 2)"},
		{"not u.active", "not u.active"},
		{"1.0", "1.0"},
		{`"x"`, `"x"`},
		{"nil", "nil"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(MustParse(tt.input)))
		})
	}
}

func TestFormatReparses(t *testing.T) {
	inputs := []string{
		"{u, ^p1, [^p2, v.name]}",
		"%{:a => -1, b: u.x * (2 + ^k)}",
		"take(u, ^fields)",
		"[]",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first := MustParse(input)
			second, err := Parse(Format(first))
			require.NoError(t, err)
			if diff := cmp.Diff(first, second, ignorePos); diff != "" {
				t.Errorf("reparse mismatch (-first +second):\n%s", diff)
			}
		})
	}
}
