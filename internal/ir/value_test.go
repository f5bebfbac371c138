package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	values := []IRValue{
		IRNull{},
		IRString("a"),
		IRInt(1),
		IRFloat(1.5),
		IRBool(true),
		IRArray{IRInt(1)},
		IRObject{"a": IRInt(1)},
	}
	assert.Len(t, values, 7)
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+E000 encodes as a single UTF-16 unit 0xE000, U+10000 as the
	// surrogate pair 0xD800 0xDC00, so UTF-16 order differs from UTF-8.
	obj := IRObject{
		"\ue000":     IRInt(1),
		"\U00010000": IRInt(2),
	}
	assert.Equal(t, []string{"\U00010000", "\ue000"}, obj.SortedKeys())
}

func TestSortedKeysBasicCases(t *testing.T) {
	tests := []struct {
		name string
		obj  IRObject
		want []string
	}{
		{"empty", IRObject{}, []string{}},
		{"single", IRObject{"a": IRInt(1)}, []string{"a"}},
		{"alphabetical", IRObject{"b": IRInt(1), "a": IRInt(2), "c": IRInt(3)}, []string{"a", "b", "c"}},
		{"prefix first", IRObject{"ab": IRInt(1), "a": IRInt(2)}, []string{"a", "ab"}},
		{"uppercase before lowercase", IRObject{"a": IRInt(1), "B": IRInt(2)}, []string{"B", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.obj.SortedKeys())
		})
	}
}

func TestUnmarshalIRValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  IRValue
	}{
		{"string", `"hello"`, IRString("hello")},
		{"int", `42`, IRInt(42)},
		{"negative int", `-7`, IRInt(-7)},
		{"float", `3.25`, IRFloat(3.25)},
		{"exponent is float", `1e3`, IRFloat(1000)},
		{"bool", `true`, IRBool(true)},
		{"null", `null`, IRNull{}},
		{"array", `["id", ["address", ["city"]]]`, IRArray{
			IRString("id"),
			IRArray{IRString("address"), IRArray{IRString("city")}},
		}},
		{"object", `{"a": 1}`, IRObject{"a": IRInt(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalIRValue([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalIRValueRejectsGarbage(t *testing.T) {
	_, err := UnmarshalIRValue([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestUnmarshalIRValueIntOverflow(t *testing.T) {
	_, err := UnmarshalIRValue([]byte(`99999999999999999999`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "int64 range")
}

func TestFromGoUnsupported(t *testing.T) {
	_, err := FromGo(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestToGoRoundTrip(t *testing.T) {
	in := map[string]any{
		"fields": []any{"id", map[string]any{"address": []any{"city"}}},
		"limit":  int64(10),
		"ratio":  0.5,
		"active": true,
	}

	v, err := FromGo(in)
	require.NoError(t, err)
	assert.Equal(t, in, ToGo(v))
}
