package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Types(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{"string", `"alpha"`, String("alpha")},
		{"int", `42`, Int(42)},
		{"negative int", `-7`, Int(-7)},
		{"float", `2.5`, Float(2.5)},
		{"bool", `true`, Bool(true)},
		{"null", `null`, Null{}},
		{"array", `[1,"a"]`, Array{Int(1), String("a")}},
		{"object", `{"name":"alpha","count":1}`, Object{"name": String("alpha"), "count": Int(1)}},
		{"nested", `{"tags":{"a":[true]}}`, Object{"tags": Object{"a": Array{Bool(true)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_EmptyIsAbsent(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		got, err := Decode([]byte(input))
		require.NoError(t, err)
		assert.Nil(t, got, "input %q", input)
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, input := range []string{`{`, `{"a":1} {"b":2}`, `nope`} {
		_, err := Decode([]byte(input))
		assert.Error(t, err, "input %q", input)
	}
}

func TestMarshal_SortedKeysNoHTMLEscape(t *testing.T) {
	obj := Object{
		"b":    Int(2),
		"a":    String("<x & y>"),
		"c":    Array{Bool(false), Null{}, Float(1.5)},
		"nest": Object{"z": Int(1), "y": Int(0)},
	}

	data, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x & y>","b":2,"c":[false,null,1.5],"nest":{"y":0,"z":1}}`, string(data))
}

func TestMarshal_NFCNormalizes(t *testing.T) {
	// "e" + combining acute accent normalizes to the single code point U+00E9
	data, err := Marshal(String("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(data))
}

func TestFromGo_YAMLShapes(t *testing.T) {
	got, err := FromGo(map[string]any{
		"count": 3,
		"ratio": 0.25,
		"whole": 4.0,
		"tags":  []any{"a", true, nil},
	})
	require.NoError(t, err)
	assert.Equal(t, Object{
		"count": Int(3),
		"ratio": Float(0.25),
		"whole": Int(4),
		"tags":  Array{String("a"), Bool(true), Null{}},
	}, got)

	_, err = FromGo(struct{}{})
	assert.Error(t, err)
}

func TestAccessors(t *testing.T) {
	s, err := AsString(String("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	i, err := AsInt(Float(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), i)

	_, err = AsInt(Float(3.5))
	assert.Error(t, err)

	f, err := AsFloat(Int(2))
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)

	_, err = AsBool(String("true"))
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	assert.Equal(t, "alpha", Text(String("alpha")))
	assert.Equal(t, "12", Text(Int(12)))
	assert.Equal(t, "0.5", Text(Float(0.5)))
	assert.Equal(t, "true", Text(Bool(true)))
	assert.Equal(t, "", Text(Null{}))
	assert.Equal(t, `{"a":1}`, Text(Object{"a": Int(1)}))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Int(1), Float(1)))
	assert.True(t, Equal(nil, Null{}))
	assert.True(t, Equal(Object{"a": Array{Int(1)}}, Object{"a": Array{Int(1)}}))
	assert.False(t, Equal(String("1"), Int(1)))
	assert.False(t, Equal(Object{"a": Int(1)}, Object{"b": Int(1)}))
}

func TestObjectUnmarshalJSON_RejectsNonObject(t *testing.T) {
	var obj Object
	require.NoError(t, obj.UnmarshalJSON([]byte(`{"a":1}`)))
	assert.Equal(t, Object{"a": Int(1)}, obj)

	assert.Error(t, obj.UnmarshalJSON([]byte(`[1]`)))
}
