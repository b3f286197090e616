package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int", -100, "-100"},
		{"max int64", int64(9223372036854775807), "9223372036854775807"},
		{"bool", true, "true"},
		{"null", nil, "null"},
		{"empty array", []int{}, "[]"},
		{"empty object", map[string]int{}, "{}"},
		{"html is not escaped", "<a&b>", `"<a&b>"`},
		{"control characters", "a\nb\u0001", `"a\nb\u0001"`},
		{"line separator literal", "x\u2028y", "\"x\u2028y\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshal_StructTagsAndSortedKeys(t *testing.T) {
	type order struct {
		Zebra string         `json:"zebra"`
		Alpha int            `json:"alpha"`
		Skip  string         `json:"-"`
		Meta  map[string]int `json:"meta,omitempty"`
	}

	got, err := Marshal(order{Zebra: "z", Alpha: 1, Skip: "x", Meta: map[string]int{"b": 1, "a": 2}})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":1,"meta":{"a":2,"b":1},"zebra":"z"}`, string(got))
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+10000 encodes as a surrogate pair starting 0xD800, which sorts before
	// U+E000 in UTF-16 but after it in UTF-8.
	got, err := Marshal(map[string]int{
		"\uE000":     1,
		"\U00010000": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(got))
}

func TestMarshal_NFCNormalization(t *testing.T) {
	decomposed, err := Marshal("e\u0301")
	require.NoError(t, err)
	composed, err := Marshal("\u00e9")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshal_KeysCollidingAfterNormalization(t *testing.T) {
	_, err := Marshal(map[string]int{"e\u0301": 1, "\u00e9": 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collide")
}

func TestMarshal_RejectsFloats(t *testing.T) {
	_, err := Marshal(map[string]any{"price": 9.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")
	assert.Contains(t, err.Error(), `"price"`)
}

func TestMarshal_UnsupportedValue(t *testing.T) {
	_, err := Marshal(make(chan int))
	require.Error(t, err)
}

func TestDigest_DomainSeparated(t *testing.T) {
	a, err := Digest("fixture", map[string]int{"x": 1})
	require.NoError(t, err)
	b, err := Digest("trace", map[string]int{"x": 1})
	require.NoError(t, err)
	again, err := Digest("fixture", map[string]int{"x": 1})
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, again)
}

func TestMarshal_Property_MapOrderIrrelevant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := rapid.MapOf(rapid.StringMatching(`[a-z0-9]{0,8}`), rapid.Int64()).Draw(t, "m")

		first, err := Marshal(m)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		copied := make(map[string]int64, len(m))
		for k, v := range m {
			copied[k] = v
		}
		second, err := Marshal(copied)
		if err != nil {
			t.Fatalf("Marshal copy: %v", err)
		}
		if string(first) != string(second) {
			t.Fatalf("non-deterministic output: %s vs %s", first, second)
		}
	})
}
