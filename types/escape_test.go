package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalEscaped(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"ASCII untouched", map[string]string{"title": "Hello"}, `{"title":"Hello"}`},
		{"Latin-1 and HTML", map[string]string{"title": "Café <b>"}, `{"title":"Caf\u00E9 \u003Cb\u003E"}`},
		{"Quote and backslash", map[string]string{"q": `a"b\c`}, `{"q":"a\u0022b\\c"}`},
		{"Sensitive ASCII", map[string]string{"s": "&'+`"}, "{\"s\":\"\\u0026\\u0027\\u002B\\u0060\"}"},
		{"Short control escapes", map[string]string{"c": "\b\f\n\r\t"}, `{"c":"\b\f\n\r\t"}`},
		{"Other control", map[string]string{"c": "\x01\x7f"}, `{"c":"\u0001\u007F"}`},
		{"Emoji as surrogate pair", map[string]string{"e": "👀"}, `{"e":"\uD83D\uDC40"}`},
		{"Line separator", map[string]string{"l": "\u2028"}, `{"l":"\u2028"}`},
		{"Escaped keys", map[string]int{"é": 1}, `{"\u00E9":1}`},
		{"Nested", map[string]any{"a": []any{"<", 1.5, true, nil}}, `{"a":["\u003C",1.5,true,null]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MarshalEscaped(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))

			var back, want any
			require.NoError(t, json.Unmarshal(out, &back))
			plain, err := json.Marshal(tt.input)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(plain, &want))
			assert.Equal(t, want, back)
		})
	}

	t.Run("Unsupported value", func(t *testing.T) {
		_, err := MarshalEscaped(map[string]any{"f": func() {}})
		assert.Error(t, err)
	})
}

func TestNewTemplatedImageRequestWithMarshalEscaped(t *testing.T) {
	req, err := NewTemplatedImageRequestWith("tpl_123", map[string]string{"title": "Café <b>"}, MarshalEscaped, nil)
	require.NoError(t, err)
	assert.Equal(t, `"Caf\u00E9 \u003Cb\u003E"`, string(req.TemplateValues["title"]))
}
