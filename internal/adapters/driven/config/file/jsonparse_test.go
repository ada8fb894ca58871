package file

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalandres/sfdx-core/internal/core/domain"
)

func parseLine(t *testing.T, content string) *domain.JSONParseError {
	t.Helper()
	_, err := ParseJSON([]byte(content), "/state/test.json")
	require.Error(t, err)

	var parseErr *domain.JSONParseError
	require.True(t, errors.As(err, &parseErr), "expected JSONParseError, got %T", err)
	assert.Equal(t, "/state/test.json", parseErr.Path)
	return parseErr
}

func TestParseJSON_EmptyContent(t *testing.T) {
	for _, content := range []string{"", "   \n\t"} {
		parseErr := parseLine(t, content)

		assert.Equal(t, 1, parseErr.Line)
		assert.Contains(t, parseErr.Error(), "line 1")
		assert.Contains(t, parseErr.Error(), "no content")
	}
}

func TestParseJSON_LineNumbers(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
	}{
		{
			name:    "trailing comma before closing brace on line 4",
			content: "{\n    \"key\": 1,\n    \"other\": 2,\n}",
			line:    4,
		},
		{
			name:    "single line trailing comma",
			content: `{ "key": 1, }`,
			line:    1,
		},
		{
			name:    "missing value is attributed to the next line",
			content: `{"a":}`,
			line:    2,
		},
		{
			name:    "missing colon",
			content: "{\n\"a\" 1\n}",
			line:    2,
		},
		{
			name:    "unterminated string",
			content: "{\n\"a\": \"b\n}",
			line:    2,
		},
		{
			name:    "bad literal on line 3",
			content: "{\n\"a\": 1,\n\"b\": tru\n}",
			line:    3,
		},
		{
			name:    "array trailing comma",
			content: "{\"a\": [1,\n2,]}",
			line:    2,
		},
		{
			name:    "array trailing comma before bracket line",
			content: "{\"a\": [\n1,\n2,\n]\n}",
			line:    4,
		},
		{
			name:    "array missing first element",
			content: "{\"a\": [\n,1]}",
			line:    2,
		},
		{
			name:    "trailing data",
			content: "{}\n\n{}",
			line:    3,
		},
		{
			name:    "unexpected end",
			content: "{\n\"a\": 1",
			line:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parseErr := parseLine(t, tt.content)
			assert.Equal(t, tt.line, parseErr.Line)
			assert.ErrorIs(t, parseErr, domain.ErrJSONParse)
		})
	}
}

func TestParseJSON_NotAnObject(t *testing.T) {
	parseErr := parseLine(t, `[1, 2]`)
	assert.Equal(t, 1, parseErr.Line)
}

func TestParseJSON_Valid(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"username": "u", "nested": {"n": 1.5, "s": "a\"bé"}}`), "x.json")

	require.NoError(t, err)
	assert.Equal(t, "u", doc["username"])
	nested, ok := doc["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.5, nested["n"])
	assert.Equal(t, "a\"bé", nested["s"])
}

func TestLineScanner_AcceptsValidDocuments(t *testing.T) {
	for _, content := range []string{
		`{}`,
		`{"a": [], "b": [1, -2.5e10, "x", true, false, null, {"c": {}}]}`,
		"{\r\n\t\"a\": \"\\n\\t\\/\"\r\n}",
	} {
		s := &lineScanner{data: []byte(content), line: 1}
		assert.Nil(t, s.document(), content)
	}
}
