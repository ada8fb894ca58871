package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindUpperCaseKey(t *testing.T) {
	tests := []struct {
		name  string
		doc   map[string]any
		want  string
		found bool
	}{
		{
			name: "top level",
			doc: map[string]any{
				"lowercase": true,
				"UpperCase": false,
				"nested":    map[string]any{"camelCase": true},
			},
			want:  "UpperCase",
			found: true,
		},
		{
			name: "nested",
			doc: map[string]any{
				"lowercase": true,
				"uppercase": false,
				"nested":    map[string]any{"NestedUpperCase": true},
			},
			want:  "NestedUpperCase",
			found: true,
		},
		{
			name: "top level wins over nested",
			doc: map[string]any{
				"a":     map[string]any{"Deep": true},
				"Zebra": 1,
			},
			want:  "Zebra",
			found: true,
		},
		{
			name: "all lowercase",
			doc: map[string]any{
				"lowercase": true,
				"nested":    map[string]any{"camelCase": true},
			},
			found: false,
		},
		{
			name:  "digits and underscores are not uppercase",
			doc:   map[string]any{"1abc": 1, "_private": 2},
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := FindUpperCaseKey(tt.doc)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindUpperCaseKey_SkipsSections(t *testing.T) {
	doc := map[string]any{
		"orgs":   map[string]any{"MyOrg": "user@example.com"},
		"nested": map[string]any{"ok": true},
	}

	_, found := FindUpperCaseKey(doc, "orgs")
	assert.False(t, found)
}
