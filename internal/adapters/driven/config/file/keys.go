package file

import (
	"sort"
	"unicode"
	"unicode/utf8"
)

// FindUpperCaseKey returns the first key in doc that begins with an
// uppercase letter. Keys of one object are all checked before any of its
// nested objects is entered. Sections named in skip are not descended.
func FindUpperCaseKey(doc map[string]any, skip ...string) (string, bool) {
	keys := sortedKeys(doc)

	for _, key := range keys {
		if startsUpper(key) {
			return key, true
		}
	}

	for _, key := range keys {
		if contains(skip, key) {
			continue
		}
		nested, ok := doc[key].(map[string]any)
		if !ok {
			continue
		}
		if found, ok := FindUpperCaseKey(nested, skip...); ok {
			return found, true
		}
	}

	return "", false
}

func startsUpper(key string) bool {
	r, _ := utf8.DecodeRuneInString(key)
	return unicode.IsUpper(r)
}

func sortedKeys(doc map[string]any) []string {
	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
