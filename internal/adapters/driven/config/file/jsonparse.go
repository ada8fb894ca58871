package file

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/catalandres/sfdx-core/internal/core/domain"
)

// reasonNoContent is reported for empty or whitespace-only documents.
const reasonNoContent = "no content"

// ParseJSON parses a config document and returns its top-level object.
//
// Errors are *domain.JSONParseError values naming path and the 1-based
// line of the first structurally invalid token. The line comes from a
// scan of the raw text, not from the decoder's byte offset. A missing
// value is attributed to the line after its separator, so {"a":} is
// reported on line 2.
func ParseJSON(data []byte, path string) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &domain.JSONParseError{Path: path, Line: 1, Reason: reasonNoContent}
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &domain.JSONParseError{Path: path, Line: errorLine(data, err), Reason: err.Error()}
	}

	doc, ok := parsed.(map[string]any)
	if !ok {
		return nil, &domain.JSONParseError{Path: path, Line: 1, Reason: "expected a JSON object"}
	}
	return doc, nil
}

// errorLine finds the line of the first invalid token. When the scan
// accepts text the decoder rejected, the decoder's offset is used.
func errorLine(data []byte, decodeErr error) int {
	s := &lineScanner{data: data, line: 1}
	if scanErr := s.document(); scanErr != nil {
		return scanErr.line
	}

	var syntaxErr *json.SyntaxError
	if errors.As(decodeErr, &syntaxErr) && syntaxErr.Offset > 0 {
		end := int(syntaxErr.Offset) - 1
		if end > len(data) {
			end = len(data)
		}
		return bytes.Count(data[:end], []byte("\n")) + 1
	}
	return 1
}

type scanError struct {
	line   int
	reason string
}

// lineScanner is a structural JSON validator that tracks line numbers.
type lineScanner struct {
	data []byte
	pos  int
	line int
}

func (s *lineScanner) document() *scanError {
	if err := s.value(0); err != nil {
		return err
	}
	s.skipSpace()
	if s.pos < len(s.data) {
		return s.unexpected("after JSON value")
	}
	return nil
}

func (s *lineScanner) skipSpace() {
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case '\n':
			s.line++
			s.pos++
		case ' ', '\t', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *lineScanner) unexpected(context string) *scanError {
	if s.pos >= len(s.data) {
		return &scanError{line: s.line, reason: "unexpected end of input " + context}
	}
	return &scanError{line: s.line, reason: fmt.Sprintf("unexpected token %q %s", s.data[s.pos], context)}
}

// value scans one value. sepLine is the line of the ':' that introduced
// it, or 0 at the top level and inside arrays.
func (s *lineScanner) value(sepLine int) *scanError {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return s.unexpected("expecting a value")
	}

	c := s.data[s.pos]
	switch {
	case c == '{':
		return s.object()
	case c == '[':
		return s.array()
	case c == '"':
		return s.str()
	case c == '-' || isDigit(c):
		return s.number()
	case c == 't':
		return s.literal("true")
	case c == 'f':
		return s.literal("false")
	case c == 'n':
		return s.literal("null")
	case (c == '}' || c == ']' || c == ',' || c == ':') && sepLine > 0:
		return &scanError{line: sepLine + 1, reason: fmt.Sprintf("unexpected token %q expecting a value", c)}
	default:
		return s.unexpected("expecting a value")
	}
}

func (s *lineScanner) object() *scanError {
	s.pos++ // {
	s.skipSpace()
	if s.pos < len(s.data) && s.data[s.pos] == '}' {
		s.pos++
		return nil
	}

	for {
		s.skipSpace()
		if s.pos >= len(s.data) || s.data[s.pos] != '"' {
			return s.unexpected("expecting a property name")
		}
		if err := s.str(); err != nil {
			return err
		}

		s.skipSpace()
		if s.pos >= len(s.data) || s.data[s.pos] != ':' {
			return s.unexpected("expecting ':'")
		}
		sepLine := s.line
		s.pos++
		if err := s.value(sepLine); err != nil {
			return err
		}

		s.skipSpace()
		if s.pos >= len(s.data) {
			return s.unexpected("expecting ',' or '}'")
		}
		switch s.data[s.pos] {
		case ',':
			s.pos++
		case '}':
			s.pos++
			return nil
		default:
			return s.unexpected("expecting ',' or '}'")
		}
	}
}

// array charges a missing element to the line of the token found in its
// place, so a trailing comma is reported on the line of the ']'.
func (s *lineScanner) array() *scanError {
	s.pos++ // [
	s.skipSpace()
	if s.pos < len(s.data) && s.data[s.pos] == ']' {
		s.pos++
		return nil
	}

	for {
		if err := s.value(0); err != nil {
			return err
		}

		s.skipSpace()
		if s.pos >= len(s.data) {
			return s.unexpected("expecting ',' or ']'")
		}
		switch s.data[s.pos] {
		case ',':
			s.pos++
		case ']':
			s.pos++
			return nil
		default:
			return s.unexpected("expecting ',' or ']'")
		}
	}
}

func (s *lineScanner) str() *scanError {
	s.pos++ // opening quote
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case c == '"':
			s.pos++
			return nil
		case c == '\\':
			if s.pos+1 >= len(s.data) {
				s.pos++
				return s.unexpected("in string escape")
			}
			switch s.data[s.pos+1] {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				s.pos += 2
			case 'u':
				if s.pos+6 > len(s.data) || !allHex(s.data[s.pos+2:s.pos+6]) {
					s.pos++
					return s.unexpected("in unicode escape")
				}
				s.pos += 6
			default:
				s.pos++
				return s.unexpected("in string escape")
			}
		case c < 0x20:
			return s.unexpected("in string literal")
		default:
			s.pos++
		}
	}
	return s.unexpected("in string literal")
}

func (s *lineScanner) number() *scanError {
	if s.data[s.pos] == '-' {
		s.pos++
	}
	if s.pos >= len(s.data) || !isDigit(s.data[s.pos]) {
		return s.unexpected("in numeric literal")
	}
	if s.data[s.pos] == '0' {
		s.pos++
	} else {
		s.digits()
	}
	if s.pos < len(s.data) && s.data[s.pos] == '.' {
		s.pos++
		if s.pos >= len(s.data) || !isDigit(s.data[s.pos]) {
			return s.unexpected("after decimal point")
		}
		s.digits()
	}
	if s.pos < len(s.data) && (s.data[s.pos] == 'e' || s.data[s.pos] == 'E') {
		s.pos++
		if s.pos < len(s.data) && (s.data[s.pos] == '+' || s.data[s.pos] == '-') {
			s.pos++
		}
		if s.pos >= len(s.data) || !isDigit(s.data[s.pos]) {
			return s.unexpected("in exponent")
		}
		s.digits()
	}
	return nil
}

func (s *lineScanner) digits() {
	for s.pos < len(s.data) && isDigit(s.data[s.pos]) {
		s.pos++
	}
}

func (s *lineScanner) literal(word string) *scanError {
	if !bytes.HasPrefix(s.data[s.pos:], []byte(word)) {
		return s.unexpected("in literal")
	}
	s.pos += len(word)
	return nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func allHex(b []byte) bool {
	for _, c := range b {
		if !isDigit(c) && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
