package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrJSONParse", ErrJSONParse},
		{"ErrMissingArg", ErrMissingArg},
		{"ErrPathIsNullOrUndefined", ErrPathIsNullOrUndefined},
		{"ErrAuthInfoCreation", ErrAuthInfoCreation},
		{"ErrAuthRefresh", ErrAuthRefresh},
		{"ErrCrypto", ErrCrypto},
		{"ErrNoResults", ErrNoResults},
		{"ErrNotADevHub", ErrNotADevHub},
		{"ErrInvalidProjectWorkspace", ErrInvalidProjectWorkspace},
		{"ErrStreamingTimeout", ErrStreamingTimeout},
		{"ErrMissingOrInvalidAccessToken", ErrMissingOrInvalidAccessToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestJSONParseError(t *testing.T) {
	err := error(&JSONParseError{Path: "/tmp/a.json", Line: 4, Reason: "unexpected token"})

	assert.True(t, errors.Is(err, ErrJSONParse))
	assert.Equal(t, "parse error in file /tmp/a.json on line 4: unexpected token", err.Error())

	var parseErr *JSONParseError
	assert.True(t, errors.As(fmt.Errorf("read: %w", err), &parseErr))
	assert.Equal(t, 4, parseErr.Line)
}

func TestMissingArgError(t *testing.T) {
	err := &MissingArgError{Which: "channel"}

	assert.ErrorIs(t, err, ErrMissingArg)
	assert.Contains(t, err.Error(), "channel")
	assert.Equal(t, KindMissingArg, KindOf(err))
}

func TestStreamingTimeoutError(t *testing.T) {
	err := &StreamingTimeoutError{Phase: PhaseHandshake}

	assert.ErrorIs(t, err, ErrStreamingTimeout)
	assert.Contains(t, err.Error(), "HANDSHAKE")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"wrapped no results", fmt.Errorf("check: %w", ErrNoResults), KindNoResults},
		{"not a dev hub", ErrNotADevHub, KindNotADevHub},
		{"parse", &JSONParseError{Line: 1}, KindJSONParse},
		{"timeout", &StreamingTimeoutError{Phase: PhaseSubscribe}, KindStreamingTimeout},
		{"crypto", fmt.Errorf("%w: bad key", ErrCrypto), KindCrypto},
		{"workspace", ErrInvalidProjectWorkspace, KindInvalidProjectWorkspace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestQueryError(t *testing.T) {
	err := &QueryError{Name: QueryErrorInvalidType, Message: "sObject type 'X' is not supported"}
	assert.Equal(t, "INVALID_TYPE: sObject type 'X' is not supported", err.Error())
	assert.Equal(t, "INVALID_TYPE", (&QueryError{Name: "INVALID_TYPE"}).Error())
}
