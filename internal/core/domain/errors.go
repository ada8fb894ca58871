package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// Each sentinel is one error kind; typed errors below unwrap to them.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfigValue indicates a config value failed its key's validator.
	ErrInvalidConfigValue = errors.New("invalid config value")

	// ErrJSONParse indicates a config document could not be parsed.
	ErrJSONParse = errors.New("json parse error")

	// ErrMissingArg indicates a required argument was not supplied.
	ErrMissingArg = errors.New("missing required argument")

	// ErrPathIsNullOrUndefined indicates a store could not resolve its file path.
	ErrPathIsNullOrUndefined = errors.New("path is null or undefined")

	// ErrInvalidProjectWorkspace indicates no project marker was found
	// in the working directory or any of its ancestors.
	ErrInvalidProjectWorkspace = errors.New("invalid project workspace")

	// Authentication Errors.

	// ErrAuthInfoCreation indicates neither an OAuth exchange nor a
	// persisted record yielded a usable credential.
	ErrAuthInfoCreation = errors.New("auth info creation failed")

	// ErrAuthRefresh indicates the token endpoint rejected a refresh.
	ErrAuthRefresh = errors.New("auth refresh failed")

	// ErrCrypto indicates the key repository is unavailable or a
	// ciphertext could not be authenticated.
	ErrCrypto = errors.New("crypto error")

	// ErrMissingOrInvalidAccessToken indicates a session has no usable access token.
	ErrMissingOrInvalidAccessToken = errors.New("missing or invalid access token")

	// Organization Errors.

	// ErrNoResults indicates the scratch org registry returned no row for the org.
	ErrNoResults = errors.New("no results")

	// ErrNotADevHub indicates the connected org lacks the scratch org registry.
	ErrNotADevHub = errors.New("not a dev hub")

	// ErrNoDevHub indicates no dev hub username is linked to the org.
	ErrNoDevHub = errors.New("no dev hub username recorded")

	// Streaming Errors.

	// ErrStreamingTimeout indicates a handshake or subscribe window elapsed.
	ErrStreamingTimeout = errors.New("streaming timeout")
)

// Kind is the stable discriminator callers switch on instead of messages.
type Kind string

// Error kinds.
const (
	KindUnknown                     Kind = ""
	KindNotFound                    Kind = "NotFound"
	KindInvalidInput                Kind = "InvalidInput"
	KindInvalidConfigValue          Kind = "InvalidConfigValue"
	KindJSONParse                   Kind = "JsonParseError"
	KindMissingArg                  Kind = "MissingArg"
	KindPathIsNullOrUndefined       Kind = "PathIsNullOrUndefined"
	KindInvalidProjectWorkspace     Kind = "InvalidProjectWorkspace"
	KindAuthInfoCreation            Kind = "AuthInfoCreationError"
	KindAuthRefresh                 Kind = "AuthRefreshError"
	KindCrypto                      Kind = "CryptoError"
	KindMissingOrInvalidAccessToken Kind = "MissingOrInvalidAccessToken"
	KindNoResults                   Kind = "NoResults"
	KindNotADevHub                  Kind = "NotADevHub"
	KindNoDevHub                    Kind = "NoDevHub"
	KindStreamingTimeout            Kind = "StreamingTimeoutError"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrJSONParse, KindJSONParse},
	{ErrMissingArg, KindMissingArg},
	{ErrPathIsNullOrUndefined, KindPathIsNullOrUndefined},
	{ErrInvalidProjectWorkspace, KindInvalidProjectWorkspace},
	{ErrAuthInfoCreation, KindAuthInfoCreation},
	{ErrAuthRefresh, KindAuthRefresh},
	{ErrCrypto, KindCrypto},
	{ErrMissingOrInvalidAccessToken, KindMissingOrInvalidAccessToken},
	{ErrNoResults, KindNoResults},
	{ErrNotADevHub, KindNotADevHub},
	{ErrNoDevHub, KindNoDevHub},
	{ErrStreamingTimeout, KindStreamingTimeout},
	{ErrInvalidConfigValue, KindInvalidConfigValue},
	{ErrInvalidInput, KindInvalidInput},
	{ErrNotFound, KindNotFound},
}

// KindOf returns the kind of the first domain sentinel found in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// JSONParseError reports a malformed config document with the 1-based
// line of the first structurally invalid token.
type JSONParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("parse error in file %s on line %d: %s", e.Path, e.Line, e.Reason)
}

func (e *JSONParseError) Unwrap() error { return ErrJSONParse }

// MissingArgError names the required argument that was absent.
type MissingArgError struct {
	Which string
}

func (e *MissingArgError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingArg, e.Which)
}

func (e *MissingArgError) Unwrap() error { return ErrMissingArg }

// StreamingPhase tags which streaming window elapsed.
type StreamingPhase string

// Streaming phases.
const (
	PhaseHandshake StreamingPhase = "HANDSHAKE"
	PhaseSubscribe StreamingPhase = "SUBSCRIBE"
)

// StreamingTimeoutError reports an elapsed handshake or subscribe window.
type StreamingTimeoutError struct {
	Phase StreamingPhase
}

func (e *StreamingTimeoutError) Error() string {
	return fmt.Sprintf("%s: %s", ErrStreamingTimeout, e.Phase)
}

func (e *StreamingTimeoutError) Unwrap() error { return ErrStreamingTimeout }

// QueryErrorInvalidType is the platform error code for an unknown sObject type.
const QueryErrorInvalidType = "INVALID_TYPE"

// QueryError is an error reported by the remote platform's REST API.
// Name carries the platform error code, e.g. INVALID_TYPE.
type QueryError struct {
	Name       string
	Message    string
	StatusCode int
}

func (e *QueryError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}
