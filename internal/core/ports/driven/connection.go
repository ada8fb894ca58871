package driven

import (
	"context"
	"encoding/json"

	"github.com/catalandres/sfdx-core/internal/core/domain"
)

// QueryResult is one page of a query response.
type QueryResult struct {
	TotalSize int               `json:"totalSize"`
	Done      bool              `json:"done"`
	Records   []json.RawMessage `json:"records"`
}

// Connection is an authenticated session with one org.
// Implementations refresh the access token when the platform rejects it.
type Connection interface {
	// Request performs an authenticated request. path is either absolute or
	// relative to the instance URL. body and out are JSON encoded/decoded
	// when non-nil.
	Request(ctx context.Context, method, path string, body, out any) error

	// Query runs a query against the org and returns the first page.
	// Platform errors are returned as *domain.QueryError.
	Query(ctx context.Context, soql string) (*QueryResult, error)

	// Versions lists the API versions the instance exposes.
	Versions(ctx context.Context) ([]domain.APIVersion, error)

	// AuthInfoFields returns the decrypted credential fields of the session.
	AuthInfoFields() domain.AuthFields

	// ConnectionOptions returns the decrypted values the session was built from.
	ConnectionOptions() domain.ConnectionOptions

	// APIVersion returns the version used for relative API paths.
	APIVersion() string
}

// Credential is the view of a credential record a Connection needs.
type Credential interface {
	Fields() domain.AuthFields
	ConnectionOptions() domain.ConnectionOptions
	// Refresh exchanges the refresh token for a new access token and
	// persists it.
	Refresh(ctx context.Context) error
}
