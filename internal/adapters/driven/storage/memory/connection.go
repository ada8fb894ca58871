package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

// Ensure Connection implements the interface.
var _ driven.Connection = (*Connection)(nil)

// RequestHandler answers a Request made against a fake Connection.
type RequestHandler func(method, path string, body any) (any, error)

// Connection is a scriptable driven.Connection. Queries and requests are
// recorded so tests can assert on them.
type Connection struct {
	mu         sync.Mutex
	fields     domain.AuthFields
	apiVersion string

	queryResults map[string]*driven.QueryResult
	queryErr     error
	versions     []domain.APIVersion
	versionsErr  error
	onRequest    RequestHandler

	queries  []string
	requests []string
}

// NewConnection creates a fake session for fields.
func NewConnection(fields domain.AuthFields) *Connection {
	return &Connection{
		fields:       fields,
		apiVersion:   "60.0",
		queryResults: make(map[string]*driven.QueryResult),
	}
}

// SetAPIVersion overrides the reported API version.
func (c *Connection) SetAPIVersion(version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiVersion = version
}

// SetQueryResult makes Query return result for exactly soql.
func (c *Connection) SetQueryResult(soql string, result *driven.QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queryResults[soql] = result
}

// SetQueryRecords makes Query return records, JSON encoded, for soql.
func (c *Connection) SetQueryRecords(soql string, records ...any) error {
	raw := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		raw = append(raw, data)
	}
	c.SetQueryResult(soql, &driven.QueryResult{TotalSize: len(raw), Done: true, Records: raw})
	return nil
}

// SetQueryError makes every Query fail with err.
func (c *Connection) SetQueryError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queryErr = err
}

// SetVersions sets the Versions response.
func (c *Connection) SetVersions(versions []domain.APIVersion, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions = versions
	c.versionsErr = err
}

// OnRequest installs a handler for Request.
func (c *Connection) OnRequest(h RequestHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRequest = h
}

// Request records the call and delegates to the installed handler.
// Without a handler it succeeds and leaves out untouched.
func (c *Connection) Request(_ context.Context, method, path string, body, out any) error {
	c.mu.Lock()
	c.requests = append(c.requests, method+" "+path)
	handler := c.onRequest
	c.mu.Unlock()

	if handler == nil {
		return nil
	}
	resp, err := handler(method, path, body)
	if err != nil {
		return err
	}
	if out == nil || resp == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding fake response: %w", err)
	}
	return json.Unmarshal(data, out)
}

// Query returns the result registered for soql, or an empty page.
func (c *Connection) Query(_ context.Context, soql string) (*driven.QueryResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queries = append(c.queries, soql)
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	if res, ok := c.queryResults[soql]; ok {
		return res, nil
	}
	return &driven.QueryResult{Done: true}, nil
}

// Versions returns the configured version list.
func (c *Connection) Versions(_ context.Context) ([]domain.APIVersion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions, c.versionsErr
}

// AuthInfoFields returns the fields the fake was created with.
func (c *Connection) AuthInfoFields() domain.AuthFields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields
}

// ConnectionOptions derives options from the fake's fields.
func (c *Connection) ConnectionOptions() domain.ConnectionOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.ConnectionOptions{
		AccessToken: c.fields.AccessToken,
		InstanceURL: c.fields.InstanceURL,
		LoginURL:    c.fields.LoginURL,
	}
}

// APIVersion returns the configured API version.
func (c *Connection) APIVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apiVersion
}

// Queries returns every query issued so far.
func (c *Connection) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queries...)
}

// Requests returns "METHOD path" for every request issued so far.
func (c *Connection) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requests...)
}
