// Package sparql provides a read-only client for SPARQL endpoints that
// speak the W3C SPARQL 1.1 JSON results format, plus the fixed query
// builders the sync jobs use.
//
// Query results flatten to one Record per binding row. A variable with
// no binding in a row is absent from the record, not empty: callers must
// check presence explicitly.
package sparql

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/geokb/geokb/pkg/errors"
)

const serviceName = "sparql"

// DefaultHTTPTimeout is the default timeout for SPARQL queries.
const DefaultHTTPTimeout = 60 * time.Second

// Client queries a single SPARQL endpoint.
type Client struct {
	http     *http.Client
	endpoint string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the endpoint URL.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: DefaultHTTPTimeout},
		endpoint: endpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Results is the raw SPARQL JSON results document.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]Binding `json:"bindings"`
	} `json:"results"`
}

// Binding is a single variable binding in a result row.
type Binding struct {
	Type  string `json:"type"` // "uri", "literal", "bnode"
	Value string `json:"value"`
	Lang  string `json:"xml:lang,omitempty"`
}

// Record is one flattened result row: variable name to bound value.
// Unbound variables are absent from the map.
type Record map[string]string

// Get returns the bound value for a variable and whether it was bound.
func (r Record) Get(name string) (string, bool) {
	v, ok := r[name]
	return v, ok
}

// Query executes a SPARQL query and returns the raw results document.
func (c *Client) Query(ctx context.Context, query string) (*Results, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("query", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", c.endpoint, err)
	}
	req.Header.Set("Accept", "application/sparql-results+json, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapAPI(serviceName, 0, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapResource("read", "response body", c.endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errors.APIError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Message:    string(data),
			Endpoint:   c.endpoint,
		}
	}

	var results Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, errors.WrapParse("sparql-results", c.endpoint, err)
	}
	return &results, nil
}

// Select executes a query and flattens the bindings into records, one
// per result row, keyed by the query's projected variables.
func (c *Client) Select(ctx context.Context, query string) ([]Record, error) {
	results, err := c.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return Flatten(results), nil
}

// Flatten converts a results document into flat records. Variables that
// are unbound in a row are left out of that row's record.
func Flatten(results *Results) []Record {
	records := make([]Record, 0, len(results.Results.Bindings))
	for _, row := range results.Results.Bindings {
		record := make(Record, len(results.Head.Vars))
		for _, name := range results.Head.Vars {
			if b, ok := row[name]; ok {
				record[name] = b.Value
			}
		}
		records = append(records, record)
	}
	return records
}
