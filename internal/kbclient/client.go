// Package kbclient implements the kb.Client contract over the
// knowledgebase HTTP API: structured identity lookup, entity read,
// entity create, and entity write with a change summary.
package kbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
)

const serviceName = "knowledgebase"

// DefaultHTTPTimeout is the default timeout for knowledgebase requests.
const DefaultHTTPTimeout = 30 * time.Second

// Client talks to a Wikibase-style knowledgebase over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token used for write operations.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the knowledgebase at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ kb.Client = (*Client)(nil)

// ResolveByProperty implements kb.Client.
func (c *Client) ResolveByProperty(ctx context.Context, property kb.PropertyID, value string) (kb.EntityID, bool, error) {
	reqBody := resolveRequest{Property: string(property), Value: value}

	var resp resolveResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/query", reqBody, &resp); err != nil {
		return "", false, err
	}

	switch len(resp.Matches) {
	case 0:
		return "", false, nil
	case 1:
		return kb.EntityID(resp.Matches[0].ID), true, nil
	default:
		matches := make([]string, len(resp.Matches))
		for i, m := range resp.Matches {
			matches[i] = m.ID
		}
		return "", false, &errors.AmbiguousMatchError{
			Property: string(property),
			Value:    value,
			Matches:  matches,
		}
	}
}

// Get implements kb.Client.
func (c *Client) Get(ctx context.Context, id kb.EntityID) (*kb.Entity, error) {
	var we wireEntity
	if err := c.do(ctx, http.MethodGet, "/api/v1/entities/"+string(id), nil, &we); err != nil {
		return nil, err
	}
	return we.toEntity()
}

// Create implements kb.Client.
func (c *Client) Create(ctx context.Context, e *kb.Entity) (kb.EntityID, error) {
	if c.token == "" {
		return "", errors.ErrTokenRequired
	}

	var resp writeResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/entities", fromEntity(e), &resp); err != nil {
		return "", err
	}
	return kb.EntityID(resp.ID), nil
}

// Save implements kb.Client.
func (c *Client) Save(ctx context.Context, e *kb.Entity, summary string) (kb.EntityID, error) {
	if c.token == "" {
		return "", errors.ErrTokenRequired
	}
	if e.ID == "" {
		return "", errors.NewValidationError("entity.id", "", "cannot save an entity without an ID")
	}

	req := writeRequest{Entity: fromEntity(e), Summary: summary}

	var resp writeResponse
	if err := c.do(ctx, http.MethodPut, "/api/v1/entities/"+string(e.ID), req, &resp); err != nil {
		return "", err
	}
	return kb.EntityID(resp.ID), nil
}

// do performs one request against the knowledgebase API and decodes the
// JSON response into target.
func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.WrapParse("json", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.WrapResource("create", "request", method+" "+path, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapAPI(serviceName, 0, err)
	}

	return decodeResponse(resp, path, target)
}

// decodeResponse decodes a JSON response into the target structure.
func decodeResponse(resp *http.Response, endpoint string, target any) error {
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapResource("read", "response body", endpoint, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return errors.NewNotFoundError("entity", endpoint)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &errors.APIError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Message:    string(data),
			Endpoint:   endpoint,
		}
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return errors.WrapParse("json", endpoint, err)
	}
	return nil
}

// resolveRequest is the structured identity-lookup query.
type resolveRequest struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

type resolveResponse struct {
	Matches []resolveMatch `json:"matches"`
}

type resolveMatch struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

type writeRequest struct {
	Entity  wireEntity `json:"entity"`
	Summary string     `json:"summary,omitempty"`
}

type writeResponse struct {
	ID string `json:"id"`
}

// String describes the client target, useful in logs.
func (c *Client) String() string {
	return fmt.Sprintf("kbclient(%s)", c.baseURL)
}
