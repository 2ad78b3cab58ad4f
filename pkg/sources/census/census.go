// Package census reads tabular geospatial datasets from a cloud catalog
// that serves GeoJSON feature collections. Each feature becomes one
// source record: a property map plus geometry.
package census

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/geokb/geokb/pkg/errors"
)

const serviceName = "geospatial-catalog"

// DefaultHTTPTimeout is the default timeout for dataset downloads.
const DefaultHTTPTimeout = 2 * time.Minute

// Record is one dataset row: scalar properties plus geometry. Records
// are read once from the source and never mutated.
type Record struct {
	Properties map[string]any
	Geometry   orb.Geometry
}

// Text returns a string-typed property and whether it is present and
// non-null.
func (r Record) Text(field string) (string, bool) {
	v, ok := r.Properties[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Number returns a numeric property and whether it is present and
// non-null. GeoJSON numbers decode as float64.
func (r Record) Number(field string) (float64, bool) {
	v, ok := r.Properties[field]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// RepresentativePoint returns a point inside-or-near the record's
// geometry (the planar centroid), as (lat, lon). ok is false when the
// record has no geometry.
func (r Record) RepresentativePoint() (lat, lon float64, ok bool) {
	if r.Geometry == nil {
		return 0, 0, false
	}
	var point orb.Point
	switch g := r.Geometry.(type) {
	case orb.Point:
		point = g
	default:
		point, _ = planar.CentroidArea(r.Geometry)
	}
	// GeoJSON positions are (lon, lat)
	return point.Y(), point.X(), true
}

// Client downloads datasets from the geospatial catalog.
type Client struct {
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a dataset client.
func New(opts ...Option) *Client {
	c := &Client{http: &http.Client{Timeout: DefaultHTTPTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchDataset resolves a dataset URL to its records. The collection
// carries no ordering guarantee; callers treat it as an unordered batch.
func (c *Client) FetchDataset(ctx context.Context, datasetURL string) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, datasetURL, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", datasetURL, err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapAPI(serviceName, 0, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapResource("read", "dataset", datasetURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errors.APIError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Message:    string(data),
			Endpoint:   datasetURL,
		}
	}

	return ParseDataset(data, datasetURL)
}

// ParseDataset decodes a GeoJSON feature collection into records.
func ParseDataset(data []byte, source string) ([]Record, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.WrapParse("geojson", source, err)
	}

	records := make([]Record, 0, len(fc.Features))
	for _, f := range fc.Features {
		records = append(records, Record{
			Properties: f.Properties,
			Geometry:   f.Geometry,
		})
	}
	return records, nil
}
