package sparql

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geokb/geokb/pkg/errors"
)

const resultsFixture = `{
  "head": {"vars": ["item", "itemLabel", "rank"]},
  "results": {"bindings": [
    {
      "item": {"type": "uri", "value": "http://example.org/entity/Q101"},
      "itemLabel": {"type": "literal", "value": "Cambrian", "xml:lang": "en"},
      "rank": {"type": "literal", "value": "period"}
    },
    {
      "item": {"type": "uri", "value": "http://example.org/entity/Q102"},
      "itemLabel": {"type": "literal", "value": "Hadean", "xml:lang": "en"}
    }
  ]}
}`

func TestClientSelect(t *testing.T) {
	var gotQuery, gotFormat, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotFormat = r.URL.Query().Get("format")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(resultsFixture))
	}))
	defer srv.Close()

	c := New(srv.URL)
	records, err := c.Select(context.Background(), "SELECT ?item WHERE { ?item ?p ?o }")
	require.NoError(t, err)

	assert.Equal(t, "SELECT ?item WHERE { ?item ?p ?o }", gotQuery)
	assert.Equal(t, "json", gotFormat)
	assert.Contains(t, gotAccept, "application/sparql-results+json")

	require.Len(t, records, 2)
	assert.Equal(t, "http://example.org/entity/Q101", records[0]["item"])
	assert.Equal(t, "Cambrian", records[0]["itemLabel"])
}

func TestFlattenOmitsUnboundVariables(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(resultsFixture))
	}))
	defer srv.Close()

	records, err := New(srv.URL).Select(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// First row binds rank; second does not, and the key must be absent
	// rather than empty
	rank, ok := records[0].Get("rank")
	assert.True(t, ok)
	assert.Equal(t, "period", rank)

	_, ok = records[1].Get("rank")
	assert.False(t, ok)
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "endpoint overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Query(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.IsServiceUnavailable(err))
}

func TestClientMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Query(context.Background(), "q")
	require.Error(t, err)

	var parseErr *errors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "sparql-results", parseErr.Format)
}

func TestClientContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(resultsFixture))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL).Query(ctx, "q")
	require.Error(t, err)
}

func TestQueryByItemLabel(t *testing.T) {
	q := QueryByItemLabel("Cambrian", true)
	assert.Contains(t, q, `rdfs:label|skos:altLabel "Cambrian"@en`)

	q = QueryByItemLabel("Cambrian", false)
	assert.Contains(t, q, `rdfs:label "Cambrian"@en`)
	assert.NotContains(t, q, "skos:altLabel")

	// Quotes in the label must not break out of the literal
	q = QueryByItemLabel(`His "Quoted" Name`, false)
	assert.Contains(t, q, `"His \"Quoted\" Name"@en`)
}

func TestQueryItemSubclasses(t *testing.T) {
	q := QueryItemSubclasses("Q104", "P13")
	assert.Contains(t, q, "VALUES (?item) {(wd:Q104)}")
	assert.Contains(t, q, "OPTIONAL")
	assert.Contains(t, q, "wdt:P13")
	assert.Contains(t, q, "GROUP_CONCAT")
}

func TestQueryInstancesWithRank(t *testing.T) {
	q := QueryInstancesWithRank("Q104", "P1", "P14")
	assert.Contains(t, q, "?item wdt:P1 wd:Q104.")
	assert.Contains(t, q, "OPTIONAL { ?item wdt:P14 ?rank }")
}

func TestQueryContainmentPairs(t *testing.T) {
	q := QueryContainmentPairs("Q104", "P1", "P10")
	assert.Contains(t, q, "?item wdt:P1 wd:Q104.")
	assert.Contains(t, q, "?item wdt:P10 ?parent.")
}

func TestLocalName(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"http://example.org/entity/Q55", "Q55"},
		{"http://example.org/prop/direct/P13", "P13"},
		{"http://example.org/ontology#Period", "Period"},
		{"Q55", "Q55"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LocalName(tt.uri), "uri %q", tt.uri)
	}
}

func TestEscapeLiteral(t *testing.T) {
	assert.Equal(t, `plain`, escapeLiteral("plain"))
	assert.Equal(t, `a \"b\"`, escapeLiteral(`a "b"`))
	assert.Equal(t, `back\\slash`, escapeLiteral(`back\slash`))
	assert.False(t, strings.Contains(escapeLiteral(`"`), `""`))
}
