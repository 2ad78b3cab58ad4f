package jobs

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/geokb/geokb/pkg/kb"
	"github.com/geokb/geokb/pkg/sources/sparql"
)

// VocabJob pulls the knowledgebase's property catalog from its SPARQL
// endpoint and writes it as a vocabulary file, so later runs resolve
// property names without ambient global caches.
type VocabJob struct {
	Source *sparql.Client
	Logger *zerolog.Logger
}

// Pull queries the property catalog and merges it into vocab. Existing
// class entries are preserved; property entries refresh in place.
func (j *VocabJob) Pull(ctx context.Context, vocab *kb.Vocabulary) (int, error) {
	rows, err := j.Source.Select(ctx, sparql.PropertyCatalogQuery)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, row := range rows {
		uri, ok := row.Get("property")
		if !ok {
			continue
		}
		label, ok := row.Get("propertyLabel")
		if !ok || label == "" {
			continue
		}
		vocab.Properties[label] = kb.PropertyID(sparql.LocalName(uri))
		count++
	}

	j.Logger.Info().Int("properties", count).Msg("Pulled property catalog")
	return count, nil
}
