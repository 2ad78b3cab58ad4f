package jobs

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
	"github.com/geokb/geokb/pkg/sources/sparql"
	"github.com/geokb/geokb/pkg/upsert"
)

// Source record fields for chronostratigraphic units.
const (
	fieldUnitID    = "id"    // local name of the unit URI, the identity key
	fieldUnitLabel = "label" // English label
	fieldUnitRank  = "rank"  // local name of the rank URI, may be absent
)

// Vocabulary names the chronostrat job resolves.
const (
	propUnitID   = "chronostratigraphic identifier"
	propRank     = "stratigraphic rank"
	propRankCode = "stratigraphic rank code" // identifying code on a rank item
	propPartOf   = "part of"
)

// ChronostratJob syncs geologic-time units from the RDF graph source
// into the knowledgebase, then links their containment hierarchy as a
// secondary pass.
type ChronostratJob struct {
	Source  *sparql.Client
	KB      kb.Client
	Vocab   *kb.Vocabulary
	Dataset kb.EntityID

	// Graph identifiers in the source vocabulary.
	UnitClassID       string // class of chronostratigraphic units
	InstanceOfPropID  string
	RankPropID        string
	ContainmentPropID string

	Logger  *zerolog.Logger
	Confirm upsert.Confirm
}

// Run queries the source graph for (identifier, label, rank) tuples and
// upserts one entity per unit.
func (j *ChronostratJob) Run(ctx context.Context) (*upsert.Report, error) {
	rows, err := j.Source.Select(ctx,
		sparql.QueryInstancesWithRank(j.UnitClassID, j.InstanceOfPropID, j.RankPropID))
	if err != nil {
		return nil, err
	}

	records := UnitRecords(rows)

	rankTable, err := j.rankTable(ctx, records)
	if err != nil {
		return nil, err
	}

	mapper, err := upsert.NewMapper(
		upsert.Rule{Field: fieldUnitID, Property: j.Vocab.MustProperty(propUnitID),
			Coerce: upsert.Stringify()},
		upsert.Rule{Field: fieldUnitRank, Property: j.Vocab.MustProperty(propRank),
			Coerce: upsert.ItemLookup(rankTable)},
	)
	if err != nil {
		return nil, err
	}

	reference := kb.Reference{
		Property: j.Vocab.MustProperty(propStatedIn),
		Dataset:  j.Dataset,
	}
	key := upsert.IdentityKey{Field: fieldUnitID, Property: j.Vocab.MustProperty(propUnitID)}

	executor, err := upsert.NewExecutor(j.KB, key, mapper, describeUnit, reference,
		upsert.WithSummary("sync chronostratigraphic units from source graph"),
		upsert.WithConfirm(j.Confirm),
		upsert.WithLogger(j.Logger),
	)
	if err != nil {
		return nil, err
	}

	return executor.Run(ctx, records)
}

// Link queries the source graph for directed containment pairs and
// attaches them to the already-synced unit entities. Every endpoint
// must exist in the knowledgebase before this pass runs.
func (j *ChronostratJob) Link(ctx context.Context) (*upsert.Report, error) {
	rows, err := j.Source.Select(ctx,
		sparql.QueryContainmentPairs(j.UnitClassID, j.InstanceOfPropID, j.ContainmentPropID))
	if err != nil {
		return nil, err
	}

	partOf := j.Vocab.MustProperty(propPartOf)
	var rels []upsert.Relationship
	ids := make(map[string]bool)
	for _, row := range rows {
		item, ok := row.Get("item")
		if !ok {
			continue
		}
		parent, ok := row.Get("parent")
		if !ok {
			continue
		}
		subject := sparql.LocalName(item)
		object := sparql.LocalName(parent)
		rels = append(rels, upsert.Relationship{Subject: subject, Property: partOf, Object: object})
		ids[subject] = true
		ids[object] = true
	}

	index, err := j.unitIndex(ctx, ids)
	if err != nil {
		return nil, err
	}

	reference := kb.Reference{
		Property: j.Vocab.MustProperty(propStatedIn),
		Dataset:  j.Dataset,
	}

	linker, err := upsert.NewLinker(j.KB, index, reference,
		upsert.WithLinkSummary("link chronostratigraphic containment from source graph"),
		upsert.WithLinkConfirm(j.Confirm),
		upsert.WithLinkLogger(j.Logger),
	)
	if err != nil {
		return nil, err
	}

	return linker.Run(ctx, rels)
}

// UnitRecords flattens SPARQL rows into source records. Rows without an
// item binding are dropped; an unbound rank leaves the field absent.
func UnitRecords(rows []sparql.Record) []upsert.SourceRecord {
	records := make([]upsert.SourceRecord, 0, len(rows))
	for _, row := range rows {
		item, ok := row.Get("item")
		if !ok {
			continue
		}
		rec := upsert.SourceRecord{fieldUnitID: sparql.LocalName(item)}
		if label, ok := row.Get("itemLabel"); ok {
			rec[fieldUnitLabel] = label
		}
		if rank, ok := row.Get("rank"); ok {
			rec[fieldUnitRank] = sparql.LocalName(rank)
		}
		records = append(records, rec)
	}
	return records
}

// describeUnit produces the textual fields for a unit record.
func describeUnit(rec upsert.SourceRecord) upsert.TextFields {
	label, _ := rec.Text(fieldUnitLabel)

	desc := "geologic time unit"
	if rank, ok := rec.Text(fieldUnitRank); ok {
		desc = "geologic " + cases.Lower(language.English).String(rank)
	}

	text := upsert.TextFields{
		Label:       cases.Title(language.English).String(label),
		Description: desc,
	}
	if id, ok := rec.Text(fieldUnitID); ok && id != label {
		text.Aliases = []string{id}
	}
	return text
}

// rankTable assembles the rank reference table once per run: each
// distinct rank code resolves to its knowledgebase entity. Unmatched
// ranks stay absent and the mapper omits the statement.
func (j *ChronostratJob) rankTable(ctx context.Context, records []upsert.SourceRecord) (upsert.ReferenceTable, error) {
	codeProp, err := j.Vocab.Property(propRankCode)
	if err != nil {
		return nil, err
	}

	table := make(upsert.ReferenceTable)
	for _, rec := range records {
		rank, ok := rec.Text(fieldUnitRank)
		if !ok || rank == "" {
			continue
		}
		if _, done := table[rank]; done {
			continue
		}
		id, found, err := j.KB.ResolveByProperty(ctx, codeProp, rank)
		if err != nil {
			if errors.IsAmbiguousMatch(err) {
				return nil, err
			}
			return nil, errors.WrapResource("resolve", "stratigraphic rank", rank, err)
		}
		if found {
			table[rank] = id
		}
	}
	return table, nil
}

// unitIndex builds the identifier-to-entity lookup the linker needs.
// A unit missing from the knowledgebase stays absent here and surfaces
// from the linker as an unresolved reference.
func (j *ChronostratJob) unitIndex(ctx context.Context, ids map[string]bool) (map[string]kb.EntityID, error) {
	unitProp, err := j.Vocab.Property(propUnitID)
	if err != nil {
		return nil, err
	}

	index := make(map[string]kb.EntityID, len(ids))
	for id := range ids {
		entityID, found, err := j.KB.ResolveByProperty(ctx, unitProp, id)
		if err != nil {
			if errors.IsAmbiguousMatch(err) {
				return nil, err
			}
			return nil, errors.WrapResource("resolve", "chronostratigraphic unit", id, err)
		}
		if found {
			index[id] = entityID
		}
	}
	return index, nil
}
