// Package jobs wires the source clients, field mappings, and upsert
// components into the concrete sync runs the CLI exposes.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
	"github.com/geokb/geokb/pkg/sources/census"
	"github.com/geokb/geokb/pkg/upsert"
)

// Census dataset field names (TIGER/Line state boundaries).
const (
	fieldPostal = "STUSPS"     // two-letter postal code, the identity key
	fieldName   = "NAME"       // state name
	fieldFIPS   = "STATEFP"    // state FIPS code
	fieldRegion = "REGION"     // census region code
	fieldPoint  = "coordinate" // derived representative point
)

// Vocabulary names the states job resolves.
const (
	propInstanceOf = "instance of"
	propStatedIn   = "stated in"
	propFIPS       = "FIPS 5-2 numeric code"
	propPostal     = "postal abbreviation"
	propISO3166    = "ISO 3166-2 code"
	propCoordinate = "coordinate location"
	propRegion     = "census region"      // item link on a state
	propRegionCode = "census region code" // identifying code on a region

	classState    = "U.S. State"
	classDistrict = "Federal District"
	classOutlying = "Outlying Area"
)

// StatesJob syncs U.S. state boundary records from the geospatial
// catalog into the knowledgebase.
type StatesJob struct {
	Source  *census.Client
	KB      kb.Client
	Vocab   *kb.Vocabulary
	Dataset kb.EntityID // entity representing the source dataset
	Logger  *zerolog.Logger
	Confirm upsert.Confirm
}

// stateCategories classifies state FIPS codes. DC is the exact match;
// codes from 57 up are outlying areas; everything else is a state.
func stateCategories() *upsert.CategoryTable {
	return &upsert.CategoryTable{
		Rules: []upsert.CategoryRule{
			{Equals: upsert.IntPtr(11), Category: classDistrict},
			{AtLeast: upsert.IntPtr(57), Category: classOutlying},
		},
		Fallback: classState,
	}
}

// Run fetches the dataset and upserts every record.
func (j *StatesJob) Run(ctx context.Context, datasetURL string) (*upsert.Report, error) {
	rows, err := j.Source.FetchDataset(ctx, datasetURL)
	if err != nil {
		return nil, err
	}

	records := StateRecords(rows)

	regionTable, err := j.regionTable(ctx, records)
	if err != nil {
		return nil, err
	}

	mapper, err := j.mapper(regionTable)
	if err != nil {
		return nil, err
	}

	reference := kb.Reference{
		Property: j.Vocab.MustProperty(propStatedIn),
		Dataset:  j.Dataset,
	}
	key := upsert.IdentityKey{Field: fieldPostal, Property: j.Vocab.MustProperty(propPostal)}

	executor, err := upsert.NewExecutor(j.KB, key, mapper, j.describe, reference,
		upsert.WithSummary("sync state boundaries from census dataset"),
		upsert.WithConfirm(j.Confirm),
		upsert.WithLogger(j.Logger),
	)
	if err != nil {
		return nil, err
	}

	return executor.Run(ctx, records)
}

// StateRecords converts dataset rows into source records, deriving the
// representative point from each row's geometry.
func StateRecords(rows []census.Record) []upsert.SourceRecord {
	records := make([]upsert.SourceRecord, 0, len(rows))
	for _, row := range rows {
		rec := make(upsert.SourceRecord, len(row.Properties)+1)
		for k, v := range row.Properties {
			rec[k] = v
		}
		if lat, lon, ok := row.RepresentativePoint(); ok {
			rec[fieldPoint] = upsert.Coordinate{Lat: lat, Lon: lon}
		}
		records = append(records, rec)
	}
	return records
}

// mapper builds the fixed field mapping for state records.
func (j *StatesJob) mapper(regions upsert.ReferenceTable) (*upsert.Mapper, error) {
	classes := map[string]kb.EntityID{}
	for _, name := range []string{classState, classDistrict, classOutlying} {
		id, err := j.Vocab.Class(name)
		if err != nil {
			return nil, err
		}
		classes[name] = id
	}

	return upsert.NewMapper(
		upsert.Rule{Field: fieldFIPS, Property: j.Vocab.MustProperty(propInstanceOf),
			Coerce: upsert.CategoryItem(stateCategories(), classes)},
		upsert.Rule{Field: fieldFIPS, Property: j.Vocab.MustProperty(propFIPS),
			Coerce: upsert.ZeroPad(2)},
		upsert.Rule{Field: fieldPostal, Property: j.Vocab.MustProperty(propPostal),
			Coerce: upsert.Stringify()},
		upsert.Rule{Field: fieldPostal, Property: j.Vocab.MustProperty(propISO3166),
			Coerce: upsert.Formatted("US-%s")},
		upsert.Rule{Field: fieldPoint, Property: j.Vocab.MustProperty(propCoordinate),
			Coerce: upsert.AsCoordinate()},
		upsert.Rule{Field: fieldRegion, Property: j.Vocab.MustProperty(propRegion),
			Coerce: upsert.ItemLookup(regions)},
	)
}

// describe produces the textual fields for a state record.
func (j *StatesJob) describe(rec upsert.SourceRecord) upsert.TextFields {
	name, _ := rec.Text(fieldName)
	postal, _ := rec.Text(fieldPostal)

	category := classState
	if fips, ok := rec.Text(fieldFIPS); ok {
		if c, err := classifyFIPS(fips); err == nil {
			category = c
		}
	}

	text := upsert.TextFields{
		Label:       name,
		Description: fmt.Sprintf("%s in the United States of America", category),
	}
	if postal != "" {
		text.Aliases = []string{postal}
	}
	return text
}

// classifyFIPS classifies a FIPS code string through the category table.
func classifyFIPS(fips string) (string, error) {
	var code int
	if _, err := fmt.Sscanf(fips, "%d", &code); err != nil {
		return "", errors.NewValidationError(fieldFIPS, fips, "FIPS code is not numeric")
	}
	return stateCategories().Classify(code)
}

// regionTable assembles the census-region reference table once per run:
// each distinct region code resolves to its entity, and codes with no
// corresponding entity are simply absent (left-join semantics carry
// through to the mapper).
func (j *StatesJob) regionTable(ctx context.Context, records []upsert.SourceRecord) (upsert.ReferenceTable, error) {
	codeProp, err := j.Vocab.Property(propRegionCode)
	if err != nil {
		return nil, err
	}

	// Region codes arrive as strings or numbers depending on the dataset
	// vintage; normalize the same way the mapper does.
	codes := make(map[string]bool)
	for _, rec := range records {
		v, ok := rec[fieldRegion]
		if !ok || v == nil {
			continue
		}
		code := strings.TrimSpace(fmt.Sprintf("%v", v))
		if code != "" {
			codes[code] = true
		}
	}

	sorted := make([]string, 0, len(codes))
	for code := range codes {
		sorted = append(sorted, code)
	}
	sort.Strings(sorted)

	table := make(upsert.ReferenceTable, len(sorted))
	for _, code := range sorted {
		id, found, err := j.KB.ResolveByProperty(ctx, codeProp, code)
		if err != nil {
			if errors.IsAmbiguousMatch(err) {
				return nil, err
			}
			return nil, errors.WrapResource("resolve", "census region", code, err)
		}
		if found {
			table[code] = id
		}
	}
	return table, nil
}
