// Package upsert implements the lookup-or-create-then-reconcile
// procedure: for each source record, resolve an identity key against
// the knowledgebase, load or instantiate the target entity, rebuild its
// statement set from a fixed field mapping with run-level provenance,
// and persist it. A secondary pass links already-extracted pairwise
// relationships onto subject entities.
package upsert

// SourceRecord is one row read from an external dataset: field name to
// scalar or geometry value. Values are string, float64, Coordinate, or
// nil; nil and missing fields behave identically (the field is skipped,
// never defaulted). Records are immutable once read.
type SourceRecord map[string]any

// Coordinate is a WGS84 point extracted from a record's geometry.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Text returns a string field and whether it is present and non-null.
func (r SourceRecord) Text(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// TextFields are the mapped textual fields applied to the target entity
// with overwrite semantics.
type TextFields struct {
	Label       string
	Aliases     []string
	Description string
}
