// Package kb defines the knowledgebase data model used by the upsert
// pipeline: entities, statements, typed statement values, provenance
// references, and the vocabulary of resolved property and class IDs.
//
// The knowledgebase itself is an external Wikibase-style graph store;
// this package only models the slice of it the pipeline reads and writes.
package kb

import (
	"sort"
)

// EntityID is the opaque identifier of an entity in the knowledgebase
// (e.g. "Q55").
type EntityID string

// String returns the string representation of an entity ID.
func (id EntityID) String() string {
	return string(id)
}

// PropertyID is the opaque identifier of a property in the knowledgebase
// (e.g. "P13").
type PropertyID string

// String returns the string representation of a property ID.
func (id PropertyID) String() string {
	return string(id)
}

// Value is the value of a statement. Exactly one concrete type applies:
// an entity reference, a string identifier, or a coordinate pair.
// There is no "absent" Value; a statement that would have no value is
// not produced at all.
type Value interface {
	// Equal reports whether two values are the same kind and content.
	Equal(other Value) bool

	isValue()
}

// ItemValue references another entity.
type ItemValue struct {
	ID EntityID
}

func (ItemValue) isValue() {}

// Equal implements Value.
func (v ItemValue) Equal(other Value) bool {
	o, ok := other.(ItemValue)
	return ok && o.ID == v.ID
}

// StringValue holds a plain string or external identifier.
type StringValue struct {
	Value string
}

func (StringValue) isValue() {}

// Equal implements Value.
func (v StringValue) Equal(other Value) bool {
	o, ok := other.(StringValue)
	return ok && o.Value == v.Value
}

// CoordinateValue holds a WGS84 coordinate pair.
type CoordinateValue struct {
	Lat float64
	Lon float64
}

func (CoordinateValue) isValue() {}

// Equal implements Value.
func (v CoordinateValue) Equal(other Value) bool {
	o, ok := other.(CoordinateValue)
	return ok && o.Lat == v.Lat && o.Lon == v.Lon
}

// Reference is the provenance attached to a statement: the entity that
// represents the dataset the value came from.
type Reference struct {
	// Property is the reference property (e.g. "stated in").
	Property PropertyID

	// Dataset is the dataset entity the statement was derived from.
	Dataset EntityID
}

// Statement is a (property, value, provenance) assertion on an entity.
type Statement struct {
	Property  PropertyID
	Value     Value
	Reference *Reference
}

// Equal reports whether two statements assert the same property/value
// with the same provenance.
func (s Statement) Equal(other Statement) bool {
	if s.Property != other.Property {
		return false
	}
	if s.Value == nil || other.Value == nil {
		return s.Value == other.Value
	}
	if !s.Value.Equal(other.Value) {
		return false
	}
	if s.Reference == nil || other.Reference == nil {
		return s.Reference == other.Reference
	}
	return *s.Reference == *other.Reference
}

// Entity is a node in the knowledgebase graph. ID is empty until the
// entity has been persisted.
type Entity struct {
	ID          EntityID
	Label       string
	Aliases     []string
	Description string

	// statements grouped by property, in insertion order per property.
	statements map[PropertyID][]Statement
}

// NewEntity creates a new, empty, unpersisted entity.
func NewEntity() *Entity {
	return &Entity{statements: make(map[PropertyID][]Statement)}
}

// Statements returns all statements for the given property.
func (e *Entity) Statements(p PropertyID) []Statement {
	return e.statements[p]
}

// AllStatements returns every statement on the entity, ordered by
// property ID for deterministic output.
func (e *Entity) AllStatements() []Statement {
	props := make([]PropertyID, 0, len(e.statements))
	for p := range e.statements {
		props = append(props, p)
	}
	sort.Slice(props, func(i, j int) bool { return props[i] < props[j] })

	var all []Statement
	for _, p := range props {
		all = append(all, e.statements[p]...)
	}
	return all
}

// Properties returns the sorted set of properties that have statements.
func (e *Entity) Properties() []PropertyID {
	props := make([]PropertyID, 0, len(e.statements))
	for p := range e.statements {
		props = append(props, p)
	}
	sort.Slice(props, func(i, j int) bool { return props[i] < props[j] })
	return props
}

// AddStatement appends a statement under its property.
func (e *Entity) AddStatement(s Statement) {
	if e.statements == nil {
		e.statements = make(map[PropertyID][]Statement)
	}
	e.statements[s.Property] = append(e.statements[s.Property], s)
}

// ReplaceStatements removes every existing statement for the given
// property and installs the new set. This is the clear-then-write
// primitive: old statements for the property are dropped even when the
// new values are unchanged, so a rerun fully refreshes the property.
func (e *Entity) ReplaceStatements(p PropertyID, stmts []Statement) {
	if e.statements == nil {
		e.statements = make(map[PropertyID][]Statement)
	}
	if len(stmts) == 0 {
		delete(e.statements, p)
		return
	}
	e.statements[p] = append([]Statement(nil), stmts...)
}

// ClearStatements removes all statements for the given property.
func (e *Entity) ClearStatements(p PropertyID) {
	delete(e.statements, p)
}

// SetAliases replaces the alias list (overwrite, not merge).
func (e *Entity) SetAliases(aliases ...string) {
	e.Aliases = append([]string(nil), aliases...)
}
