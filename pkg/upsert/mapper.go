package upsert

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
)

// errOmit is returned by coercions to drop a statement candidate without
// failing the record (left-join semantics).
var errOmit = errors.New("omit statement")

// Coercion turns a raw source field value into a statement value.
// Returning errOmit drops the candidate silently; any other error fails
// the record.
type Coercion func(v any) (kb.Value, error)

// Rule maps one source field to one target property.
type Rule struct {
	// Field is the source field name.
	Field string

	// Property is the target property identifier.
	Property kb.PropertyID

	// Coerce converts the field value. Required.
	Coerce Coercion

	// When, if set, gates the rule: the rule only applies when it
	// returns true for the record.
	When func(SourceRecord) bool
}

// Mapper produces statement candidates from a source record using a
// fixed, ordered rule table.
type Mapper struct {
	rules []Rule
}

// NewMapper creates a mapper over the given rules.
func NewMapper(rules ...Rule) (*Mapper, error) {
	for i, r := range rules {
		if r.Field == "" {
			return nil, errors.NewValidationError("rule.field", i, "source field name is required")
		}
		if r.Property == "" {
			return nil, errors.NewValidationError("rule.property", r.Field, "target property is required")
		}
		if r.Coerce == nil {
			return nil, errors.NewValidationError("rule.coerce", r.Field, "coercion is required")
		}
	}
	return &Mapper{rules: rules}, nil
}

// Properties returns the sorted set of target properties the mapping
// can write. The executor clears exactly these before writing.
func (m *Mapper) Properties() []kb.PropertyID {
	seen := make(map[kb.PropertyID]bool, len(m.rules))
	var props []kb.PropertyID
	for _, r := range m.rules {
		if !seen[r.Property] {
			seen[r.Property] = true
			props = append(props, r.Property)
		}
	}
	sort.Slice(props, func(i, j int) bool { return props[i] < props[j] })
	return props
}

// Map produces the ordered statement candidates for one record.
// Null and unmapped fields are skipped, not defaulted; a non-null mapped
// field yields exactly one statement.
func (m *Mapper) Map(rec SourceRecord) ([]kb.Statement, error) {
	var stmts []kb.Statement
	for _, r := range m.rules {
		if r.When != nil && !r.When(rec) {
			continue
		}
		v, ok := rec[r.Field]
		if !ok || v == nil {
			continue
		}

		value, err := r.Coerce(v)
		if err == errOmit {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("mapping field %s to %s: %w", r.Field, r.Property, err)
		}

		stmts = append(stmts, kb.Statement{Property: r.Property, Value: value})
	}
	return stmts, nil
}

// Coercions
// =========

// Stringify renders the field value as a string. Whole-number floats
// render without a decimal part.
func Stringify() Coercion {
	return func(v any) (kb.Value, error) {
		s, err := stringify(v)
		if err != nil {
			return nil, err
		}
		return kb.StringValue{Value: s}, nil
	}
}

// ZeroPad renders the field value as a zero-padded numeric string of
// the given width (e.g. 6 → "06" at width 2).
func ZeroPad(width int) Coercion {
	return func(v any) (kb.Value, error) {
		s, err := stringify(v)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.NewValidationError("zero-pad", v, "value is not numeric")
		}
		return kb.StringValue{Value: fmt.Sprintf("%0*d", width, n)}, nil
	}
}

// Formatted renders the stringified field value through a printf-style
// format with one %s verb (prefix-format coercion).
func Formatted(format string) Coercion {
	return func(v any) (kb.Value, error) {
		s, err := stringify(v)
		if err != nil {
			return nil, err
		}
		return kb.StringValue{Value: fmt.Sprintf(format, s)}, nil
	}
}

// AsCoordinate converts a Coordinate field (extracted from geometry)
// into a coordinate-pair value.
func AsCoordinate() Coercion {
	return func(v any) (kb.Value, error) {
		c, ok := v.(Coordinate)
		if !ok {
			return nil, errors.NewValidationError("coordinate", v, "value is not a coordinate")
		}
		return kb.CoordinateValue{Lat: c.Lat, Lon: c.Lon}, nil
	}
}

// ItemLookup resolves the stringified field value through a reference
// table assembled once per run. A code with no entry omits the
// statement (left-join semantics), it does not produce a null value.
func ItemLookup(table ReferenceTable) Coercion {
	return func(v any) (kb.Value, error) {
		s, err := stringify(v)
		if err != nil {
			return nil, err
		}
		id, ok := table[s]
		if !ok {
			return nil, errOmit
		}
		return kb.ItemValue{ID: id}, nil
	}
}

// CategoryItem classifies a numeric field through the category table and
// resolves the category name to its class entity. A code outside the
// table, or a category with no class entry, is an unresolved-reference
// error (the record fails validation).
func CategoryItem(table *CategoryTable, classes map[string]kb.EntityID) Coercion {
	return func(v any) (kb.Value, error) {
		s, err := stringify(v)
		if err != nil {
			return nil, err
		}
		code, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.NewValidationError("category", v, "code is not numeric")
		}
		name, err := table.Classify(code)
		if err != nil {
			return nil, err
		}
		id, ok := classes[name]
		if !ok {
			return nil, &errors.UnresolvedReferenceError{Kind: "category", Value: name}
		}
		return kb.ItemValue{ID: id}, nil
	}
}

// stringify renders scalar source values as strings. Whole floats (the
// usual decoding of integer columns) drop their fractional part.
func stringify(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), nil
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10), nil
		}
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	default:
		return "", errors.NewValidationError("stringify", v, fmt.Sprintf("unsupported value type %T", v))
	}
}

// ReferenceTable resolves foreign-key-like codes to entity identifiers.
// It is assembled once before the main loop and read-only afterwards.
type ReferenceTable map[string]kb.EntityID

// CategoryRule classifies a numeric code by exact match or threshold.
type CategoryRule struct {
	// Equals matches the code exactly when set.
	Equals *int

	// AtLeast matches codes >= the threshold when set.
	AtLeast *int

	// Category is the category name the rule yields.
	Category string
}

// CategoryTable classifies numeric codes into named categories. Exact
// matches win over thresholds; among thresholds the highest satisfied
// one wins; Fallback applies when nothing matches.
type CategoryTable struct {
	Rules    []CategoryRule
	Fallback string
}

// Classify returns the category for code.
func (t *CategoryTable) Classify(code int) (string, error) {
	for _, r := range t.Rules {
		if r.Equals != nil && code == *r.Equals {
			return r.Category, nil
		}
	}

	best := ""
	bestThreshold := -1
	for _, r := range t.Rules {
		if r.AtLeast != nil && code >= *r.AtLeast && *r.AtLeast > bestThreshold {
			best = r.Category
			bestThreshold = *r.AtLeast
		}
	}
	if best != "" {
		return best, nil
	}

	if t.Fallback != "" {
		return t.Fallback, nil
	}
	return "", &errors.UnresolvedReferenceError{Kind: "category code", Value: strconv.Itoa(code)}
}

// IntPtr is a convenience for building category rules.
func IntPtr(n int) *int {
	return &n
}
