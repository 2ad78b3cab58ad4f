package kb

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/geokb/geokb/pkg/errors"
)

// Vocabulary maps human-readable property and class names to their
// resolved knowledgebase identifiers. It replaces the ambient global
// lookup caches of earlier tooling: built once (from a YAML file or a
// live property-catalog query), then passed into components explicitly
// and never mutated during a run.
type Vocabulary struct {
	Properties map[string]PropertyID `yaml:"properties"`
	Classes    map[string]EntityID   `yaml:"classes"`
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		Properties: make(map[string]PropertyID),
		Classes:    make(map[string]EntityID),
	}
}

// LoadVocabulary reads a vocabulary from a YAML file.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from CLI config
	if err != nil {
		return nil, errors.WrapResource("read", "vocabulary", path, err)
	}

	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}

	if v.Properties == nil {
		v.Properties = make(map[string]PropertyID)
	}
	if v.Classes == nil {
		v.Classes = make(map[string]EntityID)
	}
	return &v, nil
}

// Save writes the vocabulary to a YAML file.
func (v *Vocabulary) Save(path string) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return errors.WrapResource("write", "vocabulary", path, err)
	}
	return nil
}

// Property resolves a property name to its identifier.
func (v *Vocabulary) Property(name string) (PropertyID, error) {
	id, ok := v.Properties[name]
	if !ok {
		return "", &errors.UnresolvedReferenceError{Kind: "property", Value: name}
	}
	return id, nil
}

// Class resolves a class name to its entity identifier.
func (v *Vocabulary) Class(name string) (EntityID, error) {
	id, ok := v.Classes[name]
	if !ok {
		return "", &errors.UnresolvedReferenceError{Kind: "class", Value: name}
	}
	return id, nil
}

// MustProperty resolves a property name or panics. Intended for fixed
// mapping tables assembled at startup where a missing entry is a
// programming error, not runtime input.
func (v *Vocabulary) MustProperty(name string) PropertyID {
	id, err := v.Property(name)
	if err != nil {
		panic(err)
	}
	return id
}

// MustClass resolves a class name or panics.
func (v *Vocabulary) MustClass(name string) EntityID {
	id, err := v.Class(name)
	if err != nil {
		panic(err)
	}
	return id
}
