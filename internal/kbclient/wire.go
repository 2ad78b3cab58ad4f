package kbclient

import (
	"fmt"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
)

// Wire representation of entities and statements. Statement values are
// tagged unions: exactly one of the value fields is present, selected by
// Type. Absent or unknown variants decode to an explicit error rather
// than a zero value.

type wireEntity struct {
	ID          string                     `json:"id,omitempty"`
	Label       string                     `json:"label,omitempty"`
	Description string                     `json:"description,omitempty"`
	Aliases     []string                   `json:"aliases,omitempty"`
	Claims      map[string][]wireStatement `json:"claims,omitempty"`
}

type wireStatement struct {
	Type       string          `json:"type"`
	Item       string          `json:"item,omitempty"`
	String     string          `json:"string,omitempty"`
	Coordinate *wireCoordinate `json:"coordinate,omitempty"`
	References []wireReference `json:"references,omitempty"`
}

type wireCoordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type wireReference struct {
	Property string `json:"property"`
	Item     string `json:"item"`
}

// fromEntity converts a domain entity to its wire form.
func fromEntity(e *kb.Entity) wireEntity {
	we := wireEntity{
		ID:          string(e.ID),
		Label:       e.Label,
		Description: e.Description,
		Aliases:     e.Aliases,
	}

	props := e.Properties()
	if len(props) > 0 {
		we.Claims = make(map[string][]wireStatement, len(props))
	}
	for _, p := range props {
		stmts := e.Statements(p)
		ws := make([]wireStatement, 0, len(stmts))
		for _, s := range stmts {
			ws = append(ws, fromStatement(s))
		}
		we.Claims[string(p)] = ws
	}
	return we
}

func fromStatement(s kb.Statement) wireStatement {
	ws := wireStatement{}
	switch v := s.Value.(type) {
	case kb.ItemValue:
		ws.Type = "item"
		ws.Item = string(v.ID)
	case kb.StringValue:
		ws.Type = "string"
		ws.String = v.Value
	case kb.CoordinateValue:
		ws.Type = "coordinate"
		ws.Coordinate = &wireCoordinate{Lat: v.Lat, Lon: v.Lon}
	}
	if s.Reference != nil {
		ws.References = []wireReference{{
			Property: string(s.Reference.Property),
			Item:     string(s.Reference.Dataset),
		}}
	}
	return ws
}

// toEntity converts a wire entity back to the domain form.
func (we wireEntity) toEntity() (*kb.Entity, error) {
	e := kb.NewEntity()
	e.ID = kb.EntityID(we.ID)
	e.Label = we.Label
	e.Description = we.Description
	e.Aliases = we.Aliases

	for prop, stmts := range we.Claims {
		for _, ws := range stmts {
			s, err := ws.toStatement(kb.PropertyID(prop))
			if err != nil {
				return nil, err
			}
			e.AddStatement(s)
		}
	}
	return e, nil
}

func (ws wireStatement) toStatement(prop kb.PropertyID) (kb.Statement, error) {
	s := kb.Statement{Property: prop}

	switch ws.Type {
	case "item":
		if ws.Item == "" {
			return s, errors.NewParseError("json", "statement",
				fmt.Sprintf("item statement for %s has no item value", prop), nil)
		}
		s.Value = kb.ItemValue{ID: kb.EntityID(ws.Item)}
	case "string":
		s.Value = kb.StringValue{Value: ws.String}
	case "coordinate":
		if ws.Coordinate == nil {
			return s, errors.NewParseError("json", "statement",
				fmt.Sprintf("coordinate statement for %s has no coordinate value", prop), nil)
		}
		s.Value = kb.CoordinateValue{Lat: ws.Coordinate.Lat, Lon: ws.Coordinate.Lon}
	default:
		return s, errors.NewParseError("json", "statement",
			fmt.Sprintf("unknown statement value type %q for %s", ws.Type, prop), nil)
	}

	if len(ws.References) > 0 {
		ref := ws.References[0]
		s.Reference = &kb.Reference{
			Property: kb.PropertyID(ref.Property),
			Dataset:  kb.EntityID(ref.Item),
		}
	}
	return s, nil
}
