package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
)

// memKB is an in-memory knowledgebase for job tests. Identity lookups
// scan stored statements the way the remote service would.
type memKB struct {
	mu       sync.Mutex
	entities map[kb.EntityID]*kb.Entity
	nextID   int
}

func newMemKB() *memKB {
	return &memKB{entities: make(map[kb.EntityID]*kb.Entity)}
}

func (m *memKB) ResolveByProperty(_ context.Context, property kb.PropertyID, value string) (kb.EntityID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []string
	var matchID kb.EntityID
	for id, e := range m.entities {
		for _, s := range e.Statements(property) {
			if sv, ok := s.Value.(kb.StringValue); ok && sv.Value == value {
				matches = append(matches, string(id))
				matchID = id
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", false, nil
	case 1:
		return matchID, true, nil
	default:
		return "", false, &errors.AmbiguousMatchError{
			Property: string(property), Value: value, Matches: matches,
		}
	}
}

func (m *memKB) Get(_ context.Context, id kb.EntityID) (*kb.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[id]
	if !ok {
		return nil, errors.NewNotFoundError("entity", string(id))
	}
	return copyEntity(e), nil
}

func (m *memKB) Create(_ context.Context, e *kb.Entity) (kb.EntityID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := kb.EntityID(fmt.Sprintf("Q%d", m.nextID))
	stored := copyEntity(e)
	stored.ID = id
	m.entities[id] = stored
	return id, nil
}

func (m *memKB) Save(_ context.Context, e *kb.Entity, _ string) (kb.EntityID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entities[e.ID] = copyEntity(e)
	return e.ID, nil
}

// seed stores an entity with a single identifying statement and returns
// its assigned ID.
func (m *memKB) seed(label string, property kb.PropertyID, value string) kb.EntityID {
	e := kb.NewEntity()
	e.Label = label
	e.AddStatement(kb.Statement{Property: property, Value: kb.StringValue{Value: value}})
	id, _ := m.Create(context.Background(), e)
	return id
}

func (m *memKB) byLabel(label string) *kb.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entities {
		if e.Label == label {
			return copyEntity(e)
		}
	}
	return nil
}

func (m *memKB) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities)
}

func copyEntity(e *kb.Entity) *kb.Entity {
	c := kb.NewEntity()
	c.ID = e.ID
	c.Label = e.Label
	c.Description = e.Description
	c.SetAliases(e.Aliases...)
	for _, s := range e.AllStatements() {
		if s.Reference != nil {
			ref := *s.Reference
			s.Reference = &ref
		}
		c.AddStatement(s)
	}
	return c
}
