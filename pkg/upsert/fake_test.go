package upsert

import (
	"context"
	"fmt"
	"sync"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
)

// fakeKB is an in-memory knowledgebase for executor and linker tests.
// Identity lookups scan stored statements, so a created entity resolves
// on the next pass exactly like the remote service.
type fakeKB struct {
	mu       sync.Mutex
	entities map[kb.EntityID]*kb.Entity
	nextID   int

	// saveFailures injects transient errors on Save/Create before
	// succeeding, to exercise retry behavior.
	saveFailures int

	resolveCalls int
	saveCalls    int
	summaries    []string
}

func newFakeKB() *fakeKB {
	return &fakeKB{entities: make(map[kb.EntityID]*kb.Entity)}
}

func (f *fakeKB) ResolveByProperty(_ context.Context, property kb.PropertyID, value string) (kb.EntityID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++

	var matches []string
	var matchID kb.EntityID
	for id, e := range f.entities {
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

func (f *fakeKB) Get(_ context.Context, id kb.EntityID) (*kb.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entities[id]
	if !ok {
		return nil, errors.NewNotFoundError("entity", string(id))
	}
	return cloneEntity(e), nil
}

func (f *fakeKB) Create(_ context.Context, e *kb.Entity) (kb.EntityID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.maybeFail(); err != nil {
		return "", err
	}

	f.nextID++
	id := kb.EntityID(fmt.Sprintf("Q%d", f.nextID))
	stored := cloneEntity(e)
	stored.ID = id
	f.entities[id] = stored
	return id, nil
}

func (f *fakeKB) Save(_ context.Context, e *kb.Entity, summary string) (kb.EntityID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.maybeFail(); err != nil {
		return "", err
	}

	f.saveCalls++
	f.summaries = append(f.summaries, summary)
	f.entities[e.ID] = cloneEntity(e)
	return e.ID, nil
}

func (f *fakeKB) maybeFail() error {
	if f.saveFailures > 0 {
		f.saveFailures--
		return errors.NewAPIError("knowledgebase", 503, "temporarily unavailable")
	}
	return nil
}

func (f *fakeKB) entity(id kb.EntityID) *kb.Entity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneEntity(f.entities[id])
}

func (f *fakeKB) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entities)
}

func cloneEntity(e *kb.Entity) *kb.Entity {
	if e == nil {
		return nil
	}
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

// fastRetry keeps retry-heavy tests quick.
func fastRetry() retryPolicy {
	return retryPolicy{maxRetries: 3, initialInterval: 1, maxInterval: 1}
}
