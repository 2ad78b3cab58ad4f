package kb

import (
	"context"
)

// Client is the knowledgebase service contract used by the upsert
// pipeline. Implementations perform blocking network round trips; every
// method takes a context for cancellation.
type Client interface {
	// ResolveByProperty looks up the single entity whose statement for
	// property matches value exactly. ok is false when no entity
	// matches. More than one match is a data-integrity error
	// (errors.AmbiguousMatchError), never silently resolved.
	ResolveByProperty(ctx context.Context, property PropertyID, value string) (id EntityID, ok bool, err error)

	// Get loads an entity by its identifier.
	Get(ctx context.Context, id EntityID) (*Entity, error)

	// Create persists a new entity and returns its assigned identifier.
	Create(ctx context.Context, e *Entity) (EntityID, error)

	// Save persists changes to an existing entity with an editor-supplied
	// change summary and returns the persisted identifier.
	Save(ctx context.Context, e *Entity, summary string) (EntityID, error)
}
