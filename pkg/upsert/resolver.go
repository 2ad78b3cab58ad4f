package upsert

import (
	"context"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
)

// IdentityKey names the source field whose value identifies the target
// entity, and the knowledgebase property that value is stored under.
// The key must determine at most one target entity.
type IdentityKey struct {
	Field    string
	Property kb.PropertyID
}

// Resolver performs the read-only identity lookup: does a target entity
// for this record already exist? Re-running against the same record
// resolves to the same entity.
type Resolver struct {
	client kb.Client
	key    IdentityKey
}

// NewResolver creates a resolver over the given identity key.
func NewResolver(client kb.Client, key IdentityKey) *Resolver {
	return &Resolver{client: client, key: key}
}

// Resolve extracts the record's identity key and looks it up. found is
// false when no entity matches (the caller proceeds to creation). More
// than one match surfaces as an AmbiguousMatchError from the client.
func (r *Resolver) Resolve(ctx context.Context, rec SourceRecord) (keyValue string, id kb.EntityID, found bool, err error) {
	keyValue, ok := rec.Text(r.key.Field)
	if !ok || keyValue == "" {
		return "", "", false, errors.NewValidationError(r.key.Field, rec[r.key.Field],
			"record has no identity key value")
	}

	id, found, err = r.client.ResolveByProperty(ctx, r.key.Property, keyValue)
	if err != nil {
		return keyValue, "", false, err
	}
	return keyValue, id, found, nil
}
