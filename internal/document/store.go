package document

import (
	"context"
	"encoding/json"

	dErrors "alphabase/pkg/domain-errors"
)

// ErrNotFound keeps store-level 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "document not found")

// Store is the keyed document table. Implementations must serialize
// concurrent mutations of the same ID: two overlapping Sets never interleave
// and the surviving state is exactly one writer's input. Operations on
// distinct IDs may run concurrently.
type Store interface {
	// Get returns the document with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// Set upserts a document. On first creation CreatedAt is set to now; on
	// update the value and owner are replaced and CreatedAt is preserved.
	Set(ctx context.Context, collection, key string, value json.RawMessage, owner string) (Document, error)

	// Delete removes the document with the given ID, returning ErrNotFound
	// if it does not exist.
	Delete(ctx context.Context, id string) error

	// List returns a point-in-time snapshot of all documents in the
	// collection.
	List(ctx context.Context, collection string) ([]Document, error)
}
