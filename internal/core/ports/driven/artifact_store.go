package driven

import "context"

// ArtifactStore wraps the object store holding uploaded documents.
// Keys are folder+filename ("incoming/a.json"). All operations are remote
// and may fail transiently; callers apply their own retry policy.
type ArtifactStore interface {
	// Exists reports whether an object is visible under the key.
	Exists(ctx context.Context, key string) (bool, error)

	// Read returns the raw bytes of the object.
	// Returns domain.ErrNotFound if the key is absent.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores data under the key, overwriting any existing object.
	Write(ctx context.Context, key string, data []byte, contentType string) error

	// Move renames an object to destKey and returns destKey.
	// Rename semantics are assumed atomic from the caller's perspective.
	Move(ctx context.Context, key, destKey string) (string, error)

	// Delete removes the object. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys under the prefix, used for folder
	// reconciliation sweeps.
	List(ctx context.Context, prefix string) ([]string, error)
}
