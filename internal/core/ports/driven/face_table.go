package driven

import (
	"context"

	"github.com/lunavision/facesink/internal/core/domain"
)

// FaceTable is the analytical table store receiving loaded face rows.
// Append-mostly, queryable by SQL-like filters.
type FaceTable interface {
	// ExistingIDs returns the subset of ids already present in the table.
	// An empty input returns an empty set without issuing a query.
	ExistingIDs(ctx context.Context, ids []string) (domain.ExistingIDSet, error)

	// InsertRows bulk-inserts rows in one remote call and returns per-row
	// error descriptors for rows the store rejected. An empty descriptor
	// slice means full success; a row's failure is never fatal to the batch.
	// Must not be called with zero rows.
	InsertRows(ctx context.Context, rows []domain.Row) ([]domain.RowError, error)

	// Ping checks if the table backend is healthy.
	Ping(ctx context.Context) error
}

// PersonDirectory resolves matched persons to notification destinations.
type PersonDirectory interface {
	// LookupPersons returns the recipients known for the given person ids.
	// Unknown ids are simply absent from the result. An empty input returns
	// no recipients without issuing a query.
	LookupPersons(ctx context.Context, personIDs []string) ([]domain.Recipient, error)
}
