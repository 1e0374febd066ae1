package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PersonDirectory = (*PersonDirectory)(nil)

// PersonDirectory implements driven.PersonDirectory using PostgreSQL
type PersonDirectory struct {
	db *DB
}

// NewPersonDirectory creates a new PersonDirectory
func NewPersonDirectory(db *DB) *PersonDirectory {
	return &PersonDirectory{db: db}
}

// LookupPersons returns the recipients known for the given person ids.
// Unknown ids are absent from the result; an empty input issues no query.
func (d *PersonDirectory) LookupPersons(ctx context.Context, personIDs []string) ([]domain.Recipient, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}

	query := `SELECT person_id, email, name FROM persons WHERE person_id = ANY($1)`

	rows, err := d.db.QueryContext(ctx, query, pq.Array(personIDs))
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.PersonID, &r.Email, &r.Name); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		recipients = append(recipients, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}

	return recipients, nil
}
