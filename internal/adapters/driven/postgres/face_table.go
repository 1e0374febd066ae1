package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FaceTable = (*FaceTable)(nil)

// FaceTable implements driven.FaceTable on the analytical faces table.
type FaceTable struct {
	db *DB
}

// NewFaceTable creates a new FaceTable
func NewFaceTable(db *DB) *FaceTable {
	return &FaceTable{db: db}
}

// ExistingIDs returns the subset of the given face ids already loaded.
// A single IN-list query; an empty input short-circuits to an empty set so
// no illegal empty-IN-list SQL is ever issued.
func (t *FaceTable) ExistingIDs(ctx context.Context, ids []string) (domain.ExistingIDSet, error) {
	existing := domain.ExistingIDSet{}
	if len(ids) == 0 {
		return existing, nil
	}

	query := `SELECT face_id FROM faces WHERE face_id = ANY($1)`

	rows, err := t.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query existing face ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan face id: %w", err)
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face ids: %w", err)
	}

	return existing, nil
}

// InsertRows bulk-inserts rows in one statement. Rows colliding with the
// face_id constraint are skipped by the store and reported back as per-row
// errors; they never fail the batch. The constraint is the authoritative
// dedup guard — the ExistingIDs check only avoids pointless attempts.
func (t *FaceTable) InsertRows(ctx context.Context, rows []domain.Row) ([]domain.RowError, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty row batch", domain.ErrInvalidInput)
	}

	var (
		placeholders = make([]string, 0, len(rows))
		args         = make([]any, 0, len(rows)*6)
	)
	for i, row := range rows {
		payload, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("marshal row %s: %w", row.FaceID(), err)
		}

		base := i * 6
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args,
			row.FaceID(),
			row.CreationDate,
			row.Host,
			row.Filename,
			row.Faces[0].PersonID,
			payload,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO faces (face_id, creation_date, host, filename, person_id, payload)
		VALUES %s
		ON CONFLICT (face_id) DO NOTHING
		RETURNING face_id
	`, strings.Join(placeholders, ", "))

	result, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert rows: %w", err)
	}
	defer result.Close()

	inserted := make(map[string]struct{}, len(rows))
	for result.Next() {
		var id string
		if err := result.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan inserted id: %w", err)
		}
		inserted[id] = struct{}{}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("iterate inserted ids: %w", err)
	}

	var rowErrs []domain.RowError
	for _, row := range rows {
		if _, ok := inserted[row.FaceID()]; !ok {
			rowErrs = append(rowErrs, domain.RowError{
				FaceID: row.FaceID(),
				Reason: "duplicate face id",
			})
		}
	}

	return rowErrs, nil
}

// Ping checks if the table backend is healthy.
func (t *FaceTable) Ping(ctx context.Context) error {
	return t.db.Ping(ctx)
}
