package services

import "github.com/lunavision/facesink/internal/core/domain"

// Plan partitions a document's faces into insertable rows and duplicate
// classifications against the existing-id set. Deterministic and pure.
//
// A face id repeated within one document produces a single row: the first
// occurrence is planned, later occurrences are classified duplicate. The
// table's uniqueness constraint would reject the second row anyway, so
// planning it would only surface as a spurious row error.
func Plan(doc *domain.FaceDocument, existing domain.ExistingIDSet) (rows []domain.Row, duplicates []string) {
	planned := make(map[string]struct{}, len(doc.Faces))

	for _, face := range doc.Faces {
		if existing.Contains(face.ID) {
			duplicates = append(duplicates, face.ID)
			continue
		}
		if _, ok := planned[face.ID]; ok {
			duplicates = append(duplicates, face.ID)
			continue
		}
		planned[face.ID] = struct{}{}
		rows = append(rows, domain.NewRow(doc, face))
	}

	return rows, duplicates
}
