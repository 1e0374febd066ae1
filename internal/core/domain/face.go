package domain

import "time"

// FaceDocument is the parsed form of an artifact: one parent document with
// zero or more detected faces. It is a transient in-memory projection and is
// never persisted independently of its artifact.
type FaceDocument struct {
	CreationDate time.Time    `json:"creation_date"`
	Host         string       `json:"host"`
	Filename     string       `json:"filename"`
	Faces        []FaceRecord `json:"faces"`
}

// FaceIDs returns the dedup keys of all faces in document order.
func (d *FaceDocument) FaceIDs() []string {
	ids := make([]string, 0, len(d.Faces))
	for _, f := range d.Faces {
		ids = append(ids, f.ID)
	}
	return ids
}

// FaceRecord is one detected face. ID is the dedup key, unique within a
// document. ParentID and PersonID are optional; the extractor normalizes
// them here regardless of whether the source JSON carried them at document
// or face level.
type FaceRecord struct {
	ID       string     `json:"id"`
	ParentID string     `json:"parent_id,omitempty"`
	PersonID string     `json:"person_id,omitempty"`
	Score    float64    `json:"score"`
	Attrs    Attributes `json:"attributes"`
	Rect     Rect       `json:"rect"`
	RectISO  Rect       `json:"rectISO"`
}

// Attributes groups the estimated properties of a face.
type Attributes struct {
	Age        float64  `json:"age"`
	Eyeglasses bool     `json:"eyeglasses"`
	Gender     string   `json:"gender"`
	Emotions   Emotions `json:"emotions"`
}

// Emotions holds seven named probability estimations plus the predominant label.
type Emotions struct {
	Estimations Estimations `json:"estimations"`
	Predominant string      `json:"predominant_emotion"`
}

// Estimations are per-emotion probabilities in [0,1].
type Estimations struct {
	Anger     float64 `json:"anger"`
	Disgust   float64 `json:"disgust"`
	Fear      float64 `json:"fear"`
	Happiness float64 `json:"happiness"`
	Neutral   float64 `json:"neutral"`
	Sadness   float64 `json:"sadness"`
	Surprise  float64 `json:"surprise"`
}

// Rect is a face bounding box, either in source pixel space or in the
// normalized ISO space.
type Rect struct {
	Height int `json:"height"`
	Width  int `json:"width"`
	X      int `json:"x"`
	Y      int `json:"y"`
}

// Row is the table-bound representation of a face document restricted to
// exactly one face. The analytical table's schema nests a single-element
// face list per row.
type Row struct {
	CreationDate time.Time    `json:"creation_date"`
	Host         string       `json:"host"`
	Filename     string       `json:"filename"`
	Faces        []FaceRecord `json:"faces"`
}

// FaceID returns the dedup key of the row's single face.
func (r *Row) FaceID() string {
	if len(r.Faces) == 0 {
		return ""
	}
	return r.Faces[0].ID
}

// NewRow builds the insertable row for one face, embedding the
// document-level fields.
func NewRow(doc *FaceDocument, face FaceRecord) Row {
	return Row{
		CreationDate: doc.CreationDate,
		Host:         doc.Host,
		Filename:     doc.Filename,
		Faces:        []FaceRecord{face},
	}
}

// RowError describes a single row the table store rejected during a bulk
// insert. Row-level failures are non-fatal to the batch.
type RowError struct {
	FaceID string `json:"face_id"`
	Reason string `json:"reason"`
}

// ExistingIDSet is the result of a dedup query: ids already present in the
// face table at query time. Scoped to one pipeline run, never cached.
type ExistingIDSet map[string]struct{}

// Contains reports whether id was present at query time.
func (s ExistingIDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}
