package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lunavision/facesink/internal/core/domain"
)

// Extractor parses an uploaded document into its normalized FaceDocument
// projection. Extraction is strict and all-or-nothing: one malformed face
// record aborts the whole document. No network or storage side effects.
type Extractor struct {
	validate *validator.Validate
}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Wire shapes mirror the vision pipeline's JSON. Required fields are
// pointers so absence is distinguishable from zero values; the validator
// rejects any missing one.
type wireDocument struct {
	CreationDate *string    `json:"creation_date" validate:"required"`
	Host         *string    `json:"host" validate:"required"`
	Filename     *string    `json:"filename" validate:"required"`
	ParentID     string     `json:"parent_id"`
	PersonID     string     `json:"person_id"`
	Faces        []wireFace `json:"faces" validate:"dive"`
}

type wireFace struct {
	ID         *string         `json:"id" validate:"required"`
	ParentID   string          `json:"parent_id"`
	PersonID   string          `json:"person_id"`
	Score      *float64        `json:"score" validate:"required"`
	Attributes *wireAttributes `json:"attributes" validate:"required"`
	Rect       *wireRect       `json:"rect" validate:"required"`
	RectISO    *wireRect       `json:"rectISO" validate:"required"`
}

type wireAttributes struct {
	Age        *float64      `json:"age" validate:"required"`
	Eyeglasses *bool         `json:"eyeglasses" validate:"required"`
	Gender     *string       `json:"gender" validate:"required"`
	Emotions   *wireEmotions `json:"emotions" validate:"required"`
}

type wireEmotions struct {
	Estimations *wireEstimations `json:"estimations" validate:"required"`
	Predominant *string          `json:"predominant_emotion" validate:"required"`
}

type wireEstimations struct {
	Anger     *float64 `json:"anger" validate:"required"`
	Disgust   *float64 `json:"disgust" validate:"required"`
	Fear      *float64 `json:"fear" validate:"required"`
	Happiness *float64 `json:"happiness" validate:"required"`
	Neutral   *float64 `json:"neutral" validate:"required"`
	Sadness   *float64 `json:"sadness" validate:"required"`
	Surprise  *float64 `json:"surprise" validate:"required"`
}

type wireRect struct {
	Height *int `json:"height" validate:"required"`
	Width  *int `json:"width" validate:"required"`
	X      *int `json:"x" validate:"required"`
	Y      *int `json:"y" validate:"required"`
}

// Extract parses raw UTF-8 JSON into a FaceDocument.
// Returns domain.ErrMalformedDocument when parsing fails, a required
// top-level field is absent, or a required nested attribute/rect field is
// absent on any face entry.
func (e *Extractor) Extract(raw []byte) (*domain.FaceDocument, error) {
	var wire wireDocument
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}

	if err := e.validate.Struct(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDocument, err)
	}

	created, err := time.Parse(time.RFC3339, *wire.CreationDate)
	if err != nil {
		return nil, fmt.Errorf("%w: creation_date: %v", domain.ErrMalformedDocument, err)
	}

	doc := &domain.FaceDocument{
		CreationDate: created,
		Host:         *wire.Host,
		Filename:     *wire.Filename,
		Faces:        make([]domain.FaceRecord, 0, len(wire.Faces)),
	}

	for _, f := range wire.Faces {
		doc.Faces = append(doc.Faces, domain.FaceRecord{
			ID: *f.ID,
			// Schema drift: parent/person ids moved between document and
			// face level across producer versions. The face-level value
			// wins; the document-level one fills the gap.
			ParentID: coalesce(f.ParentID, wire.ParentID),
			PersonID: coalesce(f.PersonID, wire.PersonID),
			Score:    *f.Score,
			Attrs: domain.Attributes{
				Age:        *f.Attributes.Age,
				Eyeglasses: *f.Attributes.Eyeglasses,
				Gender:     *f.Attributes.Gender,
				Emotions: domain.Emotions{
					Estimations: domain.Estimations{
						Anger:     *f.Attributes.Emotions.Estimations.Anger,
						Disgust:   *f.Attributes.Emotions.Estimations.Disgust,
						Fear:      *f.Attributes.Emotions.Estimations.Fear,
						Happiness: *f.Attributes.Emotions.Estimations.Happiness,
						Neutral:   *f.Attributes.Emotions.Estimations.Neutral,
						Sadness:   *f.Attributes.Emotions.Estimations.Sadness,
						Surprise:  *f.Attributes.Emotions.Estimations.Surprise,
					},
					Predominant: *f.Attributes.Emotions.Predominant,
				},
			},
			Rect:    newRect(f.Rect),
			RectISO: newRect(f.RectISO),
		})
	}

	return doc, nil
}

func newRect(r *wireRect) domain.Rect {
	return domain.Rect{
		Height: *r.Height,
		Width:  *r.Width,
		X:      *r.X,
		Y:      *r.Y,
	}
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
