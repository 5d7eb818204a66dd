package converters

import (
	"fmt"
	"time"

	"github.com/studyflow/course-processor/internal/models"
)

// ExportedDocument is the downloadable JSON shape of a processed document.
type ExportedDocument struct {
	DocumentID string         `json:"documentId"`
	Name       string         `json:"name"`
	Kind       models.DocKind `json:"kind"`
	Status     models.Status  `json:"status"`
	School     string         `json:"school,omitempty"`
	Course     string         `json:"course,omitempty"`
	Items      []ExportedItem `json:"items"`
	ExportedAt time.Time      `json:"exportedAt"`
}

// ExportedItem is one chunk without its embedding vector.
type ExportedItem struct {
	ChunkID  string               `json:"chunkId"`
	Content  string               `json:"content"`
	Metadata models.ChunkMetadata `json:"metadata"`
}

// JSONConverter flattens a document and its chunks for export.
type JSONConverter struct{}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{}
}

func (c *JSONConverter) Convert(doc *models.Document, chunks []*models.Chunk) (*ExportedDocument, error) {
	if doc == nil {
		return nil, fmt.Errorf("no document to convert")
	}

	out := &ExportedDocument{
		DocumentID: doc.ID.String(),
		Name:       doc.Name,
		Kind:       doc.Kind,
		Status:     doc.Status,
		School:     doc.School,
		Course:     doc.Course,
		Items:      make([]ExportedItem, 0, len(chunks)),
		ExportedAt: time.Now(),
	}

	for _, chunk := range chunks {
		out.Items = append(out.Items, ExportedItem{
			ChunkID:  chunk.ID.String(),
			Content:  chunk.Content,
			Metadata: chunk.Metadata,
		})
	}

	return out, nil
}
