package models

import (
	"fmt"
	"strings"
)

// ItemType discriminates the two parsed item variants.
type ItemType string

const (
	ItemKnowledgePoint ItemType = "knowledge_point"
	ItemQuestion       ItemType = "question"
)

// KnowledgePoint is one concept extracted from lecture material.
type KnowledgePoint struct {
	Title      string   `json:"title"`
	Definition string   `json:"definition"`
	Formulas   []string `json:"formulas,omitempty"`
	Concepts   []string `json:"concepts,omitempty"`
	Examples   []string `json:"examples,omitempty"`
	Pages      []int    `json:"pages,omitempty"`
}

// Question is one exam or assignment question.
type Question struct {
	Number  string   `json:"number"`
	Content string   `json:"content"`
	Options []string `json:"options,omitempty"`
	Answer  string   `json:"answer,omitempty"`
	Points  float64  `json:"points,omitempty"`
	Page    int      `json:"page,omitempty"`
}

// ParsedItem is a closed tagged union over the two variants. Exactly one of
// KnowledgePoint and Question is non-nil, matching Type.
type ParsedItem struct {
	Type           ItemType        `json:"type"`
	KnowledgePoint *KnowledgePoint `json:"knowledgePoint,omitempty"`
	Question       *Question       `json:"question,omitempty"`
}

// NaturalKey returns the content-derived de-duplication key: the title for
// knowledge points, the question number for questions.
func (i ParsedItem) NaturalKey() string {
	switch i.Type {
	case ItemKnowledgePoint:
		if i.KnowledgePoint != nil {
			return strings.TrimSpace(i.KnowledgePoint.Title)
		}
	case ItemQuestion:
		if i.Question != nil {
			return strings.TrimSpace(i.Question.Number)
		}
	}
	return ""
}

// EmbeddingText renders the text that gets embedded for this item.
func (i ParsedItem) EmbeddingText() string {
	switch i.Type {
	case ItemKnowledgePoint:
		kp := i.KnowledgePoint
		if kp == nil {
			return ""
		}
		parts := []string{kp.Title, kp.Definition}
		if len(kp.Formulas) > 0 {
			parts = append(parts, strings.Join(kp.Formulas, "; "))
		}
		if len(kp.Concepts) > 0 {
			parts = append(parts, strings.Join(kp.Concepts, "; "))
		}
		return strings.Join(parts, "\n")
	case ItemQuestion:
		q := i.Question
		if q == nil {
			return ""
		}
		parts := []string{fmt.Sprintf("%s. %s", q.Number, q.Content)}
		if len(q.Options) > 0 {
			parts = append(parts, strings.Join(q.Options, "\n"))
		}
		if q.Answer != "" {
			parts = append(parts, "Answer: "+q.Answer)
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

// Pages returns the source page numbers for citation rendering.
func (i ParsedItem) Pages() []int {
	switch i.Type {
	case ItemKnowledgePoint:
		if i.KnowledgePoint != nil {
			return i.KnowledgePoint.Pages
		}
	case ItemQuestion:
		if i.Question != nil && i.Question.Page > 0 {
			return []int{i.Question.Page}
		}
	}
	return nil
}

// ChunkMetadata is the structured payload stored alongside chunk content.
// Extra carries free-form extension fields only; core invariants never
// depend on it.
type ChunkMetadata struct {
	Type           ItemType          `json:"type"`
	KnowledgePoint *KnowledgePoint   `json:"knowledgePoint,omitempty"`
	Question       *Question         `json:"question,omitempty"`
	Pages          []int             `json:"pages,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// MetadataFor builds chunk metadata from a parsed item.
func MetadataFor(item ParsedItem) ChunkMetadata {
	return ChunkMetadata{
		Type:           item.Type,
		KnowledgePoint: item.KnowledgePoint,
		Question:       item.Question,
		Pages:          item.Pages(),
	}
}
