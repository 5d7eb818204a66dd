package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalKey(t *testing.T) {
	kp := ParsedItem{
		Type:           ItemKnowledgePoint,
		KnowledgePoint: &KnowledgePoint{Title: "  Bayes theorem  "},
	}
	assert.Equal(t, "Bayes theorem", kp.NaturalKey())

	q := ParsedItem{
		Type:     ItemQuestion,
		Question: &Question{Number: " 2(a) "},
	}
	assert.Equal(t, "2(a)", q.NaturalKey())

	assert.Equal(t, "", ParsedItem{Type: ItemKnowledgePoint}.NaturalKey())
	assert.Equal(t, "", ParsedItem{Type: ItemQuestion}.NaturalKey())
}

func TestEmbeddingText_KnowledgePoint(t *testing.T) {
	item := ParsedItem{
		Type: ItemKnowledgePoint,
		KnowledgePoint: &KnowledgePoint{
			Title:      "Entropy",
			Definition: "A measure of uncertainty",
			Formulas:   []string{"H(X) = -sum p log p"},
			Concepts:   []string{"information", "uncertainty"},
		},
	}

	text := item.EmbeddingText()
	assert.Contains(t, text, "Entropy")
	assert.Contains(t, text, "A measure of uncertainty")
	assert.Contains(t, text, "H(X) = -sum p log p")
	assert.Contains(t, text, "information; uncertainty")
}

func TestEmbeddingText_Question(t *testing.T) {
	item := ParsedItem{
		Type: ItemQuestion,
		Question: &Question{
			Number:  "3",
			Content: "Compute the entropy of a fair coin.",
			Options: []string{"0.5 bits", "1 bit"},
			Answer:  "1 bit",
		},
	}

	text := item.EmbeddingText()
	assert.Contains(t, text, "3. Compute the entropy of a fair coin.")
	assert.Contains(t, text, "1 bit")
	assert.Contains(t, text, "Answer: 1 bit")
}

func TestPages(t *testing.T) {
	kp := ParsedItem{
		Type:           ItemKnowledgePoint,
		KnowledgePoint: &KnowledgePoint{Pages: []int{2, 3}},
	}
	assert.Equal(t, []int{2, 3}, kp.Pages())

	q := ParsedItem{Type: ItemQuestion, Question: &Question{Page: 7}}
	assert.Equal(t, []int{7}, q.Pages())

	noPage := ParsedItem{Type: ItemQuestion, Question: &Question{}}
	assert.Nil(t, noPage.Pages())
}

func TestMetadataFor(t *testing.T) {
	item := ParsedItem{
		Type: ItemQuestion,
		Question: &Question{
			Number:  "1",
			Content: "What is 2+2?",
			Page:    4,
		},
	}

	meta := MetadataFor(item)
	assert.Equal(t, ItemQuestion, meta.Type)
	assert.Equal(t, item.Question, meta.Question)
	assert.Nil(t, meta.KnowledgePoint)
	assert.Equal(t, []int{4}, meta.Pages)
}
