package extract

import (
	"fmt"
	"strings"

	"github.com/studyflow/course-processor/internal/models"
)

const lecturePromptHeader = `You are an expert teaching assistant. Extract the distinct knowledge points from the lecture pages below.

Return strictly a JSON object of the form:
{"knowledge_points": [{"title": string, "definition": string, "formulas": [string], "concepts": [string], "examples": [string], "pages": [int]}]}

Rules:
- "title" is a short unique name for the concept.
- "definition" explains the concept in the source language of the material.
- "formulas", "concepts" and "examples" may be empty arrays.
- "pages" lists the page numbers the concept appears on.
- Do not invent content that is not present in the pages.`

const examPromptHeader = `You are an expert teaching assistant. Extract every question from the exam or assignment pages below.

Return strictly a JSON object of the form:
{"questions": [{"number": string, "content": string, "options": [string], "answer": string, "points": number, "page": int}]}

Rules:
- "number" is the question label exactly as printed (e.g. "1", "2(a)", "III").
- "options" holds multiple-choice options when present, otherwise an empty array.
- "page" is the page number the question starts on.
- Do not invent questions that are not present in the pages.`

const examAnswerRule = `- "answer" holds the reference answer printed in the material.`
const examNoAnswerRule = `- The material contains no reference answers; leave "answer" empty.`

func buildLecturePrompt(pages []models.ExtractedPage) string {
	var b strings.Builder
	b.WriteString(lecturePromptHeader)
	b.WriteString("\n\n")
	writePages(&b, pages)
	return b.String()
}

func buildExamPrompt(pages []models.ExtractedPage, hasAnswers bool) string {
	var b strings.Builder
	b.WriteString(examPromptHeader)
	b.WriteString("\n")
	if hasAnswers {
		b.WriteString(examAnswerRule)
	} else {
		b.WriteString(examNoAnswerRule)
	}
	b.WriteString("\n\n")
	writePages(&b, pages)
	return b.String()
}

func writePages(b *strings.Builder, pages []models.ExtractedPage) {
	for _, p := range pages {
		fmt.Fprintf(b, "--- Page %d ---\n%s\n\n", p.Number, p.Text)
	}
}
