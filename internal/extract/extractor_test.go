package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/course-processor/internal/errs"
	"github.com/studyflow/course-processor/internal/models"
	"github.com/studyflow/course-processor/pkg/logger"
)

// fakeCompletion returns canned responses in call order.
type fakeCompletion struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeCompletion) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	call := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if call < len(f.errs) && f.errs[call] != nil {
		return "", f.errs[call]
	}
	if call < len(f.responses) {
		return f.responses[call], nil
	}
	return `{"knowledge_points":[]}`, nil
}

func makePages(n int) []models.ExtractedPage {
	pages := make([]models.ExtractedPage, n)
	for i := range pages {
		pages[i] = models.ExtractedPage{Number: i + 1, Text: fmt.Sprintf("page %d text", i+1)}
	}
	return pages
}

func TestExtract_LectureSingleBatch(t *testing.T) {
	llm := &fakeCompletion{responses: []string{
		`{"knowledge_points":[
			{"title":"Bayes theorem","definition":"P(A|B) = P(B|A)P(A)/P(B)","pages":[1]},
			{"title":"Conditional probability","definition":"Probability given an event","pages":[2]}
		]}`,
	}}
	e := NewExtractor(llm, logger.NewTestLogger())

	items, err := e.Extract(context.Background(), makePages(3), models.KindLecture, false, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Len(t, llm.prompts, 1)

	assert.Equal(t, models.ItemKnowledgePoint, items[0].Type)
	assert.Equal(t, "Bayes theorem", items[0].KnowledgePoint.Title)
	assert.Equal(t, "Conditional probability", items[1].KnowledgePoint.Title)
}

func TestExtract_SplitsLargeDocumentIntoBatches(t *testing.T) {
	llm := &fakeCompletion{responses: []string{
		`{"knowledge_points":[{"title":"Topic A","definition":"a"}]}`,
		`{"knowledge_points":[{"title":"Topic B","definition":"b"}]}`,
	}}
	e := NewExtractor(llm, logger.NewTestLogger())

	items, err := e.Extract(context.Background(), makePages(12), models.KindLecture, false, nil)
	require.NoError(t, err)
	require.Len(t, llm.prompts, 2)
	require.Len(t, items, 2)

	// First batch carries pages 1-10, second pages 11-12.
	assert.Contains(t, llm.prompts[0], "--- Page 1 ---")
	assert.Contains(t, llm.prompts[0], "--- Page 10 ---")
	assert.NotContains(t, llm.prompts[0], "--- Page 11 ---")
	assert.Contains(t, llm.prompts[1], "--- Page 11 ---")
	assert.Contains(t, llm.prompts[1], "--- Page 12 ---")
}

func TestExtract_DeduplicatesAcrossBatchesFirstWins(t *testing.T) {
	llm := &fakeCompletion{responses: []string{
		`{"knowledge_points":[{"title":"Entropy","definition":"complete definition from batch one"}]}`,
		`{"knowledge_points":[
			{"title":"Entropy","definition":"truncated re-extraction"},
			{"title":" Entropy ","definition":"same key after trimming"},
			{"title":"Cross entropy","definition":"new in batch two"}
		]}`,
	}}
	e := NewExtractor(llm, logger.NewTestLogger())

	items, err := e.Extract(context.Background(), makePages(12), models.KindLecture, false, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "complete definition from batch one", items[0].KnowledgePoint.Definition)
	assert.Equal(t, "Cross entropy", items[1].KnowledgePoint.Title)
}

func TestExtract_SkipsItemsWithEmptyNaturalKey(t *testing.T) {
	llm := &fakeCompletion{responses: []string{
		`{"knowledge_points":[
			{"title":"","definition":"no key"},
			{"title":"Kept","definition":"has a key"}
		]}`,
	}}
	e := NewExtractor(llm, logger.NewTestLogger())

	items, err := e.Extract(context.Background(), makePages(1), models.KindLecture, false, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Kept", items[0].KnowledgePoint.Title)
}

func TestExtract_ExamQuestions(t *testing.T) {
	llm := &fakeCompletion{responses: []string{
		`{"questions":[
			{"number":"1","content":"What is 2+2?","options":["3","4"],"answer":"4","points":5,"page":1},
			{"number":"2","content":"Prove it.","page":2}
		]}`,
	}}
	e := NewExtractor(llm, logger.NewTestLogger())

	items, err := e.Extract(context.Background(), makePages(2), models.KindExam, true, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, models.ItemQuestion, items[0].Type)
	assert.Equal(t, "1", items[0].Question.Number)
	assert.Equal(t, "4", items[0].Question.Answer)
	assert.Contains(t, llm.prompts[0], "answer")
}

func TestExtract_OnItemCallbackPerSurvivingItem(t *testing.T) {
	llm := &fakeCompletion{responses: []string{
		`{"knowledge_points":[{"title":"A","definition":"a"}]}`,
		`{"knowledge_points":[
			{"title":"A","definition":"duplicate"},
			{"title":"B","definition":"b"}
		]}`,
	}}
	e := NewExtractor(llm, logger.NewTestLogger())

	var streamed []string
	_, err := e.Extract(context.Background(), makePages(12), models.KindLecture, false, func(item models.ParsedItem) {
		streamed = append(streamed, item.NaturalKey())
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, streamed)
}

func TestExtract_BatchFailureAbortsWholeExtraction(t *testing.T) {
	llm := &fakeCompletion{
		responses: []string{`{"knowledge_points":[{"title":"A","definition":"a"}]}`, ""},
		errs:      []error{nil, errors.New("provider timeout")},
	}
	e := NewExtractor(llm, logger.NewTestLogger())

	items, err := e.Extract(context.Background(), makePages(12), models.KindLecture, false, nil)
	require.Error(t, err)
	assert.Nil(t, items)
	assert.Equal(t, errs.CodeExtractionError, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "batch 2 of 2")
}

func TestExtract_MalformedResponseFailsExtraction(t *testing.T) {
	llm := &fakeCompletion{responses: []string{`not json at all`}}
	e := NewExtractor(llm, logger.NewTestLogger())

	_, err := e.Extract(context.Background(), makePages(1), models.KindLecture, false, nil)
	require.Error(t, err)
	assert.Equal(t, errs.CodeExtractionError, errs.CodeOf(err))
}

func TestExtract_NoPagesNoItems(t *testing.T) {
	llm := &fakeCompletion{}
	e := NewExtractor(llm, logger.NewTestLogger())

	items, err := e.Extract(context.Background(), nil, models.KindLecture, false, nil)
	require.NoError(t, err)
	assert.Nil(t, items)
	assert.Empty(t, llm.prompts)
}
