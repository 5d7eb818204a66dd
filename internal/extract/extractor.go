package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studyflow/course-processor/internal/errs"
	"github.com/studyflow/course-processor/internal/models"
	"github.com/studyflow/course-processor/pkg/logger"
)

// defaultBatchSize is the page count above which extraction is split into
// independent LLM calls.
const defaultBatchSize = 10

// CompletionClient is the one LLM call the extractor needs.
type CompletionClient interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Extractor drives kind-specific structured extraction over page batches.
type Extractor struct {
	llm       CompletionClient
	batchSize int
	logger    logger.Logger
}

func NewExtractor(llm CompletionClient, log logger.Logger) *Extractor {
	return &Extractor{
		llm:       llm,
		batchSize: defaultBatchSize,
		logger:    log,
	}
}

// Extract parses the pages into items using the strategy for kind. Pages are
// split into fixed-size batches when the document is large; batches are
// merged by natural key with the first occurrence winning, so a duplicate
// re-extracted across a batch seam never clobbers a complete item.
//
// onItem, when non-nil, is invoked once per item that survives merging, in
// extraction order. Any single batch failure aborts the whole extraction;
// there is no partial-success continuation and no retry at this layer.
func (e *Extractor) Extract(
	ctx context.Context,
	pages []models.ExtractedPage,
	kind models.DocKind,
	hasAnswers bool,
	onItem func(models.ParsedItem),
) ([]models.ParsedItem, error) {
	if len(pages) == 0 {
		return nil, nil
	}

	batches := e.splitPages(pages)
	e.logger.Info("Starting structured extraction",
		logger.String("kind", string(kind)),
		logger.Int("pages", len(pages)),
		logger.Int("batches", len(batches)),
	)

	var merged []models.ParsedItem
	seen := make(map[string]bool)

	for idx, batch := range batches {
		items, err := e.extractBatch(ctx, batch, kind, hasAnswers)
		if err != nil {
			return nil, errs.Wrap(errs.CodeExtractionError,
				fmt.Sprintf("extraction failed on batch %d of %d", idx+1, len(batches)), err)
		}

		for _, item := range items {
			key := item.NaturalKey()
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, item)
			if onItem != nil {
				onItem(item)
			}
		}
	}

	e.logger.Info("Structured extraction complete",
		logger.String("kind", string(kind)),
		logger.Int("items", len(merged)),
	)
	return merged, nil
}

func (e *Extractor) splitPages(pages []models.ExtractedPage) [][]models.ExtractedPage {
	if len(pages) <= e.batchSize {
		return [][]models.ExtractedPage{pages}
	}
	var batches [][]models.ExtractedPage
	for start := 0; start < len(pages); start += e.batchSize {
		end := start + e.batchSize
		if end > len(pages) {
			end = len(pages)
		}
		batches = append(batches, pages[start:end])
	}
	return batches
}

func (e *Extractor) extractBatch(
	ctx context.Context,
	pages []models.ExtractedPage,
	kind models.DocKind,
	hasAnswers bool,
) ([]models.ParsedItem, error) {
	switch kind {
	case models.KindLecture:
		return e.extractLecture(ctx, pages)
	case models.KindExam, models.KindAssignment:
		return e.extractQuestions(ctx, pages, hasAnswers)
	default:
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
}

func (e *Extractor) extractLecture(ctx context.Context, pages []models.ExtractedPage) ([]models.ParsedItem, error) {
	raw, err := e.llm.GenerateJSON(ctx, buildLecturePrompt(pages))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		KnowledgePoints []models.KnowledgePoint `json:"knowledge_points"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("malformed extraction response: %w", err)
	}

	items := make([]models.ParsedItem, 0, len(parsed.KnowledgePoints))
	for i := range parsed.KnowledgePoints {
		kp := parsed.KnowledgePoints[i]
		items = append(items, models.ParsedItem{
			Type:           models.ItemKnowledgePoint,
			KnowledgePoint: &kp,
		})
	}
	return items, nil
}

func (e *Extractor) extractQuestions(ctx context.Context, pages []models.ExtractedPage, hasAnswers bool) ([]models.ParsedItem, error) {
	raw, err := e.llm.GenerateJSON(ctx, buildExamPrompt(pages, hasAnswers))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Questions []models.Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("malformed extraction response: %w", err)
	}

	items := make([]models.ParsedItem, 0, len(parsed.Questions))
	for i := range parsed.Questions {
		q := parsed.Questions[i]
		items = append(items, models.ParsedItem{
			Type:     models.ItemQuestion,
			Question: &q,
		})
	}
	return items, nil
}
