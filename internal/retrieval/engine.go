package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/studyflow/course-processor/internal/models"
	"github.com/studyflow/course-processor/pkg/logger"
)

const (
	defaultTopK          = 5
	defaultRRFConstant   = 60
	defaultMinSimilarity = 0.3
	defaultTimeout       = 5 * time.Second
)

// Searcher is the store surface the engine ranks over.
type Searcher interface {
	SearchByVector(ctx context.Context, course string, embedding []float32, limit int, minSimilarity float64, filter map[string]interface{}) ([]models.ScoredChunk, error)
	SearchByKeyword(ctx context.Context, course, query string, limit int, filter map[string]interface{}) ([]models.ScoredChunk, error)
}

// QueryEmbedder embeds the query text.
type QueryEmbedder interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}

// Engine turns a chat query into ranked chunks via hybrid search: vector
// similarity and keyword relevance ranked independently, then fused with
// Reciprocal Rank Fusion. Short jargon-heavy academic queries often hit on
// the lexical side where embeddings miss, and RRF lets both signals count
// without normalizing incompatible score scales.
//
// Retrieval is best-effort context enrichment: every failure path returns
// an empty result set instead of an error, and a short timeout keeps a slow
// backend from blocking the chat response.
type Engine struct {
	store         Searcher
	embedder      QueryEmbedder
	rrfConstant   int
	minSimilarity float64
	timeout       time.Duration
	logger        logger.Logger
}

func NewEngine(store Searcher, embedder QueryEmbedder, log logger.Logger) *Engine {
	return &Engine{
		store:         store,
		embedder:      embedder,
		rrfConstant:   defaultRRFConstant,
		minSimilarity: defaultMinSimilarity,
		timeout:       defaultTimeout,
		logger:        log,
	}
}

// Retrieve returns up to k chunks for the query, scoped to a course.
func (e *Engine) Retrieve(ctx context.Context, query, course string, filter map[string]interface{}, k int) []models.Chunk {
	query = strings.TrimSpace(query)
	if query == "" || course == "" {
		return nil
	}
	if k <= 0 {
		k = defaultTopK
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// Fetch more than k from each signal so fusion has something to work
	// with when the lists barely overlap.
	fetchLimit := k * 2

	var (
		wg            sync.WaitGroup
		vectorRanked  []models.ScoredChunk
		keywordRanked []models.ScoredChunk
		vectorErr     error
		keywordErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		vectorRanked, vectorErr = e.vectorSearch(ctx, query, course, filter, fetchLimit)
	}()
	go func() {
		defer wg.Done()
		keywordRanked, keywordErr = e.store.SearchByKeyword(ctx, course, query, fetchLimit, filter)
	}()
	wg.Wait()

	if vectorErr != nil && keywordErr != nil {
		e.logger.Warn("Retrieval failed on both signals, returning empty context",
			logger.Error(vectorErr),
		)
		return nil
	}
	if vectorErr != nil {
		e.logger.Warn("Vector search failed, using keyword results only", logger.Error(vectorErr))
	}
	if keywordErr != nil {
		e.logger.Warn("Keyword search failed, using vector results only", logger.Error(keywordErr))
	}

	fused := e.reciprocalRankFusion(vectorRanked, keywordRanked)
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused
}

func (e *Engine) vectorSearch(ctx context.Context, query, course string, filter map[string]interface{}, limit int) ([]models.ScoredChunk, error) {
	embedding, err := e.embedder.Generate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	return e.store.SearchByVector(ctx, course, embedding, limit, e.minSimilarity, filter)
}

// reciprocalRankFusion merges two ranked lists by scoring each chunk with
// the sum of 1/(k + rank) across the lists it appears in.
func (e *Engine) reciprocalRankFusion(list1, list2 []models.ScoredChunk) []models.Chunk {
	scores := make(map[string]float64)
	byID := make(map[string]models.Chunk)

	for rank, sc := range list1 {
		id := sc.Chunk.ID.String()
		scores[id] += 1.0 / float64(e.rrfConstant+rank+1)
		byID[id] = sc.Chunk
	}
	for rank, sc := range list2 {
		id := sc.Chunk.ID.String()
		scores[id] += 1.0 / float64(e.rrfConstant+rank+1)
		byID[id] = sc.Chunk
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})

	results := make([]models.Chunk, len(ids))
	for i, id := range ids {
		results[i] = byID[id]
	}
	return results
}

// RetrieveContext runs Retrieve and flattens the hits into a single
// citation-annotated block ready to be spliced into a model prompt.
func (e *Engine) RetrieveContext(ctx context.Context, query, course string, filter map[string]interface{}, k int) string {
	chunks := e.Retrieve(ctx, query, course, filter, k)
	return BuildContext(chunks)
}

// BuildContext renders chunks as a numbered context block with page
// references.
func BuildContext(chunks []models.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var b strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[%d] %s", i+1, chunk.Content)
		if pages := formatPages(chunk.Metadata.Pages); pages != "" {
			fmt.Fprintf(&b, " (%s)", pages)
		}
		if i < len(chunks)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func formatPages(pages []int) string {
	if len(pages) == 0 {
		return ""
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	if len(pages) == 1 {
		return "page " + parts[0]
	}
	return "pages " + strings.Join(parts, ", ")
}
