package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/course-processor/internal/models"
	"github.com/studyflow/course-processor/internal/retrieval"
	"github.com/studyflow/course-processor/pkg/logger"
)

type fakeSearcher struct {
	vectorResults  []models.ScoredChunk
	keywordResults []models.ScoredChunk
	vectorErr      error
	keywordErr     error
}

func (f *fakeSearcher) SearchByVector(ctx context.Context, course string, embedding []float32, limit int, minSimilarity float64, filter map[string]interface{}) ([]models.ScoredChunk, error) {
	return f.vectorResults, f.vectorErr
}

func (f *fakeSearcher) SearchByKeyword(ctx context.Context, course, query string, limit int, filter map[string]interface{}) ([]models.ScoredChunk, error) {
	return f.keywordResults, f.keywordErr
}

type fakeQueryEmbedder struct{ err error }

func (f *fakeQueryEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func retrieveRouter(store *fakeSearcher, embedder *fakeQueryEmbedder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := retrieval.NewEngine(store, embedder, logger.NewTestLogger())
	h := NewRetrieveHandler(engine, logger.NewTestLogger())

	r := gin.New()
	r.POST("/retrieve", h.Retrieve)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRetrieve_ReturnsContextBlock(t *testing.T) {
	store := &fakeSearcher{
		vectorResults: []models.ScoredChunk{{
			Chunk: models.Chunk{
				ID:       uuid.New(),
				Content:  "Bayes theorem relates conditionals",
				Metadata: models.ChunkMetadata{Type: models.ItemKnowledgePoint, Pages: []int{2}},
			},
			Score: 0.9,
		}},
	}
	r := retrieveRouter(store, &fakeQueryEmbedder{})

	w := postJSON(t, r, "/retrieve", `{"query":"bayes","courseId":"CS101"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["context"], "[1] Bayes theorem relates conditionals (page 2)")
}

func TestRetrieve_MissingQueryIsValidationError(t *testing.T) {
	r := retrieveRouter(&fakeSearcher{}, &fakeQueryEmbedder{})

	w := postJSON(t, r, "/retrieve", `{"courseId":"CS101"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp["code"])
}

func TestRetrieve_MissingCourseIsValidationError(t *testing.T) {
	r := retrieveRouter(&fakeSearcher{}, &fakeQueryEmbedder{})

	w := postJSON(t, r, "/retrieve", `{"query":"bayes"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetrieve_BackendFailureYieldsEmptyContext(t *testing.T) {
	// Retrieval is best-effort enrichment: a dead backend means an empty
	// context block, not a 5xx.
	store := &fakeSearcher{
		vectorErr:  errors.New("db down"),
		keywordErr: errors.New("db down"),
	}
	r := retrieveRouter(store, &fakeQueryEmbedder{})

	w := postJSON(t, r, "/retrieve", `{"query":"bayes","courseId":"CS101"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "", resp["context"])
}
