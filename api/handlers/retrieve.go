package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyflow/course-processor/internal/retrieval"
	"github.com/studyflow/course-processor/pkg/logger"
)

type RetrieveHandler struct {
	engine *retrieval.Engine
	logger logger.Logger
}

func NewRetrieveHandler(engine *retrieval.Engine, log logger.Logger) *RetrieveHandler {
	return &RetrieveHandler{
		engine: engine,
		logger: log,
	}
}

type retrieveRequest struct {
	Query    string                 `json:"query" binding:"required"`
	CourseID string                 `json:"courseId" binding:"required"`
	Filter   map[string]interface{} `json:"filter"`
	K        int                    `json:"k"`
}

// Retrieve runs hybrid search over the caller's ready documents and
// returns an assembled context block for downstream prompting.
func (h *RetrieveHandler) Retrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "query and courseId are required",
		})
		return
	}

	// The engine fails open: backend trouble yields an empty context, never
	// an error, so the chat flow keeps working without enrichment.
	result := h.engine.RetrieveContext(c.Request.Context(), req.Query, req.CourseID, req.Filter, req.K)
	c.JSON(http.StatusOK, gin.H{"context": result})
}
