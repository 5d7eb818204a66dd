package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyflow/course-processor/api/middleware"
	"github.com/studyflow/course-processor/internal/models"
	"github.com/studyflow/course-processor/internal/store"
	"github.com/studyflow/course-processor/pkg/logger"
)

type updateChunkRequest struct {
	Content string `json:"content" binding:"required"`
}

// UpdateChunk applies a manual content edit and queues the chunk for
// re-embedding. Until the worker catches up the chunk is absent from
// vector search; keyword search picks the new text up immediately.
func (h *DocumentHandler) UpdateChunk(c *gin.Context) {
	chunk, ok := h.ownedChunk(c)
	if !ok {
		return
	}

	var req updateChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "content is required",
		})
		return
	}

	meta := chunk.Metadata
	if meta.Extra == nil {
		meta.Extra = map[string]string{}
	}
	meta.Extra["edited"] = "true"

	if err := h.db.UpdateChunkContent(c.Request.Context(), chunk.ID, req.Content, meta); err != nil {
		h.logger.Error("Failed to update chunk",
			logger.String("chunk_id", chunk.ID.String()),
			logger.Error(err),
		)
		internalError(c, "failed to update chunk")
		return
	}

	if err := h.tasks.EnqueueReembed(c.Request.Context(), chunk.ID.String()); err != nil {
		h.logger.Error("Failed to queue re-embedding",
			logger.String("chunk_id", chunk.ID.String()),
			logger.Error(err),
		)
		internalError(c, "failed to queue re-embedding")
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": chunk.ID})
}

// DeleteChunk removes one chunk from its document.
func (h *DocumentHandler) DeleteChunk(c *gin.Context) {
	chunk, ok := h.ownedChunk(c)
	if !ok {
		return
	}

	if err := h.db.DeleteChunk(c.Request.Context(), chunk.ID); err != nil {
		h.logger.Error("Failed to delete chunk",
			logger.String("chunk_id", chunk.ID.String()),
			logger.Error(err),
		)
		internalError(c, "failed to delete chunk")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": chunk.ID})
}

// ownedChunk resolves :chunkId to a chunk whose parent document the caller
// owns.
func (h *DocumentHandler) ownedChunk(c *gin.Context) (*models.Chunk, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		unauthorized(c)
		return nil, false
	}

	chunkID, err := uuid.Parse(c.Param("chunkId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "invalid chunk id",
		})
		return nil, false
	}

	chunk, err := h.db.GetChunk(c.Request.Context(), chunkID)
	if errors.Is(err, store.ErrNotFound) {
		notFound(c, "chunk not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to load chunk",
			logger.String("chunk_id", chunkID.String()),
			logger.Error(err),
		)
		internalError(c, "failed to load chunk")
		return nil, false
	}

	doc, err := h.db.GetDocument(c.Request.Context(), chunk.DocumentID)
	if errors.Is(err, store.ErrNotFound) {
		notFound(c, "chunk not found")
		return nil, false
	}
	if err != nil {
		internalError(c, "failed to load chunk")
		return nil, false
	}
	if doc.OwnerID != userID {
		notFound(c, "chunk not found")
		return nil, false
	}
	return chunk, true
}
