package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyflow/course-processor/api/middleware"
	"github.com/studyflow/course-processor/internal/models"
	"github.com/studyflow/course-processor/internal/store"
	"github.com/studyflow/course-processor/pkg/converters"
	"github.com/studyflow/course-processor/pkg/logger"
	"github.com/studyflow/course-processor/pkg/queue"
	"github.com/studyflow/course-processor/pkg/storage"
)

type DocumentHandler struct {
	db        *store.DB
	files     storage.Storage
	tasks     queue.Queue
	converter *converters.JSONConverter
	logger    logger.Logger
}

func NewDocumentHandler(db *store.DB, files storage.Storage, tasks queue.Queue, log logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		db:        db,
		files:     files,
		tasks:     tasks,
		converter: converters.NewJSONConverter(),
		logger:    log,
	}
}

// List returns the caller's documents, newest first.
func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	docs, err := h.db.ListDocuments(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list documents", logger.Error(err))
		internalError(c, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}

	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// Get returns one document with its chunks.
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	chunks, err := h.db.ListChunksByDocument(c.Request.Context(), doc.ID)
	if err != nil {
		h.logger.Error("Failed to load document chunks",
			logger.String("document_id", doc.ID.String()),
			logger.Error(err),
		)
		internalError(c, "failed to load document")
		return
	}
	if chunks == nil {
		chunks = []*models.Chunk{}
	}

	c.JSON(http.StatusOK, gin.H{
		"document": doc,
		"chunks":   chunks,
	})
}

// Export renders the document and its chunks as a downloadable JSON file.
func (h *DocumentHandler) Export(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	chunks, err := h.db.ListChunksByDocument(c.Request.Context(), doc.ID)
	if err != nil {
		h.logger.Error("Failed to load chunks for export",
			logger.String("document_id", doc.ID.String()),
			logger.Error(err),
		)
		internalError(c, "failed to export document")
		return
	}

	exported, err := h.converter.Convert(doc, chunks)
	if err != nil {
		internalError(c, "failed to export document")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, doc.ID))
	c.JSON(http.StatusOK, exported)
}

// Delete removes the document, its chunks, and the retained raw file.
func (h *DocumentHandler) Delete(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	if err := h.db.DeleteDocument(c.Request.Context(), doc.ID); err != nil {
		h.logger.Error("Failed to delete document",
			logger.String("document_id", doc.ID.String()),
			logger.Error(err),
		)
		internalError(c, "failed to delete document")
		return
	}

	// Raw file cleanup is best effort; an orphaned object is harmless.
	if err := h.files.Delete(c.Request.Context(), doc.ID.String()+".pdf"); err != nil {
		h.logger.Warn("Failed to delete stored file",
			logger.String("document_id", doc.ID.String()),
			logger.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"deleted": doc.ID})
}

// ownedDocument resolves the :docId path param to a document owned by the
// caller, writing the error response itself when that fails.
func (h *DocumentHandler) ownedDocument(c *gin.Context) (*models.Document, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		unauthorized(c)
		return nil, false
	}

	docID, err := uuid.Parse(c.Param("docId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "invalid document id",
		})
		return nil, false
	}

	doc, err := h.db.GetDocument(c.Request.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		notFound(c, "document not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to load document",
			logger.String("document_id", docID.String()),
			logger.Error(err),
		)
		internalError(c, "failed to load document")
		return nil, false
	}

	// Ownership is enforced as not-found so ids are not probeable.
	if doc.OwnerID != userID {
		notFound(c, "document not found")
		return nil, false
	}
	return doc, true
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":    "VALIDATION_ERROR",
		"message": "missing caller identity",
	})
}

func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{
		"code":    "VALIDATION_ERROR",
		"message": message,
	})
}

func internalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": message,
	})
}
