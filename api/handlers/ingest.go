package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyflow/course-processor/api/middleware"
	"github.com/studyflow/course-processor/internal/ingest"
	"github.com/studyflow/course-processor/internal/models"
	"github.com/studyflow/course-processor/pkg/logger"
)

type IngestHandler struct {
	orchestrator *ingest.Orchestrator
	maxFileSize  int64
	logger       logger.Logger
}

func NewIngestHandler(orchestrator *ingest.Orchestrator, maxFileSize int64, log logger.Logger) *IngestHandler {
	return &IngestHandler{
		orchestrator: orchestrator,
		maxFileSize:  maxFileSize,
		logger:       log,
	}
}

// ProcessUpload accepts a multipart course-material upload and streams the
// ingestion run back as server-sent events. The connection stays open for
// the lifetime of the run; the terminal event is a complete status or an
// error.
func (h *IngestHandler) ProcessUpload(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "missing caller identity",
		})
		return
	}

	kind := models.DocKind(c.PostForm("docType"))
	switch kind {
	case models.KindLecture, models.KindExam, models.KindAssignment:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "docType must be one of lecture, exam, assignment",
		})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "missing file upload",
		})
		return
	}
	defer file.Close()

	// Cap the read at one byte past the ceiling; the validator rejects
	// anything that large without parsing it.
	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		h.logger.Error("Failed to read upload",
			logger.String("filename", header.Filename),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "failed to read upload",
		})
		return
	}

	in := ingest.Input{
		OwnerID:    userID,
		Paid:       middleware.IsPaid(c),
		FileName:   header.Filename,
		MimeType:   header.Header.Get("Content-Type"),
		Size:       int64(len(data)),
		Data:       data,
		Kind:       kind,
		School:     c.PostForm("school"),
		Course:     c.PostForm("course"),
		HasAnswers: c.PostForm("hasAnswers") == "true",
	}

	em := ingest.NewStreamEmitter()
	defer em.Abandon()

	go func() {
		if err := h.orchestrator.Run(c.Request.Context(), in, em); err != nil {
			h.logger.Warn("Ingestion run ended with error",
				logger.String("filename", header.Filename),
				logger.Error(err),
			)
		}
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		event, ok := <-em.Events()
		if !ok {
			return false
		}
		c.SSEvent(string(event.Type), event.Payload)
		return true
	})
}
