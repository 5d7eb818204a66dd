package handlers

import (
	"github.com/studyflow/course-processor/internal/ingest"
	"github.com/studyflow/course-processor/internal/retrieval"
	"github.com/studyflow/course-processor/internal/store"
	"github.com/studyflow/course-processor/pkg/logger"
	"github.com/studyflow/course-processor/pkg/queue"
	"github.com/studyflow/course-processor/pkg/storage"
)

type Handlers struct {
	Ingest    *IngestHandler
	Retrieve  *RetrieveHandler
	Documents *DocumentHandler
}

func NewHandlers(
	orchestrator *ingest.Orchestrator,
	engine *retrieval.Engine,
	db *store.DB,
	files storage.Storage,
	tasks queue.Queue,
	maxFileSize int64,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Ingest:    NewIngestHandler(orchestrator, maxFileSize, log),
		Retrieve:  NewRetrieveHandler(engine, log),
		Documents: NewDocumentHandler(db, files, tasks, log),
	}
}
