package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/studyflow/course-processor/internal/errs"
	"github.com/studyflow/course-processor/internal/models"
	"github.com/studyflow/course-processor/internal/quota"
	"github.com/studyflow/course-processor/pkg/logger"
)

// persistBatchSize is how many items are embedded and written per store
// round trip. Small on purpose: a crash partway through a large document
// leaves partial, usable chunks behind the rollback rather than losing
// everything extracted so far.
const persistBatchSize = 3

// Input is one upload request, validated upstream for identity only.
type Input struct {
	OwnerID    string
	Paid       bool
	FileName   string
	MimeType   string
	Size       int64
	Data       []byte
	Kind       models.DocKind
	School     string
	Course     string
	HasAnswers bool
}

// FileValidator checks the upload before any parsing work.
type FileValidator interface {
	Validate(data []byte, declaredMime string, size int64) error
}

// QuotaGate is the daily LLM-spend counter.
type QuotaGate interface {
	CheckAndIncrement(ctx context.Context, userID string, paid bool) (quota.DailyResult, error)
}

// TextExtractor turns PDF bytes into ordered page texts.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte) ([]models.ExtractedPage, error)
}

// ItemExtractor runs kind-specific structured extraction.
type ItemExtractor interface {
	Extract(ctx context.Context, pages []models.ExtractedPage, kind models.DocKind, hasAnswers bool, onItem func(models.ParsedItem)) ([]models.ParsedItem, error)
}

// Embedder produces one vector per text or fails outright.
type Embedder interface {
	GenerateAll(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentStore is the document-row surface the orchestrator needs.
type DocumentStore interface {
	ExistsByName(ctx context.Context, ownerID, name string) (bool, error)
	CreateDocument(ctx context.Context, doc *models.Document) error
	SetDocumentStatus(ctx context.Context, id uuid.UUID, status models.Status, message string) error
}

// ChunkStore is the chunk-row surface the orchestrator needs.
type ChunkStore interface {
	InsertChunks(ctx context.Context, chunks []*models.Chunk) error
	DeleteChunksByDocument(ctx context.Context, docID uuid.UUID) error
}

// FileStore retains the raw upload for later export or re-processing.
type FileStore interface {
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
}

// Orchestrator drives one upload through the pipeline:
// validate → quota → duplicate check → create document → parse → extract →
// embed+persist in batches → ready. Any failure after the document record
// exists rolls back written chunks and parks the document in error state
// with a redacted message.
type Orchestrator struct {
	validator FileValidator
	quotaGate QuotaGate
	docs      DocumentStore
	chunks    ChunkStore
	text      TextExtractor
	items     ItemExtractor
	embedder  Embedder
	files     FileStore
	redactor  *errs.Redactor
	logger    logger.Logger
}

func NewOrchestrator(
	validator FileValidator,
	quotaGate QuotaGate,
	docs DocumentStore,
	chunks ChunkStore,
	text TextExtractor,
	items ItemExtractor,
	embedder Embedder,
	files FileStore,
	redactor *errs.Redactor,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		validator: validator,
		quotaGate: quotaGate,
		docs:      docs,
		chunks:    chunks,
		text:      text,
		items:     items,
		embedder:  embedder,
		files:     files,
		redactor:  redactor,
		logger:    log,
	}
}

// Run processes one upload and pushes events to em. The terminal event is
// always a complete status or an error; em is closed when the run is over.
// Cancellation of ctx propagates into the LLM and embedding calls.
func (o *Orchestrator) Run(ctx context.Context, in Input, em Emitter) error {
	defer em.Close()

	// Failures before the document record exists have no persisted side
	// effect; they surface as a single error event.
	if err := o.validator.Validate(in.Data, in.MimeType, in.Size); err != nil {
		o.emitError(em, err)
		return err
	}

	quotaRes, err := o.quotaGate.CheckAndIncrement(ctx, in.OwnerID, in.Paid)
	if err != nil {
		o.emitError(em, err)
		return err
	}
	if !quotaRes.Allowed {
		err := errs.New(errs.CodeQuotaExceeded,
			fmt.Sprintf("daily upload limit reached (%d used)", quotaRes.Count))
		o.emitError(em, err)
		return err
	}

	exists, err := o.docs.ExistsByName(ctx, in.OwnerID, in.FileName)
	if err != nil {
		err = errs.Wrap(errs.CodeInternalError, "failed to check for duplicate document", err)
		o.emitError(em, err)
		return err
	}
	if exists {
		err := errs.New(errs.CodeDuplicate,
			fmt.Sprintf("a document named %q already exists", in.FileName))
		o.emitError(em, err)
		return err
	}

	doc := &models.Document{
		ID:      uuid.New(),
		OwnerID: in.OwnerID,
		Name:    in.FileName,
		Kind:    in.Kind,
		Status:  models.StatusProcessing,
		School:  in.School,
		Course:  in.Course,
	}
	if err := o.docs.CreateDocument(ctx, doc); err != nil {
		err = errs.Wrap(errs.CodeInternalError, "failed to create document", err)
		o.emitError(em, err)
		return err
	}

	runLog := o.logger.With(
		logger.String("documentId", doc.ID.String()),
		logger.String("ownerId", in.OwnerID),
	)
	runLog.Info("Ingestion started",
		logger.String("kind", string(in.Kind)),
		logger.Int64("size", in.Size),
	)

	o.emitStatus(em, StageParsingPDF, "Parsing PDF")

	pages, err := o.text.Extract(ctx, in.Data)
	if err != nil {
		if errs.CodeOf(err) == errs.CodeEmptyPDF {
			return o.completeEmpty(ctx, doc, em, runLog)
		}
		return o.fail(ctx, doc, em, runLog, err)
	}

	// Raw upload retention is best effort; losing it never fails the run.
	if o.files != nil {
		if _, err := o.files.Store(ctx, bytes.NewReader(in.Data), doc.ID.String()+".pdf"); err != nil {
			runLog.Warn("Failed to store raw upload", logger.Error(err))
		}
	}

	o.emitStatus(em, StageExtracting, "Extracting study content")

	itemIndex := 0
	items, err := o.items.Extract(ctx, pages, in.Kind, in.HasAnswers, func(item models.ParsedItem) {
		em.Emit(Event{Type: EventItem, Payload: ItemPayload{
			Index: itemIndex,
			Type:  item.Type,
			Data:  item,
		}})
		itemIndex++
	})
	if err != nil {
		return o.fail(ctx, doc, em, runLog, err)
	}

	if len(items) == 0 {
		return o.completeEmpty(ctx, doc, em, runLog)
	}

	o.emitStatus(em, StageEmbedding, "Generating embeddings")

	if err := o.embedAndPersist(ctx, doc, items, em); err != nil {
		return o.fail(ctx, doc, em, runLog, err)
	}

	if err := o.docs.SetDocumentStatus(ctx, doc.ID, models.StatusReady, ""); err != nil {
		return o.fail(ctx, doc, em, runLog, errs.Wrap(errs.CodeInternalError, "failed to finalize document", err))
	}

	runLog.Info("Ingestion complete", logger.Int("items", len(items)))
	o.emitStatus(em, StageComplete, fmt.Sprintf("Extracted %d items", len(items)))
	return nil
}

// embedAndPersist writes items incrementally: every persistBatchSize items
// are embedded and inserted together, with the final partial batch flushed
// as well. Progress counts persisted items and reaches the total exactly
// once, on the final batch.
func (o *Orchestrator) embedAndPersist(ctx context.Context, doc *models.Document, items []models.ParsedItem, em Emitter) error {
	total := len(items)
	saved := 0
	batchIndex := 0

	for start := 0; start < total; start += persistBatchSize {
		end := start + persistBatchSize
		if end > total {
			end = total
		}
		batch := items[start:end]

		texts := make([]string, len(batch))
		for i, item := range batch {
			texts[i] = item.EmbeddingText()
		}

		vectors, err := o.embedder.GenerateAll(ctx, texts)
		if err != nil {
			return errs.Wrap(errs.CodeInternalError, "embedding generation failed", err)
		}

		chunks := make([]*models.Chunk, len(batch))
		ids := make([]string, len(batch))
		for i, item := range batch {
			id := uuid.New()
			chunks[i] = &models.Chunk{
				ID:         id,
				DocumentID: doc.ID,
				Content:    texts[i],
				Metadata:   models.MetadataFor(item),
				Embedding:  vectors[i],
			}
			ids[i] = id.String()
		}

		if err := o.chunks.InsertChunks(ctx, chunks); err != nil {
			return errs.Wrap(errs.CodeInternalError, "failed to persist chunks", err)
		}

		saved += len(batch)
		em.Emit(Event{Type: EventBatchSaved, Payload: BatchSavedPayload{
			BatchIndex: batchIndex,
			ChunkIDs:   ids,
		}})
		em.Emit(Event{Type: EventProgress, Payload: ProgressPayload{
			Current: saved,
			Total:   total,
		}})
		batchIndex++
	}

	return nil
}

// completeEmpty routes the no-content case to a successful completion: the
// document becomes ready with an explanatory message rather than an error.
func (o *Orchestrator) completeEmpty(ctx context.Context, doc *models.Document, em Emitter, runLog logger.Logger) error {
	const msg = "no content extracted"
	if err := o.docs.SetDocumentStatus(ctx, doc.ID, models.StatusReady, msg); err != nil {
		return o.fail(ctx, doc, em, runLog, errs.Wrap(errs.CodeInternalError, "failed to finalize document", err))
	}
	runLog.Info("Ingestion complete with no extractable content")
	em.Emit(Event{Type: EventProgress, Payload: ProgressPayload{Current: 0, Total: 0}})
	o.emitStatus(em, StageComplete, msg)
	return nil
}

// fail rolls back any chunks written so far and parks the document in error
// state. Cleanup runs detached from ctx so a client disconnect cannot leave
// orphaned rows behind.
func (o *Orchestrator) fail(ctx context.Context, doc *models.Document, em Emitter, runLog logger.Logger, cause error) error {
	msg := o.redactor.Redact(errs.MessageOf(cause))

	cleanupCtx := context.WithoutCancel(ctx)
	if err := o.chunks.DeleteChunksByDocument(cleanupCtx, doc.ID); err != nil {
		runLog.Error("Rollback failed, chunks may be orphaned", logger.Error(err))
	}
	if err := o.docs.SetDocumentStatus(cleanupCtx, doc.ID, models.StatusError, msg); err != nil {
		runLog.Error("Failed to record error status", logger.Error(err))
	}

	runLog.Error("Ingestion failed",
		logger.String("code", string(errs.CodeOf(cause))),
		logger.Error(cause),
	)
	o.emitError(em, cause)
	return cause
}

func (o *Orchestrator) emitStatus(em Emitter, stage, message string) {
	em.Emit(Event{Type: EventStatus, Payload: StatusPayload{Stage: stage, Message: message}})
}

func (o *Orchestrator) emitError(em Emitter, err error) {
	msg := o.redactor.Redact(errs.MessageOf(err))
	o.emitStatus(em, StageError, msg)
	em.Emit(Event{Type: EventError, Payload: ErrorPayload{
		Code:    errs.CodeOf(err),
		Message: msg,
	}})
}
