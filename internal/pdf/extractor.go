package pdf

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/studyflow/course-processor/internal/errs"
	"github.com/studyflow/course-processor/internal/models"
	"github.com/studyflow/course-processor/pkg/logger"
)

// Extractor turns PDF bytes into an ordered list of page texts.
type Extractor struct {
	logger     logger.Logger
	maxWorkers int
}

func NewExtractor(log logger.Logger) *Extractor {
	return &Extractor{
		logger:     log,
		maxWorkers: 4,
	}
}

// Extract parses the document and returns one entry per page, in page order.
// A corrupt document yields PDF_PARSE_ERROR; a document that parses but
// contains no text at all yields EMPTY_PDF, which is a distinct condition
// and not a parse failure.
func (e *Extractor) Extract(ctx context.Context, content []byte) ([]models.ExtractedPage, error) {
	reader := bytes.NewReader(content)

	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return nil, errs.Wrap(errs.CodePDFParseError, "failed to parse PDF", err)
	}

	numPages := pdfReader.NumPage()
	pages := make([]models.ExtractedPage, numPages)

	// Pages are independent, so extract them in parallel with a bounded
	// worker count. Results land at their page index to keep order.
	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.maxWorkers)

	for i := 1; i <= numPages; i++ {
		pageNum := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}

			page := pdfReader.Page(pageNum)
			if page.V.IsNull() {
				pages[pageNum-1] = models.ExtractedPage{Number: pageNum}
				return nil
			}

			text, err := page.GetPlainText(nil)
			if err != nil {
				// A single unreadable page should not sink the whole
				// document; it contributes no text instead.
				e.logger.Warn("Failed to extract page text",
					logger.Int("page", pageNum),
					logger.Error(err),
				)
				text = ""
			}

			pages[pageNum-1] = models.ExtractedPage{
				Number: pageNum,
				Text:   strings.TrimSpace(text),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errs.Wrap(errs.CodePDFParseError, "failed to extract PDF text", err)
	}

	empty := true
	for _, p := range pages {
		if p.Text != "" {
			empty = false
			break
		}
	}
	if empty {
		return nil, errs.New(errs.CodeEmptyPDF, "no text content found in PDF")
	}

	return pages, nil
}
