package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/vetscan/report-processor/internal/images"
	"github.com/vetscan/report-processor/internal/report"
)

// Options configures one Processor. Zero MaxPagesPerCall, OCRTimeout,
// OCRConcurrency, PageConcurrency, MaxImageRepetitionFraction and Geometry
// are replaced by the defaults from DefaultOptions. Zero MaxFileSize,
// MinImageAreaPx and OCRRetryLimit are valid settings: no size limit, no
// area pre-filter, no retries.
type Options struct {
	MaxFileSize                int64
	MaxPagesPerCall            int
	MinImageAreaPx             int
	MaxImageRepetitionFraction float64
	OCRRetryLimit              int
	OCRTimeout                 time.Duration
	OCRConcurrency             int
	PageConcurrency            int
	Geometry                   images.GeometryThresholds
}

// DefaultOptions returns the calibrated defaults.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:                20 * 1024 * 1024,
		MaxPagesPerCall:            15,
		MinImageAreaPx:             120000, // 400x300
		MaxImageRepetitionFraction: 0.3,
		OCRRetryLimit:              2,
		OCRTimeout:                 60 * time.Second,
		OCRConcurrency:             4,
		PageConcurrency:            8,
		Geometry:                   images.DefaultGeometryThresholds(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxPagesPerCall <= 0 {
		o.MaxPagesPerCall = def.MaxPagesPerCall
	}
	if o.OCRTimeout <= 0 {
		o.OCRTimeout = def.OCRTimeout
	}
	if o.OCRConcurrency <= 0 {
		o.OCRConcurrency = def.OCRConcurrency
	}
	if o.PageConcurrency <= 0 {
		o.PageConcurrency = def.PageConcurrency
	}
	if o.MaxImageRepetitionFraction <= 0 {
		o.MaxImageRepetitionFraction = def.MaxImageRepetitionFraction
	}
	if o.Geometry == (images.GeometryThresholds{}) {
		o.Geometry = def.Geometry
	}
	return o
}

// Pipeline states, linear with no branching except terminal failure.
type state int

const (
	stateValidated state = iota
	stateChunked
	stateOCRed
	stateReassembled
	stateImagesExtracted
	stateParsed
	stateComplete
)

func (s state) String() string {
	switch s {
	case stateValidated:
		return "Validated"
	case stateChunked:
		return "Chunked"
	case stateOCRed:
		return "OCRed"
	case stateReassembled:
		return "Reassembled"
	case stateImagesExtracted:
		return "ImagesExtracted"
	case stateParsed:
		return "Parsed"
	case stateComplete:
		return "Complete"
	}
	return "unknown"
}

// Processor is the pipeline orchestrator. It owns the ProcessingResult and
// sequences validation, chunked OCR, reassembly, image extraction and
// filtering, and field parsing. On any fatal error it aborts and surfaces
// the typed failure; it never returns partial results.
type Processor struct {
	opts      Options
	ocr       OCRService
	store     ImageStore
	clock     Clock
	extractor *images.Extractor
	filter    *images.Filter
	logger    *slog.Logger
}

// NewProcessor creates an orchestrator. store may be nil when no external
// image storage is configured; extracted images then carry empty storage
// references.
func NewProcessor(opts Options, ocr OCRService, store ImageStore, clock Clock, logger *slog.Logger) *Processor {
	opts = opts.withDefaults()
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		opts:      opts,
		ocr:       ocr,
		store:     store,
		clock:     clock,
		extractor: images.NewExtractor(opts.MinImageAreaPx, logger),
		filter:    images.NewFilter(opts.MaxImageRepetitionFraction, opts.Geometry),
		logger:    logger,
	}
}

// Process runs the whole pipeline over one document. Re-running on the same
// bytes yields the same result modulo ProcessingTimeSeconds.
func (p *Processor) Process(ctx context.Context, docID, filename string, content []byte) (*ProcessingResult, error) {
	start := p.clock.Now()
	logCtx := p.logger.With("documentId", docID, "filename", filename)

	doc, err := ValidateDocument(content, p.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}
	logCtx = logCtx.With("pages", doc.PageCount)
	logCtx.Debug("pipeline state reached", "state", stateValidated.String())

	plan, err := PlanChunks(doc.PageCount, p.opts.MaxPagesPerCall)
	if err != nil {
		return nil, err
	}
	logCtx.Debug("pipeline state reached", "state", stateChunked.String(), "chunks", len(plan.Chunks))

	// Text and image axes read disjoint outputs from the same immutable
	// input, so they run concurrently with each other.
	var (
		pages      []PageText
		candidates []images.Candidate
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var ocrErr error
		pages, ocrErr = p.runOCR(gctx, logCtx, doc, plan)
		return ocrErr
	})
	eg.Go(func() error {
		candidates = p.extractCandidates(gctx, logCtx, doc)
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	logCtx.Debug("pipeline state reached", "state", stateOCRed.String())

	reassembled, err := Reassemble(doc.PageCount, pages)
	if err != nil {
		return nil, err
	}
	logCtx.Debug("pipeline state reached", "state", stateReassembled.String())

	survivors := p.filter.Apply(candidates, doc.PageCount)
	extracted := p.storeImages(ctx, logCtx, docID, survivors)
	logCtx.Debug("pipeline state reached", "state", stateImagesExtracted.String(),
		"candidates", len(candidates), "kept", len(extracted))

	info := report.Parse(reassembled.FullText())
	logCtx.Debug("pipeline state reached", "state", stateParsed.String())

	elapsed := p.clock.Now().Sub(start)
	result := &ProcessingResult{
		DocumentID:            docID,
		Filename:              filename,
		TotalPages:            doc.PageCount,
		FullText:              reassembled.FullText(),
		Pages:                 reassembled.Pages,
		Images:                extracted,
		ReportInfo:            info,
		ProcessingTimeSeconds: elapsed.Seconds(),
	}
	logCtx.Info("pipeline complete", "state", stateComplete.String(),
		"images", len(result.Images), "seconds", result.ProcessingTimeSeconds)
	return result, nil
}

// runOCR fans out one task per chunk, bounded, and merges task-local
// results at the join point. A fatal chunk failure cancels the siblings
// through the group context; there is no point reassembling partial text.
func (p *Processor) runOCR(ctx context.Context, logCtx *slog.Logger, doc *PDFDocument, plan *ChunkPlan) ([]PageText, error) {
	chunkPages := make([][]PageText, len(plan.Chunks))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.opts.OCRConcurrency)
	for i, chunk := range plan.Chunks {
		eg.Go(func() error {
			pages, err := p.ocrChunk(gctx, logCtx, doc, chunk)
			if err != nil {
				return err
			}
			chunkPages[i] = chunk.Absolute(pages)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []PageText
	for _, pages := range chunkPages {
		all = append(all, pages...)
	}
	return all, nil
}

// ocrChunk calls the adapter for one chunk with a per-call timeout,
// retrying transient failures with doubling backoff up to the configured
// limit before escalating to OCRFatalError.
func (p *Processor) ocrChunk(ctx context.Context, logCtx *slog.Logger, doc *PDFDocument, chunk Chunk) ([]PageText, error) {
	attempts := p.opts.OCRRetryLimit + 1
	backoff := 500 * time.Millisecond
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, p.opts.OCRTimeout)
		pages, err := p.ocr.ExtractText(callCtx, doc.Content, chunk)
		cancel()

		if err == nil {
			if len(pages) != chunk.Len() {
				return nil, &ReassemblyError{
					Reason: fmt.Sprintf("OCR returned %d pages for a %d-page chunk", len(pages), chunk.Len()),
				}
			}
			return pages, nil
		}

		// A per-call deadline counts as transient as long as the pipeline
		// itself has not been cancelled.
		transient := IsTransientOCR(err) ||
			(errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil)
		if !transient || attempt == attempts {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &OCRFatalError{Chunk: chunk, Attempts: attempt, Err: err}
		}

		lastErr = err
		logCtx.Warn("OCR call failed, will retry",
			"chunkStart", chunk.Start, "chunkEnd", chunk.End,
			"attempt", attempt, "maxAttempts", attempts,
			"backoff", backoff.String(), "error", err)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, &OCRFatalError{Chunk: chunk, Attempts: attempts, Err: lastErr}
}

// extractCandidates fans out one task per page. Extraction failures are
// local to an object or page and never fail the document, so the tasks
// return no errors; an unreadable document simply yields no images.
func (p *Processor) extractCandidates(ctx context.Context, logCtx *slog.Logger, doc *PDFDocument) []images.Candidate {
	if ctx.Err() != nil {
		return nil
	}

	r, err := pdf.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		logCtx.Warn("cannot open document for image extraction", "error", err)
		return nil
	}
	contents := images.IndexContent(doc.Content, logCtx)

	perPage := make([][]images.Candidate, doc.PageCount)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.opts.PageConcurrency)
	for pageNum := 0; pageNum < doc.PageCount; pageNum++ {
		eg.Go(func() error {
			// A fatal OCR failure cancels the pipeline; remaining pages
			// are not worth walking then.
			if gctx.Err() != nil {
				return nil
			}
			perPage[pageNum] = p.extractor.PageCandidates(r, pageNum, contents)
			return nil
		})
	}
	_ = eg.Wait()

	// Collected per task, flattened in page order: concurrency never leaks
	// into observable ordering.
	var all []images.Candidate
	for _, cands := range perPage {
		all = append(all, cands...)
	}
	return all
}

// storeImages uploads the surviving images. A failed write drops that one
// image and continues; an image store outage degrades the result instead of
// failing the document.
func (p *Processor) storeImages(ctx context.Context, logCtx *slog.Logger, docID string, survivors []images.Candidate) []ExtractedImage {
	extracted := make([]ExtractedImage, 0, len(survivors))
	for i, c := range survivors {
		img := ExtractedImage{
			PageNumber: c.PageNumber,
			Width:      c.Width,
			Height:     c.Height,
			MimeType:   images.MimeType(c.Format),
		}
		// Candidates without content bytes keep their metadata but are
		// never uploaded; a zero-byte object helps nobody.
		if p.store != nil && len(c.Content) > 0 {
			ref, err := p.store.Put(ctx, c.Content, docID, c.PageNumber, i, img.MimeType)
			if err != nil {
				werr := &StorageWriteError{PageNumber: c.PageNumber, Index: i, Err: err}
				logCtx.Warn("dropping image after storage failure", "error", werr)
				continue
			}
			img.StorageRef = ref
		}
		extracted = append(extracted, img)
	}
	return extracted
}
