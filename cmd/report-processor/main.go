package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/vetscan/report-processor/internal/config"
	"github.com/vetscan/report-processor/internal/gcp"
	"github.com/vetscan/report-processor/internal/pipeline"
	"github.com/vetscan/report-processor/internal/pipeline/ocr"
	"github.com/vetscan/report-processor/internal/record"
)

var version = "dev" // set by build flags

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.Version = version

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	files := pflag.Args()
	if len(files) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, files); err != nil {
		logger.Error("processing failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, files []string) error {
	if cfg.ProjectID == "" || cfg.DocumentAIProcessor == "" {
		return fmt.Errorf("Document AI configuration required: set --project and --processor")
	}

	ocrService, err := ocr.NewDocumentAI(ctx, cfg.ProjectID, cfg.DocumentAILocation, cfg.DocumentAIProcessor, logger)
	if err != nil {
		return err
	}
	defer ocrService.Close()

	// A configured bucket switches on cloud persistence as a whole: source
	// uploads, image objects and the Firestore record.
	var (
		storage *gcp.Storage
		store   pipeline.ImageStore
		records record.Store
	)
	if cfg.StorageBucket != "" {
		storage, err = gcp.NewStorage(ctx, cfg.StorageBucket, logger)
		if err != nil {
			return err
		}
		defer storage.Close()
		store = storage

		rs, err := gcp.NewRecordStore(ctx, cfg.ProjectID, cfg.FirestoreCollection)
		if err != nil {
			return err
		}
		defer rs.Close()
		records = rs
	}

	processor := pipeline.NewProcessor(pipeline.Options{
		MaxFileSize:                cfg.MaxFileSizeBytes(),
		MaxPagesPerCall:            cfg.MaxPagesPerCall,
		MinImageAreaPx:             cfg.MinImageAreaPx,
		MaxImageRepetitionFraction: cfg.MaxImageRepetition,
		OCRRetryLimit:              cfg.OCRRetryLimit,
		OCRTimeout:                 cfg.OCRTimeout(),
		OCRConcurrency:             cfg.OCRConcurrency,
	}, ocrService, store, nil, logger)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	for _, path := range files {
		if err := processFile(ctx, processor, storage, records, logger, path, enc); err != nil {
			return err
		}
	}
	return nil
}

func processFile(ctx context.Context, processor *pipeline.Processor, storage *gcp.Storage,
	records record.Store, logger *slog.Logger, path string, enc *json.Encoder,
) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	docID := uuid.NewString()[:12]
	filename := pipeline.SanitizeFilename(path)

	var sourceRef string
	if storage != nil {
		sourceRef, err = storage.UploadPDF(ctx, content, filename, docID)
		if err != nil {
			return err
		}
	}

	result, err := processor.Process(ctx, docID, filename, content)
	if err != nil {
		return err
	}

	if records != nil {
		rec := record.FromResult(result, sourceRef, "", time.Now().UTC())
		if err := records.Save(ctx, rec); err != nil {
			// The result is still valid and printed; persistence failure is
			// reported but does not discard the processing work.
			logger.Error("failed to persist record", "documentId", docID, "error", err)
		}
	}

	return enc.Encode(result)
}
