package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oezeakachi/chartintake/constants"
	"github.com/oezeakachi/chartintake/internal/common"
	"github.com/oezeakachi/chartintake/internal/export"
	"github.com/oezeakachi/chartintake/internal/pipeline"
	repo "github.com/oezeakachi/chartintake/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file    = flag.String("file", "", "PDF document to process (required)")
		outJSON = flag.String("out-json", "", "review JSON output path (defaults next to the input)")
		outXLSX = flag.String("out-xlsx", "", "review XLSX output path (optional)")
		outHTML = flag.String("out-html", "", "summary HTML output path (optional)")
		check   = flag.Bool("check", false, "only report whether the document needs OCR, then exit")
		commit  = flag.Bool("commit", false, "commit accepted items to the patient record store")
	)
	flag.Parse()

	if *file == "" {
		printError("Error: --file is required\n")
		os.Exit(1)
	}
	if ext := constants.NormalizeExt(filepath.Ext(*file)); !constants.IsAllowedExt(ext) {
		printError("Error: unsupported file type %q, only PDF is accepted\n", ext)
		os.Exit(1)
	}
	if *outJSON == "" {
		base := strings.TrimSuffix(*file, filepath.Ext(*file))
		*outJSON = base + ".review.json"
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	payload, err := os.ReadFile(*file)
	if err != nil {
		logger.Error("failed to read input file", "file", *file, "error", err)
		os.Exit(1)
	}

	extractor := pipeline.NewDefaultExtractor(cfg, logger)

	if *check {
		needs, err := extractor.NeedsOCR(payload, cfg.OCR.SampleSize)
		if err != nil {
			logger.Error("pre-check failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("needs_ocr=%t\n", needs)
		return
	}

	var opts []pipeline.Option

	var records repo.RecordStore
	if cfg.Records.DSN != "" {
		pool, err := repo.OpenRecords(ctx, cfg.Records, logger)
		if err != nil {
			logger.Error("failed to open patient record store", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		records = repo.NewRecordStore(pool, logger)
		opts = append(opts, pipeline.WithRecordStore(records))
	} else if *commit {
		printError("Error: --commit requires RECORDS_DB_URL\n")
		os.Exit(1)
	}

	stagingDB, err := repo.OpenStaging(cfg.Staging.Path)
	if err != nil {
		logger.Error("failed to open staging database", "path", cfg.Staging.Path, "error", err)
		os.Exit(1)
	}
	staging, err := repo.NewJobStore(stagingDB, logger)
	if err != nil {
		logger.Error("failed to init staging store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = staging.Close() }()
	if err := staging.Init(ctx); err != nil {
		logger.Error("failed to init staging schema", "error", err)
		os.Exit(1)
	}
	opts = append(opts, pipeline.WithJobStore(staging))

	mgr := pipeline.NewManager(cfg, extractor, logger, opts...)

	id, err := mgr.Submit(filepath.Base(*file), payload)
	if err != nil {
		logger.Error("failed to submit job", "error", err)
		os.Exit(1)
	}

	rev, err := mgr.Run(ctx, id)
	if err != nil {
		logger.Error("intake run failed", "job_id", id, "error", err)
		os.Exit(1)
	}

	job, _ := mgr.Job(id)
	exporter := export.NewService(logger)

	jsonBytes, err := exporter.ExportReviewJSON(rev)
	if err != nil {
		logger.Error("failed to export review JSON", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outJSON, jsonBytes, 0644); err != nil {
		logger.Error("failed to write review JSON", "path", *outJSON, "error", err)
		os.Exit(1)
	}

	if *outXLSX != "" {
		xlsxBytes, err := exporter.ExportReviewXLSX(rev)
		if err != nil {
			logger.Error("failed to export review XLSX", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*outXLSX, xlsxBytes, 0644); err != nil {
			logger.Error("failed to write review XLSX", "path", *outXLSX, "error", err)
			os.Exit(1)
		}
	}

	if *outHTML != "" {
		htmlBytes, err := exporter.SummaryHTML(&job, rev)
		if err != nil {
			logger.Error("failed to render summary", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*outHTML, htmlBytes, 0644); err != nil {
			logger.Error("failed to write summary HTML", "path", *outHTML, "error", err)
			os.Exit(1)
		}
	}

	if *commit {
		if err := records.CommitReviewed(ctx, id, rev.Items); err != nil {
			logger.Error("failed to commit reviewed items", "error", err)
			os.Exit(1)
		}
	}

	if err := mgr.Complete(id); err != nil {
		logger.Error("failed to complete job", "job_id", id, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Intake complete!\n")
	fmt.Printf("- Pages: %d (OCR used: %t)\n", job.PageCount, job.UsedOCR)
	fmt.Printf("- Review items: %d\n", len(rev.Items))
	fmt.Printf("- Warnings: %d, page errors: %d\n", len(job.Warnings), len(job.Errors))
	fmt.Printf("- Review JSON: %s\n", *outJSON)
}
