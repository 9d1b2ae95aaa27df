package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/oezeakachi/chartintake/constants"
	"github.com/oezeakachi/chartintake/internal/async"
	"github.com/oezeakachi/chartintake/internal/common"
	"github.com/oezeakachi/chartintake/internal/export"
	"github.com/oezeakachi/chartintake/internal/pipeline"
	repo "github.com/oezeakachi/chartintake/internal/repository"
)

func main() {
	var (
		dir = flag.String("dir", "", "directory of PDF documents to process (required)")
		out = flag.String("out", "", "directory for review artifacts (defaults to --dir)")
	)
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "Error: --dir is required")
		os.Exit(1)
	}
	if *out == "" {
		*out = *dir
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

	var opts []pipeline.Option
	if cfg.Records.DSN != "" {
		pool, err := repo.OpenRecords(ctx, cfg.Records, logger)
		if err != nil {
			logger.Error("failed to open patient record store", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		opts = append(opts, pipeline.WithRecordStore(repo.NewRecordStore(pool, logger)))
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

	mgr := pipeline.NewManager(cfg, pipeline.NewDefaultExtractor(cfg, logger), logger, opts...)
	exporter := export.NewService(logger)

	var processed, failed atomic.Int64
	run := func(ctx context.Context, id uuid.UUID) error {
		rev, err := mgr.Run(ctx, id)
		if err != nil {
			failed.Add(1)
			return err
		}
		job, _ := mgr.Job(id)

		jsonBytes, err := exporter.ExportReviewJSON(rev)
		if err != nil {
			failed.Add(1)
			return err
		}
		base := strings.TrimSuffix(job.SourceName, filepath.Ext(job.SourceName))
		outPath := filepath.Join(*out, base+".review.json")
		if err := os.WriteFile(outPath, jsonBytes, 0644); err != nil {
			failed.Add(1)
			return fmt.Errorf("write review artifact: %w", err)
		}

		if err := mgr.Complete(id); err != nil {
			failed.Add(1)
			return err
		}
		processed.Add(1)
		return nil
	}

	queue := async.NewIntakeQueue(run, logger,
		async.WithWorkers(cfg.Batch.Workers),
		async.WithQueueSize(cfg.Batch.QueueSize),
		async.WithProcessTimeout(cfg.Batch.ProcessTimeout),
	)

	submitted := 0
	skipped := 0
	err = filepath.WalkDir(*dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !constants.IsAllowedExt(constants.NormalizeExt(filepath.Ext(path))) {
			skipped++
			return nil
		}
		payload, err := os.ReadFile(path)
		if err != nil {
			logger.Error("failed to read document", "path", path, "error", err)
			skipped++
			return nil
		}
		id, err := mgr.Submit(filepath.Base(path), payload)
		if err != nil {
			logger.Error("failed to submit document", "path", path, "error", err)
			skipped++
			return nil
		}
		submitted++
		return queue.Enqueue(ctx, async.Job{JobID: id, SourceName: filepath.Base(path), SubmittedAt: time.Now()})
	})
	if err != nil {
		logger.Error("directory walk failed", "dir", *dir, "error", err)
		os.Exit(1)
	}

	queue.Shutdown(context.Background())

	logger.Info("batch intake complete",
		"submitted", submitted,
		"processed", processed.Load(),
		"failed", failed.Load(),
		"skipped", skipped)

	fmt.Printf("Batch intake complete!\n")
	fmt.Printf("- Documents submitted: %d\n", submitted)
	fmt.Printf("- Processed: %d\n", processed.Load())
	fmt.Printf("- Failures: %d\n", failed.Load())
	fmt.Printf("- Skipped (non-PDF or unreadable): %d\n", skipped)
	fmt.Printf("- Artifacts: %s\n", *out)
}
