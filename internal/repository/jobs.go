package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/oezeakachi/chartintake/constants"
	"github.com/oezeakachi/chartintake/internal/common"
	"github.com/oezeakachi/chartintake/internal/entity"
)

// JobStore persists finished jobs to the local staging database for audit
// and read-back. Retained source text is zstd-compressed; OCR text
// compresses well and large documents add up.
type JobStore interface {
	Init(ctx context.Context) error
	SaveJob(ctx context.Context, job *entity.ImportJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*entity.ImportJob, error)
	Close() error
}

type sqliteJobStore struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	log *slog.Logger
}

func NewJobStore(db *sql.DB, log *slog.Logger) (JobStore, error) {
	if log == nil {
		log = slog.Default()
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}
	return &sqliteJobStore{db: db, enc: enc, dec: dec, log: log}, nil
}

func (s *sqliteJobStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS import_jobs (
		id TEXT PRIMARY KEY,
		source_name TEXT NOT NULL,
		source_size INTEGER NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL,
		page_count INTEGER NOT NULL,
		used_ocr INTEGER NOT NULL,
		source_text BLOB,
		medical_json TEXT,
		errors_json TEXT,
		warnings_json TEXT,
		created_at INTEGER NOT NULL,
		completed_at INTEGER
	)`)
	if err != nil {
		return fmt.Errorf("init staging schema: %w", err)
	}
	return nil
}

func (s *sqliteJobStore) SaveJob(ctx context.Context, job *entity.ImportJob) error {
	var sourceText []byte
	if job.Text != "" {
		sourceText = s.enc.EncodeAll([]byte(job.Text), nil)
	}
	var medicalJSON sql.NullString
	if job.Medical != nil {
		b, err := json.Marshal(job.Medical)
		if err != nil {
			return fmt.Errorf("marshal medical data: %w", err)
		}
		medicalJSON = sql.NullString{String: string(b), Valid: true}
	}
	errorsJSON, _ := json.Marshal(job.Errors)
	warningsJSON, _ := json.Marshal(job.Warnings)

	var completed *int64
	if job.CompletedAt != nil {
		v := job.CompletedAt.Unix()
		completed = &v
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO import_jobs
		(id, source_name, source_size, status, progress, page_count, used_ocr,
		 source_text, medical_json, errors_json, warnings_json, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			page_count = excluded.page_count,
			used_ocr = excluded.used_ocr,
			source_text = excluded.source_text,
			medical_json = excluded.medical_json,
			errors_json = excluded.errors_json,
			warnings_json = excluded.warnings_json,
			completed_at = excluded.completed_at`,
		job.ID.String(), job.SourceName, job.SourceSize, string(job.Status),
		job.Progress, job.PageCount, boolToInt(job.UsedOCR),
		sourceText, medicalJSON, string(errorsJSON), string(warningsJSON),
		job.CreatedAt.Unix(), completed)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	s.log.Debug("staging.job.saved", "job_id", job.ID, "status", string(job.Status))
	return nil
}

func (s *sqliteJobStore) GetJob(ctx context.Context, id uuid.UUID) (*entity.ImportJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		id, source_name, source_size, status, progress, page_count, used_ocr,
		source_text, medical_json, errors_json, warnings_json, created_at, completed_at
		FROM import_jobs WHERE id = ?`, id.String())

	var job entity.ImportJob
	var idStr, status string
	var usedOCR int
	var sourceText []byte
	var medicalJSON, errorsJSON, warningsJSON sql.NullString
	var createdAt int64
	var completedAt sql.NullInt64

	err := row.Scan(&idStr, &job.SourceName, &job.SourceSize, &status, &job.Progress,
		&job.PageCount, &usedOCR, &sourceText, &medicalJSON, &errorsJSON,
		&warningsJSON, &createdAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}

	job.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	job.Status = constants.JobStatus(status)
	job.UsedOCR = usedOCR != 0
	job.CreatedAt = time.Unix(createdAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		job.CompletedAt = &t
	}
	if len(sourceText) > 0 {
		raw, err := s.dec.DecodeAll(sourceText, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress source text: %w", err)
		}
		job.Text = string(raw)
	}
	if medicalJSON.Valid && medicalJSON.String != "" {
		var med entity.ExtractedMedicalData
		if err := json.Unmarshal([]byte(medicalJSON.String), &med); err != nil {
			return nil, fmt.Errorf("unmarshal medical data: %w", err)
		}
		job.Medical = &med
	}
	if errorsJSON.Valid {
		_ = json.Unmarshal([]byte(errorsJSON.String), &job.Errors)
	}
	if warningsJSON.Valid {
		_ = json.Unmarshal([]byte(warningsJSON.String), &job.Warnings)
	}
	return &job, nil
}

func (s *sqliteJobStore) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fieldsJSON(fields map[string]string) string {
	b, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(b)
}
