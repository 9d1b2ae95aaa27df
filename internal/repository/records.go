package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oezeakachi/chartintake/constants"
	"github.com/oezeakachi/chartintake/internal/entity"
)

// RecordStore is the patient record store collaborator. The read path feeds
// the duplicate detector; the write path commits reviewed items on the
// host's explicit call. The pipeline itself only ever reads.
type RecordStore interface {
	ExistingRecords(ctx context.Context, patientID string, kind constants.EntityType) ([]entity.ExistingRecord, error)
	CommitReviewed(ctx context.Context, jobID uuid.UUID, items []entity.ReviewItem) error
}

type pgRecordStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewRecordStore(pool *pgxpool.Pool, log *slog.Logger) RecordStore {
	if log == nil {
		log = slog.Default()
	}
	return &pgRecordStore{pool: pool, log: log}
}

func (r *pgRecordStore) ExistingRecords(ctx context.Context, patientID string, kind constants.EntityType) ([]entity.ExistingRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, entity_type, name, COALESCE(recorded_on::text, '')
		   FROM patient_records
		  WHERE patient_id = $1 AND entity_type = $2`,
		patientID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query existing records: %w", err)
	}
	defer rows.Close()

	var out []entity.ExistingRecord
	for rows.Next() {
		var rec entity.ExistingRecord
		var typ string
		if err := rows.Scan(&rec.ID, &typ, &rec.Name, &rec.Date); err != nil {
			return nil, fmt.Errorf("scan existing record: %w", err)
		}
		rec.Type = constants.EntityType(typ)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing records: %w", err)
	}
	r.log.Debug("records.existing", "patient_id", patientID, "type", string(kind), "count", len(out))
	return out, nil
}

// CommitReviewed inserts accepted items into the record store in one
// transaction. Rejected and still-modifiable items are skipped; nothing here
// runs unless the host explicitly commits a finalized review.
func (r *pgRecordStore) CommitReviewed(ctx context.Context, jobID uuid.UUID, items []entity.ReviewItem) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inserted := 0
	for _, item := range items {
		if item.Disposition != constants.DispositionAccept {
			continue
		}
		fields := item.Entity.Fields()
		for k, v := range item.Modifications {
			fields[k] = v
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO patient_records (id, source_job_id, entity_type, name, detail, source_span)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), jobID.String(), string(item.Entity.Kind()),
			item.Entity.Label(), fieldsJSON(fields), item.Entity.Span())
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reviewed items: %w", err)
	}
	r.log.Info("records.committed", "job_id", jobID, "inserted", inserted, "total_items", len(items))
	return nil
}
