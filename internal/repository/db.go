package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite" // pure-Go SQLite driver for the staging store

	"github.com/oezeakachi/chartintake/internal/common"
)

// OpenRecords creates a pgx pool against the patient record store.
func OpenRecords(ctx context.Context, cfg common.RecordsConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to patient record store")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse records dsn: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "chartintake"

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to patient record store", "error", err)
		return nil, err
	}
	logger.Info("connected to patient record store")
	return pool, nil
}

// OpenStaging opens the local SQLite staging database. A single connection
// serializes all writers, avoiding SQLITE_BUSY from concurrent jobs.
func OpenStaging(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open staging db: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
