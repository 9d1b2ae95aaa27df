package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration. It is handed to the job
// manager once and is read-only to every downstream component.
type Config struct {
	OCR     OCRConfig
	Entity  EntityConfig
	Records RecordsConfig
	Staging StagingConfig
	Batch   BatchConfig
}

// OCRConfig controls page reading and recognition.
type OCRConfig struct {
	Language     string        // tesseract language tag, default "eng"
	QualityScale int           // rasterization multiplier, 1..3
	BaseDPI      int           // DPI at QualityScale 1
	MaxPages     int           // page cap per document
	Threshold    float64       // 0..100; pages below this get a warning
	SampleSize   int           // pages sampled by the NeedsOCR pre-check
	PageTimeout  time.Duration // per-page recognition bound
	TessdataDir  string
	Pdftoppm     string // binary name or absolute path; if empty -> "pdftoppm"
}

// EntityConfig controls entity extraction and review defaulting.
type EntityConfig struct {
	Threshold        float64 // 0..1; entities below this default to "modify"
	RetainSourceText bool    // keep aggregated text on the staged job
}

// RecordsConfig points at the patient record store.
type RecordsConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// StagingConfig points at the local staging database.
type StagingConfig struct {
	Path string
}

// BatchConfig sizes the batch intake queue.
type BatchConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			Language:     getEnv("OCR_LANG", "eng"),
			QualityScale: getEnvAsInt("OCR_QUALITY_SCALE", 2),
			BaseDPI:      getEnvAsInt("OCR_BASE_DPI", 150),
			MaxPages:     getEnvAsInt("OCR_MAX_PAGES", 100),
			Threshold:    getEnvAsFloat64("OCR_CONFIDENCE_THRESHOLD", 60),
			SampleSize:   getEnvAsInt("OCR_SAMPLE_SIZE", 3),
			PageTimeout:  getEnvAsDuration("OCR_PAGE_TIMEOUT", 30*time.Second),
			TessdataDir:  getEnv("TESSDATA_PREFIX", ""),
			Pdftoppm:     getEnv("PDFTOPPM_BIN", "pdftoppm"),
		},
		Entity: EntityConfig{
			Threshold:        getEnvAsFloat64("ENTITY_CONFIDENCE_THRESHOLD", 0.8),
			RetainSourceText: getEnvAsBool("RETAIN_SOURCE_TEXT", true),
		},
		Records: RecordsConfig{
			DSN:             getEnv("RECORDS_DB_URL", ""),
			MaxConns:        getEnvAsInt32("RECORDS_DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("RECORDS_DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("RECORDS_DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("RECORDS_DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("RECORDS_DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Staging: StagingConfig{
			Path: getEnv("STAGING_DB_PATH", "./chartintake.db"),
		},
		Batch: BatchConfig{
			Workers:        getEnvAsInt("BATCH_WORKERS", 4),
			QueueSize:      getEnvAsInt("BATCH_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("BATCH_PROCESS_TIMEOUT", 3*time.Minute),
		},
	}
}

// Validate checks ranges. The record store DSN is optional: without it the
// duplicate pass is skipped and the commit path is unavailable.
func (c *Config) Validate() error {
	if c.OCR.QualityScale < 1 || c.OCR.QualityScale > 3 {
		return NewAppError("CONFIG_ERROR", "OCR_QUALITY_SCALE must be 1..3", ErrInvalidInput)
	}
	if c.OCR.MaxPages <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_MAX_PAGES must be positive", ErrInvalidInput)
	}
	if c.OCR.Threshold < 0 || c.OCR.Threshold > 100 {
		return NewAppError("CONFIG_ERROR", "OCR_CONFIDENCE_THRESHOLD must be 0..100", ErrInvalidInput)
	}
	if c.Entity.Threshold < 0 || c.Entity.Threshold > 1 {
		return NewAppError("CONFIG_ERROR", "ENTITY_CONFIDENCE_THRESHOLD must be 0..1", ErrInvalidInput)
	}
	if c.OCR.SampleSize <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_SAMPLE_SIZE must be positive", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
