package common

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.OCR.Language != "eng" {
		t.Errorf("Language = %q, want eng", cfg.OCR.Language)
	}
	if cfg.OCR.QualityScale != 2 {
		t.Errorf("QualityScale = %d, want 2", cfg.OCR.QualityScale)
	}
	if cfg.OCR.MaxPages != 100 {
		t.Errorf("MaxPages = %d, want 100", cfg.OCR.MaxPages)
	}
	if cfg.OCR.Threshold != 60 {
		t.Errorf("Threshold = %v, want 60", cfg.OCR.Threshold)
	}
	if cfg.OCR.SampleSize != 3 {
		t.Errorf("SampleSize = %d, want 3", cfg.OCR.SampleSize)
	}
	if cfg.OCR.PageTimeout != 30*time.Second {
		t.Errorf("PageTimeout = %v, want 30s", cfg.OCR.PageTimeout)
	}
	if cfg.Entity.Threshold != 0.8 {
		t.Errorf("Entity.Threshold = %v, want 0.8", cfg.Entity.Threshold)
	}
	if !cfg.Entity.RetainSourceText {
		t.Error("RetainSourceText = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OCR_LANG", "deu")
	t.Setenv("OCR_QUALITY_SCALE", "3")
	t.Setenv("OCR_MAX_PAGES", "25")
	t.Setenv("ENTITY_CONFIDENCE_THRESHOLD", "0.65")
	t.Setenv("RETAIN_SOURCE_TEXT", "false")
	t.Setenv("OCR_PAGE_TIMEOUT", "45s")

	cfg := LoadConfig()
	if cfg.OCR.Language != "deu" {
		t.Errorf("Language = %q, want deu", cfg.OCR.Language)
	}
	if cfg.OCR.QualityScale != 3 {
		t.Errorf("QualityScale = %d, want 3", cfg.OCR.QualityScale)
	}
	if cfg.OCR.MaxPages != 25 {
		t.Errorf("MaxPages = %d, want 25", cfg.OCR.MaxPages)
	}
	if cfg.Entity.Threshold != 0.65 {
		t.Errorf("Entity.Threshold = %v, want 0.65", cfg.Entity.Threshold)
	}
	if cfg.Entity.RetainSourceText {
		t.Error("RetainSourceText = true, want false")
	}
	if cfg.OCR.PageTimeout != 45*time.Second {
		t.Errorf("PageTimeout = %v, want 45s", cfg.OCR.PageTimeout)
	}
}

func TestLoadConfig_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("OCR_MAX_PAGES", "lots")
	t.Setenv("ENTITY_CONFIDENCE_THRESHOLD", "high")

	cfg := LoadConfig()
	if cfg.OCR.MaxPages != 100 {
		t.Errorf("MaxPages = %d, want default 100", cfg.OCR.MaxPages)
	}
	if cfg.Entity.Threshold != 0.8 {
		t.Errorf("Entity.Threshold = %v, want default 0.8", cfg.Entity.Threshold)
	}
}

func TestValidate_Ranges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"quality scale too high", func(c *Config) { c.OCR.QualityScale = 4 }},
		{"quality scale too low", func(c *Config) { c.OCR.QualityScale = 0 }},
		{"max pages zero", func(c *Config) { c.OCR.MaxPages = 0 }},
		{"ocr threshold out of range", func(c *Config) { c.OCR.Threshold = 120 }},
		{"entity threshold out of range", func(c *Config) { c.Entity.Threshold = 1.5 }},
		{"sample size zero", func(c *Config) { c.OCR.SampleSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := LoadConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
