package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.MaxFileSizeMB != 20 {
		t.Errorf("Expected default max file size to be 20MB, got %d", cfg.MaxFileSizeMB)
	}

	if cfg.MaxPagesPerCall != 15 {
		t.Errorf("Expected default max pages per call to be 15, got %d", cfg.MaxPagesPerCall)
	}

	if cfg.MinImageAreaPx != 120000 {
		t.Errorf("Expected default min image area to be 120000, got %d", cfg.MinImageAreaPx)
	}

	if cfg.MaxImageRepetition != 0.3 {
		t.Errorf("Expected default max image repetition to be 0.3, got %f", cfg.MaxImageRepetition)
	}

	if cfg.OCRRetryLimit != 2 {
		t.Errorf("Expected default OCR retry limit to be 2, got %d", cfg.OCRRetryLimit)
	}

	if cfg.OCRConcurrency != 4 {
		t.Errorf("Expected default OCR concurrency to be 4, got %d", cfg.OCRConcurrency)
	}

	if cfg.DocumentAILocation != "us" {
		t.Errorf("Expected default Document AI location to be 'us', got '%s'", cfg.DocumentAILocation)
	}

	if cfg.FirestoreCollection != "pdf_records" {
		t.Errorf("Expected default Firestore collection to be 'pdf_records', got '%s'", cfg.FirestoreCollection)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero file size",
			mutate:  func(c *Config) { c.MaxFileSizeMB = 0 },
			wantErr: true,
		},
		{
			name:    "negative file size",
			mutate:  func(c *Config) { c.MaxFileSizeMB = -5 },
			wantErr: true,
		},
		{
			name:    "zero pages per call",
			mutate:  func(c *Config) { c.MaxPagesPerCall = 0 },
			wantErr: true,
		},
		{
			name:    "negative image area",
			mutate:  func(c *Config) { c.MinImageAreaPx = -1 },
			wantErr: true,
		},
		{
			name:    "zero image area is allowed",
			mutate:  func(c *Config) { c.MinImageAreaPx = 0 },
			wantErr: false,
		},
		{
			name:    "repetition fraction zero",
			mutate:  func(c *Config) { c.MaxImageRepetition = 0 },
			wantErr: true,
		},
		{
			name:    "repetition fraction above one",
			mutate:  func(c *Config) { c.MaxImageRepetition = 1.5 },
			wantErr: true,
		},
		{
			name:    "repetition fraction exactly one is allowed",
			mutate:  func(c *Config) { c.MaxImageRepetition = 1.0 },
			wantErr: false,
		},
		{
			name:    "negative retry limit",
			mutate:  func(c *Config) { c.OCRRetryLimit = -1 },
			wantErr: true,
		},
		{
			name:    "zero retry limit is allowed",
			mutate:  func(c *Config) { c.OCRRetryLimit = 0 },
			wantErr: false,
		},
		{
			name:    "zero OCR timeout",
			mutate:  func(c *Config) { c.OCRTimeoutSeconds = 0 },
			wantErr: true,
		},
		{
			name:    "zero OCR concurrency",
			mutate:  func(c *Config) { c.OCRConcurrency = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
		{
			name:    "debug log level",
			mutate:  func(c *Config) { c.LogLevel = "debug" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaxFileSizeBytes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFileSizeMB = 20

	if got := cfg.MaxFileSizeBytes(); got != 20*1024*1024 {
		t.Errorf("Expected 20MB in bytes, got %d", got)
	}
}

func TestOCRTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCRTimeoutSeconds = 1.5

	if got := cfg.OCRTimeout(); got != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s timeout, got %v", got)
	}
}

func TestIsDebug(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.IsDebug() {
		t.Error("Expected IsDebug to be false for default config")
	}

	cfg.LogLevel = "debug"
	if !cfg.IsDebug() {
		t.Error("Expected IsDebug to be true when log level is debug")
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProjectID = "my-project"

	s := cfg.String()
	if s == "" {
		t.Error("Expected non-empty string representation")
	}
}
