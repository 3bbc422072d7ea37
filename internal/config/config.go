package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultLogLevel            = "info"
	DefaultMaxFileSizeMB       = 20
	DefaultMaxPagesPerCall     = 15
	DefaultMinImageAreaPx      = 120000 // 400x300
	DefaultMaxImageRepetition  = 0.3
	DefaultOCRRetryLimit       = 2
	DefaultOCRTimeoutSeconds   = 60.0
	DefaultOCRConcurrency      = 4
	DefaultFirestoreCollection = "pdf_records"
	DefaultDocumentAILocation  = "us"
)

// Config holds all configuration for the report processor.
type Config struct {
	// Application configuration
	LogLevel string
	Version  string

	// Pipeline configuration
	MaxFileSizeMB      int64
	MaxPagesPerCall    int
	MinImageAreaPx     int
	MaxImageRepetition float64
	OCRRetryLimit      int
	OCRTimeoutSeconds  float64
	OCRConcurrency     int

	// GCP configuration
	ProjectID           string
	DocumentAILocation  string
	DocumentAIProcessor string
	StorageBucket       string
	FirestoreCollection string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:            DefaultLogLevel,
		Version:             "1.0.0",
		MaxFileSizeMB:       DefaultMaxFileSizeMB,
		MaxPagesPerCall:     DefaultMaxPagesPerCall,
		MinImageAreaPx:      DefaultMinImageAreaPx,
		MaxImageRepetition:  DefaultMaxImageRepetition,
		OCRRetryLimit:       DefaultOCRRetryLimit,
		OCRTimeoutSeconds:   DefaultOCRTimeoutSeconds,
		OCRConcurrency:      DefaultOCRConcurrency,
		DocumentAILocation:  DefaultDocumentAILocation,
		FirestoreCollection: DefaultFirestoreCollection,
	}
}

// LoadFromFlags parses command line flags and environment variables and
// returns a validated configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults.
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("VETSCAN")
	viper.AutomaticEnv()

	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesizemb", cfg.MaxFileSizeMB)
	viper.SetDefault("maxpagespercall", cfg.MaxPagesPerCall)
	viper.SetDefault("minimagearea", cfg.MinImageAreaPx)
	viper.SetDefault("maximagerepetition", cfg.MaxImageRepetition)
	viper.SetDefault("ocrretrylimit", cfg.OCRRetryLimit)
	viper.SetDefault("ocrtimeout", cfg.OCRTimeoutSeconds)
	viper.SetDefault("ocrconcurrency", cfg.OCRConcurrency)
	viper.SetDefault("project", cfg.ProjectID)
	viper.SetDefault("location", cfg.DocumentAILocation)
	viper.SetDefault("processor", cfg.DocumentAIProcessor)
	viper.SetDefault("bucket", cfg.StorageBucket)
	viper.SetDefault("collection", cfg.FirestoreCollection)
}

// defineCommandLineFlags sets up all command line flags.
func defineCommandLineFlags(cfg *Config) {
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesizemb", cfg.MaxFileSizeMB, "Maximum PDF file size in megabytes")
	pflag.Int("maxpagespercall", cfg.MaxPagesPerCall, "Maximum pages per OCR call")
	pflag.Int("minimagearea", cfg.MinImageAreaPx, "Minimum embedded image area in pixels")
	pflag.Float64("maximagerepetition", cfg.MaxImageRepetition,
		"Fraction of pages an identical image may appear on before it is treated as letterhead")
	pflag.Int("ocrretrylimit", cfg.OCRRetryLimit, "Retries per OCR chunk call after the first attempt")
	pflag.Float64("ocrtimeout", cfg.OCRTimeoutSeconds, "Per-call OCR timeout in seconds")
	pflag.Int("ocrconcurrency", cfg.OCRConcurrency, "Maximum concurrent OCR calls")
	pflag.String("project", cfg.ProjectID, "GCP project ID")
	pflag.String("location", cfg.DocumentAILocation, "Document AI processor location")
	pflag.String("processor", cfg.DocumentAIProcessor, "Document AI OCR processor ID")
	pflag.String("bucket", cfg.StorageBucket, "GCS bucket for uploads and extracted images")
	pflag.String("collection", cfg.FirestoreCollection, "Firestore collection for processed records")
}

// bindFlagsToViper binds command line flags to viper configuration.
func bindFlagsToViper() {
	for _, name := range []string{
		"loglevel", "maxfilesizemb", "maxpagespercall", "minimagearea",
		"maximagerepetition", "ocrretrylimit", "ocrtimeout", "ocrconcurrency",
		"project", "location", "processor", "bucket", "collection",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message.
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s: [options] file.pdf [file.pdf ...]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nVeterinary report processor - OCR, image extraction and field parsing for scanned PDFs\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --project=my-proj --processor=abc123 report.pdf\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --project=my-proj --processor=abc123 --bucket=my-bucket report.pdf\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  VETSCAN_PROJECT          GCP project ID\n")
		fmt.Fprintf(os.Stderr, "  VETSCAN_LOCATION         Document AI location\n")
		fmt.Fprintf(os.Stderr, "  VETSCAN_PROCESSOR        Document AI processor ID\n")
		fmt.Fprintf(os.Stderr, "  VETSCAN_BUCKET           GCS bucket\n")
		fmt.Fprintf(os.Stderr, "  VETSCAN_COLLECTION       Firestore collection\n")
		fmt.Fprintf(os.Stderr, "  VETSCAN_LOGLEVEL         Log level\n")
		fmt.Fprintf(os.Stderr, "  VETSCAN_MAXPAGESPERCALL  Pages per OCR call\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper.
func populateConfigFromViper(cfg *Config) {
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSizeMB = viper.GetInt64("maxfilesizemb")
	cfg.MaxPagesPerCall = viper.GetInt("maxpagespercall")
	cfg.MinImageAreaPx = viper.GetInt("minimagearea")
	cfg.MaxImageRepetition = viper.GetFloat64("maximagerepetition")
	cfg.OCRRetryLimit = viper.GetInt("ocrretrylimit")
	cfg.OCRTimeoutSeconds = viper.GetFloat64("ocrtimeout")
	cfg.OCRConcurrency = viper.GetInt("ocrconcurrency")
	cfg.ProjectID = viper.GetString("project")
	cfg.DocumentAILocation = viper.GetString("location")
	cfg.DocumentAIProcessor = viper.GetString("processor")
	cfg.StorageBucket = viper.GetString("bucket")
	cfg.FirestoreCollection = viper.GetString("collection")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxFileSizeMB <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.MaxPagesPerCall <= 0 {
		return errors.New("maxpagespercall must be positive")
	}
	if c.MinImageAreaPx < 0 {
		return errors.New("minimagearea cannot be negative")
	}
	if c.MaxImageRepetition <= 0 || c.MaxImageRepetition > 1 {
		return errors.New("maximagerepetition must be in (0, 1]")
	}
	if c.OCRRetryLimit < 0 {
		return errors.New("ocrretrylimit cannot be negative")
	}
	if c.OCRTimeoutSeconds <= 0 {
		return errors.New("ocrtimeout must be positive")
	}
	if c.OCRConcurrency <= 0 {
		return errors.New("ocrconcurrency must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// MaxFileSizeBytes returns the configured file size limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

// OCRTimeout returns the per-call OCR timeout as a duration.
func (c *Config) OCRTimeout() time.Duration {
	return time.Duration(c.OCRTimeoutSeconds * float64(time.Second))
}

// IsDebug returns true if debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{LogLevel: %s, MaxFileSizeMB: %d, MaxPagesPerCall: %d, Project: %s, Processor: %s, Bucket: %s}",
		c.LogLevel, c.MaxFileSizeMB, c.MaxPagesPerCall, c.ProjectID, c.DocumentAIProcessor, c.StorageBucket)
}
