package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	Source     SourceConfig
	LLM        LLMConfig
	Store      StoreConfig
	Batch      BatchConfig
	Extraction ExtractionConfig
}

// SourceConfig holds OCR and file-reading configuration
type SourceConfig struct {
	Language    string
	Pdftoppm    string
	TessdataDir string
	DPI         int
	MaxPages    int
	Enhance     bool
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Enabled           bool
	BaseURL           string
	Model             string
	APIKey            string
	Temperature       float32
	Timeout           time.Duration
	MaxPromptChars    int
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   int
	BreakerCooldown   time.Duration
}

// StoreConfig holds database-related configuration. An empty DSN disables
// persistence.
type StoreConfig struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// BatchConfig holds batch-processing configuration
type BatchConfig struct {
	Concurrency int
	FileTimeout time.Duration
	QueueSize   int
}

// ExtractionConfig holds field-extraction configuration
type ExtractionConfig struct {
	Strategy        string
	DefaultCurrency string
	CacheSize       int
}

// LoadConfig reads an optional .env file and then the environment. A
// missing .env is not an error; a malformed one is.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, NewAppError(CodeConfig, "failed to read .env", err)
	}
	return FromEnv(), nil
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() *Config {
	return &Config{
		Source: SourceConfig{
			Language:    getEnv("OCR_LANGUAGE", "deu+eng"),
			Pdftoppm:    getEnv("PDFTOPPM", "pdftoppm"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			DPI:         getEnvAsInt("OCR_DPI", 300),
			MaxPages:    getEnvAsInt("OCR_MAX_PAGES", 20),
			Enhance:     getEnvAsBool("OCR_ENHANCE", true),
		},
		LLM: LLMConfig{
			Enabled:           getEnvAsBool("LLM_ENABLED", true),
			BaseURL:           getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:             getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:            getEnv("OPENAI_API_KEY", ""),
			Temperature:       getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:           getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			MaxPromptChars:    getEnvAsInt("LLM_MAX_PROMPT_CHARS", constants.MaxPromptChars),
			RequestsPerSecond: getEnvAsFloat64("LLM_REQUESTS_PER_SECOND", 2),
			Burst:             getEnvAsInt("LLM_BURST", 2),
			BreakerFailures:   getEnvAsInt("LLM_BREAKER_FAILURES", 5),
			BreakerCooldown:   getEnvAsDuration("LLM_BREAKER_COOLDOWN", 30*time.Second),
		},
		Store: StoreConfig{
			Driver:           getEnv("DB_DRIVER", "sqlite"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Batch: BatchConfig{
			Concurrency: getEnvAsInt("BATCH_CONCURRENCY", 4),
			FileTimeout: getEnvAsDuration("BATCH_FILE_TIMEOUT", 3*time.Minute),
			QueueSize:   getEnvAsInt("BATCH_QUEUE_SIZE", 256),
		},
		Extraction: ExtractionConfig{
			Strategy:        strings.ToLower(getEnv("EXTRACTION_STRATEGY", "llm")),
			DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "EUR")),
			CacheSize:       getEnvAsInt("EXTRACTION_CACHE_SIZE", 512),
		},
	}
}

// LLMActive reports whether a backend should be wired at all.
func (c *Config) LLMActive() bool {
	return c.LLM.Enabled && c.LLM.APIKey != ""
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("OCR_LANGUAGE", c.Source.Language, Required).
		Field("OCR_DPI", c.Source.DPI, Positive).
		Field("OCR_MAX_PAGES", c.Source.MaxPages, Positive).
		Field("DB_DRIVER", c.Store.Driver, OneOf("sqlite", "postgres")).
		Field("BATCH_CONCURRENCY", c.Batch.Concurrency, Positive).
		Field("BATCH_FILE_TIMEOUT", c.Batch.FileTimeout, Positive).
		Field("BATCH_QUEUE_SIZE", c.Batch.QueueSize, Positive).
		Field("EXTRACTION_STRATEGY", c.Extraction.Strategy, OneOf(constants.StrategyLLM, constants.StrategyRegex)).
		Field("DEFAULT_CURRENCY", c.Extraction.DefaultCurrency, CurrencyCode)

	if c.Store.DSN != "" {
		v.Field("DB_MAX_CONNS", c.Store.MaxConns, Positive)
	}
	if c.LLMActive() {
		v.Field("OPENAI_BASE_URL", c.LLM.BaseURL, Required).
			Field("OPENAI_MODEL", c.LLM.Model, Required).
			Field("OPENAI_TEMPERATURE", float64(c.LLM.Temperature), Between(0, 2)).
			Field("OPENAI_TIMEOUT", c.LLM.Timeout, Positive).
			Field("LLM_MAX_PROMPT_CHARS", c.LLM.MaxPromptChars, Positive)
	}
	return ValidateAndReturnError(v)
}
