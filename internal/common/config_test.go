package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DB_URL", "")

	cfg := FromEnv()

	assert.Equal(t, "deu+eng", cfg.Source.Language)
	assert.Equal(t, 300, cfg.Source.DPI)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, 3*time.Minute, cfg.Batch.FileTimeout)
	assert.Equal(t, "llm", cfg.Extraction.Strategy)
	assert.Equal(t, "EUR", cfg.Extraction.DefaultCurrency)
	assert.False(t, cfg.LLMActive(), "no key means no backend")
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("OCR_DPI", "200")
	t.Setenv("BATCH_CONCURRENCY", "8")
	t.Setenv("BATCH_FILE_TIMEOUT", "90s")
	t.Setenv("EXTRACTION_STRATEGY", "REGEX")
	t.Setenv("DEFAULT_CURRENCY", "chf")
	t.Setenv("LLM_ENABLED", "false")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DB_DRIVER", "postgres")

	cfg := FromEnv()

	assert.Equal(t, 200, cfg.Source.DPI)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.Batch.FileTimeout)
	assert.Equal(t, "regex", cfg.Extraction.Strategy)
	assert.Equal(t, "CHF", cfg.Extraction.DefaultCurrency)
	assert.False(t, cfg.LLMActive())
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestFromEnv_MalformedValuesKeepDefaults(t *testing.T) {
	t.Setenv("OCR_DPI", "lots")
	t.Setenv("BATCH_FILE_TIMEOUT", "soon")

	cfg := FromEnv()

	assert.Equal(t, 300, cfg.Source.DPI)
	assert.Equal(t, 3*time.Minute, cfg.Batch.FileTimeout)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := FromEnv()
	cfg.Store.Driver = "mysql"
	cfg.Batch.Concurrency = 0
	cfg.Extraction.Strategy = "magic"
	cfg.Extraction.DefaultCurrency = "euro"

	err := cfg.Validate()

	require.Error(t, err)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, CodeConfig, appErr.Code)
	assert.ErrorIs(t, err, ErrInvalidInput)
	for _, field := range []string{"DB_DRIVER", "BATCH_CONCURRENCY", "EXTRACTION_STRATEGY", "DEFAULT_CURRENCY"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestValidate_LLMSettingsCheckedOnlyWhenActive(t *testing.T) {
	cfg := FromEnv()
	cfg.LLM.APIKey = ""
	cfg.LLM.Temperature = 5
	assert.NoError(t, cfg.Validate())

	cfg.LLM.APIKey = "sk-test"
	cfg.LLM.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_TEMPERATURE")
}

func TestLoadConfig_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OCR_LANGUAGE=fra\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("OCR_LANGUAGE", "")
	os.Unsetenv("OCR_LANGUAGE")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "fra", cfg.Source.Language)
}

func TestLoadConfig_MissingDotEnvIsFine(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := LoadConfig()

	assert.NoError(t, err)
}
