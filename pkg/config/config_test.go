package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  base_url: "http://localhost:11434"
  model: "gemma3:latest"
  max_tokens: 1000
  temperature: 0.2
  timeout_secs: 60

embedder:
  model: "mxbai-embed-large"
  rate_limit: 5

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_rates"
  vector_dim: 1024

ingest:
  csv_path: "money_exrate.csv"
  batch_size: 500

retrieval:
  top_k: 10

ui:
  chart: true
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "gemma3:latest", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.2, config.LLM.Temperature)
	assert.Equal(t, 60, config.LLM.TimeoutSecs)
	assert.Equal(t, "mxbai-embed-large", config.Embedder.Model)
	assert.Equal(t, 5.0, config.Embedder.RateLimit)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "test_rates", config.Database.TableName)
	assert.Equal(t, 1024, config.Database.VectorDim)
	assert.Equal(t, "money_exrate.csv", config.Ingest.CSVPath)
	assert.Equal(t, 500, config.Ingest.BatchSize)
	assert.Equal(t, 10, config.Retrieval.TopK)
	require.NotNil(t, config.UI.Chart)
	assert.True(t, *config.UI.Chart)
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("llm:\n  model: gemma3:latest\n"), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, 2000, config.LLM.MaxTokens)
	assert.Equal(t, 0.1, config.LLM.Temperature)
	assert.Equal(t, 120, config.LLM.TimeoutSecs)
	assert.Equal(t, "mxbai-embed-large", config.Embedder.Model)
	assert.Equal(t, "rate_documents", config.Database.TableName)
	assert.Equal(t, 1024, config.Database.VectorDim)
	assert.Equal(t, 1000, config.Ingest.BatchSize)
	assert.Equal(t, 15, config.Retrieval.TopK)
	assert.NotEmpty(t, config.UI.Suggestions)
	require.NotNil(t, config.UI.Chart)
	assert.True(t, *config.UI.Chart)
}

func TestLoadConfigChartDisabled(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("ui:\n  chart: false\n"), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	require.NotNil(t, config.UI.Chart)
	assert.False(t, *config.UI.Chart)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*Config)
		expectedErrs int
		fields       []string
	}{
		{
			name:         "valid defaults",
			mutate:       func(c *Config) {},
			expectedErrs: 0,
		},
		{
			name: "missing base URL",
			mutate: func(c *Config) {
				c.LLM.BaseURL = ""
			},
			expectedErrs: 1,
			fields:       []string{"llm.base_url"},
		},
		{
			name: "bad token and k limits",
			mutate: func(c *Config) {
				c.LLM.MaxTokens = 0
				c.Retrieval.TopK = 0
			},
			expectedErrs: 2,
			fields:       []string{"llm.max_tokens", "retrieval.top_k"},
		},
		{
			name: "bad temperature",
			mutate: func(c *Config) {
				c.LLM.Temperature = 3
			},
			expectedErrs: 1,
			fields:       []string{"llm.temperature"},
		},
		{
			name: "bad batch size and rate limit",
			mutate: func(c *Config) {
				c.Ingest.BatchSize = 0
				c.Embedder.RateLimit = -1
			},
			expectedErrs: 2,
			fields:       []string{"ingest.batch_size", "embedder.rate_limit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			applyDefaults(config)
			tt.mutate(config)

			errs := config.Validate()
			assert.Len(t, errs, tt.expectedErrs)

			for _, field := range tt.fields {
				found := false
				for _, e := range errs {
					if e.Field == field {
						found = true
						break
					}
				}
				assert.True(t, found, "expected validation error for %s", field)
			}
		})
	}
}
