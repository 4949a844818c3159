package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		TimeoutSecs int     `yaml:"timeout_secs"`
	} `yaml:"llm"`

	Embedder struct {
		BaseURL   string  `yaml:"base_url"`
		Model     string  `yaml:"model"`
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"embedder"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	Ingest struct {
		CSVPath   string `yaml:"csv_path"`
		SourceURL string `yaml:"source_url"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"ingest"`

	Retrieval struct {
		TopK int `yaml:"top_k"`
	} `yaml:"retrieval"`

	UI struct {
		// Chart defaults to true when the key is absent.
		Chart       *bool    `yaml:"chart"`
		Suggestions []string `yaml:"suggestions"`
	} `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/walle/config.yaml"),
			"/etc/walle/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "gemma3:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.1
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.TimeoutSecs == 0 {
		config.LLM.TimeoutSecs = 120
	}

	if config.Embedder.Model == "" {
		config.Embedder.Model = "mxbai-embed-large"
	}
	if config.Embedder.BaseURL == "" {
		config.Embedder.BaseURL = config.LLM.BaseURL
	}
	if config.Embedder.RateLimit == 0 {
		config.Embedder.RateLimit = 10.0
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "rate_documents"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1024
	}

	if config.Ingest.BatchSize == 0 {
		config.Ingest.BatchSize = 1000
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 15
	}

	if config.UI.Chart == nil {
		chart := true
		config.UI.Chart = &chart
	}
	if len(config.UI.Suggestions) == 0 {
		config.UI.Suggestions = []string{
			"Tell me about the volatility in 2020",
			"Compare current trends with 2026 data",
			"What was the highest INR rate in the ledger?",
		}
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
		config.Embedder.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
