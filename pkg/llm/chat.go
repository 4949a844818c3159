package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/prompts"

	"github.com/xhad/walle/internal/models"
)

// analystTemplate is the narrative report the model fills in from the
// retrieved ledger records and the user's question.
const analystTemplate = `### 📊 FX Analysis Report
{{.records}}

*Analyst Note:* [Provide a professional economic explanation for {{.question}}]

---
**What would you like to explore next?**`

const emptyRecordsNote = "No matching records were found in the ledger for this question. " +
	"State that clearly before offering any broader context."

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	BaseURL     string // Ollama server URL
}

// ChatEngine composes retrieved documents and a question into the analyst
// prompt and submits it to the language model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
	prompt prompts.PromptTemplate
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "gemma3:latest"
	}
	if config.Temperature <= 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	llm, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewWithModel(config, llm), nil
}

// NewWithModel creates a ChatEngine around an already-constructed model.
func NewWithModel(config ChatConfig, model llms.Model) *ChatEngine {
	return &ChatEngine{
		config: config,
		llm:    model,
		prompt: prompts.NewPromptTemplate(analystTemplate, []string{"records", "question"}),
	}
}

var (
	defaultEngine *ChatEngine
	defaultErr    error
	defaultOnce   sync.Once
)

// Default returns the process-wide chat engine, constructing it on first
// use. Later calls ignore the passed config and reuse the first engine.
func Default(config ChatConfig) (*ChatEngine, error) {
	defaultOnce.Do(func() {
		defaultEngine, defaultErr = NewWithConfig(config)
	})
	return defaultEngine, defaultErr
}

// Answer renders the analyst prompt from the retrieved documents and the
// question, then generates a narrative response. Zero documents is not an
// error; the model is told no records matched.
func (ce *ChatEngine) Answer(ctx context.Context, question string, docs []models.Document) (string, error) {
	prompt, err := ce.prompt.Format(map[string]any{
		"records":  formatRecords(docs),
		"question": question,
	})
	if err != nil {
		return "", &models.GenerationError{Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, ce.config.Timeout)
	defer cancel()

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens))
	if err != nil {
		return "", &models.GenerationError{
			Err:     err,
			Timeout: errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded),
		}
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", &models.GenerationError{Err: fmt.Errorf("no response from LLM")}
	}

	return resp.Choices[0].Content, nil
}

func formatRecords(docs []models.Document) string {
	if len(docs) == 0 {
		return emptyRecordsNote
	}

	var b strings.Builder
	for _, doc := range docs {
		b.WriteString("- ")
		b.WriteString(doc.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
