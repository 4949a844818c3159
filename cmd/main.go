package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/walle/internal/models"
	"github.com/xhad/walle/internal/types"
	cfgPkg "github.com/xhad/walle/pkg/config"
	"github.com/xhad/walle/pkg/ingest"
	"github.com/xhad/walle/pkg/llm"
	"github.com/xhad/walle/pkg/loader"
	"github.com/xhad/walle/pkg/rag"
	"github.com/xhad/walle/pkg/store"
	"github.com/xhad/walle/pkg/synth"
	"github.com/xhad/walle/server"
)

type Config struct {
	BaseURL     string
	DBUrl       string
	CSVPath     string
	SourceURL   string
	Model       string
	EmbedModel  string
	VectorDim   int
	TableName   string
	BatchSize   int
	TopK        int
	MaxTokens   int
	Temperature float64
	TimeoutSecs int
	Serve       bool
	ServeAddr   string
	Verbose     bool
	Chart       bool
	Suggestions []string
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Config {
	var config Config
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&config.BaseURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&config.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&config.CSVPath, "csv", "", "CSV ledger file to ingest")
	flag.StringVar(&config.SourceURL, "source-url", "", "URL of an HTML rate-history table to ingest")
	flag.StringVar(&config.Model, "model", "gemma3:latest", "LLM model to use")
	flag.StringVar(&config.EmbedModel, "embed-model", "mxbai-embed-large", "Embedding model to use")
	flag.IntVar(&config.VectorDim, "vector-dim", 1024, "Vector dimension")
	flag.StringVar(&config.TableName, "table", "rate_documents", "PostgreSQL table name")
	flag.IntVar(&config.BatchSize, "batch-size", 1000, "Batch size for ingestion")
	flag.IntVar(&config.TopK, "top-k", 15, "Number of records retrieved per question")
	flag.IntVar(&config.MaxTokens, "max-tokens", 2000, "Maximum tokens for LLM response")
	flag.Float64Var(&config.Temperature, "temperature", 0.1, "Set the LLM Temperature")
	flag.IntVar(&config.TimeoutSecs, "timeout", 120, "Generation timeout in seconds")
	flag.BoolVar(&config.Serve, "serve", false, "Run the WebSocket server instead of the chat loop")
	flag.StringVar(&config.ServeAddr, "addr", ":8080", "WebSocket server listen address")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&config.Chart, "chart", true, "Render the trend chart after each answer")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	// Load config file if specified
	if cfg, err := cfgPkg.LoadConfig(configPath); err == nil {
		config = mergeFileConfig(config, cfg, set)
	}

	return config
}

// mergeFileConfig fills in config file values for every option not set
// explicitly on the command line.
func mergeFileConfig(config Config, cfg *cfgPkg.Config, set map[string]bool) Config {
	if !set["ollama-url"] {
		config.BaseURL = cfg.LLM.BaseURL
	}
	if !set["model"] {
		config.Model = cfg.LLM.Model
	}
	if !set["max-tokens"] {
		config.MaxTokens = cfg.LLM.MaxTokens
	}
	if !set["temperature"] {
		config.Temperature = cfg.LLM.Temperature
	}
	if !set["timeout"] {
		config.TimeoutSecs = cfg.LLM.TimeoutSecs
	}
	if !set["embed-model"] {
		config.EmbedModel = cfg.Embedder.Model
	}
	if !set["db-url"] {
		config.DBUrl = cfg.Database.URL
	}
	if !set["table"] {
		config.TableName = cfg.Database.TableName
	}
	if !set["vector-dim"] {
		config.VectorDim = cfg.Database.VectorDim
	}
	if !set["batch-size"] {
		config.BatchSize = cfg.Ingest.BatchSize
	}
	if !set["top-k"] {
		config.TopK = cfg.Retrieval.TopK
	}
	if !set["csv"] {
		config.CSVPath = cfg.Ingest.CSVPath
	}
	if !set["source-url"] {
		config.SourceURL = cfg.Ingest.SourceURL
	}
	if !set["chart"] && cfg.UI.Chart != nil {
		config.Chart = *cfg.UI.Chart
	}
	config.Suggestions = cfg.UI.Suggestions

	return config
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("records"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(config Config) error {
	level := slog.LevelInfo
	if config.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   config.EmbedModel,
		BaseURL: config.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	chatEngine, err := llm.Default(llm.ChatConfig{
		Model:       config.Model,
		MaxTokens:   config.MaxTokens,
		BaseURL:     config.BaseURL,
		Temperature: config.Temperature,
		Timeout:     time.Duration(config.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	var index types.VectorIndex
	if config.DBUrl != "" {
		vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
			ConnString: config.DBUrl,
			TableName:  config.TableName,
			VectorDim:  config.VectorDim,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize vector store: %v", err)
		}
		defer vectorStore.Close()
		index = vectorStore
	} else {
		color.Yellow("No database URL set, using in-memory index (nothing will persist)")
		index = store.NewMemory()
	}

	// Ingest the ledger when a source is configured. The run is a no-op
	// against an already-populated index.
	if config.CSVPath != "" || config.SourceURL != "" {
		if err := runIngestion(ctx, config, embedder, index, logger); err != nil {
			return err
		}
	}

	analyst := rag.NewAnalyst(embedder, index, chatEngine, config.TopK, logger)

	if config.Serve {
		srv := server.New(server.Config{Addr: config.ServeAddr}, analyst, logger)
		color.Cyan("Starting WebSocket server on %s", config.ServeAddr)
		return srv.ListenAndServe()
	}

	return chatLoop(ctx, config, analyst)
}

func runIngestion(ctx context.Context, config Config, embedder types.Embedder, index types.VectorIndex, logger *slog.Logger) error {
	var src types.Loader
	var name string
	if config.CSVPath != "" {
		src = loader.NewCSV(config.CSVPath)
		name = config.CSVPath
	} else {
		src = loader.NewTableWithConfig(loader.TableLoaderConfig{URL: config.SourceURL})
		name = config.SourceURL
	}

	color.Blue("\nLoading exchange-rate ledger from %s\n", name)

	records, err := src.Load(ctx)
	if err != nil {
		return err
	}
	color.Green("✓ Loaded %d records\n", len(records))

	docs, err := synth.SynthesizeAll(records)
	if err != nil {
		return err
	}

	bar := getProgressBar(len(docs), "💾 Indexing ledger...")
	ingestor := ingest.New(embedder, index, ingest.Config{
		BatchSize: config.BatchSize,
		OnProgress: func(inserted int) {
			bar.Set(inserted)
		},
	}, logger)

	if err := ingestor.Ingest(ctx, docs); err != nil {
		return err
	}
	bar.Finish()
	color.Green("\n✓ Ledger indexed\n")

	return nil
}

func chatLoop(ctx context.Context, config Config, analyst *rag.Analyst) error {
	color.Cyan("\nAsk about USD/INR exchange-rate history ('clear' resets the conversation, 'exit' quits)")
	if len(config.Suggestions) > 0 {
		color.HiBlack("Try: %s", strings.Join(config.Suggestions, " | "))
	}

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	var history models.Conversation

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.ToLower(query) == "exit" {
			break
		}
		if strings.ToLower(query) == "clear" {
			history.Clear()
			color.Yellow("Conversation cleared")
			continue
		}

		history.AddUser(query)

		spinner := getSpinner("🔍 Scanning ledger...")
		analysis, err := analyst.Analyze(ctx, query)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			printQueryError(err)
			continue
		}

		history.AddAssistant(analysis.Answer)

		fmt.Print("\n")
		assistantPrompt("Analyst: %s\n", analysis.Answer)

		if config.Chart && len(analysis.Chart) > 0 {
			fmt.Print("\n")
			printChart(analysis.Chart)
		}
	}

	return nil
}

// printQueryError surfaces a query failure without ending the session;
// the user's turn stays in the history so the question can be re-sent.
func printQueryError(err error) {
	var genErr *models.GenerationError
	var embErr *models.EmbeddingError
	var idxErr *models.IndexError

	switch {
	case errors.As(err, &genErr) && genErr.Timeout:
		color.Red("The analyst timed out. Please re-send your question.")
	case errors.As(err, &genErr):
		color.Red("The analyst could not produce a response: %v", genErr.Err)
	case errors.As(err, &embErr):
		color.Red("Embedding service error: %v", embErr.Err)
	case errors.As(err, &idxErr):
		color.Red("Vector index error: %v", idxErr.Err)
	default:
		color.Red("Error: %v", err)
	}
}

// printChart renders a scaled bar per observation, oldest first.
func printChart(points []rag.ChartPoint) {
	minRate, maxRate := points[0].Rate, points[0].Rate
	for _, p := range points {
		if p.Rate < minRate {
			minRate = p.Rate
		}
		if p.Rate > maxRate {
			maxRate = p.Rate
		}
	}

	const width = 40
	span := maxRate - minRate

	color.HiBlack("📈 Trend (INR per USD)")
	for _, p := range points {
		n := width
		if span > 0 {
			n = 1 + int((p.Rate-minRate)/span*float64(width-1))
		}
		fmt.Printf("%s  %s %.4f\n",
			p.Date.Format("02-01-2006"),
			color.BlueString(strings.Repeat("█", n)),
			p.Rate)
	}
}
