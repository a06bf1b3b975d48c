package di

import (
	"io"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-responder/internal/adapters/ingest"
	"github.com/mikey/llm-email-responder/internal/batch"
	"github.com/mikey/llm-email-responder/internal/config"
	"github.com/mikey/llm-email-responder/internal/logging"
	"github.com/mikey/llm-email-responder/internal/ports"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// LLM provider flags
	Provider    string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxBodySize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string
	OpenAIBaseURL   string

	// Responder flags
	Signature     string
	TicketBackend string

	// Batch flags
	InputFile   string
	Concurrency int
	Format      string

	// Output flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string

	// Out receives CLI output; os.Stdout when nil
	Out io.Writer
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			applyBatchFlags(cfg, flags)
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register batch runner
	if err := container.Provide(func(cfg *config.Config, processor ports.EmailProcessor, logger *zap.Logger) *batch.Runner {
		return batch.NewRunner(processor, cfg.GetBatch().Concurrency, logger)
	}); err != nil {
		return nil, err
	}

	// Register single message source
	if err := container.Provide(func(flags *CLIFlags, processor ports.EmailProcessor, logger *zap.Logger) *ingest.CLISource {
		out := flags.Out
		if out == nil {
			out = os.Stdout
		}
		return ingest.NewCLISource(processor, logger, out, flags.Verbose)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set LLM provider
	v.Set("llm.provider", flags.Provider)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
		v.Set("bedrock.max_body_size", flags.MaxBodySize)
	case "gemini":
		v.Set("gemini.api_key", firstNonEmpty(flags.GeminiAPIKey, os.Getenv("GEMINI_API_KEY")))
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
		v.Set("gemini.max_body_size", flags.MaxBodySize)
	case "openai":
		v.Set("openai.api_key", firstNonEmpty(flags.OpenAIAPIKey, os.Getenv("OPENAI_API_KEY")))
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.base_url", flags.OpenAIBaseURL)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
		v.Set("openai.max_body_size", flags.MaxBodySize)
	}

	if flags.Signature != "" {
		v.Set("responder.signature", flags.Signature)
	}
	if flags.TicketBackend != "" {
		v.Set("handlers.backend", flags.TicketBackend)
	}
	v.Set("batch.concurrency", flags.Concurrency)
	if flags.Format != "" {
		v.Set("batch.format", flags.Format)
	}

	return config.NewFromViper(v)
}

// applyBatchFlags overrides the file's batch section with flags that were set
func applyBatchFlags(cfg *config.Config, flags *CLIFlags) {
	if flags.Format != "" {
		cfg.GetViper().Set("batch.format", flags.Format)
	}
	if flags.Concurrency > 0 {
		cfg.GetViper().Set("batch.concurrency", flags.Concurrency)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
