package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-responder/internal/adapters/ingest"
	"github.com/mikey/llm-email-responder/internal/batch"
	"github.com/mikey/llm-email-responder/internal/config"
	"github.com/mikey/llm-email-responder/internal/core"
	"github.com/mikey/llm-email-responder/internal/di"
	"github.com/mikey/llm-email-responder/internal/report"
)

func newRootCmd() *cobra.Command {
	flags := &di.CLIFlags{}

	cmd := &cobra.Command{
		Use:   "email-processor",
		Short: "Classify customer emails and draft replies with an LLM",
		Long: `email-processor classifies customer emails as complaint, inquiry, feedback,
support_request or other, files the matching ticket and drafts a reply.

The input is either a JSON array of email records ({"id", "body", "from",
"subject", "timestamp"}) or a single RFC 5322 message. Without --input the
built-in sample emails are processed.

Examples:
  email-processor --provider openai
  email-processor --input emails.json --format json --concurrency 4
  email-processor --input message.eml --verbose`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.Out = cmd.OutOrStdout()
			if flags.ConfigFile != "" {
				// Batch flags only override the file when given explicitly
				if !cmd.Flags().Changed("format") {
					flags.Format = ""
				}
				if !cmd.Flags().Changed("concurrency") {
					flags.Concurrency = 0
				}
			}
			return run(cmd.Context(), flags)
		},
	}

	f := cmd.Flags()

	// LLM provider flags
	f.StringVar(&flags.Provider, "provider", "openai", "LLM provider (bedrock, gemini, openai)")
	f.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for LLM response")
	f.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for LLM generation")
	f.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for LLM generation")
	f.IntVar(&flags.MaxBodySize, "max-body-size", 8192, "Maximum email body size to send to LLM")

	// Bedrock flags
	f.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	f.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-3-haiku-20240307-v1:0", "Bedrock model ID")

	// Gemini flags
	f.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini (default $GEMINI_API_KEY)")
	f.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-1.5-flash", "Gemini model name")

	// OpenAI flags
	f.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI (default $OPENAI_API_KEY)")
	f.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-3.5-turbo", "OpenAI model name")
	f.StringVar(&flags.OpenAIBaseURL, "openai-base-url", "", "Override the OpenAI API base URL")

	// Responder flags
	f.StringVar(&flags.Signature, "signature", core.DefaultSignature, "Signature every reply ends with")
	f.StringVar(&flags.TicketBackend, "tickets", "none", "Ticket backend for category handlers (none, memory, sqlite, mysql)")

	// Batch flags
	f.StringVarP(&flags.InputFile, "input", "i", "", "JSON array of email records or a single .eml message (built-in samples if empty)")
	f.IntVarP(&flags.Concurrency, "concurrency", "c", 1, "Number of emails processed at once")
	f.StringVar(&flags.Format, "format", "table", "Report format (table, json)")

	// Output flags
	f.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	f.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	f.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags except explicit --format and --concurrency)")

	return cmd
}

// run wires the container and processes the input
func run(ctx context.Context, flags *di.CLIFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	raw, err := readInput(flags.InputFile)
	if err != nil {
		return err
	}

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(
		cfg *config.Config,
		logger *zap.Logger,
		runner *batch.Runner,
		source *ingest.CLISource,
		llmClient core.LLMClient,
		ticketStore core.TicketStore,
	) error {
		defer logger.Sync()
		defer closeResources(logger, llmClient, ticketStore)

		if raw != nil && !isJSONArray(raw) {
			_, err := source.ProcessRaw(ctx, raw)
			return err
		}

		records := batch.SampleRecords()
		if raw != nil {
			if records, err = batch.LoadRecords(bytes.NewReader(raw)); err != nil {
				return err
			}
		}

		outcomes := runner.Run(ctx, records)
		return report.Render(flags.Out, report.FromOutcomes(outcomes), cfg.GetBatch().Format)
	})
}

// readInput returns the input file contents, or nil for the built-in samples.
// "-" reads stdin.
func readInput(path string) ([]byte, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		return io.ReadAll(os.Stdin)
	default:
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		return raw, nil
	}
}

func isJSONArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func closeResources(logger *zap.Logger, llmClient core.LLMClient, ticketStore core.TicketStore) {
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
	if stopper, ok := ticketStore.(interface{ Stop() }); ok {
		stopper.Stop()
	}
}
