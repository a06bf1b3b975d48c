package config

import (
	"fmt"
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// ResponderConfig represents the configuration of reply drafting
type ResponderConfig struct {
	Signature string
}

// HandlersConfig represents where category handlers file their tickets
type HandlersConfig struct {
	Backend          string
	Retention        time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// ServerConfig represents the configuration of the SMTP ingest server
type ServerConfig struct {
	ListenAddress   string
	Domain          string
	ProcessTimeout  time.Duration
	MaxMessageBytes int64
	SendReplies     bool
	ReplyFrom       string
	RelayAddress    string
	RelayPort       int
}

// BatchConfig represents the configuration of batch processing
type BatchConfig struct {
	Concurrency int
	Format      string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetResponder returns the reply drafting configuration
func (c *Config) GetResponder() ResponderConfig {
	return ResponderConfig{
		Signature: c.GetString("responder.signature"),
	}
}

// GetHandlers returns the handler side effect configuration
func (c *Config) GetHandlers() (HandlersConfig, error) {
	retention, err := c.GetDuration("handlers.retention")
	if err != nil {
		return HandlersConfig{}, fmt.Errorf("invalid handlers retention: %w", err)
	}
	cleanupFreq, err := c.GetDuration("handlers.cleanup_frequency")
	if err != nil {
		return HandlersConfig{}, fmt.Errorf("invalid handlers cleanup frequency: %w", err)
	}

	return HandlersConfig{
		Backend:          c.GetString("handlers.backend"),
		Retention:        retention,
		CleanupFrequency: cleanupFreq,
		SQLitePath:       c.GetString("handlers.sqlite_path"),
		MySQLDSN:         c.GetString("handlers.mysql_dsn"),
	}, nil
}

// GetServer returns the SMTP ingest server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	timeout, err := c.GetDuration("server.process_timeout")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server process timeout: %w", err)
	}

	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		Domain:          c.GetString("server.domain"),
		ProcessTimeout:  timeout,
		MaxMessageBytes: c.GetInt64("server.max_message_bytes"),
		SendReplies:     c.GetBool("server.send_replies"),
		ReplyFrom:       c.GetString("server.reply_from"),
		RelayAddress:    c.GetString("server.relay.address"),
		RelayPort:       c.GetInt("server.relay.port"),
	}, nil
}

// GetBatch returns the batch processing configuration
func (c *Config) GetBatch() BatchConfig {
	concurrency := c.GetInt("batch.concurrency")
	if concurrency < 1 {
		concurrency = 1
	}
	return BatchConfig{
		Concurrency: concurrency,
		Format:      c.GetString("batch.format"),
	}
}
