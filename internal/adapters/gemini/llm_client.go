package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/llm-email-responder/internal/core"
	"github.com/mikey/llm-email-responder/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// newModel returns a fresh model handle so concurrent calls never share
// generation settings
func (c *GeminiClient) newModel() *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(c.temperature)
	model.SetTopP(c.topP)
	model.SetMaxOutputTokens(int32(c.maxTokens))
	return model
}

// classificationSchema constrains the answer to {"sentiment": <one of labels>}
func classificationSchema(labels []string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sentiment": {
				Type:   genai.TypeString,
				Format: "enum",
				Enum:   labels,
			},
		},
		Required: []string{"sentiment"},
	}
}

// ClassifyEmail asks Gemini for a JSON answer restricted to labels
func (c *GeminiClient) ClassifyEmail(ctx context.Context, body string, labels []string) (*core.Completion, error) {
	model := c.newModel()
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = classificationSchema(labels)

	resp, err := model.GenerateContent(ctx, genai.Text(c.textProcessor.ProcessText(body, c.maxBodySize)))
	return c.interpretResponse(resp, err)
}

// GenerateReply asks Gemini for free-form text
func (c *GeminiClient) GenerateReply(ctx context.Context, prompt string) (*core.Completion, error) {
	resp, err := c.newModel().GenerateContent(ctx, genai.Text(c.textProcessor.SanitizeUTF8(prompt)))
	return c.interpretResponse(resp, err)
}

// interpretResponse maps a GenerateContent result onto a Completion.
// Safety blocks are refusals, every other error is a transport failure.
func (c *GeminiClient) interpretResponse(resp *genai.GenerateContentResponse, err error) (*core.Completion, error) {
	completion := &core.Completion{Model: c.modelName}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		completion.Refusal = blocked.Error()
		return completion, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		completion.Refusal = "response blocked for safety"
		return completion, nil
	}

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	completion.Content = text.String()

	c.logger.Debug("Gemini response received",
		zap.String("finish_reason", candidate.FinishReason.String()),
		zap.Int("content_length", len(completion.Content)))

	return completion, nil
}
