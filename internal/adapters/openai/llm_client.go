package openai

import (
	"context"
	"fmt"

	"github.com/mikey/llm-email-responder/internal/core"
	"github.com/mikey/llm-email-responder/internal/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"
)

// classificationFunction is the function the model is forced to call
const classificationFunction = "classification"

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// classificationTool declares a function whose only argument is one of labels
func classificationTool(labels []string) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        classificationFunction,
			Description: "Classify the email sentiment with the given categories.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"sentiment": {
						Type:        jsonschema.String,
						Description: fmt.Sprintf("Sentiment of the email, one of %q", labels),
						Enum:        labels,
					},
				},
				Required: []string{"sentiment"},
			},
		},
	}
}

// ClassifyEmail sends the email body and forces a call to the classification function
func (c *OpenAIClient) ClassifyEmail(ctx context.Context, body string, labels []string) (*core.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: c.textProcessor.ProcessText(body, c.maxBodySize),
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		Tools:       []openai.Tool{classificationTool(labels)},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: classificationFunction},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	choice := resp.Choices[0]
	completion := &core.Completion{Model: resp.Model, ID: resp.ID}
	if refusal := refusalOf(choice); refusal != "" {
		completion.Refusal = refusal
		return completion, nil
	}

	// Arguments of the forced call, or the legacy function_call field
	switch {
	case len(choice.Message.ToolCalls) > 0:
		completion.Content = choice.Message.ToolCalls[0].Function.Arguments
	case choice.Message.FunctionCall != nil:
		completion.Content = choice.Message.FunctionCall.Arguments
	default:
		c.logger.Debug("OpenAI answered without calling the classification function",
			zap.String("finish_reason", string(choice.FinishReason)))
		completion.Content = choice.Message.Content
	}

	return completion, nil
}

// GenerateReply sends the prompt as a plain user message
func (c *OpenAIClient) GenerateReply(ctx context.Context, prompt string) (*core.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: c.textProcessor.SanitizeUTF8(prompt),
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	choice := resp.Choices[0]
	return &core.Completion{
		Content: choice.Message.Content,
		Refusal: refusalOf(choice),
		Model:   resp.Model,
		ID:      resp.ID,
	}, nil
}

// refusalOf returns the refusal text of a choice, if the model declined
func refusalOf(choice openai.ChatCompletionChoice) string {
	if choice.Message.Refusal != "" {
		return choice.Message.Refusal
	}
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "response blocked by content filter"
	}
	return ""
}
