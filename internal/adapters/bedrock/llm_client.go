package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-email-responder/internal/core"
	"github.com/mikey/llm-email-responder/internal/utils"
	"go.uber.org/zap"
)

const (
	anthropicVersion       = "bedrock-2023-05-31"
	classificationTool     = "classification"
	anthropicStopRefusal   = "refusal"
	titanContentFiltered   = "CONTENT_FILTERED"
	classificationJSONHint = `Classify the email sentiment as exactly one of %s.
Respond only with a JSON object of the form {"sentiment": "<category>"} and nothing else.

Email:
%s`
)

// ModelInvoker is the part of the Bedrock runtime client used here
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient is an implementation of the LLMClient interface using Amazon Bedrock
type BedrockClient struct {
	client        ModelInvoker
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client ModelInvoker,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// anthropicMessage is one turn of the Anthropic messages API
type anthropicMessage struct {
	Role    string                 `json:"role"`
	Content []anthropicContentPart `json:"content"`
}

type anthropicContentPart struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type anthropicRequest struct {
	AnthropicVersion string               `json:"anthropic_version"`
	MaxTokens        int                  `json:"max_tokens"`
	Temperature      float32              `json:"temperature"`
	TopP             float32              `json:"top_p"`
	Messages         []anthropicMessage   `json:"messages"`
	Tools            []anthropicTool      `json:"tools,omitempty"`
	ToolChoice       *anthropicToolChoice `json:"tool_choice,omitempty"`
}

type anthropicResponse struct {
	ID         string                 `json:"id"`
	Model      string                 `json:"model"`
	StopReason string                 `json:"stop_reason"`
	Content    []anthropicContentPart `json:"content"`
}

// ClassifyEmail asks the model for exactly one of labels
func (c *BedrockClient) ClassifyEmail(ctx context.Context, body string, labels []string) (*core.Completion, error) {
	processedBody := c.textProcessor.ProcessText(body, c.maxBodySize)

	if c.isAnthropicModel() {
		payload, err := c.anthropicPayload(processedBody, labels)
		if err != nil {
			return nil, err
		}
		raw, err := c.invoke(ctx, payload)
		if err != nil {
			return nil, err
		}
		return parseAnthropicResponse(raw, true)
	}

	// Models without tool use get the labels in the prompt
	prompt := fmt.Sprintf(classificationJSONHint, quoteLabels(labels), processedBody)
	completion, err := c.complete(ctx, prompt)
	if err != nil || completion.Refused() {
		return completion, err
	}
	completion.Content = extractJSON(completion.Content)
	return completion, nil
}

// GenerateReply asks the model for free-form text
func (c *BedrockClient) GenerateReply(ctx context.Context, prompt string) (*core.Completion, error) {
	prompt = c.textProcessor.SanitizeUTF8(prompt)

	if c.isAnthropicModel() {
		payload, err := c.anthropicPayload(prompt, nil)
		if err != nil {
			return nil, err
		}
		raw, err := c.invoke(ctx, payload)
		if err != nil {
			return nil, err
		}
		return parseAnthropicResponse(raw, false)
	}

	return c.complete(ctx, prompt)
}

// anthropicPayload builds a messages API request. With labels it forces a
// call to the classification tool.
func (c *BedrockClient) anthropicPayload(text string, labels []string) ([]byte, error) {
	req := anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		Temperature:      c.temperature,
		TopP:             c.topP,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: []anthropicContentPart{{Type: "text", Text: text}},
		}},
	}

	if labels != nil {
		req.Tools = []anthropicTool{{
			Name:        classificationTool,
			Description: "Classify the email sentiment with the given categories.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"sentiment": map[string]any{
						"type": "string",
						"enum": labels,
					},
				},
				"required": []string{"sentiment"},
			},
		}}
		req.ToolChoice = &anthropicToolChoice{Type: "tool", Name: classificationTool}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	return payload, nil
}

// parseAnthropicResponse reads a messages API response. For classification
// the tool input is returned as the content.
func parseAnthropicResponse(raw []byte, classification bool) (*core.Completion, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Claude response: %w", err)
	}

	completion := &core.Completion{Model: resp.Model, ID: resp.ID}
	if resp.StopReason == anthropicStopRefusal {
		completion.Refusal = "model declined to answer"
		return completion, nil
	}

	var text strings.Builder
	for _, part := range resp.Content {
		switch part.Type {
		case "tool_use":
			if classification && part.Name == classificationTool {
				completion.Content = string(part.Input)
				return completion, nil
			}
		case "text":
			text.WriteString(part.Text)
		}
	}

	completion.Content = text.String()
	if classification {
		completion.Content = extractJSON(completion.Content)
	}
	return completion, nil
}

// complete sends a plain prompt to a non-Anthropic model
func (c *BedrockClient) complete(ctx context.Context, prompt string) (*core.Completion, error) {
	var payload []byte
	var err error

	if c.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	raw, err := c.invoke(ctx, payload)
	if err != nil {
		return nil, err
	}

	if c.isAmazonTitanModel() {
		return parseTitanResponse(raw, c.modelID)
	}
	return parseGenericResponse(raw, c.modelID)
}

func parseTitanResponse(raw []byte, modelID string) (*core.Completion, error) {
	var titanResp struct {
		Results []struct {
			OutputText       string `json:"outputText"`
			CompletionReason string `json:"completionReason"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &titanResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Titan response: %w", err)
	}
	if len(titanResp.Results) == 0 {
		return nil, fmt.Errorf("empty response from Titan model")
	}

	result := titanResp.Results[0]
	completion := &core.Completion{Model: modelID}
	if result.CompletionReason == titanContentFiltered {
		completion.Refusal = "response blocked by content filter"
		return completion, nil
	}
	completion.Content = result.OutputText
	return completion, nil
}

// parseGenericResponse reads the text field of non-Anthropic, non-Titan models.
// An unknown shape yields empty content, never the raw envelope.
func parseGenericResponse(raw []byte, modelID string) (*core.Completion, error) {
	var genericResp struct {
		Generation string `json:"generation"`
		Output     string `json:"output"`
		Text       string `json:"text"`
		Response   string `json:"response"`
	}
	if err := json.Unmarshal(raw, &genericResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generic response: %w", err)
	}

	completion := &core.Completion{Model: modelID}
	switch {
	case genericResp.Generation != "":
		completion.Content = genericResp.Generation
	case genericResp.Output != "":
		completion.Content = genericResp.Output
	case genericResp.Text != "":
		completion.Content = genericResp.Text
	case genericResp.Response != "":
		completion.Content = genericResp.Response
	}
	return completion, nil
}

// invoke calls the Bedrock runtime with a JSON payload
func (c *BedrockClient) invoke(ctx context.Context, payload []byte) ([]byte, error) {
	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	c.logger.Debug("Bedrock response received",
		zap.String("model_id", c.modelID),
		zap.Int("response_size", len(resp.Body)))

	return resp.Body, nil
}

// extractJSON returns the outermost {...} span of text, or text unchanged
func extractJSON(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}

func quoteLabels(labels []string) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	return strings.Join(quoted, ", ")
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude") || strings.Contains(c.modelID, ".anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
