package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-email-responder/internal/core"
	"github.com/mikey/llm-email-responder/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var labels = []string{"complaint", "inquiry", "feedback", "support_request", "other"}

type mockInvoker struct {
	mock.Mock
}

func (m *mockInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*bedrockruntime.InvokeModelOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestClient(invoker ModelInvoker, modelID string) *BedrockClient {
	logger := zap.NewNop()
	return NewBedrockClient(invoker, modelID, 200, 0.1, 0.9, 8192, logger, utils.NewTextProcessor(logger))
}

func TestAnthropicClassificationForcesTool(t *testing.T) {
	invoker := &mockInvoker{}
	var sent anthropicRequest
	invoker.On("InvokeModel", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			input := args.Get(1).(*bedrockruntime.InvokeModelInput)
			require.NoError(t, json.Unmarshal(input.Body, &sent))
		}).
		Return(&bedrockruntime.InvokeModelOutput{Body: []byte(`{
			"id": "msg_1",
			"model": "claude-3-haiku",
			"stop_reason": "tool_use",
			"content": [{"type": "tool_use", "id": "tu_1", "name": "classification", "input": {"sentiment": "feedback"}}]
		}`)}, nil)

	client := newTestClient(invoker, "anthropic.claude-3-haiku-20240307-v1:0")
	completion, err := client.ClassifyEmail(context.Background(), "Great service!", labels)
	require.NoError(t, err)

	assert.JSONEq(t, `{"sentiment": "feedback"}`, completion.Content)
	assert.Equal(t, "msg_1", completion.ID)
	assert.False(t, completion.Refused())

	assert.Equal(t, anthropicVersion, sent.AnthropicVersion)
	require.Len(t, sent.Tools, 1)
	assert.Equal(t, classificationTool, sent.Tools[0].Name)
	require.NotNil(t, sent.ToolChoice)
	assert.Equal(t, "tool", sent.ToolChoice.Type)
	assert.Equal(t, "Great service!", sent.Messages[0].Content[0].Text)
	invoker.AssertExpectations(t)
}

func TestAnthropicRefusal(t *testing.T) {
	completion, err := parseAnthropicResponse([]byte(`{
		"id": "msg_2",
		"stop_reason": "refusal",
		"content": []
	}`), false)
	require.NoError(t, err)
	assert.True(t, completion.Refused())
	assert.Empty(t, completion.Content)
}

func TestAnthropicReplyJoinsText(t *testing.T) {
	completion, err := parseAnthropicResponse([]byte(`{
		"id": "msg_3",
		"stop_reason": "end_turn",
		"content": [{"type": "text", "text": "Dear customer, "}, {"type": "text", "text": "thank you."}]
	}`), false)
	require.NoError(t, err)
	assert.Equal(t, "Dear customer, thank you.", completion.Content)
}

func TestAnthropicReplyHasNoTools(t *testing.T) {
	client := newTestClient(nil, "anthropic.claude-3-haiku-20240307-v1:0")

	payload, err := client.anthropicPayload("write a reply", nil)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(payload, &req))
	assert.NotContains(t, req, "tools")
	assert.NotContains(t, req, "tool_choice")
}

func TestAnthropicMalformedBody(t *testing.T) {
	_, err := parseAnthropicResponse([]byte(`not json`), true)
	assert.Error(t, err)
}

func TestTitanClassificationExtractsJSON(t *testing.T) {
	invoker := &mockInvoker{}
	invoker.On("InvokeModel", mock.Anything, mock.Anything).
		Return(&bedrockruntime.InvokeModelOutput{Body: []byte(`{
			"results": [{"outputText": "Sure! {\"sentiment\": \"inquiry\"} Hope that helps.", "completionReason": "FINISH"}]
		}`)}, nil)

	client := newTestClient(invoker, "amazon.titan-text-express-v1")
	completion, err := client.ClassifyEmail(context.Background(), "What are your hours?", labels)
	require.NoError(t, err)
	assert.Equal(t, `{"sentiment": "inquiry"}`, completion.Content)
}

func TestTitanContentFilteredIsRefusal(t *testing.T) {
	completion, err := parseTitanResponse([]byte(`{
		"results": [{"outputText": "", "completionReason": "CONTENT_FILTERED"}]
	}`), "amazon.titan-text-express-v1")
	require.NoError(t, err)
	assert.True(t, completion.Refused())
}

func TestInvokeErrorIsTransport(t *testing.T) {
	invoker := &mockInvoker{}
	invoker.On("InvokeModel", mock.Anything, mock.Anything).
		Return(nil, errors.New("throttled"))

	client := newTestClient(invoker, "anthropic.claude-3-haiku-20240307-v1:0")
	_, err := client.GenerateReply(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestGenericResponseFields(t *testing.T) {
	completion, err := parseGenericResponse([]byte(`{"text": "hello"}`), "meta.llama3")
	require.NoError(t, err)
	assert.Equal(t, "hello", completion.Content)

	completion, err = parseGenericResponse([]byte(`{"other": 1}`), "meta.llama3")
	require.NoError(t, err)
	assert.Empty(t, completion.Content)
}

func TestLlamaReplyUsesGenerationField(t *testing.T) {
	invoker := &mockInvoker{}
	invoker.On("InvokeModel", mock.Anything, mock.Anything).
		Return(&bedrockruntime.InvokeModelOutput{Body: []byte(
			`{"generation":"Dear customer, thanks.","prompt_token_count":12,"generation_token_count":5,"stop_reason":"stop"}`,
		)}, nil)

	client := newTestClient(invoker, "meta.llama3-8b-instruct-v1:0")
	completion, err := client.GenerateReply(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Dear customer, thanks.", completion.Content)
}

func TestUnknownGenericShapeIsNotAReply(t *testing.T) {
	invoker := &mockInvoker{}
	invoker.On("InvokeModel", mock.Anything, mock.Anything).
		Return(&bedrockruntime.InvokeModelOutput{Body: []byte(
			`{"completions":[{"data":{"text":"Dear customer"}}],"id":"abc"}`,
		)}, nil)

	client := newTestClient(invoker, "ai21.j2-ultra-v1")
	completion, err := client.GenerateReply(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Empty(t, completion.Content)

	gate := core.NewResponseGate(client, core.NewTaxonomy(core.DefaultSignature), zap.NewNop())
	outcome := gate.Generate(context.Background(), &core.Email{ID: "e1", Body: "hello"}, core.CategoryInquiry)
	_, ok := outcome.Text()
	assert.False(t, ok)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON(`noise {"a":1} trailing`))
	assert.Equal(t, "no braces", extractJSON("no braces"))
	assert.Equal(t, "} backwards {", extractJSON("} backwards {"))
}
