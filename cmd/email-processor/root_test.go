package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/llm-email-responder/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI labels every email as feedback and answers with reply
func fakeOpenAI(t *testing.T, reply string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		message := map[string]any{"role": "assistant", "content": reply}
		if _, ok := req["tools"]; ok {
			message["content"] = ""
			message["tool_calls"] = []map[string]any{{
				"id":       "call_1",
				"type":     "function",
				"function": map[string]any{"name": "classification", "arguments": `{"sentiment": "feedback"}`},
			}}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"model":   "gpt-3.5-turbo",
			"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": message}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func execute(t *testing.T, args ...string) string {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestBatchJSONReport(t *testing.T) {
	server := fakeOpenAI(t, "Dear customer, thank you for your feedback.\nCustomer Service Team")

	input := filepath.Join(t.TempDir(), "emails.json")
	require.NoError(t, os.WriteFile(input, []byte(`[
		{"id": "101", "body": "Great support, thanks!"},
		{"id": "102", "body": "   "},
		{"id": "103", "body": "Loved the new release"}
	]`), 0644))

	out := execute(t,
		"--openai-api-key", "sk-test",
		"--openai-base-url", server.URL+"/v1",
		"--tickets", "none",
		"--format", "json",
		"--input", input,
	)

	var rows []report.Row
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)

	assert.Equal(t, "101", rows[0].EmailID)
	assert.Equal(t, "yes", rows[0].Success)
	assert.Equal(t, "feedback", rows[0].Classification)
	assert.Equal(t, report.RejectedRow(), rows[1])
	assert.Equal(t, "103", rows[2].EmailID)
}

func TestSamplesTableReport(t *testing.T) {
	server := fakeOpenAI(t, "Dear customer, thank you.\nCustomer Service Team")

	out := execute(t,
		"--openai-api-key", "sk-test",
		"--openai-base-url", server.URL+"/v1",
		"--concurrency", "3",
	)

	for _, id := range []string{"001", "002", "003", "004", "005"} {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "feedback")
}

func TestSingleMessageInput(t *testing.T) {
	server := fakeOpenAI(t, "Dear customer, thank you.\nCustomer Service Team")

	input := filepath.Join(t.TempDir(), "message.eml")
	require.NoError(t, os.WriteFile(input, []byte("From: happy@example.com\r\n"+
		"Subject: Thanks\r\n"+
		"Message-Id: <m1@example.com>\r\n"+
		"\r\n"+
		"Great job on the release!\r\n"), 0644))

	out := execute(t,
		"--openai-api-key", "sk-test",
		"--openai-base-url", server.URL+"/v1",
		"--input", input,
	)

	assert.Contains(t, out, "ID: m1@example.com")
	assert.Contains(t, out, "Classification: feedback")
	assert.Contains(t, out, "Success: yes")
}

func TestMissingInputFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--input", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, cmd.Execute())
}

func TestIsJSONArray(t *testing.T) {
	assert.True(t, isJSONArray([]byte("  \n[{}]")))
	assert.False(t, isJSONArray([]byte("From: a@example.com\r\n")))
	assert.False(t, isJSONArray(nil))
}

func TestConfigFileBatchSection(t *testing.T) {
	server := fakeOpenAI(t, "Dear customer, thank you.\nCustomer Service Team")

	writeConfig := func(format string) string {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "openai:\n" +
			"  api_key: sk-test\n" +
			"  base_url: " + server.URL + "/v1\n" +
			"batch:\n" +
			"  format: " + format + "\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	// the file's format applies when --format is not given
	out := execute(t, "--config", writeConfig("json"))
	var rows []report.Row
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 5)

	// an explicit --format wins over the file
	out = execute(t, "--config", writeConfig("table"), "--format", "json")
	rows = nil
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 5)
}

func TestTicketsDefaultToNone(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "none", cmd.Flags().Lookup("tickets").DefValue)
}
