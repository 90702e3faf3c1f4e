package genai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/openai/openai-go"
)

// debugLogEntry captures one completion request/response pair.
type debugLogEntry struct {
	Timestamp string                         `json:"timestamp"`
	Method    string                         `json:"method"`
	Model     string                         `json:"model"`
	Params    openai.ChatCompletionNewParams `json:"params"`
	Response  *openai.ChatCompletion         `json:"response"`
}

// writeDebugLog persists a completion exchange as a JSON file under the
// debug directory. Failures are logged and otherwise ignored; debug capture
// must never affect the request path.
func (c *Client) writeDebugLog(method string, params openai.ChatCompletionNewParams, resp *openai.ChatCompletion) {
	debugDir := filepath.Join(c.debugDir, "debug")
	if err := os.MkdirAll(debugDir, 0755); err != nil {
		slog.Error("GenAI writeDebugLog failed to create debug directory", "error", err, "dir", debugDir)
		return
	}

	entry := debugLogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Method:    method,
		Model:     c.model,
		Params:    params,
		Response:  resp,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		slog.Error("GenAI writeDebugLog failed to marshal entry", "error", err)
		return
	}

	name := fmt.Sprintf("%s_%d.json", method, time.Now().UnixNano())
	path := filepath.Join(debugDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Error("GenAI writeDebugLog failed to write file", "error", err, "path", path)
		return
	}
	slog.Debug("GenAI debug log written", "path", path)
}
