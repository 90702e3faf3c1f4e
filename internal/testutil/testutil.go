// Package testutil provides common test utilities and helpers for PostPilot tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/postpilot/PostPilot/internal/models"
)

// StubCompleter is a scriptable completion endpoint for tests. It records
// every prompt it receives and pops responses/errors in order; once the
// scripts run out, the last entry repeats.
type StubCompleter struct {
	mu        sync.Mutex
	Responses []string
	Errors    []error
	Prompts   []models.Prompt
}

// GeneratePost returns the next scripted response or error.
func (s *StubCompleter) GeneratePost(ctx context.Context, p models.Prompt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := len(s.Prompts)
	s.Prompts = append(s.Prompts, p)

	if call < len(s.Errors) && s.Errors[call] != nil {
		return "", s.Errors[call]
	}
	if len(s.Responses) == 0 {
		return "", models.UpstreamEmptyResponse()
	}
	if call >= len(s.Responses) {
		call = len(s.Responses) - 1
	}
	return s.Responses[call], nil
}

// Calls reports how many completion calls were made.
func (s *StubCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON response envelope and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
	if response["status"] != expectedStatus {
		t.Errorf("Expected response status %q, got %v", expectedStatus, response["status"])
	}
	return response
}

// NewJSONRequest builds a POST request with a JSON-encoded body.
func NewJSONRequest(t *testing.T, path string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}
