package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/postpilot/PostPilot/internal/messaging"
	"github.com/postpilot/PostPilot/internal/models"
	"github.com/postpilot/PostPilot/internal/orchestrator"
	"github.com/postpilot/PostPilot/internal/store"
	"github.com/postpilot/PostPilot/internal/testutil"
)

// newTestServer wires a server over an in-memory store and a stub completer.
func newTestServer(completer *testutil.StubCompleter) (*Server, store.Store) {
	st := store.NewInMemoryStore()
	orch := orchestrator.New(st, completer)
	return NewServer(orch, messaging.NewRouter(orch)), st
}

func TestGenerateHandler_Success(t *testing.T) {
	completer := &testutil.StubCompleter{Responses: []string{"A short post about coffee brewing."}}
	srv, st := newTestServer(completer)

	req := testutil.NewJSONRequest(t, "/v1/posts/generate", models.GenerateRequest{ConversationID: "42", Topic: "coffee brewing"})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "generate")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected result object, got %v", resp["result"])
	}
	if result["text"] != "A short post about coffee brewing." {
		t.Errorf("unexpected text: %v", result["text"])
	}

	profile, err := st.GetProfile("42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.LastTopic != "coffee brewing" {
		t.Errorf("expected topic recorded after success, got %q", profile.LastTopic)
	}
}

func TestGenerateHandler_InvalidJSON(t *testing.T) {
	srv, _ := newTestServer(&testutil.StubCompleter{})
	req := httptest.NewRequest(http.MethodPost, "/v1/posts/generate", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "invalid JSON")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestGenerateHandler_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(&testutil.StubCompleter{})
	req := httptest.NewRequest(http.MethodGet, "/v1/posts/generate", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "method not allowed")
}

func TestGenerateHandler_EmptyTopic(t *testing.T) {
	completer := &testutil.StubCompleter{Responses: []string{"post"}}
	srv, _ := newTestServer(completer)

	req := testutil.NewJSONRequest(t, "/v1/posts/generate", models.GenerateRequest{ConversationID: "42", Topic: "  "})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "empty topic")
	resp := testutil.AssertJSONResponse(t, rr, "error")
	if msg, _ := resp["message"].(string); !strings.Contains(msg, "topic") {
		t.Errorf("expected verbatim topic validation message, got %v", resp["message"])
	}
	if completer.Calls() != 0 {
		t.Errorf("expected no completion call, got %d", completer.Calls())
	}
}

func TestGenerateHandler_UpstreamFailure(t *testing.T) {
	completer := &testutil.StubCompleter{
		Errors: []error{models.UpstreamTimeout(errors.New("deadline exceeded"))},
	}
	srv, _ := newTestServer(completer)

	req := testutil.NewJSONRequest(t, "/v1/posts/generate", models.GenerateRequest{ConversationID: "42", Topic: "coffee"})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusGatewayTimeout, rr.Code, "upstream timeout")
	resp := testutil.AssertJSONResponse(t, rr, "error")
	if resp["message"] != "Generation failed, please try again." {
		t.Errorf("expected generic upstream message, got %v", resp["message"])
	}
}

func TestRegenerateHandler_NoPriorTopic(t *testing.T) {
	completer := &testutil.StubCompleter{Responses: []string{"post"}}
	srv, _ := newTestServer(completer)

	req := testutil.NewJSONRequest(t, "/v1/posts/regenerate", models.RegenerateRequest{ConversationID: "42"})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusConflict, rr.Code, "no prior topic")
	testutil.AssertJSONResponse(t, rr, "error")
	if completer.Calls() != 0 {
		t.Errorf("expected no completion call, got %d", completer.Calls())
	}
}

func TestRegenerateHandler_Success(t *testing.T) {
	completer := &testutil.StubCompleter{Responses: []string{"first", "second"}}
	srv, st := newTestServer(completer)
	if _, err := st.RecordTopic("42", "rust vs go"); err != nil {
		t.Fatalf("RecordTopic failed: %v", err)
	}

	req := testutil.NewJSONRequest(t, "/v1/posts/regenerate", models.RegenerateRequest{ConversationID: "42"})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "regenerate")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result := resp["result"].(map[string]interface{})
	if result["topic"] != "rust vs go" {
		t.Errorf("expected stored topic reused, got %v", result["topic"])
	}
}

func TestStyleHandler(t *testing.T) {
	srv, st := newTestServer(&testutil.StubCompleter{})

	req := testutil.NewJSONRequest(t, "/v1/conversations/style", models.SetStyleRequest{ConversationID: "42", Style: "witty and concise"})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "set style")
	testutil.AssertJSONResponse(t, rr, "ok")

	profile, _ := st.GetProfile("42")
	if profile.Style != "witty and concise" {
		t.Errorf("expected style stored, got %q", profile.Style)
	}

	// Blank style is rejected with the validation message verbatim.
	req = testutil.NewJSONRequest(t, "/v1/conversations/style", models.SetStyleRequest{ConversationID: "42", Style: "  "})
	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "blank style")
}

func TestLengthHandler(t *testing.T) {
	srv, st := newTestServer(&testutil.StubCompleter{})

	req := testutil.NewJSONRequest(t, "/v1/conversations/length", models.SetLengthRequest{ConversationID: "42", Length: "SHORT"})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "set length")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result := resp["result"].(map[string]interface{})
	if result["length"] != "short" {
		t.Errorf("expected canonical lowercase length, got %v", result["length"])
	}

	profile, _ := st.GetProfile("42")
	if profile.Length != models.PostLengthShort {
		t.Errorf("expected length stored, got %q", profile.Length)
	}

	req = testutil.NewJSONRequest(t, "/v1/conversations/length", models.SetLengthRequest{ConversationID: "42", Length: "gigantic"})
	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "invalid length")
}

func TestProfileHandler(t *testing.T) {
	srv, st := newTestServer(&testutil.StubCompleter{})
	if _, err := st.SetStyle("42", "dry humor"); err != nil {
		t.Fatalf("SetStyle failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/profile?conversation_id=42", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "profile")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result := resp["result"].(map[string]interface{})
	if result["style"] != "dry humor" {
		t.Errorf("expected stored style, got %v", result["style"])
	}
}

func TestMessageHandler_RoutesCommands(t *testing.T) {
	srv, st := newTestServer(&testutil.StubCompleter{})

	req := testutil.NewJSONRequest(t, "/v1/messages", models.InboundMessage{ConversationID: "42", Text: "/len long"})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "message")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result := resp["result"].(map[string]interface{})
	replies, ok := result["replies"].([]interface{})
	if !ok || len(replies) != 1 {
		t.Fatalf("expected one reply, got %v", result["replies"])
	}
	if replies[0] != "Length set to long." {
		t.Errorf("unexpected reply: %v", replies[0])
	}

	profile, _ := st.GetProfile("42")
	if profile.Length != models.PostLengthLong {
		t.Errorf("expected length stored via message route, got %q", profile.Length)
	}
}

func TestMessageHandler_MissingConversationID(t *testing.T) {
	srv, _ := newTestServer(&testutil.StubCompleter{})
	req := testutil.NewJSONRequest(t, "/v1/messages", models.InboundMessage{Text: "/help"})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "missing conversation ID")
}

func TestHealthHandler(t *testing.T) {
	srv, _ := newTestServer(&testutil.StubCompleter{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	testutil.AssertJSONResponse(t, rr, "ok")
}
