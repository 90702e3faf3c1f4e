// Package api provides HTTP handlers for PostPilot endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/postpilot/PostPilot/internal/models"
)

// decodePost enforces the POST method and decodes the JSON request body.
// Returns false when a response has already been written.
func decodePost(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server: method not allowed", "method", r.Method, "path", r.URL.Path)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		slog.Warn("Server: failed to decode JSON", "error", err, "path", r.URL.Path)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return false
	}
	return true
}

// generateHandler handles POST /v1/posts/generate.
func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if !decodePost(w, r, &req) {
		return
	}
	slog.Debug("Server.generateHandler: processing request", "conversation_id", req.ConversationID)

	post, err := s.posts.Generate(r.Context(), req.ConversationID, req.Topic)
	if err != nil {
		slog.Warn("Server.generateHandler: generation failed", "conversation_id", req.ConversationID, "kind", models.KindOf(err), "error", err)
		writeErrorResponse(w, err)
		return
	}
	slog.Info("Server.generateHandler: post generated", "conversation_id", req.ConversationID, "topic", post.Topic)
	writeJSONResponse(w, http.StatusOK, models.Success(post))
}

// regenerateHandler handles POST /v1/posts/regenerate.
func (s *Server) regenerateHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegenerateRequest
	if !decodePost(w, r, &req) {
		return
	}
	slog.Debug("Server.regenerateHandler: processing request", "conversation_id", req.ConversationID)

	post, err := s.posts.Regenerate(r.Context(), req.ConversationID)
	if err != nil {
		slog.Warn("Server.regenerateHandler: regeneration failed", "conversation_id", req.ConversationID, "kind", models.KindOf(err), "error", err)
		writeErrorResponse(w, err)
		return
	}
	slog.Info("Server.regenerateHandler: post regenerated", "conversation_id", req.ConversationID, "topic", post.Topic)
	writeJSONResponse(w, http.StatusOK, models.Success(post))
}

// styleHandler handles POST /v1/conversations/style.
func (s *Server) styleHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SetStyleRequest
	if !decodePost(w, r, &req) {
		return
	}

	profile, err := s.posts.UpdateStyle(r.Context(), req.ConversationID, req.Style)
	if err != nil {
		slog.Warn("Server.styleHandler: update failed", "conversation_id", req.ConversationID, "kind", models.KindOf(err), "error", err)
		writeErrorResponse(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}

// lengthHandler handles POST /v1/conversations/length.
func (s *Server) lengthHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SetLengthRequest
	if !decodePost(w, r, &req) {
		return
	}

	profile, err := s.posts.UpdateLength(r.Context(), req.ConversationID, req.Length)
	if err != nil {
		slog.Warn("Server.lengthHandler: update failed", "conversation_id", req.ConversationID, "kind", models.KindOf(err), "error", err)
		writeErrorResponse(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}

// profileHandler handles GET /v1/conversations/profile.
func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	conversationID := r.URL.Query().Get("conversation_id")
	profile, err := s.posts.Profile(conversationID)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}

// messageHandler handles POST /v1/messages: a webhook-style inbound message
// carrying raw slash-command text, routed through the command router. The
// reply chunks are returned for the transport to deliver.
func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	var msg models.InboundMessage
	if !decodePost(w, r, &msg) {
		return
	}
	if msg.ConversationID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("conversation_id cannot be empty"))
		return
	}

	replies := s.router.HandleText(r.Context(), msg.ConversationID, msg.Text)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{"replies": replies}))
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}
