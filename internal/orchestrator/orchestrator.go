// Package orchestrator coordinates post generation requests.
//
// For each inbound action it resolves the conversation profile, builds a
// prompt, invokes the completion client, and persists results back to the
// store. Each request moves through a fixed lifecycle:
// received -> profile_loaded -> prompt_built -> completion_pending ->
// succeeded or failed. The stored topic is only recorded after a confirmed
// completion success, so failures never destroy prior state.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/postpilot/PostPilot/internal/models"
	"github.com/postpilot/PostPilot/internal/prompt"
	"github.com/postpilot/PostPilot/internal/store"
)

// requestState labels a point in the per-request lifecycle for logging.
type requestState string

const (
	stateReceived          requestState = "received"
	stateProfileLoaded     requestState = "profile_loaded"
	statePromptBuilt       requestState = "prompt_built"
	stateCompletionPending requestState = "completion_pending"
	stateSucceeded         requestState = "succeeded"
	stateFailed            requestState = "failed"
)

// Completer is the completion endpoint dependency.
type Completer interface {
	GeneratePost(ctx context.Context, p models.Prompt) (string, error)
}

// Orchestrator routes the four normalized actions between the store, the
// prompt builder, and the completion client.
//
// Requests for different conversations never block one another; the store's
// per-write durability is the only consistency guarantee, and concurrent
// preference writes for the same conversation resolve last-write-wins.
type Orchestrator struct {
	st        store.Store
	completer Completer
}

// New creates an orchestrator over the given store and completion client.
func New(st store.Store, completer Completer) *Orchestrator {
	return &Orchestrator{st: st, completer: completer}
}

// Generate produces a post for a new topic and records the topic on success.
func (o *Orchestrator) Generate(ctx context.Context, conversationID, topic string) (models.GeneratedPost, error) {
	requestID := uuid.NewString()
	o.transition(requestID, conversationID, stateReceived, "action", "generate")

	profile, err := o.st.GetProfile(conversationID)
	if err != nil {
		return o.fail(requestID, conversationID, err)
	}
	o.transition(requestID, conversationID, stateProfileLoaded, "length", profile.Length)

	return o.complete(ctx, requestID, profile, topic)
}

// Regenerate produces a fresh rendering of the last successfully generated
// topic. Fails with NoPriorTopic, making no completion call, when the
// conversation has no history.
func (o *Orchestrator) Regenerate(ctx context.Context, conversationID string) (models.GeneratedPost, error) {
	requestID := uuid.NewString()
	o.transition(requestID, conversationID, stateReceived, "action", "regenerate")

	profile, err := o.st.GetProfile(conversationID)
	if err != nil {
		return o.fail(requestID, conversationID, err)
	}
	o.transition(requestID, conversationID, stateProfileLoaded, "length", profile.Length)

	if profile.LastTopic == "" {
		return o.fail(requestID, conversationID, models.NoPriorTopic(conversationID))
	}
	return o.complete(ctx, requestID, profile, profile.LastTopic)
}

// UpdateStyle stores a new writing style for the conversation.
func (o *Orchestrator) UpdateStyle(ctx context.Context, conversationID, style string) (models.ConversationProfile, error) {
	profile, err := o.st.SetStyle(conversationID, style)
	if err != nil {
		slog.Warn("Orchestrator.UpdateStyle failed", "conversation_id", conversationID, "kind", models.KindOf(err), "error", err)
		return models.ConversationProfile{}, err
	}
	slog.Info("Orchestrator.UpdateStyle succeeded", "conversation_id", conversationID)
	return profile, nil
}

// UpdateLength stores a new post length for the conversation.
func (o *Orchestrator) UpdateLength(ctx context.Context, conversationID, value string) (models.ConversationProfile, error) {
	profile, err := o.st.SetLength(conversationID, value)
	if err != nil {
		slog.Warn("Orchestrator.UpdateLength failed", "conversation_id", conversationID, "kind", models.KindOf(err), "error", err)
		return models.ConversationProfile{}, err
	}
	slog.Info("Orchestrator.UpdateLength succeeded", "conversation_id", conversationID, "length", profile.Length)
	return profile, nil
}

// Profile returns the stored (or defaulted) profile for a conversation.
func (o *Orchestrator) Profile(conversationID string) (models.ConversationProfile, error) {
	return o.st.GetProfile(conversationID)
}

// complete runs the prompt-build and completion stages shared by Generate
// and Regenerate, recording the topic only after the completion call itself
// has returned successfully.
func (o *Orchestrator) complete(ctx context.Context, requestID string, profile models.ConversationProfile, topic string) (models.GeneratedPost, error) {
	topic = strings.TrimSpace(topic)
	p, err := prompt.BuildPost(profile, topic)
	if err != nil {
		return o.fail(requestID, profile.ConversationID, err)
	}
	o.transition(requestID, profile.ConversationID, statePromptBuilt)

	o.transition(requestID, profile.ConversationID, stateCompletionPending)
	text, err := o.completer.GeneratePost(ctx, p)
	if err != nil {
		return o.fail(requestID, profile.ConversationID, err)
	}

	if _, err := o.st.RecordTopic(profile.ConversationID, topic); err != nil {
		// The reply was generated but the preference write failed; the
		// request fails as a whole so the user knows nothing was saved.
		return o.fail(requestID, profile.ConversationID, err)
	}

	o.transition(requestID, profile.ConversationID, stateSucceeded, "content_length", len(text))
	return models.GeneratedPost{
		ConversationID: profile.ConversationID,
		Topic:          topic,
		Text:           text,
	}, nil
}

// fail logs the terminal failed state and returns the structured error.
func (o *Orchestrator) fail(requestID, conversationID string, err error) (models.GeneratedPost, error) {
	slog.Warn("Orchestrator request failed",
		"request_id", requestID,
		"conversation_id", conversationID,
		"state", stateFailed,
		"kind", models.KindOf(err),
		"error", err)
	return models.GeneratedPost{}, err
}

// transition logs a request lifecycle state change.
func (o *Orchestrator) transition(requestID, conversationID string, state requestState, attrs ...any) {
	args := append([]any{
		"request_id", requestID,
		"conversation_id", conversationID,
		"state", state,
	}, attrs...)
	slog.Debug("Orchestrator state transition", args...)
}
