package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/postpilot/PostPilot/internal/models"
)

// helpText is sent in response to /start and /help.
const helpText = "Hi! I generate posts.\n" +
	"Commands:\n" +
	"/post <topic> — generate a post\n" +
	"/style <text> — set the writing style\n" +
	"/len short|medium|long — set the post length\n" +
	"/regen — regenerate the last topic"

// PostService is the orchestrator surface the router drives.
type PostService interface {
	Generate(ctx context.Context, conversationID, topic string) (models.GeneratedPost, error)
	Regenerate(ctx context.Context, conversationID string) (models.GeneratedPost, error)
	UpdateStyle(ctx context.Context, conversationID, style string) (models.ConversationProfile, error)
	UpdateLength(ctx context.Context, conversationID, value string) (models.ConversationProfile, error)
}

// Router parses slash commands from inbound messages and renders replies.
// It is transport-agnostic: HandleText maps one inbound message to the
// reply chunks a transport should deliver.
type Router struct {
	posts      PostService
	chunkLimit int
}

// NewRouter creates a command router over the given post service.
func NewRouter(posts PostService) *Router {
	return &Router{posts: posts, chunkLimit: DefaultChunkLimit}
}

// extractArgs returns the text after the command token, trimmed, or ""
// when the command has no arguments. Any whitespace separates the token
// from its arguments.
func extractArgs(text string) string {
	trimmed := strings.TrimSpace(text)
	if i := strings.IndexFunc(trimmed, unicode.IsSpace); i != -1 {
		return strings.TrimSpace(trimmed[i:])
	}
	return ""
}

// command returns the leading slash command token, lowercased, with any
// bot-name suffix ("/post@MyBot") removed. Empty when the text is not a
// command.
func command(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return ""
	}
	token := trimmed
	if i := strings.IndexFunc(trimmed, unicode.IsSpace); i != -1 {
		token = trimmed[:i]
	}
	if at := strings.Index(token, "@"); at != -1 {
		token = token[:at]
	}
	return strings.ToLower(token)
}

// HandleText processes one inbound message and returns the reply chunks to
// deliver, in order. It never returns zero chunks.
func (r *Router) HandleText(ctx context.Context, conversationID, text string) []string {
	slog.Info("Router handling message", "conversation_id", conversationID, "text_length", len(text))

	switch command(text) {
	case "/start", "/help":
		return []string{helpText}

	case "/style":
		args := extractArgs(text)
		if args == "" {
			return []string{"Usage: /style <text>"}
		}
		if _, err := r.posts.UpdateStyle(ctx, conversationID, args); err != nil {
			return []string{models.UserMessage(err)}
		}
		return []string{"Style updated."}

	case "/len":
		args := extractArgs(text)
		if args == "" {
			return []string{"Usage: /len short|medium|long"}
		}
		profile, err := r.posts.UpdateLength(ctx, conversationID, args)
		if err != nil {
			return []string{models.UserMessage(err)}
		}
		return []string{fmt.Sprintf("Length set to %s.", profile.Length)}

	case "/post":
		topic := extractArgs(text)
		if topic == "" {
			return []string{"Usage: /post <topic>"}
		}
		post, err := r.posts.Generate(ctx, conversationID, topic)
		if err != nil {
			slog.Warn("Router generate failed", "conversation_id", conversationID, "kind", models.KindOf(err), "error", err)
			return []string{models.UserMessage(err)}
		}
		return SplitChunks(post.Text, r.chunkLimit)

	case "/regen":
		post, err := r.posts.Regenerate(ctx, conversationID)
		if err != nil {
			slog.Warn("Router regenerate failed", "conversation_id", conversationID, "kind", models.KindOf(err), "error", err)
			return []string{models.UserMessage(err)}
		}
		return SplitChunks(post.Text, r.chunkLimit)

	default:
		return []string{"Unknown command. Send /help for the command list."}
	}
}

// Attach pumps inbound messages from a transport through the router and
// sends replies back over the same transport. It blocks until the context
// is cancelled or the transport's response channel closes.
func (r *Router) Attach(ctx context.Context, svc Service) error {
	responses := svc.Responses()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-responses:
			if !ok {
				slog.Info("Router transport response channel closed")
				return nil
			}
			canonical, err := svc.ValidateAndCanonicalizeRecipient(msg.ConversationID)
			if err != nil {
				slog.Warn("Router dropping message with invalid conversation ID", "error", err, "conversation_id", msg.ConversationID)
				continue
			}
			for _, chunk := range r.HandleText(ctx, canonical, msg.Text) {
				if err := svc.SendMessage(ctx, canonical, chunk); err != nil {
					slog.Error("Router failed to send reply", "error", err, "conversation_id", canonical)
					break
				}
			}
		}
	}
}
