// Package messaging defines the chat transport boundary and the slash
// command router that turns inbound messages into orchestrator calls.
package messaging

import (
	"context"

	"github.com/postpilot/PostPilot/internal/models"
)

// Service defines a pluggable message delivery abstraction. Concrete chat
// transports (Telegram, WhatsApp, SMS gateways) implement this interface;
// the core never depends on a specific platform.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a
	// conversation identifier. Each transport applies its own rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a conversation.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing (e.g., polling for events).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Responses returns a channel of incoming messages.
	Responses() <-chan models.InboundMessage
}
