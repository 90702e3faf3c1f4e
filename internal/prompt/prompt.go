// Package prompt composes conversation profiles and topics into completion
// endpoint prompts. All functions are pure: the same profile and topic
// always yield the same prompt text.
package prompt

import (
	"fmt"
	"strings"

	"github.com/postpilot/PostPilot/internal/models"
)

// SystemPrompt is the fixed instruction framing every generation request.
const SystemPrompt = "You write concise, engaging posts for a chat channel. " +
	"Avoid filler, keep a clear tone and structure, and add light calls to action " +
	"where they fit naturally. Do not use emojis unless they genuinely belong."

// DefaultStyleHint is applied when a conversation has not set a style.
const DefaultStyleHint = "Use a neutral, professional style."

// lengthHints maps each post length to its word-count guidance band.
var lengthHints = map[models.PostLength]string{
	models.PostLengthShort:  "approximately 50-100 words, one or two paragraphs",
	models.PostLengthMedium: "approximately 150-250 words, two to four paragraphs",
	models.PostLengthLong:   "approximately 300-500 words, four to six paragraphs",
}

// LengthHint returns the word-count guidance for a post length. Unknown
// values fall back to the medium band.
func LengthHint(length models.PostLength) string {
	if hint, ok := lengthHints[length]; ok {
		return hint
	}
	return lengthHints[models.DefaultPostLength]
}

// BuildPost composes a profile and topic into the prompt pair for the
// completion endpoint. Fails with InvalidInput if the topic is empty after
// trimming. No side effects, no I/O.
func BuildPost(profile models.ConversationProfile, topic string) (models.Prompt, error) {
	trimmed := strings.TrimSpace(topic)
	if trimmed == "" {
		return models.Prompt{}, models.InvalidInput("topic cannot be empty")
	}

	styleHint := strings.TrimSpace(profile.Style)
	if styleHint == "" {
		styleHint = DefaultStyleHint
	}

	user := fmt.Sprintf(
		"Topic: %s\nLength: %s\nStyle: %s\nWrite the post so it is ready to publish.",
		trimmed, LengthHint(profile.Length), styleHint)

	return models.Prompt{System: SystemPrompt, User: user}, nil
}
