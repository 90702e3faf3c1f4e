// Package models defines the core data structures for PostPilot.
//
// It includes the per-conversation profile, post length settings, and the
// prompt/response types shared across modules.
package models

import (
	"strings"
	"time"
)

// PostLength defines the requested size of a generated post.
type PostLength string

const (
	// PostLengthShort targets roughly 50-100 words.
	PostLengthShort PostLength = "short"
	// PostLengthMedium targets roughly 150-250 words.
	PostLengthMedium PostLength = "medium"
	// PostLengthLong targets roughly 300-500 words.
	PostLengthLong PostLength = "long"

	// DefaultPostLength is used when a conversation has not set a length.
	DefaultPostLength = PostLengthMedium
)

// ParsePostLength parses a user-supplied length value case-insensitively.
// Returns the canonical lowercase value, or an InvalidInput error.
func ParsePostLength(value string) (PostLength, error) {
	switch PostLength(strings.ToLower(strings.TrimSpace(value))) {
	case PostLengthShort:
		return PostLengthShort, nil
	case PostLengthMedium:
		return PostLengthMedium, nil
	case PostLengthLong:
		return PostLengthLong, nil
	default:
		return "", InvalidInput("length must be one of: short, medium, long")
	}
}

// IsValidPostLength checks whether the given value is a canonical post length.
func IsValidPostLength(l PostLength) bool {
	switch l {
	case PostLengthShort, PostLengthMedium, PostLengthLong:
		return true
	default:
		return false
	}
}

// ConversationProfile holds the stored preferences for one conversation.
// A missing profile is equivalent to DefaultProfile for the same ID; the
// store only materializes a row on the first mutation.
type ConversationProfile struct {
	ConversationID string     `json:"conversation_id"`
	Style          string     `json:"style,omitempty"`
	Length         PostLength `json:"length"`
	LastTopic      string     `json:"last_topic,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DefaultProfile returns the implicit profile for a conversation that has
// never been seen before.
func DefaultProfile(conversationID string) ConversationProfile {
	return ConversationProfile{
		ConversationID: conversationID,
		Length:         DefaultPostLength,
	}
}

// Prompt is the structured instruction pair sent to the completion endpoint.
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// InboundMessage represents an incoming message from a chat transport.
type InboundMessage struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	Time           int64  `json:"time"`
}

// API request types for the normalized actions.

// GenerateRequest asks for a post on a new topic.
type GenerateRequest struct {
	ConversationID string `json:"conversation_id"`
	Topic          string `json:"topic"`
}

// RegenerateRequest asks for a fresh rendering of the last topic.
type RegenerateRequest struct {
	ConversationID string `json:"conversation_id"`
}

// SetStyleRequest updates the stored writing style.
type SetStyleRequest struct {
	ConversationID string `json:"conversation_id"`
	Style          string `json:"style"`
}

// SetLengthRequest updates the stored post length.
type SetLengthRequest struct {
	ConversationID string `json:"conversation_id"`
	Length         string `json:"length"`
}

// GeneratedPost is the result payload of a successful generation.
type GeneratedPost struct {
	ConversationID string `json:"conversation_id"`
	Topic          string `json:"topic"`
	Text           string `json:"text"`
}
