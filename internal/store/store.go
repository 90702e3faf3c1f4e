// Package store provides durable storage backends for conversation profiles.
//
// It includes SQLite and PostgreSQL backends plus an in-memory store used
// when no database DSN is configured and in tests. All mutating operations
// are written durably before returning; a missing profile is a valid,
// defaulted state rather than an error.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/postpilot/PostPilot/internal/models"
)

// Store is the conversation profile storage contract.
// Implementations must be safe for concurrent use across in-flight requests.
type Store interface {
	// GetProfile returns the stored profile for a conversation, or a freshly
	// constructed default profile if none exists. A miss never writes.
	GetProfile(conversationID string) (models.ConversationProfile, error)

	// SetStyle validates and durably stores the writing style.
	SetStyle(conversationID, style string) (models.ConversationProfile, error)

	// SetLength validates (case-insensitively) and durably stores the post length.
	SetLength(conversationID, value string) (models.ConversationProfile, error)

	// RecordTopic durably stores the last successfully generated topic.
	// Callers must only invoke this after a confirmed completion success.
	RecordTopic(conversationID, topic string) (models.ConversationProfile, error)

	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string // database connection string (file path for SQLite)
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType reports "postgres" for PostgreSQL-shaped DSNs and "sqlite3"
// for everything else (assumed to be a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// validateConversationID rejects blank conversation identifiers.
func validateConversationID(conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return models.InvalidInput("conversation_id cannot be empty")
	}
	return nil
}

// validateStyle trims and rejects empty styles. Returns the trimmed value.
func validateStyle(style string) (string, error) {
	trimmed := strings.TrimSpace(style)
	if trimmed == "" {
		return "", models.InvalidInput("style cannot be empty")
	}
	return trimmed, nil
}

// validateTopic trims and rejects empty topics. Returns the trimmed value.
func validateTopic(topic string) (string, error) {
	trimmed := strings.TrimSpace(topic)
	if trimmed == "" {
		return "", models.InvalidInput("topic cannot be empty")
	}
	return trimmed, nil
}

// InMemoryStore is a mutex-guarded map-backed store. It satisfies the Store
// contract for tests and for running without a configured database, but
// provides no durability across restarts.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.ConversationProfile
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[string]models.ConversationProfile)}
}

func (s *InMemoryStore) GetProfile(conversationID string) (models.ConversationProfile, error) {
	if err := validateConversationID(conversationID); err != nil {
		return models.ConversationProfile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[conversationID]; ok {
		return p, nil
	}
	return models.DefaultProfile(conversationID), nil
}

func (s *InMemoryStore) SetStyle(conversationID, style string) (models.ConversationProfile, error) {
	trimmed, err := validateStyle(style)
	if err != nil {
		return models.ConversationProfile{}, err
	}
	return s.mutate(conversationID, func(p *models.ConversationProfile) {
		p.Style = trimmed
	})
}

func (s *InMemoryStore) SetLength(conversationID, value string) (models.ConversationProfile, error) {
	length, err := models.ParsePostLength(value)
	if err != nil {
		return models.ConversationProfile{}, err
	}
	return s.mutate(conversationID, func(p *models.ConversationProfile) {
		p.Length = length
	})
}

func (s *InMemoryStore) RecordTopic(conversationID, topic string) (models.ConversationProfile, error) {
	trimmed, err := validateTopic(topic)
	if err != nil {
		return models.ConversationProfile{}, err
	}
	return s.mutate(conversationID, func(p *models.ConversationProfile) {
		p.LastTopic = trimmed
	})
}

func (s *InMemoryStore) Close() error {
	return nil
}

// mutate applies fn to the existing or defaulted profile and stores the result.
func (s *InMemoryStore) mutate(conversationID string, fn func(*models.ConversationProfile)) (models.ConversationProfile, error) {
	if err := validateConversationID(conversationID); err != nil {
		return models.ConversationProfile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[conversationID]
	if !ok {
		p = models.DefaultProfile(conversationID)
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	s.profiles[conversationID] = p
	return p, nil
}
