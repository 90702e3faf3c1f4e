// Package store provides durable storage backends for conversation profiles.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/postpilot/PostPilot/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure the profile table exists
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetProfile(conversationID string) (models.ConversationProfile, error) {
	if err := validateConversationID(conversationID); err != nil {
		return models.ConversationProfile{}, err
	}
	row := s.db.QueryRow(
		`SELECT conversation_id, style, length, last_topic, updated_at FROM conversation_profiles WHERE conversation_id = $1`,
		conversationID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetProfile miss, returning defaults", "conversation_id", conversationID)
		return models.DefaultProfile(conversationID), nil
	}
	if err != nil {
		slog.Error("PostgresStore GetProfile failed", "error", err, "conversation_id", conversationID)
		return models.ConversationProfile{}, models.StorageFailure("failed to read profile", err)
	}
	return p, nil
}

func (s *PostgresStore) SetStyle(conversationID, style string) (models.ConversationProfile, error) {
	trimmed, err := validateStyle(style)
	if err != nil {
		return models.ConversationProfile{}, err
	}
	if err := validateConversationID(conversationID); err != nil {
		return models.ConversationProfile{}, err
	}
	_, err = s.db.Exec(`
		INSERT INTO conversation_profiles (conversation_id, style, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id) DO UPDATE SET style = EXCLUDED.style, updated_at = EXCLUDED.updated_at`,
		conversationID, trimmed, time.Now().UTC())
	if err != nil {
		slog.Error("PostgresStore SetStyle failed", "error", err, "conversation_id", conversationID)
		return models.ConversationProfile{}, models.StorageFailure("failed to store style", err)
	}
	slog.Debug("PostgresStore SetStyle succeeded", "conversation_id", conversationID)
	return s.GetProfile(conversationID)
}

func (s *PostgresStore) SetLength(conversationID, value string) (models.ConversationProfile, error) {
	length, err := models.ParsePostLength(value)
	if err != nil {
		return models.ConversationProfile{}, err
	}
	if err := validateConversationID(conversationID); err != nil {
		return models.ConversationProfile{}, err
	}
	_, err = s.db.Exec(`
		INSERT INTO conversation_profiles (conversation_id, length, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id) DO UPDATE SET length = EXCLUDED.length, updated_at = EXCLUDED.updated_at`,
		conversationID, string(length), time.Now().UTC())
	if err != nil {
		slog.Error("PostgresStore SetLength failed", "error", err, "conversation_id", conversationID)
		return models.ConversationProfile{}, models.StorageFailure("failed to store length", err)
	}
	slog.Debug("PostgresStore SetLength succeeded", "conversation_id", conversationID, "length", length)
	return s.GetProfile(conversationID)
}

func (s *PostgresStore) RecordTopic(conversationID, topic string) (models.ConversationProfile, error) {
	trimmed, err := validateTopic(topic)
	if err != nil {
		return models.ConversationProfile{}, err
	}
	if err := validateConversationID(conversationID); err != nil {
		return models.ConversationProfile{}, err
	}
	_, err = s.db.Exec(`
		INSERT INTO conversation_profiles (conversation_id, last_topic, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id) DO UPDATE SET last_topic = EXCLUDED.last_topic, updated_at = EXCLUDED.updated_at`,
		conversationID, trimmed, time.Now().UTC())
	if err != nil {
		slog.Error("PostgresStore RecordTopic failed", "error", err, "conversation_id", conversationID)
		return models.ConversationProfile{}, models.StorageFailure("failed to store topic", err)
	}
	slog.Debug("PostgresStore RecordTopic succeeded", "conversation_id", conversationID)
	return s.GetProfile(conversationID)
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
