// Package store provides durable storage backends for conversation profiles.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/postpilot/PostPilot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure the profile table exists
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetProfile(conversationID string) (models.ConversationProfile, error) {
	if err := validateConversationID(conversationID); err != nil {
		return models.ConversationProfile{}, err
	}
	row := s.db.QueryRow(
		`SELECT conversation_id, style, length, last_topic, updated_at FROM conversation_profiles WHERE conversation_id = ?`,
		conversationID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetProfile miss, returning defaults", "conversation_id", conversationID)
		return models.DefaultProfile(conversationID), nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProfile failed", "error", err, "conversation_id", conversationID)
		return models.ConversationProfile{}, models.StorageFailure("failed to read profile", err)
	}
	return p, nil
}

func (s *SQLiteStore) SetStyle(conversationID, style string) (models.ConversationProfile, error) {
	trimmed, err := validateStyle(style)
	if err != nil {
		return models.ConversationProfile{}, err
	}
	if err := validateConversationID(conversationID); err != nil {
		return models.ConversationProfile{}, err
	}
	_, err = s.db.Exec(`
		INSERT INTO conversation_profiles (conversation_id, style, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET style = excluded.style, updated_at = excluded.updated_at`,
		conversationID, trimmed, time.Now().UTC())
	if err != nil {
		slog.Error("SQLiteStore SetStyle failed", "error", err, "conversation_id", conversationID)
		return models.ConversationProfile{}, models.StorageFailure("failed to store style", err)
	}
	slog.Debug("SQLiteStore SetStyle succeeded", "conversation_id", conversationID)
	return s.GetProfile(conversationID)
}

func (s *SQLiteStore) SetLength(conversationID, value string) (models.ConversationProfile, error) {
	length, err := models.ParsePostLength(value)
	if err != nil {
		return models.ConversationProfile{}, err
	}
	if err := validateConversationID(conversationID); err != nil {
		return models.ConversationProfile{}, err
	}
	_, err = s.db.Exec(`
		INSERT INTO conversation_profiles (conversation_id, length, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET length = excluded.length, updated_at = excluded.updated_at`,
		conversationID, string(length), time.Now().UTC())
	if err != nil {
		slog.Error("SQLiteStore SetLength failed", "error", err, "conversation_id", conversationID)
		return models.ConversationProfile{}, models.StorageFailure("failed to store length", err)
	}
	slog.Debug("SQLiteStore SetLength succeeded", "conversation_id", conversationID, "length", length)
	return s.GetProfile(conversationID)
}

func (s *SQLiteStore) RecordTopic(conversationID, topic string) (models.ConversationProfile, error) {
	trimmed, err := validateTopic(topic)
	if err != nil {
		return models.ConversationProfile{}, err
	}
	if err := validateConversationID(conversationID); err != nil {
		return models.ConversationProfile{}, err
	}
	_, err = s.db.Exec(`
		INSERT INTO conversation_profiles (conversation_id, last_topic, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET last_topic = excluded.last_topic, updated_at = excluded.updated_at`,
		conversationID, trimmed, time.Now().UTC())
	if err != nil {
		slog.Error("SQLiteStore RecordTopic failed", "error", err, "conversation_id", conversationID)
		return models.ConversationProfile{}, models.StorageFailure("failed to store topic", err)
	}
	slog.Debug("SQLiteStore RecordTopic succeeded", "conversation_id", conversationID)
	return s.GetProfile(conversationID)
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
