package store

import (
	"database/sql"

	"github.com/postpilot/PostPilot/internal/models"
)

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanProfile scans a ConversationProfile from a profile row.
// Column order: conversation_id, style, length, last_topic, updated_at.
func scanProfile(row rowScanner) (models.ConversationProfile, error) {
	var p models.ConversationProfile
	var length string
	var lastTopic sql.NullString
	if err := row.Scan(&p.ConversationID, &p.Style, &length, &lastTopic, &p.UpdatedAt); err != nil {
		return p, err
	}
	p.Length = models.PostLength(length)
	if !models.IsValidPostLength(p.Length) {
		p.Length = models.DefaultPostLength
	}
	p.LastTopic = lastTopic.String
	return p, nil
}
