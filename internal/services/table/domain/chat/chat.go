// Package chat models the table's message log. Messages are append-only and
// carry a per-campaign sequence number assigned by storage so history reads
// have a stable order.
package chat

import (
	"encoding/json"
	"strings"
	"time"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
)

// Kind classifies a message.
type Kind string

const (
	// KindChat is a user-authored text message.
	KindChat Kind = "CHAT"
	// KindSystem is a server-generated announcement.
	KindSystem Kind = "SYSTEM"
	// KindRoll is a dice roll result with its breakdown in Metadata.
	KindRoll Kind = "ROLL"
)

// Valid reports whether the kind is one of the known values.
func (k Kind) Valid() bool {
	switch k {
	case KindChat, KindSystem, KindRoll:
		return true
	}
	return false
}

// MaxBodyLength bounds a single message body.
const MaxBodyLength = 2000

// Message is one entry in a campaign's log.
type Message struct {
	ID         string          `json:"id"`
	CampaignID string          `json:"campaignId"`
	AuthorID   string          `json:"authorId,omitempty"`
	Body       string          `json:"body"`
	Kind       Kind            `json:"kind"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	Seq        int64           `json:"seq"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Validate checks the author-controlled fields of a message before it is
// persisted.
func (m Message) Validate() error {
	if !m.Kind.Valid() {
		return apperrors.New(apperrors.CodeValidationFailed, "unknown message kind")
	}
	body := strings.TrimSpace(m.Body)
	if m.Kind == KindChat && body == "" {
		return apperrors.New(apperrors.CodeValidationFailed, "message body is required")
	}
	if len(m.Body) > MaxBodyLength {
		return apperrors.New(apperrors.CodeValidationFailed, "message body is too long")
	}
	return nil
}
