// Package gamemap models campaign maps. At most one map per campaign is
// active at a time; activation is handled at the storage layer so the
// exclusivity survives concurrent writers.
package gamemap

import (
	"encoding/json"
	"strings"
	"time"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
)

// Map is a scene a GM can stage and activate for the table.
type Map struct {
	ID         string          `json:"id"`
	CampaignID string          `json:"campaignId"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"imageUrl"`
	Active     bool            `json:"active"`
	GridSize   int             `json:"gridSize"`
	Settings   json.RawMessage `json:"settings,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// DefaultGridSize matches the default grid cell size of a fresh campaign.
const DefaultGridSize = 40

// Validate checks the fields a client controls.
func (m Map) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return apperrors.New(apperrors.CodeValidationFailed, "map name is required")
	}
	if m.GridSize < 0 {
		return apperrors.New(apperrors.CodeValidationFailed, "grid size must not be negative")
	}
	return nil
}

// Normalize fills defaults for fields the client left unset.
func Normalize(m Map) Map {
	m.Name = strings.TrimSpace(m.Name)
	if m.GridSize == 0 {
		m.GridSize = DefaultGridSize
	}
	return m
}
