// Package gamestate models the per-campaign live state snapshot: active map,
// token collection, grid configuration, GM game data, and the freeze gate.
package gamestate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
	"github.com/greentable/vtt/internal/services/table/domain/token"
)

// GridConfig describes the overlay grid drawn on the active map.
type GridConfig struct {
	CellSize    int     `json:"cellSize"`
	ShowGrid    bool    `json:"showGrid"`
	SnapToGrid  bool    `json:"snapToGrid"`
	LineColor   string  `json:"lineColor"`
	LineOpacity float64 `json:"lineOpacity"`
}

// DefaultGridConfig returns the grid configuration applied to campaigns that
// never customized theirs.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		CellSize:    40,
		ShowGrid:    true,
		SnapToGrid:  true,
		LineColor:   "#000000",
		LineOpacity: 0.2,
	}
}

// GameData carries the GM-defined opaque blob. The schema version travels with
// the raw bytes so future readers can interpret old payloads without
// reflection.
type GameData struct {
	SchemaVersion int             `json:"schemaVersion"`
	Raw           json.RawMessage `json:"raw"`
}

// FreezeState is the room-wide visibility gate. It is a two-state machine:
// Unfrozen -> Frozen and Frozen -> Unfrozen, both GM actions; no other
// transitions exist.
type FreezeState struct {
	Frozen   bool       `json:"frozen"`
	FrozenBy string     `json:"frozenBy,omitempty"`
	FrozenAt *time.Time `json:"frozenAt,omitempty"`
}

// Snapshot captures what players could see at freeze time. While the campaign
// is frozen, player-facing reads serve this snapshot instead of live state.
type Snapshot struct {
	ActiveMapID string        `json:"activeMapId"`
	Tokens      []token.Token `json:"tokens"`
	Grid        GridConfig    `json:"grid"`
}

// GameState is the one-to-one live state aggregate for a campaign.
type GameState struct {
	CampaignID   string
	ActiveMapID  string
	Tokens       []token.Token
	GameData     GameData
	Grid         GridConfig
	Freeze       FreezeState
	FrozenView   *Snapshot
	Revision     int64
	LastActivity time.Time
}

// New returns the empty initial state for a campaign.
func New(campaignID string) GameState {
	return GameState{
		CampaignID: campaignID,
		Tokens:     []token.Token{},
		Grid:       DefaultGridConfig(),
	}
}

// EngageFreeze transitions Unfrozen -> Frozen, capturing the player-visible
// snapshot and the freeze metadata.
func (s *GameState) EngageFreeze(actorID string, now time.Time) error {
	if s.Freeze.Frozen {
		return apperrors.New(apperrors.CodeAlreadyFrozen, "map is already frozen")
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return fmt.Errorf("freeze actor is required")
	}

	frozenAt := now.UTC()
	s.Freeze = FreezeState{
		Frozen:   true,
		FrozenBy: actorID,
		FrozenAt: &frozenAt,
	}
	snapshot := Snapshot{
		ActiveMapID: s.ActiveMapID,
		Tokens:      append([]token.Token(nil), s.Tokens...),
		Grid:        s.Grid,
	}
	s.FrozenView = &snapshot
	return nil
}

// ReleaseFreeze transitions Frozen -> Unfrozen and discards the snapshot.
func (s *GameState) ReleaseFreeze() error {
	if !s.Freeze.Frozen {
		return apperrors.New(apperrors.CodeNotFrozen, "map is not frozen")
	}
	s.Freeze = FreezeState{}
	s.FrozenView = nil
	return nil
}

// PlayerSnapshot returns the state a player-facing read should be built from:
// the freeze-time snapshot while frozen, live state otherwise.
func (s *GameState) PlayerSnapshot() Snapshot {
	if s.Freeze.Frozen && s.FrozenView != nil {
		return *s.FrozenView
	}
	return Snapshot{
		ActiveMapID: s.ActiveMapID,
		Tokens:      s.Tokens,
		Grid:        s.Grid,
	}
}

// Touch bumps the last-activity timestamp.
func (s *GameState) Touch(now time.Time) {
	s.LastActivity = now.UTC()
}
