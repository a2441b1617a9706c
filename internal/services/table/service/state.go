package service

import (
	"context"
	"time"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
	"github.com/greentable/vtt/internal/services/table/domain/access"
	"github.com/greentable/vtt/internal/services/table/domain/gamemap"
	"github.com/greentable/vtt/internal/services/table/domain/gamestate"
	"github.com/greentable/vtt/internal/services/table/domain/token"
)

// ActiveMapView is the public shape of a staged map, carried inside state
// views and the map:activated event.
type ActiveMapView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
	GridSize int    `json:"gridSize"`
}

// StateView is the role-shaped projection of a campaign's live state.
// ActiveMap is null while no map is staged; LastActivity is RFC 3339.
type StateView struct {
	CampaignID   string                `json:"campaignId"`
	ActiveMap    *ActiveMapView        `json:"activeMap"`
	Tokens       []token.Token         `json:"tokens"`
	Grid         gamestate.GridConfig  `json:"gridConfig"`
	GameData     gamestate.GameData    `json:"gameData"`
	Freeze       gamestate.FreezeState `json:"freeze"`
	LastActivity string                `json:"lastActivity,omitempty"`
	Revision     int64                 `json:"revision"`
}

func mapView(m gamemap.Map) *ActiveMapView {
	return &ActiveMapView{ID: m.ID, Name: m.Name, ImageURL: m.ImageURL, GridSize: m.GridSize}
}

// activeMapView resolves a map reference into its public shape. An empty id,
// or a map deleted since the reference was written, reads as no active map.
func (s *Service) activeMapView(ctx context.Context, campaignID string, mapID string) (*ActiveMapView, error) {
	if mapID == "" {
		return nil, nil
	}
	m, err := s.store.GetMap(ctx, campaignID, mapID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return mapView(m), nil
}

func lastActivityStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// viewFor projects state for one viewer. GMs always see live state; players
// see the freeze-time snapshot while frozen and never see foreign hidden
// tokens.
func (s *Service) viewFor(ctx context.Context, state gamestate.GameState, viewer token.Viewer) (StateView, error) {
	view := StateView{
		CampaignID:   state.CampaignID,
		GameData:     state.GameData,
		Freeze:       state.Freeze,
		LastActivity: lastActivityStamp(state.LastActivity),
		Revision:     state.Revision,
	}
	scene := gamestate.Snapshot{
		ActiveMapID: state.ActiveMapID,
		Tokens:      state.Tokens,
		Grid:        state.Grid,
	}
	if !viewer.GM {
		scene = state.PlayerSnapshot()
		scene.Tokens = token.FilterForViewer(scene.Tokens, viewer)
	}
	activeMap, err := s.activeMapView(ctx, state.CampaignID, scene.ActiveMapID)
	if err != nil {
		return StateView{}, err
	}
	view.ActiveMap = activeMap
	view.Tokens = scene.Tokens
	view.Grid = scene.Grid
	return view, nil
}

func viewerOf(grant access.Grant) token.Viewer {
	return token.Viewer{UserID: grant.UserID, GM: grant.IsGM()}
}

// LoadState returns the live state as the acting user is allowed to see it.
func (s *Service) LoadState(ctx context.Context, actorID string, campaignID string) (StateView, error) {
	grant, err := s.gate.Resolve(ctx, campaignID, actorID)
	if err != nil {
		return StateView{}, err
	}
	state, err := s.store.GetState(ctx, campaignID)
	if err != nil {
		return StateView{}, err
	}
	return s.viewFor(ctx, state, viewerOf(grant))
}

// ReplaceTokens swaps the campaign's token collection wholesale. GM only.
//
// When expectedRevision is positive the write is rejected with a revision
// conflict if the state moved on since the client loaded it; zero keeps the
// legacy last-writer-wins behavior.
func (s *Service) ReplaceTokens(ctx context.Context, actorID string, campaignID string, tokens []token.Token, expectedRevision int64) (int64, error) {
	if _, err := s.gate.RequireGM(ctx, campaignID, actorID); err != nil {
		return 0, err
	}

	normalized := make([]token.Token, len(tokens))
	for i, tok := range tokens {
		normalized[i] = token.Normalize(tok)
	}
	if err := token.ValidateList(normalized); err != nil {
		return 0, err
	}

	state, err := s.store.GetState(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if expectedRevision > 0 && expectedRevision != state.Revision {
		return 0, apperrors.New(apperrors.CodeRevisionConflict, "state changed since it was loaded")
	}

	state.Tokens = normalized
	state.Touch(s.now())
	revision, err := s.store.PutState(ctx, state, state.Revision)
	if err != nil {
		return 0, err
	}
	state.Revision = revision

	s.publishTokensUpdated(state)
	return revision, nil
}

// MoveToken updates one token's position. GMs can move any token; players
// only tokens they own that are movable and unlocked.
func (s *Service) MoveToken(ctx context.Context, actorID string, campaignID string, tokenID string, position token.Position) (int64, error) {
	grant, err := s.gate.Resolve(ctx, campaignID, actorID)
	if err != nil {
		return 0, err
	}

	state, err := s.store.GetState(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	idx := token.FindByID(state.Tokens, tokenID)
	if idx < 0 {
		return 0, apperrors.WithMetadata(apperrors.CodeNotFound, "token not found",
			map[string]string{"token_id": tokenID})
	}
	if !grant.IsGM() && !token.MovableBy(state.Tokens[idx], grant.UserID) {
		return 0, apperrors.WithMetadata(apperrors.CodeTokenNotMovable, "token cannot be moved by this user",
			map[string]string{"token_id": tokenID})
	}

	state.Tokens[idx].Position = position
	state.Touch(s.now())
	revision, err := s.store.PutState(ctx, state, state.Revision)
	if err != nil {
		return 0, err
	}
	state.Revision = revision

	s.publishTokensUpdated(state)
	return revision, nil
}

// ActivateMap makes one map the campaign's active scene. GM only. The map
// must exist; activation never falls back to another map.
func (s *Service) ActivateMap(ctx context.Context, actorID string, campaignID string, mapID string) error {
	if _, err := s.gate.RequireGM(ctx, campaignID, actorID); err != nil {
		return err
	}
	m, err := s.store.GetMap(ctx, campaignID, mapID)
	if err != nil {
		return err
	}
	if err := s.store.SetActiveMap(ctx, campaignID, mapID); err != nil {
		return err
	}

	state, err := s.store.GetState(ctx, campaignID)
	if err != nil {
		return err
	}
	state.ActiveMapID = mapID
	state.Touch(s.now())
	if _, err := s.store.PutState(ctx, state, state.Revision); err != nil {
		return err
	}

	frozen := state.Freeze.Frozen
	payload := map[string]any{"campaignId": campaignID, "map": mapView(m)}
	s.publish(Event{
		Type:       EventMapActivated,
		CampaignID: campaignID,
		PerViewer: func(viewer token.Viewer) any {
			// Players keep the freeze-time scene until the GM unfreezes.
			if frozen && !viewer.GM {
				return nil
			}
			return payload
		},
	})
	return nil
}

// Freeze engages the freeze gate, pinning the player view to the current
// scene. GM only.
func (s *Service) Freeze(ctx context.Context, actorID string, campaignID string) error {
	grant, err := s.gate.RequireGM(ctx, campaignID, actorID)
	if err != nil {
		return err
	}

	state, err := s.store.GetState(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := state.EngageFreeze(grant.UserID, s.now()); err != nil {
		return err
	}
	if _, err := s.store.PutState(ctx, state, state.Revision); err != nil {
		return err
	}

	s.publish(Event{
		Type:       EventFrozen,
		CampaignID: campaignID,
		Payload:    map[string]any{"campaignId": campaignID, "frozenBy": grant.UserID},
	})
	return nil
}

// Unfreeze releases the freeze gate and reconciles every viewer with the
// live state in a single event.
func (s *Service) Unfreeze(ctx context.Context, actorID string, campaignID string) error {
	if _, err := s.gate.RequireGM(ctx, campaignID, actorID); err != nil {
		return err
	}

	state, err := s.store.GetState(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := state.ReleaseFreeze(); err != nil {
		return err
	}
	state.Touch(s.now())
	revision, err := s.store.PutState(ctx, state, state.Revision)
	if err != nil {
		return err
	}
	state.Revision = revision

	// The gate is released, so every role reconciles against live state; the
	// active map is resolved once and tokens are filtered per recipient.
	activeMap, err := s.activeMapView(ctx, campaignID, state.ActiveMapID)
	if err != nil {
		return err
	}
	stamp := lastActivityStamp(state.LastActivity)
	s.publish(Event{
		Type:       EventUnfrozen,
		CampaignID: campaignID,
		PerViewer: func(viewer token.Viewer) any {
			return StateView{
				CampaignID:   campaignID,
				ActiveMap:    activeMap,
				Tokens:       token.FilterForViewer(state.Tokens, viewer),
				Grid:         state.Grid,
				GameData:     state.GameData,
				Freeze:       state.Freeze,
				LastActivity: stamp,
				Revision:     state.Revision,
			}
		},
	})
	return nil
}

// SetGameData replaces the GM-defined data blob. GM only. No realtime event
// is emitted; clients pick the blob up on their next state load.
func (s *Service) SetGameData(ctx context.Context, actorID string, campaignID string, data gamestate.GameData, expectedRevision int64) (int64, error) {
	if _, err := s.gate.RequireGM(ctx, campaignID, actorID); err != nil {
		return 0, err
	}

	state, err := s.store.GetState(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if expectedRevision > 0 && expectedRevision != state.Revision {
		return 0, apperrors.New(apperrors.CodeRevisionConflict, "state changed since it was loaded")
	}

	state.GameData = data
	state.Touch(s.now())
	return s.store.PutState(ctx, state, state.Revision)
}

// UpdateGrid replaces the grid configuration. GM only. Like game data, grid
// changes surface on the next state load rather than as a realtime event.
func (s *Service) UpdateGrid(ctx context.Context, actorID string, campaignID string, grid gamestate.GridConfig, expectedRevision int64) (int64, error) {
	if _, err := s.gate.RequireGM(ctx, campaignID, actorID); err != nil {
		return 0, err
	}
	if grid.CellSize <= 0 {
		return 0, apperrors.New(apperrors.CodeValidationFailed, "grid cell size must be positive")
	}
	if grid.LineOpacity < 0 || grid.LineOpacity > 1 {
		return 0, apperrors.New(apperrors.CodeValidationFailed, "grid line opacity must be between 0 and 1")
	}

	state, err := s.store.GetState(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if expectedRevision > 0 && expectedRevision != state.Revision {
		return 0, apperrors.New(apperrors.CodeRevisionConflict, "state changed since it was loaded")
	}

	state.Grid = grid
	state.Touch(s.now())
	return s.store.PutState(ctx, state, state.Revision)
}

// publishTokensUpdated fans out the token collection, shaped per viewer and
// suppressed for players while the campaign is frozen.
func (s *Service) publishTokensUpdated(state gamestate.GameState) {
	frozen := state.Freeze.Frozen
	s.publish(Event{
		Type:       EventTokensUpdated,
		CampaignID: state.CampaignID,
		PerViewer: func(viewer token.Viewer) any {
			if frozen && !viewer.GM {
				return nil
			}
			return map[string]any{
				"campaignId": state.CampaignID,
				"tokens":     token.FilterForViewer(state.Tokens, viewer),
				"revision":   state.Revision,
			}
		},
	})
}
