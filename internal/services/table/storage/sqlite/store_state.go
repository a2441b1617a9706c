package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/greentable/vtt/internal/services/table/domain/gamestate"
	"github.com/greentable/vtt/internal/services/table/domain/token"
	"github.com/greentable/vtt/internal/services/table/storage"
)

// GetState loads a campaign's live state. A campaign without a state row
// reads as the empty initial state at revision zero.
func (s *Store) GetState(ctx context.Context, campaignID string) (gamestate.GameState, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT active_map_id, tokens_json, game_data_json, game_data_schema_version,
	grid_json, frozen, frozen_by, frozen_at, frozen_view_json, revision, last_activity
FROM game_states
WHERE campaign_id = ?
`, campaignID)

	var (
		activeMapID   string
		tokensJSON    string
		gameDataJSON  sql.NullString
		schemaVersion int
		gridJSON      string
		frozen        int
		frozenBy      string
		frozenAt      sql.NullInt64
		frozenView    sql.NullString
		revision      int64
		lastActivity  int64
	)
	err := row.Scan(&activeMapID, &tokensJSON, &gameDataJSON, &schemaVersion,
		&gridJSON, &frozen, &frozenBy, &frozenAt, &frozenView, &revision, &lastActivity)
	if err != nil {
		if err == sql.ErrNoRows {
			return gamestate.New(campaignID), nil
		}
		return gamestate.GameState{}, fmt.Errorf("get state: %w", err)
	}

	state := gamestate.GameState{
		CampaignID:  campaignID,
		ActiveMapID: activeMapID,
		Revision:    revision,
	}

	state.Tokens, err = token.DecodeList([]byte(tokensJSON))
	if err != nil {
		return gamestate.GameState{}, fmt.Errorf("decode stored tokens: %w", err)
	}

	if gameDataJSON.Valid {
		state.GameData = gamestate.GameData{
			SchemaVersion: schemaVersion,
			Raw:           json.RawMessage(gameDataJSON.String),
		}
	}

	if strings.TrimSpace(gridJSON) == "" || gridJSON == "{}" {
		state.Grid = gamestate.DefaultGridConfig()
	} else if err := json.Unmarshal([]byte(gridJSON), &state.Grid); err != nil {
		return gamestate.GameState{}, fmt.Errorf("decode stored grid: %w", err)
	}

	state.Freeze.Frozen = frozen != 0
	state.Freeze.FrozenBy = frozenBy
	if frozenAt.Valid {
		value := fromMillis(frozenAt.Int64)
		state.Freeze.FrozenAt = &value
	}
	if frozenView.Valid {
		var snapshot gamestate.Snapshot
		if err := json.Unmarshal([]byte(frozenView.String), &snapshot); err != nil {
			return gamestate.GameState{}, fmt.Errorf("decode frozen view: %w", err)
		}
		state.FrozenView = &snapshot
	}
	if lastActivity > 0 {
		state.LastActivity = fromMillis(lastActivity)
	}
	return state, nil
}

// PutState writes a campaign's live state with a compare-and-set on the
// revision. On success the stored revision becomes expectedRevision+1 and is
// returned. A negative expectedRevision skips the check and overwrites.
func (s *Store) PutState(ctx context.Context, state gamestate.GameState, expectedRevision int64) (int64, error) {
	state.CampaignID = strings.TrimSpace(state.CampaignID)
	if state.CampaignID == "" {
		return 0, fmt.Errorf("campaign id is required")
	}

	tokensJSON, err := token.EncodeList(state.Tokens)
	if err != nil {
		return 0, fmt.Errorf("encode tokens: %w", err)
	}
	gridJSON, err := json.Marshal(state.Grid)
	if err != nil {
		return 0, fmt.Errorf("encode grid: %w", err)
	}
	var gameDataJSON sql.NullString
	if len(state.GameData.Raw) > 0 {
		gameDataJSON = sql.NullString{String: string(state.GameData.Raw), Valid: true}
	}
	var frozenView sql.NullString
	if state.FrozenView != nil {
		data, err := json.Marshal(state.FrozenView)
		if err != nil {
			return 0, fmt.Errorf("encode frozen view: %w", err)
		}
		frozenView = sql.NullString{String: string(data), Valid: true}
	}
	var frozenAt sql.NullInt64
	if state.Freeze.FrozenAt != nil {
		frozenAt = sql.NullInt64{Int64: toMillis(*state.Freeze.FrozenAt), Valid: true}
	}
	frozen := 0
	if state.Freeze.Frozen {
		frozen = 1
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin put state: %w", err)
	}

	var current int64
	err = tx.QueryRowContext(ctx,
		`SELECT revision FROM game_states WHERE campaign_id = ?`,
		state.CampaignID,
	).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		_ = tx.Rollback()
		return 0, fmt.Errorf("read current revision: %w", err)
	}

	if expectedRevision >= 0 && current != expectedRevision {
		_ = tx.Rollback()
		return 0, storage.ErrRevisionConflict
	}

	next := current + 1
	_, err = tx.ExecContext(ctx, `
INSERT INTO game_states (
	campaign_id, active_map_id, tokens_json, game_data_json, game_data_schema_version,
	grid_json, frozen, frozen_by, frozen_at, frozen_view_json, revision, last_activity
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(campaign_id) DO UPDATE SET
	active_map_id = excluded.active_map_id,
	tokens_json = excluded.tokens_json,
	game_data_json = excluded.game_data_json,
	game_data_schema_version = excluded.game_data_schema_version,
	grid_json = excluded.grid_json,
	frozen = excluded.frozen,
	frozen_by = excluded.frozen_by,
	frozen_at = excluded.frozen_at,
	frozen_view_json = excluded.frozen_view_json,
	revision = excluded.revision,
	last_activity = excluded.last_activity
`,
		state.CampaignID,
		state.ActiveMapID,
		string(tokensJSON),
		gameDataJSON,
		state.GameData.SchemaVersion,
		string(gridJSON),
		frozen,
		state.Freeze.FrozenBy,
		frozenAt,
		frozenView,
		next,
		toMillis(state.LastActivity),
	)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("put state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit put state: %w", err)
	}
	return next, nil
}
