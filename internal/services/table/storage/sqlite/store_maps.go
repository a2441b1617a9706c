package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/greentable/vtt/internal/services/table/domain/gamemap"
	"github.com/greentable/vtt/internal/services/table/storage"
)

// PutMap inserts or updates a map record. Activation does not travel through
// this path; use SetActiveMap so exclusivity is preserved.
func (s *Store) PutMap(ctx context.Context, m gamemap.Map) error {
	m.ID = strings.TrimSpace(m.ID)
	m.CampaignID = strings.TrimSpace(m.CampaignID)
	if m.ID == "" {
		return fmt.Errorf("map id is required")
	}
	if m.CampaignID == "" {
		return fmt.Errorf("campaign id is required")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	var settings sql.NullString
	if len(m.Settings) > 0 {
		settings = sql.NullString{String: string(m.Settings), Valid: true}
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO maps (id, campaign_id, name, image_url, grid_size, settings_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	image_url = excluded.image_url,
	grid_size = excluded.grid_size,
	settings_json = excluded.settings_json
`,
		m.ID,
		m.CampaignID,
		m.Name,
		m.ImageURL,
		m.GridSize,
		settings,
		toMillis(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put map: %w", err)
	}
	return nil
}

// GetMap fetches a map scoped to its campaign.
func (s *Store) GetMap(ctx context.Context, campaignID string, mapID string) (gamemap.Map, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, campaign_id, name, image_url, active, grid_size, settings_json, created_at
FROM maps
WHERE campaign_id = ? AND id = ?
`, campaignID, mapID)

	m, err := scanMap(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return gamemap.Map{}, storage.ErrNotFound
		}
		return gamemap.Map{}, fmt.Errorf("get map: %w", err)
	}
	return m, nil
}

// ListMaps returns a campaign's maps in creation order.
func (s *Store) ListMaps(ctx context.Context, campaignID string) ([]gamemap.Map, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, campaign_id, name, image_url, active, grid_size, settings_json, created_at
FROM maps
WHERE campaign_id = ?
ORDER BY created_at, id
`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	defer rows.Close()

	var maps []gamemap.Map
	for rows.Next() {
		m, err := scanMap(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan map: %w", err)
		}
		maps = append(maps, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate maps: %w", err)
	}
	return maps, nil
}

// SetActiveMap activates one map and deactivates every other map of the
// campaign inside a single transaction.
func (s *Store) SetActiveMap(ctx context.Context, campaignID string, mapID string) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate map: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
UPDATE maps SET active = 1 WHERE campaign_id = ? AND id = ?
`, campaignID, mapID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("activate map: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("activate map rows affected: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return storage.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE maps SET active = 0 WHERE campaign_id = ? AND id <> ?
`, campaignID, mapID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("deactivate other maps: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activate map: %w", err)
	}
	return nil
}

// DeleteMap removes a map.
func (s *Store) DeleteMap(ctx context.Context, campaignID string, mapID string) error {
	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM maps WHERE campaign_id = ? AND id = ?
`, campaignID, mapID)
	if err != nil {
		return fmt.Errorf("delete map: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete map rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanMap(scan func(dest ...any) error) (gamemap.Map, error) {
	var m gamemap.Map
	var active int
	var settings sql.NullString
	var createdAt int64
	if err := scan(&m.ID, &m.CampaignID, &m.Name, &m.ImageURL, &active, &m.GridSize, &settings, &createdAt); err != nil {
		return gamemap.Map{}, err
	}
	m.Active = active != 0
	if settings.Valid {
		m.Settings = json.RawMessage(settings.String)
	}
	m.CreatedAt = fromMillis(createdAt)
	return m, nil
}
