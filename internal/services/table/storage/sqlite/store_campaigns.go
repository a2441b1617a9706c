package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/greentable/vtt/internal/services/table/storage"
)

// PutCampaign inserts or updates a campaign record.
func (s *Store) PutCampaign(ctx context.Context, campaign storage.Campaign) error {
	campaign.ID = strings.TrimSpace(campaign.ID)
	campaign.Name = strings.TrimSpace(campaign.Name)
	campaign.OwnerID = strings.TrimSpace(campaign.OwnerID)
	if campaign.ID == "" {
		return fmt.Errorf("campaign id is required")
	}
	if campaign.Name == "" {
		return fmt.Errorf("campaign name is required")
	}
	if campaign.OwnerID == "" {
		return fmt.Errorf("campaign owner is required")
	}

	now := time.Now().UTC()
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}
	if campaign.UpdatedAt.IsZero() {
		campaign.UpdatedAt = campaign.CreatedAt
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO campaigns (id, name, owner_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	owner_id = excluded.owner_id,
	updated_at = excluded.updated_at
`,
		campaign.ID,
		campaign.Name,
		campaign.OwnerID,
		toMillis(campaign.CreatedAt),
		toMillis(campaign.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put campaign: %w", err)
	}
	return nil
}

// GetCampaign fetches a campaign by id.
func (s *Store) GetCampaign(ctx context.Context, campaignID string) (storage.Campaign, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, owner_id, created_at, updated_at
FROM campaigns
WHERE id = ?
`, campaignID)

	var campaign storage.Campaign
	var createdAt int64
	var updatedAt int64
	if err := row.Scan(&campaign.ID, &campaign.Name, &campaign.OwnerID, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return storage.Campaign{}, storage.ErrNotFound
		}
		return storage.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	campaign.CreatedAt = fromMillis(createdAt)
	campaign.UpdatedAt = fromMillis(updatedAt)
	return campaign, nil
}

// CampaignOwner returns the owner id of a campaign.
func (s *Store) CampaignOwner(ctx context.Context, campaignID string) (string, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT owner_id FROM campaigns WHERE id = ?`, campaignID)

	var ownerID string
	if err := row.Scan(&ownerID); err != nil {
		if err == sql.ErrNoRows {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get campaign owner: %w", err)
	}
	return ownerID, nil
}

// AddMember records a user as a campaign member. Adding an existing member
// is a no-op.
func (s *Store) AddMember(ctx context.Context, member storage.Member) error {
	member.CampaignID = strings.TrimSpace(member.CampaignID)
	member.UserID = strings.TrimSpace(member.UserID)
	if member.CampaignID == "" || member.UserID == "" {
		return fmt.Errorf("campaign id and user id are required")
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO campaign_members (campaign_id, user_id, joined_at)
VALUES (?, ?, ?)
ON CONFLICT(campaign_id, user_id) DO NOTHING
`,
		member.CampaignID,
		member.UserID,
		toMillis(member.JoinedAt),
	)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// RemoveMember drops a user's membership.
func (s *Store) RemoveMember(ctx context.Context, campaignID string, userID string) error {
	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM campaign_members WHERE campaign_id = ? AND user_id = ?
`, campaignID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove member rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// IsMember reports whether a user is a member of a campaign.
func (s *Store) IsMember(ctx context.Context, campaignID string, userID string) (bool, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT 1 FROM campaign_members WHERE campaign_id = ? AND user_id = ?
`, campaignID, userID)

	var found int
	if err := row.Scan(&found); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

// ListMembers returns campaign members ordered by join time.
func (s *Store) ListMembers(ctx context.Context, campaignID string) ([]storage.Member, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT campaign_id, user_id, joined_at
FROM campaign_members
WHERE campaign_id = ?
ORDER BY joined_at, user_id
`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []storage.Member
	for rows.Next() {
		var member storage.Member
		var joinedAt int64
		if err := rows.Scan(&member.CampaignID, &member.UserID, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		member.JoinedAt = fromMillis(joinedAt)
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}
