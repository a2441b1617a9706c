package service

import (
	"context"
	"strings"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
	"github.com/greentable/vtt/internal/services/table/domain/gamemap"
	"github.com/greentable/vtt/internal/services/table/storage"
)

// CreateCampaign creates a campaign owned by the acting user.
func (s *Service) CreateCampaign(ctx context.Context, ownerID string, name string) (storage.Campaign, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return storage.Campaign{}, apperrors.New(apperrors.CodeUnauthenticated, "user identity is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.Campaign{}, apperrors.New(apperrors.CodeCampaignNameEmpty, "campaign name is required")
	}

	now := s.now().UTC()
	campaign := storage.Campaign{
		ID:        s.newID(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutCampaign(ctx, campaign); err != nil {
		return storage.Campaign{}, err
	}
	return campaign, nil
}

// GetCampaign returns a campaign to any of its viewers.
func (s *Service) GetCampaign(ctx context.Context, actorID string, campaignID string) (storage.Campaign, error) {
	if _, err := s.gate.Resolve(ctx, campaignID, actorID); err != nil {
		return storage.Campaign{}, err
	}
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return storage.Campaign{}, err
	}
	return campaign, nil
}

// AddMember grants a user membership. GM only. The owner already holds full
// authority and cannot also be a member.
func (s *Service) AddMember(ctx context.Context, actorID string, campaignID string, userID string) error {
	grant, err := s.gate.RequireGM(ctx, campaignID, actorID)
	if err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperrors.New(apperrors.CodeValidationFailed, "user id is required")
	}
	if userID == grant.UserID {
		return apperrors.New(apperrors.CodeMemberIsOwner, "campaign owner cannot be added as a member")
	}

	member := storage.Member{
		CampaignID: campaignID,
		UserID:     userID,
		JoinedAt:   s.now().UTC(),
	}
	if err := s.store.AddMember(ctx, member); err != nil {
		return err
	}
	return nil
}

// RemoveMember revokes a user's membership. GM only.
func (s *Service) RemoveMember(ctx context.Context, actorID string, campaignID string, userID string) error {
	grant, err := s.gate.RequireGM(ctx, campaignID, actorID)
	if err != nil {
		return err
	}
	if userID == grant.UserID {
		return apperrors.New(apperrors.CodeMemberIsOwner, "campaign owner cannot be removed")
	}
	return s.store.RemoveMember(ctx, campaignID, userID)
}

// ListMembers returns campaign members to any viewer.
func (s *Service) ListMembers(ctx context.Context, actorID string, campaignID string) ([]storage.Member, error) {
	if _, err := s.gate.Resolve(ctx, campaignID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, campaignID)
}

// CreateMap stages a new map for the campaign. GM only. New maps start
// inactive; activation is a separate explicit step.
func (s *Service) CreateMap(ctx context.Context, actorID string, campaignID string, m gamemap.Map) (gamemap.Map, error) {
	if _, err := s.gate.RequireGM(ctx, campaignID, actorID); err != nil {
		return gamemap.Map{}, err
	}

	m = gamemap.Normalize(m)
	if err := m.Validate(); err != nil {
		return gamemap.Map{}, err
	}
	m.ID = s.newID()
	m.CampaignID = campaignID
	m.Active = false
	m.CreatedAt = s.now().UTC()

	if err := s.store.PutMap(ctx, m); err != nil {
		return gamemap.Map{}, err
	}
	return m, nil
}

// ListMaps returns a campaign's maps to any viewer.
func (s *Service) ListMaps(ctx context.Context, actorID string, campaignID string) ([]gamemap.Map, error) {
	if _, err := s.gate.Resolve(ctx, campaignID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListMaps(ctx, campaignID)
}

// DeleteMap removes a map. GM only. Deleting the active map leaves the
// campaign with no active map, and clients fall back to the staging view.
func (s *Service) DeleteMap(ctx context.Context, actorID string, campaignID string, mapID string) error {
	if _, err := s.gate.RequireGM(ctx, campaignID, actorID); err != nil {
		return err
	}
	if err := s.store.DeleteMap(ctx, campaignID, mapID); err != nil {
		return err
	}

	state, err := s.store.GetState(ctx, campaignID)
	if err != nil {
		return err
	}
	if state.ActiveMapID != mapID {
		return nil
	}
	state.ActiveMapID = ""
	state.Touch(s.now())
	if _, err := s.store.PutState(ctx, state, state.Revision); err != nil {
		return err
	}
	return nil
}
