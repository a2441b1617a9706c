// Package access resolves what a user may do inside a campaign. It is the
// single authorization seam: every state-mutating or state-revealing
// operation resolves a grant here first.
package access

import (
	"context"
	"strings"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
)

// Role is the resolved standing of a user inside a campaign.
type Role int

const (
	// RoleNone means the user has no access to the campaign.
	RoleNone Role = iota
	// RoleGM is the campaign owner with full authority.
	RoleGM
	// RolePlayer is a campaign member with filtered visibility.
	RolePlayer
)

func (r Role) String() string {
	switch r {
	case RoleGM:
		return "gm"
	case RolePlayer:
		return "player"
	default:
		return "none"
	}
}

// Directory answers campaign ownership and membership questions. The missing
// campaign case must surface as an error carrying the NOT_FOUND code.
type Directory interface {
	CampaignOwner(ctx context.Context, campaignID string) (string, error)
	IsMember(ctx context.Context, campaignID string, userID string) (bool, error)
}

// Grant is a resolved authorization for one user in one campaign.
type Grant struct {
	CampaignID string
	UserID     string
	Role       Role
}

// IsGM reports whether the grant carries GM authority.
func (g Grant) IsGM() bool { return g.Role == RoleGM }

// Viewer reports whether the grant allows reading campaign state at all.
func (g Grant) Viewer() bool { return g.Role == RoleGM || g.Role == RolePlayer }

// Gate resolves grants against a campaign directory.
type Gate struct {
	directory Directory
}

// NewGate creates a gate over the provided directory.
func NewGate(directory Directory) *Gate {
	return &Gate{directory: directory}
}

// Resolve returns the user's grant for a campaign.
//
// A missing campaign propagates as NOT_FOUND; a user who is neither the owner
// nor a member yields ACCESS_DENIED. Both are terminal for the request.
func (g *Gate) Resolve(ctx context.Context, campaignID string, userID string) (Grant, error) {
	campaignID = strings.TrimSpace(campaignID)
	userID = strings.TrimSpace(userID)
	if campaignID == "" {
		return Grant{}, apperrors.New(apperrors.CodeValidationFailed, "campaign id is required")
	}
	if userID == "" {
		return Grant{}, apperrors.New(apperrors.CodeUnauthenticated, "user identity is required")
	}

	owner, err := g.directory.CampaignOwner(ctx, campaignID)
	if err != nil {
		return Grant{}, err
	}
	if owner == userID {
		return Grant{CampaignID: campaignID, UserID: userID, Role: RoleGM}, nil
	}

	member, err := g.directory.IsMember(ctx, campaignID, userID)
	if err != nil {
		return Grant{}, err
	}
	if member {
		return Grant{CampaignID: campaignID, UserID: userID, Role: RolePlayer}, nil
	}

	return Grant{}, apperrors.WithMetadata(apperrors.CodeAccessDenied,
		"user is not a participant of this campaign",
		map[string]string{"campaign_id": campaignID})
}

// RequireGM resolves the grant and rejects anything but GM authority.
func (g *Gate) RequireGM(ctx context.Context, campaignID string, userID string) (Grant, error) {
	grant, err := g.Resolve(ctx, campaignID, userID)
	if err != nil {
		return Grant{}, err
	}
	if !grant.IsGM() {
		return Grant{}, apperrors.WithMetadata(apperrors.CodeAccessDenied,
			"gm authority is required",
			map[string]string{"campaign_id": campaignID})
	}
	return grant, nil
}
