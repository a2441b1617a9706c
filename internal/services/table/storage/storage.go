package storage

import (
	"context"
	"time"

	"github.com/greentable/vtt/internal/platform/errors"
	"github.com/greentable/vtt/internal/services/table/domain/chat"
	"github.com/greentable/vtt/internal/services/table/domain/gamemap"
	"github.com/greentable/vtt/internal/services/table/domain/gamestate"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// ErrRevisionConflict indicates a compare-and-set write lost against a
// concurrent writer.
var ErrRevisionConflict = errors.New(errors.CodeRevisionConflict, "state revision conflict")

// Campaign is a persisted campaign record.
type Campaign struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member ties a user to a campaign.
type Member struct {
	CampaignID string
	UserID     string
	JoinedAt   time.Time
}

// CampaignStore persists campaigns and their membership.
type CampaignStore interface {
	PutCampaign(ctx context.Context, campaign Campaign) error
	GetCampaign(ctx context.Context, campaignID string) (Campaign, error)
	CampaignOwner(ctx context.Context, campaignID string) (string, error)
	AddMember(ctx context.Context, member Member) error
	RemoveMember(ctx context.Context, campaignID string, userID string) error
	IsMember(ctx context.Context, campaignID string, userID string) (bool, error)
	ListMembers(ctx context.Context, campaignID string) ([]Member, error)
}

// MapStore persists campaign maps.
//
// SetActiveMap must be exclusive: activating one map deactivates every other
// map of the campaign in the same transaction.
type MapStore interface {
	PutMap(ctx context.Context, m gamemap.Map) error
	GetMap(ctx context.Context, campaignID string, mapID string) (gamemap.Map, error)
	ListMaps(ctx context.Context, campaignID string) ([]gamemap.Map, error)
	SetActiveMap(ctx context.Context, campaignID string, mapID string) error
	DeleteMap(ctx context.Context, campaignID string, mapID string) error
}

// StateStore persists the one-to-one live state of a campaign.
//
// PutState performs a compare-and-set on the revision: the write succeeds
// only when the stored revision still equals expectedRevision, and the new
// revision is returned. A negative expectedRevision skips the check. A
// campaign without a state row reads as the empty initial state.
type StateStore interface {
	GetState(ctx context.Context, campaignID string) (gamestate.GameState, error)
	PutState(ctx context.Context, state gamestate.GameState, expectedRevision int64) (int64, error)
}

// ChatStore persists the append-only message log. AppendMessage assigns the
// next per-campaign sequence number and returns the stored message.
type ChatStore interface {
	AppendMessage(ctx context.Context, msg chat.Message) (chat.Message, error)
	ListMessages(ctx context.Context, campaignID string, afterSeq int64, limit int) ([]chat.Message, error)
}

// Store is the full persistence surface the table service depends on.
type Store interface {
	CampaignStore
	MapStore
	StateStore
	ChatStore
}
