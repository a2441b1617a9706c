package service

import (
	"github.com/greentable/vtt/internal/services/table/domain/token"
)

// Event types delivered over the realtime channel.
const (
	EventTokensUpdated = "tokens:updated"
	EventMapActivated  = "map:activated"
	EventFrozen        = "state:frozen"
	EventUnfrozen      = "state:unfrozen"
	EventChatMessage   = "chat:message"
	EventDiceRoll      = "dice:roll"
)

// Event is a fan-out unit addressed to every viewer of a campaign.
//
// When PerViewer is set it shapes the payload for each recipient; returning
// nil drops the event for that recipient. Otherwise Payload is delivered
// as-is to everyone.
type Event struct {
	Type       string
	CampaignID string
	Payload    any
	PerViewer  func(viewer token.Viewer) any
}

// PayloadFor resolves the payload a specific viewer should receive. The
// second return is false when the viewer must not receive the event.
func (e Event) PayloadFor(viewer token.Viewer) (any, bool) {
	if e.PerViewer == nil {
		return e.Payload, true
	}
	payload := e.PerViewer(viewer)
	if payload == nil {
		return nil, false
	}
	return payload, true
}

// Broadcaster delivers events to the connected viewers of a campaign.
type Broadcaster interface {
	Publish(event Event)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(Event) {}
