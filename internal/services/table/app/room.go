package app

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/greentable/vtt/internal/services/table/domain/token"
	"github.com/greentable/vtt/internal/services/table/service"
)

// wsPeer serializes frame writes to one connection. The json.Encoder is not
// safe for concurrent use.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// tableRoom is the set of peers watching one campaign. The viewer identity
// is cached at join time so fan-out never blocks on access checks.
type tableRoom struct {
	mu          sync.Mutex
	campaignID  string
	subscribers map[*wsPeer]token.Viewer
}

func newTableRoom(campaignID string) *tableRoom {
	return &tableRoom{
		campaignID:  campaignID,
		subscribers: make(map[*wsPeer]token.Viewer),
	}
}

func (r *tableRoom) join(peer *wsPeer, viewer token.Viewer) {
	r.mu.Lock()
	r.subscribers[peer] = viewer
	r.mu.Unlock()
}

func (r *tableRoom) leave(peer *wsPeer) bool {
	r.mu.Lock()
	delete(r.subscribers, peer)
	empty := len(r.subscribers) == 0
	r.mu.Unlock()
	return empty
}

// broadcast shapes the event per subscriber and writes the frames while
// holding the room lock, so every peer observes events in the same order.
func (r *tableRoom) broadcast(event service.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for peer, viewer := range r.subscribers {
		payload, ok := event.PayloadFor(viewer)
		if !ok {
			continue
		}
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("table: marshal %s payload: %v", event.Type, err)
			continue
		}
		_ = peer.writeFrame(wsFrame{Type: event.Type, Payload: data})
	}
}

// roomHub indexes rooms by campaign and doubles as the service broadcaster.
type roomHub struct {
	mu    sync.Mutex
	rooms map[string]*tableRoom
}

func newRoomHub() *roomHub {
	return &roomHub{rooms: make(map[string]*tableRoom)}
}

func (h *roomHub) room(campaignID string) *tableRoom {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[campaignID]
	if ok {
		return room
	}
	room = newTableRoom(campaignID)
	h.rooms[campaignID] = room
	return room
}

// Publish implements service.Broadcaster.
func (h *roomHub) Publish(event service.Event) {
	h.room(event.CampaignID).broadcast(event)
}
