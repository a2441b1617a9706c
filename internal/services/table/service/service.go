// Package service orchestrates table operations: it resolves access, applies
// domain rules, persists through storage, and fans results out to connected
// clients.
package service

import (
	"time"

	"github.com/greentable/vtt/internal/platform/id"
	"github.com/greentable/vtt/internal/services/table/domain/access"
	"github.com/greentable/vtt/internal/services/table/domain/dice"
	"github.com/greentable/vtt/internal/services/table/storage"
)

// Service implements the table operations over a store and a broadcaster.
type Service struct {
	store       storage.Store
	gate        *access.Gate
	broadcaster Broadcaster

	now   func() time.Time
	newID func() string
	roll  dice.Roller
}

// New creates a service over the given store and broadcaster. A nil
// broadcaster disables fan-out, which is useful for batch tooling.
func New(store storage.Store, broadcaster Broadcaster) *Service {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	return &Service{
		store:       store,
		gate:        access.NewGate(store),
		broadcaster: broadcaster,
		now:         time.Now,
		newID:       id.MustNewID,
		roll:        dice.NewSeededRoller(time.Now().UnixNano()),
	}
}

// Gate exposes the access gate so transports can resolve grants at
// connection time.
func (s *Service) Gate() *access.Gate {
	return s.gate
}

func (s *Service) publish(event Event) {
	s.broadcaster.Publish(event)
}
