package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/greentable/vtt/internal/services/table/domain/chat"
	"github.com/greentable/vtt/internal/services/table/domain/dice"
)

// PostMessage appends a chat message and fans it out. Any viewer may post.
// Chat is independent of the freeze gate, so messages keep flowing while the
// map is frozen.
func (s *Service) PostMessage(ctx context.Context, actorID string, campaignID string, body string) (chat.Message, error) {
	grant, err := s.gate.Resolve(ctx, campaignID, actorID)
	if err != nil {
		return chat.Message{}, err
	}

	msg := chat.Message{
		ID:         s.newID(),
		CampaignID: campaignID,
		AuthorID:   grant.UserID,
		Body:       body,
		Kind:       chat.KindChat,
		CreatedAt:  s.now().UTC(),
	}
	if err := msg.Validate(); err != nil {
		return chat.Message{}, err
	}

	stored, err := s.store.AppendMessage(ctx, msg)
	if err != nil {
		return chat.Message{}, err
	}

	s.publish(Event{
		Type:       EventChatMessage,
		CampaignID: campaignID,
		Payload:    stored,
	})
	return stored, nil
}

// Roll evaluates a dice expression, records the result as a ROLL message,
// and fans it out. Any viewer may roll.
func (s *Service) Roll(ctx context.Context, actorID string, campaignID string, expression string) (dice.Result, chat.Message, error) {
	grant, err := s.gate.Resolve(ctx, campaignID, actorID)
	if err != nil {
		return dice.Result{}, chat.Message{}, err
	}

	result, err := dice.Evaluate(expression, s.roll)
	if err != nil {
		return dice.Result{}, chat.Message{}, err
	}

	metadata, err := json.Marshal(result)
	if err != nil {
		return dice.Result{}, chat.Message{}, fmt.Errorf("encode roll result: %w", err)
	}
	msg := chat.Message{
		ID:         s.newID(),
		CampaignID: campaignID,
		AuthorID:   grant.UserID,
		Body:       fmt.Sprintf("rolled %s = %d", result.Expression, result.Total),
		Kind:       chat.KindRoll,
		Metadata:   metadata,
		CreatedAt:  s.now().UTC(),
	}
	stored, err := s.store.AppendMessage(ctx, msg)
	if err != nil {
		return dice.Result{}, chat.Message{}, err
	}

	s.publish(Event{
		Type:       EventDiceRoll,
		CampaignID: campaignID,
		Payload:    stored,
	})
	return result, stored, nil
}

// PostSystemMessage appends a server-generated announcement. It bypasses the
// gate because the server itself is the author.
func (s *Service) PostSystemMessage(ctx context.Context, campaignID string, body string) (chat.Message, error) {
	msg := chat.Message{
		ID:         s.newID(),
		CampaignID: campaignID,
		Body:       body,
		Kind:       chat.KindSystem,
		CreatedAt:  s.now().UTC(),
	}
	stored, err := s.store.AppendMessage(ctx, msg)
	if err != nil {
		return chat.Message{}, err
	}
	s.publish(Event{
		Type:       EventChatMessage,
		CampaignID: campaignID,
		Payload:    stored,
	})
	return stored, nil
}

// ChatHistory returns messages after the given sequence number in order.
func (s *Service) ChatHistory(ctx context.Context, actorID string, campaignID string, afterSeq int64, limit int) ([]chat.Message, error) {
	if _, err := s.gate.Resolve(ctx, campaignID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, campaignID, afterSeq, limit)
}
