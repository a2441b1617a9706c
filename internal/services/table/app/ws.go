package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
	"github.com/greentable/vtt/internal/services/table/domain/token"
	"github.com/greentable/vtt/internal/services/table/service"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3
)

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type joinPayload struct {
	CampaignID string `json:"campaign_id"`
}

type joinedPayload struct {
	CampaignID string            `json:"campaign_id"`
	Role       string            `json:"role"`
	State      service.StateView `json:"state"`
	ServerTime string            `json:"server_time"`
}

type wsSendPayload struct {
	Body string `json:"body"`
}

type wsRollPayload struct {
	Expression string `json:"expression"`
}

// wsSession tracks which room a connection has joined.
type wsSession struct {
	mu     sync.Mutex
	userID string
	peer   *wsPeer
	room   *tableRoom
}

func newWSSession(userID string, peer *wsPeer) *wsSession {
	return &wsSession{userID: userID, peer: peer}
}

func (s *wsSession) setRoom(next *tableRoom) *tableRoom {
	s.mu.Lock()
	previous := s.room
	s.room = next
	s.mu.Unlock()
	return previous
}

func (s *wsSession) currentRoom() *tableRoom {
	s.mu.Lock()
	room := s.room
	s.mu.Unlock()
	return room
}

type wsUserIDContextKey struct{}

func handleWSConn(conn *websocket.Conn, hub *roomHub, svc *service.Service) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	peer := newWSPeer(json.NewEncoder(conn))

	userID := ""
	ctx := context.Background()
	if request := conn.Request(); request != nil {
		ctx = request.Context()
		if resolved, ok := ctx.Value(wsUserIDContextKey{}).(string); ok {
			userID = strings.TrimSpace(resolved)
		}
	}
	if userID == "" {
		_ = writeWSError(peer, "", apperrors.CodeUnauthenticated, "authentication required")
		return
	}

	session := newWSSession(userID, peer)
	defer func() {
		if room := session.currentRoom(); room != nil {
			room.leave(session.peer)
		}
	}()

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(session.peer, "", apperrors.CodeValidationFailed, "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(session.peer, frame.RequestID, apperrors.CodeValidationFailed, "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeWSError(session.peer, frame.RequestID, apperrors.CodeValidationFailed, "rate limit exceeded")
			return
		}

		switch frame.Type {
		case "table.join":
			handleJoinFrame(ctx, session, hub, svc, frame)
		case "chat.send":
			handleChatSendFrame(ctx, session, svc, frame)
		case "dice.roll":
			handleDiceRollFrame(ctx, session, svc, frame)
		default:
			_ = writeWSError(session.peer, frame.RequestID, apperrors.CodeValidationFailed, "unsupported frame type")
		}
	}
}

func handleJoinFrame(ctx context.Context, session *wsSession, hub *roomHub, svc *service.Service, frame wsFrame) {
	var payload joinPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.CodeValidationFailed, "invalid join payload")
		return
	}
	campaignID := strings.TrimSpace(payload.CampaignID)
	if campaignID == "" {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.CodeValidationFailed, "campaign_id is required")
		return
	}

	grant, err := svc.Gate().Resolve(ctx, campaignID, session.userID)
	if err != nil {
		log.Printf("table: websocket join rejected user=%q campaign=%q err=%v", session.userID, campaignID, err)
		writeWSDomainError(session.peer, frame.RequestID, err)
		return
	}

	view, err := svc.LoadState(ctx, session.userID, campaignID)
	if err != nil {
		writeWSDomainError(session.peer, frame.RequestID, err)
		return
	}

	room := hub.room(campaignID)
	previous := session.setRoom(room)
	if previous != nil && previous != room {
		previous.leave(session.peer)
	}
	room.join(session.peer, token.Viewer{UserID: grant.UserID, GM: grant.IsGM()})

	_ = session.peer.writeFrame(wsFrame{
		Type:      "table.joined",
		RequestID: frame.RequestID,
		Payload: mustJSON(joinedPayload{
			CampaignID: campaignID,
			Role:       grant.Role.String(),
			State:      view,
			ServerTime: time.Now().UTC().Format(time.RFC3339),
		}),
	})
}

func handleChatSendFrame(ctx context.Context, session *wsSession, svc *service.Service, frame wsFrame) {
	room := session.currentRoom()
	if room == nil {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.CodeAccessDenied, "must join a table before sending")
		return
	}

	var payload wsSendPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.CodeValidationFailed, "invalid send payload")
		return
	}

	// The service fans the message out to the room, including this peer.
	if _, err := svc.PostMessage(ctx, session.userID, room.campaignID, payload.Body); err != nil {
		writeWSDomainError(session.peer, frame.RequestID, err)
	}
}

func handleDiceRollFrame(ctx context.Context, session *wsSession, svc *service.Service, frame wsFrame) {
	room := session.currentRoom()
	if room == nil {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.CodeAccessDenied, "must join a table before rolling")
		return
	}

	var payload wsRollPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, apperrors.CodeValidationFailed, "invalid roll payload")
		return
	}

	if _, _, err := svc.Roll(ctx, session.userID, room.campaignID, payload.Expression); err != nil {
		writeWSDomainError(session.peer, frame.RequestID, err)
	}
}

func writeWSDomainError(peer *wsPeer, requestID string, err error) {
	code := apperrors.CodeOf(err)
	message := "operation failed"
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}
	_ = writeWSError(peer, requestID, code, message)
}

func writeWSError(peer *wsPeer, requestID string, code apperrors.Code, message string) error {
	return peer.writeFrame(wsFrame{
		Type:      "table.error",
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:    string(code),
				Message: message,
			},
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
