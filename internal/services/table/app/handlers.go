package app

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/greentable/vtt/internal/platform/errors"
	"github.com/greentable/vtt/internal/services/table/domain/gamemap"
	"github.com/greentable/vtt/internal/services/table/domain/gamestate"
	"github.com/greentable/vtt/internal/services/table/domain/token"
	"github.com/greentable/vtt/internal/services/table/service"
)

type handlers struct {
	svc      *service.Service
	sessions *SessionCodec
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// withUser authenticates the request before dispatching to the handler.
func (h *handlers) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := sessionTokenFromRequest(r)
		if tokenString == "" {
			writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "authentication required"))
			return
		}
		userID, err := h.sessions.Verify(tokenString)
		if err != nil {
			writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "invalid session token"))
			return
		}
		next(w, r, userID)
	}
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	body := errorBody{Code: string(code), Message: "operation failed"}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		body.Message = domainErr.Message
		body.Details = domainErr.Metadata
	}
	if code == apperrors.CodeUnknown {
		log.Printf("table: internal error: %v", err)
		body.Message = "internal error"
	}
	writeJSON(w, code.HTTPStatus(), errorEnvelope{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("table: encode response: %v", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, apperrors.New(apperrors.CodeValidationFailed, "invalid request body"))
		return false
	}
	return true
}

func (h *handlers) createCampaign(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	campaign, err := h.svc.CreateCampaign(r.Context(), userID, body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      campaign.ID,
		"name":    campaign.Name,
		"ownerId": campaign.OwnerID,
	})
}

func (h *handlers) getCampaign(w http.ResponseWriter, r *http.Request, userID string) {
	campaign, err := h.svc.GetCampaign(r.Context(), userID, r.PathValue("campaignID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      campaign.ID,
		"name":    campaign.Name,
		"ownerId": campaign.OwnerID,
	})
}

func (h *handlers) addMember(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.svc.AddMember(r.Context(), userID, r.PathValue("campaignID"), body.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listMembers(w http.ResponseWriter, r *http.Request, userID string) {
	members, err := h.svc.ListMembers(r.Context(), userID, r.PathValue("campaignID"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(members))
	for _, member := range members {
		out = append(out, map[string]any{
			"userId":   member.UserID,
			"joinedAt": member.JoinedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": out})
}

func (h *handlers) removeMember(w http.ResponseWriter, r *http.Request, userID string) {
	err := h.svc.RemoveMember(r.Context(), userID, r.PathValue("campaignID"), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) createMap(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Name     string          `json:"name"`
		ImageURL string          `json:"imageUrl"`
		GridSize int             `json:"gridSize"`
		Settings json.RawMessage `json:"settings"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	m, err := h.svc.CreateMap(r.Context(), userID, r.PathValue("campaignID"), gamemap.Map{
		Name:     body.Name,
		ImageURL: body.ImageURL,
		GridSize: body.GridSize,
		Settings: body.Settings,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handlers) listMaps(w http.ResponseWriter, r *http.Request, userID string) {
	maps, err := h.svc.ListMaps(r.Context(), userID, r.PathValue("campaignID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if maps == nil {
		maps = []gamemap.Map{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"maps": maps})
}

func (h *handlers) deleteMap(w http.ResponseWriter, r *http.Request, userID string) {
	err := h.svc.DeleteMap(r.Context(), userID, r.PathValue("campaignID"), r.PathValue("mapID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) activateMap(w http.ResponseWriter, r *http.Request, userID string) {
	err := h.svc.ActivateMap(r.Context(), userID, r.PathValue("campaignID"), r.PathValue("mapID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) loadState(w http.ResponseWriter, r *http.Request, userID string) {
	view, err := h.svc.LoadState(r.Context(), userID, r.PathValue("campaignID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) replaceTokens(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Tokens           []token.Token `json:"tokens"`
		ExpectedRevision int64         `json:"expectedRevision"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	revision, err := h.svc.ReplaceTokens(r.Context(), userID, r.PathValue("campaignID"), body.Tokens, body.ExpectedRevision)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revision": revision})
}

func (h *handlers) moveToken(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Position token.Position `json:"position"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	revision, err := h.svc.MoveToken(r.Context(), userID, r.PathValue("campaignID"), r.PathValue("tokenID"), body.Position)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revision": revision})
}

func (h *handlers) freeze(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.svc.Freeze(r.Context(), userID, r.PathValue("campaignID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) unfreeze(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.svc.Unfreeze(r.Context(), userID, r.PathValue("campaignID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateGrid(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Grid             gamestate.GridConfig `json:"grid"`
		ExpectedRevision int64                `json:"expectedRevision"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	revision, err := h.svc.UpdateGrid(r.Context(), userID, r.PathValue("campaignID"), body.Grid, body.ExpectedRevision)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revision": revision})
}

func (h *handlers) setGameData(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		GameData         gamestate.GameData `json:"gameData"`
		ExpectedRevision int64              `json:"expectedRevision"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	revision, err := h.svc.SetGameData(r.Context(), userID, r.PathValue("campaignID"), body.GameData, body.ExpectedRevision)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revision": revision})
}

func (h *handlers) chatHistory(w http.ResponseWriter, r *http.Request, userID string) {
	afterSeq := int64(0)
	if raw := strings.TrimSpace(r.URL.Query().Get("after_seq")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, apperrors.New(apperrors.CodeValidationFailed, "after_seq must be an integer"))
			return
		}
		afterSeq = parsed
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperrors.New(apperrors.CodeValidationFailed, "limit must be an integer"))
			return
		}
		limit = parsed
	}

	messages, err := h.svc.ChatHistory(r.Context(), userID, r.PathValue("campaignID"), afterSeq, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *handlers) postMessage(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Body string `json:"body"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	msg, err := h.svc.PostMessage(r.Context(), userID, r.PathValue("campaignID"), body.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *handlers) roll(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Expression string `json:"expression"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	result, msg, err := h.svc.Roll(r.Context(), userID, r.PathValue("campaignID"), body.Expression)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"result":  result,
		"message": msg,
	})
}
