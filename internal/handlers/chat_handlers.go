package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"livechat-csat-service/internal/models"
	"livechat-csat-service/internal/services"
)

type ChatHandlers struct {
	Chat *services.ChatService
}

func (h *ChatHandlers) HandleStartChat(w http.ResponseWriter, r *http.Request) {
	var req models.StartChatRequest
	if r.Body != nil {
		// An empty body starts a fresh non-persistent conversation.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	view, err := h.Chat.StartChat(r.Context(), WidgetKey(r), req)
	if err != nil {
		if errors.Is(err, services.ErrStartChatBlocked) {
			writeJSON(w, http.StatusConflict, map[string]any{"error": "start_chat_blocked", "data": view})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "start_chat_failed", "data": view})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *ChatHandlers) HandleEndRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "conversation_id_required"})
		return
	}
	var req models.EndChatRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	view, err := h.Chat.RequestEndChat(r.Context(), id, req.PreviousFocusedElementID)
	if err != nil {
		writeNotFoundOrError(w, err, "end_request_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *ChatHandlers) HandleConfirmation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "conversation_id_required"})
		return
	}
	var req models.ConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_json"})
		return
	}

	var confirmation models.ConfirmationState
	switch strings.TrimSpace(req.Confirmation) {
	case "Ok", "ok":
		confirmation = models.ConfirmationOk
	case "Cancel", "cancel":
		confirmation = models.ConfirmationCancel
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "confirmation_must_be_ok_or_cancel"})
		return
	}

	view, err := h.Chat.Confirm(r.Context(), id, confirmation)
	if err != nil {
		if errors.Is(err, services.ErrEndChatBlocked) {
			writeJSON(w, http.StatusConflict, map[string]any{"error": "end_chat_blocked", "data": view})
			return
		}
		writeNotFoundOrError(w, err, "confirmation_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *ChatHandlers) HandleEndChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "conversation_id_required"})
		return
	}
	var req models.EndChatRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	endedBy := models.EndedByCustomer
	switch strings.TrimSpace(req.EndedBy) {
	case "", "Customer", "customer":
	case "Agent", "agent":
		endedBy = models.EndedByAgent
	case "System", "system":
		endedBy = models.EndedBySystem
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown_ended_by"})
		return
	}

	view, err := h.Chat.EndChat(r.Context(), id, endedBy)
	if err != nil {
		if errors.Is(err, services.ErrEndChatBlocked) {
			writeJSON(w, http.StatusConflict, map[string]any{"error": "end_chat_blocked", "data": view})
			return
		}
		writeNotFoundOrError(w, err, "end_chat_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *ChatHandlers) HandleCrossTabEnd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "conversation_id_required"})
		return
	}

	view, err := h.Chat.CrossTabEnd(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrEndChatBlocked) {
			writeJSON(w, http.StatusConflict, map[string]any{"error": "end_chat_blocked", "data": view})
			return
		}
		writeNotFoundOrError(w, err, "cross_tab_end_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *ChatHandlers) HandleSurvey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "conversation_id_required"})
		return
	}
	var activity models.SurveyActivity
	if err := json.NewDecoder(r.Body).Decode(&activity); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_json"})
		return
	}

	survey, err := h.Chat.RecordSurvey(r.Context(), id, activity)
	if err != nil {
		if errors.Is(err, services.ErrNotSurveyResponse) {
			// Not an error: the activity is ordinary chat traffic.
			writeJSON(w, http.StatusOK, map[string]any{"accepted": false})
			return
		}
		writeNotFoundOrError(w, err, "survey_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accepted": true, "data": survey})
}

func writeNotFoundOrError(w http.ResponseWriter, err error, code string) {
	if errors.Is(err, services.ErrConversationNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": code})
}
