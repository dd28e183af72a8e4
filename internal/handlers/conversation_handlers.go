package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"livechat-csat-service/internal/services"
	"livechat-csat-service/internal/store"
)

type ConversationHandlers struct {
	Chat  *services.ChatService
	Store *store.PostgresStore
}

// GetConversation returns the live lifecycle snapshot, falling back to
// the persisted row for conversations that ended before a restart.
func (h *ConversationHandlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "conversation_id_required"})
		return
	}

	if view, err := h.Chat.Snapshot(id); err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"data": view})
		return
	}

	view, err := h.Store.GetConversation(r.Context(), WidgetKey(r), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "get_conversation_failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *ConversationHandlers) GetCSAT(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "conversation_id_required"})
		return
	}

	rec, err := h.Store.GetCSATResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "get_csat_failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rec})
}
