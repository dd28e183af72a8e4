package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"livechat-csat-service/internal/config"
	"livechat-csat-service/internal/handlers"
)

func NewRouter(cfg config.Config, chat *handlers.ChatHandlers, conv *handlers.ConversationHandlers) http.Handler {
	r := chi.NewRouter()

	r.Use(handlers.WithRequestLogging())
	r.Use(handlers.WithCORS(cfg))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	auth := handlers.WithWidgetKey(cfg)

	r.With(auth).Post("/conversations", chat.HandleStartChat)
	r.With(auth).Get("/conversations/{id}", conv.GetConversation)
	r.With(auth).Post("/conversations/{id}/end-request", chat.HandleEndRequest)
	r.With(auth).Post("/conversations/{id}/confirmation", chat.HandleConfirmation)
	r.With(auth).Post("/conversations/{id}/end", chat.HandleEndChat)
	r.With(auth).Post("/conversations/{id}/cross-tab-end", chat.HandleCrossTabEnd)
	r.With(auth).Post("/conversations/{id}/survey", chat.HandleSurvey)
	r.With(auth).Get("/conversations/{id}/csat", conv.GetCSAT)

	return r
}
