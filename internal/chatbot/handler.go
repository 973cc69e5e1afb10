package chatbot

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/supermart/supermart/internal/platform/httpx"
)

// Handler exposes the chatbot endpoint.
type Handler struct {
	logger    *slog.Logger
	responder *Responder
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, responder *Responder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, responder: responder}
}

// MountRoutes registers POST /.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.chat)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	reply, err := h.responder.Respond(r.Context(), req.Message)
	if err != nil {
		h.logger.Error("chatbot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reply)
}
