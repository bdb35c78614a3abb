package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/petasbytes/go-assistant/internal/chat"
)

const maxMessageBytes = 64 << 10

type postMessageRequest struct {
	Text string `json:"text"`
}

type postMessageResponse struct {
	ConversationKey string `json:"conversation_key"`
	Reply           string `json:"reply"`
	Error           string `json:"error,omitempty"`
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req postMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.chat.Reply(r.Context(), key, req.Text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error().Err(err).Str("conversation_key", key).Msg("reply failed")
		JSON(w, http.StatusBadGateway, postMessageResponse{ConversationKey: key, Reply: reply, Error: "reply failed"})
	default:
		JSON(w, http.StatusOK, postMessageResponse{ConversationKey: key, Reply: reply})
	}
}
