package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/chat"
)

type chatHandler struct {
	service ChatService
	logger  *slog.Logger
}

// chatRequest is the JSON body of POST /api/chat and /api/chat/stream.
type chatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

func (h *chatHandler) parse(w http.ResponseWriter, r *http.Request) (chat.Request, bool) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return chat.Request{}, false
	}

	req := chat.Request{Message: body.Message}
	if body.ConversationID != "" {
		id, err := uuid.Parse(body.ConversationID)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "conversation_id must be a UUID")
			return chat.Request{}, false
		}
		req.ConversationID = &id
	}
	return req, true
}

// send handles the non-streaming chat exchange.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}

	req, ok := h.parse(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Send(r.Context(), caller, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// stream handles the SSE chat exchange. Events flow as they happen; the
// terminal done event is only sent after the reply is persisted, so a
// client that saw no done event can safely assume no reply was stored.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}

	req, ok := h.parse(w, r)
	if !ok {
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	h.service.SendStream(r.Context(), caller, req, func(ev chat.StreamEvent) {
		if err := sse.writeEvent(ev); err != nil {
			// Client gone; the service still finishes and persists.
			h.logger.Debug("dropping stream event", "type", ev.Type, "error", err)
		}
	})
}
