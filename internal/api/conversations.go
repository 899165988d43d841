package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type conversationsHandler struct {
	store  ConversationReader
	logger *slog.Logger
}

// list returns the caller's conversations, most recently active first.
func (h *conversationsHandler) list(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}

	convs, err := h.store.List(r.Context(), caller.UserID)
	if err != nil {
		h.logger.Warn("listing conversations", "owner", caller.UserID, "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// messages returns the full transcript of one conversation the caller
// owns.
func (h *conversationsHandler) messages(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "conversation id must be a UUID")
		return
	}

	msgs, err := h.store.Messages(r.Context(), id, caller.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}
