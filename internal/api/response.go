package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskpilot/taskpilot/internal/agent"
	"github.com/taskpilot/taskpilot/internal/chat"
	"github.com/taskpilot/taskpilot/internal/conversation"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes. Unknown errors
// are internal; their details stay out of the response body.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrMessageTooLong),
		errors.Is(err, conversation.ErrInvalidRole):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, conversation.ErrNotFound):
		return http.StatusNotFound, "conversation not found"
	case errors.Is(err, conversation.ErrNotOwned):
		return http.StatusForbidden, "conversation belongs to another user"
	case errors.Is(err, agent.ErrTurnLimit):
		return http.StatusUnprocessableEntity, "the assistant could not finish in time; please simplify your request"
	case errors.Is(err, agent.ErrModel):
		return http.StatusBadGateway, "the assistant could not complete the request"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	writeError(w, status, msg)
}
