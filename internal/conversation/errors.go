package conversation

import "errors"

// Sentinel errors for store operations, checked with errors.Is().
var (
	// ErrNotFound indicates the referenced conversation does not exist.
	ErrNotFound = errors.New("conversation not found")

	// ErrNotOwned indicates the conversation exists but belongs to a
	// different user. Callers must map this to an authorization failure,
	// never fall through to the foreign conversation.
	ErrNotOwned = errors.New("conversation not owned by caller")

	// ErrInvalidRole indicates a role outside user/assistant.
	ErrInvalidRole = errors.New("invalid message role")
)
