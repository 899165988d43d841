package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store manages conversation persistence with a PostgreSQL backend.
// Safe for concurrent use; each method is an independent round trip.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store. logger may be nil.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// GetOrCreate resolves the conversation for a request.
//
// With a nil id, a new conversation owned by ownerID is created. With an id,
// the conversation is fetched and its ownership checked: a missing row
// yields ErrNotFound, a row owned by someone else yields ErrNotOwned. The
// foreign conversation's contents are never returned.
func (s *Store) GetOrCreate(ctx context.Context, id *uuid.UUID, ownerID string) (*Conversation, error) {
	if id == nil {
		var c Conversation
		err := s.pool.QueryRow(ctx,
			`INSERT INTO conversations (owner_id) VALUES ($1)
			 RETURNING id, owner_id, created_at, updated_at`,
			ownerID,
		).Scan(&c.ID, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("creating conversation: %w", err)
		}
		s.logger.Debug("created conversation", "id", c.ID, "owner", ownerID)
		return &c, nil
	}

	var c Conversation
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, created_at, updated_at FROM conversations WHERE id = $1`,
		*id,
	).Scan(&c.ID, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation %s: %w", *id, err)
	}

	if c.OwnerID != ownerID {
		return nil, ErrNotOwned
	}
	return &c, nil
}

// Append writes one message and touches the conversation's updated_at in a
// single transaction. The returned message carries the server-assigned id
// and timestamp. Concurrent readers see either both writes or neither.
func (s *Store) Append(ctx context.Context, convID uuid.UUID, ownerID, role, content string) (*Message, error) {
	if role != RoleUser && role != RoleAssistant {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	m := Message{ConversationID: convID, OwnerID: ownerID, Role: role, Content: content}
	err = tx.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, owner_id, role, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		convID, ownerID, role, content,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`, convID,
	); err != nil {
		return nil, fmt.Errorf("touching conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}

	s.logger.Debug("appended message", "conversation_id", convID, "role", role)
	return &m, nil
}

// History returns the most recent limit messages of a conversation in
// chronological order (oldest first), ready to feed into the next model
// call. A non-positive limit means DefaultHistoryLimit.
func (s *Store) History(ctx context.Context, convID uuid.UUID, limit int32) ([]*Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, owner_id, role, content, created_at FROM (
		     SELECT id, conversation_id, owner_id, role, content, seq, created_at
		     FROM messages WHERE conversation_id = $1
		     ORDER BY seq DESC LIMIT $2
		 ) recent ORDER BY seq ASC`,
		convID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// List returns all conversations owned by ownerID, most recently updated
// first.
func (s *Store) List(ctx context.Context, ownerID string) ([]*Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, created_at, updated_at
		 FROM conversations WHERE owner_id = $1
		 ORDER BY updated_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Messages returns every message of a conversation in chronological order,
// after verifying the caller owns it.
func (s *Store) Messages(ctx context.Context, convID uuid.UUID, ownerID string) ([]*Message, error) {
	if _, err := s.GetOrCreate(ctx, &convID, ownerID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, owner_id, role, content, created_at
		 FROM messages WHERE conversation_id = $1
		 ORDER BY seq ASC`,
		convID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]*Message, error) {
	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.OwnerID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
