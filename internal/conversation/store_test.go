package conversation_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/internal/conversation"
	"github.com/taskpilot/taskpilot/internal/testutil"
)

func TestStore_GetOrCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversation.New(db.Pool, nil)
	ctx := context.Background()

	t.Run("nil id creates a new conversation", func(t *testing.T) {
		conv, err := store.GetOrCreate(ctx, nil, "alice")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, conv.ID)
		assert.Equal(t, "alice", conv.OwnerID)
	})

	t.Run("existing id returns the same conversation", func(t *testing.T) {
		created, err := store.GetOrCreate(ctx, nil, "alice")
		require.NoError(t, err)

		got, err := store.GetOrCreate(ctx, &created.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("unknown id returns ErrNotFound", func(t *testing.T) {
		missing := uuid.New()
		_, err := store.GetOrCreate(ctx, &missing, "alice")
		assert.ErrorIs(t, err, conversation.ErrNotFound)
	})

	t.Run("foreign conversation returns ErrNotOwned", func(t *testing.T) {
		conv, err := store.GetOrCreate(ctx, nil, "alice")
		require.NoError(t, err)

		got, err := store.GetOrCreate(ctx, &conv.ID, "mallory")
		assert.ErrorIs(t, err, conversation.ErrNotOwned)
		assert.Nil(t, got)
	})
}

func TestStore_Append(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversation.New(db.Pool, nil)
	ctx := context.Background()

	conv, err := store.GetOrCreate(ctx, nil, "alice")
	require.NoError(t, err)

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := store.Append(ctx, conv.ID, "alice", "system", "nope")
		assert.ErrorIs(t, err, conversation.ErrInvalidRole)
	})

	t.Run("touches conversation updated_at", func(t *testing.T) {
		msg, err := store.Append(ctx, conv.ID, "alice", conversation.RoleUser, "hello")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, msg.ID)

		after, err := store.GetOrCreate(ctx, &conv.ID, "alice")
		require.NoError(t, err)
		assert.True(t, after.UpdatedAt.After(conv.UpdatedAt) || after.UpdatedAt.Equal(conv.UpdatedAt))
		assert.False(t, after.UpdatedAt.Before(msg.CreatedAt))
	})
}

func TestStore_History(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversation.New(db.Pool, nil)
	ctx := context.Background()

	conv, err := store.GetOrCreate(ctx, nil, "alice")
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		_, err := store.Append(ctx, conv.ID, "alice", role, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	t.Run("returns the latest N oldest first", func(t *testing.T) {
		history, err := store.History(ctx, conv.ID, 20)
		require.NoError(t, err)
		require.Len(t, history, 20)
		assert.Equal(t, "message 5", history[0].Content)
		assert.Equal(t, "message 24", history[19].Content)
	})

	t.Run("non-positive limit uses the default", func(t *testing.T) {
		history, err := store.History(ctx, conv.ID, 0)
		require.NoError(t, err)
		assert.Len(t, history, int(conversation.DefaultHistoryLimit))
	})

	t.Run("limit above count returns everything", func(t *testing.T) {
		history, err := store.History(ctx, conv.ID, 100)
		require.NoError(t, err)
		assert.Len(t, history, 25)
		assert.Equal(t, "message 0", history[0].Content)
	})
}

func TestStore_ListAndMessages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversation.New(db.Pool, nil)
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, nil, "alice")
	require.NoError(t, err)
	second, err := store.GetOrCreate(ctx, nil, "alice")
	require.NoError(t, err)
	_, err = store.GetOrCreate(ctx, nil, "bob")
	require.NoError(t, err)

	_, err = store.Append(ctx, first.ID, "alice", conversation.RoleUser, "bump")
	require.NoError(t, err)

	t.Run("list is owner scoped and ordered by activity", func(t *testing.T) {
		convs, err := store.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, convs, 2)
		assert.Equal(t, first.ID, convs[0].ID)
		assert.Equal(t, second.ID, convs[1].ID)
	})

	t.Run("messages checks ownership", func(t *testing.T) {
		_, err := store.Messages(ctx, first.ID, "bob")
		assert.ErrorIs(t, err, conversation.ErrNotOwned)

		msgs, err := store.Messages(ctx, first.ID, "alice")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "bump", msgs[0].Content)
	})
}
