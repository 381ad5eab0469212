package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryStore(), "jobs")
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Create(ctx, "jobs", map[string]any{"title": "original"})
	require.NoError(t, err)

	doc, err := store.GetByID(ctx, "jobs", id)
	require.NoError(t, err)
	doc.Fields["title"] = "mutated"

	again, err := store.GetByID(ctx, "jobs", id)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Fields["title"])
}

func TestMemoryStore_DuplicateID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, "jobs", map[string]any{"id": "dup"})
	require.NoError(t, err)
	_, err = store.Create(ctx, "jobs", map[string]any{"id": "dup"})
	assert.Error(t, err)
}

func TestMemoryStore_CollectionsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, "jobs", map[string]any{"email": "a@example.com"})
	require.NoError(t, err)

	doc, err := store.FindOne(ctx, "users", "email", "a@example.com")
	require.NoError(t, err)
	assert.Nil(t, doc)

	n, err := store.Count(ctx, "users")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Create(ctx, "jobs", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, context.Canceled)

	n, err := store.Count(context.Background(), "jobs")
	require.NoError(t, err)
	assert.Zero(t, n, "cancelled create has no side effects")
}
