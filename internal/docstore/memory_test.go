package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "families", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "families", "f1", map[string]any{"name": "Smiths"}))

	doc, err := store.Get(ctx, "families", "f1")
	require.NoError(t, err)
	assert.Equal(t, "Smiths", doc.Fields["name"])
	assert.Equal(t, int64(1), doc.Version)
	assert.False(t, doc.UpdatedAt.IsZero())

	require.NoError(t, store.Delete(ctx, "families", "f1"))
	_, err = store.Get(ctx, "families", "f1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent document is not an error.
	assert.NoError(t, store.Delete(ctx, "families", "f1"))
}

func TestMemoryStoreReplaceVsMerge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "users", "u1", map[string]any{
		"email": "a@example.com",
		"name":  "Alice",
	}))

	// Plain Set replaces the whole document.
	require.NoError(t, store.Set(ctx, "users", "u1", map[string]any{"name": "Alicia"}))
	doc, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.NotContains(t, doc.Fields, "email")

	// Merge preserves unnamed fields.
	require.NoError(t, store.Set(ctx, "users", "u1", map[string]any{"email": "a@example.com"}, WithMerge()))
	doc, err = store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", doc.Fields["name"])
	assert.Equal(t, "a@example.com", doc.Fields["email"])
	assert.Equal(t, int64(3), doc.Version)
}

func TestMemoryStoreSentinels(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "users", "u1", map[string]any{
		"familyId": "f1",
		"name":     "Alice",
	}))

	before := time.Now().UTC()
	require.NoError(t, store.Set(ctx, "users", "u1", map[string]any{
		"familyId":  DeleteField,
		"updatedAt": ServerTimestamp,
	}, WithMerge()))

	doc, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.NotContains(t, doc.Fields, "familyId")
	assert.Equal(t, "Alice", doc.Fields["name"])

	stamp, ok := doc.Fields["updatedAt"].(time.Time)
	require.True(t, ok, "server timestamp resolves to a time")
	assert.False(t, stamp.Before(before.Add(-time.Second)))
}

func TestMemoryStoreExpectedVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Version 0 asserts absence.
	require.NoError(t, store.Set(ctx, "families", "f1", map[string]any{"name": "a"}, WithExpectedVersion(0)))
	err := store.Set(ctx, "families", "f1", map[string]any{"name": "b"}, WithExpectedVersion(0))
	assert.ErrorIs(t, err, ErrVersionConflict)

	doc, err := store.Get(ctx, "families", "f1")
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "families", "f1", map[string]any{"name": "b"}, WithExpectedVersion(doc.Version)))

	// A stale version no longer wins.
	err = store.Set(ctx, "families", "f1", map[string]any{"name": "c"}, WithExpectedVersion(doc.Version))
	assert.ErrorIs(t, err, ErrVersionConflict)

	// The conflicting write changed nothing.
	doc, err = store.Get(ctx, "families", "f1")
	require.NoError(t, err)
	assert.Equal(t, "b", doc.Fields["name"])
	assert.Equal(t, int64(2), doc.Version)
}

func TestMemoryStoreQueryContains(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "families", "f1", map[string]any{
		"codeVariants": []string{"Café-Wren", "café-wren", "cafe-wren"},
	}))
	require.NoError(t, store.Set(ctx, "families", "f2", map[string]any{
		"codeVariants": []string{"sunny-badger"},
	}))
	require.NoError(t, store.Set(ctx, "families", "f3", map[string]any{
		"codeVariants": "not-a-list",
	}))

	docs, err := store.QueryContains(ctx, "families", "codeVariants", "cafe-wren")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "f1", docs[0].ID)

	docs, err = store.QueryContains(ctx, "families", "codeVariants", "nobody")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryStoreSubscribe(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	changes := make(chan *Document, 4)
	unsubscribe, err := store.Subscribe(ctx, "families", "f1", func(doc *Document) {
		changes <- doc
	})
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "families", "f1", map[string]any{"name": "a"}))
	doc := waitForChange(t, changes)
	require.NotNil(t, doc)
	assert.Equal(t, "a", doc.Fields["name"])

	require.NoError(t, store.Delete(ctx, "families", "f1"))
	assert.Nil(t, waitForChange(t, changes), "deletion delivers a nil snapshot")

	unsubscribe()
	require.NoError(t, store.Set(ctx, "families", "f1", map[string]any{"name": "b"}))
	select {
	case doc := <-changes:
		t.Fatalf("unexpected delivery after unsubscribe: %+v", doc)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStoreSnapshotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "families", "f1", map[string]any{
		"members": []string{"u1"},
	}))

	doc, err := store.Get(ctx, "families", "f1")
	require.NoError(t, err)
	doc.Fields["members"].([]string)[0] = "mutated"

	fresh, err := store.Get(ctx, "families", "f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, fresh.Fields["members"])
}

func TestMemoryStoreListCollection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "users", "u1", map[string]any{"name": "a"}))
	require.NoError(t, store.Set(ctx, "users", "u2", map[string]any{"name": "b"}))

	docs, err := store.ListCollection(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = store.ListCollection(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func waitForChange(t *testing.T, changes <-chan *Document) *Document {
	t.Helper()
	select {
	case doc := <-changes:
		return doc
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change notification")
		return nil
	}
}
