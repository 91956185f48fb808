package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"familytime/internal/docstore"
)

func TestLinkStoreSaveListClear(t *testing.T) {
	ctx := context.Background()
	links := NewLinkStore(docstore.NewMemoryStore())

	expiry := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, links.Save(ctx, "u1", Link{
		Provider:   "google",
		CalendarID: "primary",
		Token: &oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       expiry,
		},
	}))
	require.NoError(t, links.Save(ctx, "u1", Link{Provider: "apple", CalendarID: "home"}))

	got, err := links.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	byProvider := map[string]Link{}
	for _, l := range got {
		byProvider[l.Provider] = l
	}
	google := byProvider["google"]
	assert.Equal(t, "primary", google.CalendarID)
	require.NotNil(t, google.Token)
	assert.Equal(t, "access", google.Token.AccessToken)
	assert.Equal(t, "refresh", google.Token.RefreshToken)
	assert.True(t, google.Token.Expiry.Equal(expiry))
	assert.Nil(t, byProvider["apple"].Token)

	require.NoError(t, links.Clear(ctx, "u1"))
	got, err = links.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLinkStoreSaveReplacesProvider(t *testing.T) {
	ctx := context.Background()
	links := NewLinkStore(docstore.NewMemoryStore())

	require.NoError(t, links.Save(ctx, "u1", Link{Provider: "google", CalendarID: "old"}))
	require.NoError(t, links.Save(ctx, "u1", Link{Provider: "google", CalendarID: "new"}))

	got, err := links.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].CalendarID)
}

func TestLinkStoreRequiresProvider(t *testing.T) {
	links := NewLinkStore(docstore.NewMemoryStore())
	assert.Error(t, links.Save(context.Background(), "u1", Link{CalendarID: "x"}))
}

func TestLinkStoreListUnknownUser(t *testing.T) {
	links := NewLinkStore(docstore.NewMemoryStore())

	got, err := links.List(context.Background(), "u-ghost")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Clearing an absent document is fine too.
	assert.NoError(t, links.Clear(context.Background(), "u-ghost"))
}
