// Package calendar stores each user's linked external calendar
// references. The rest of the system treats them as opaque: the only
// operation membership transitions need is clearing them when a user
// leaves or is removed from a family.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"familytime/internal/docstore"
)

// CollectionLinks is the store collection for calendar link documents.
const CollectionLinks = "calendar_links"

// Link is one linked external calendar: the provider name and the OAuth
// token granting read access to it.
type Link struct {
	Provider   string
	CalendarID string
	Token      *oauth2.Token
}

// LinkStore persists per-user calendar links in the document store.
type LinkStore struct {
	store docstore.Store
}

// NewLinkStore creates a new link store.
func NewLinkStore(store docstore.Store) *LinkStore {
	return &LinkStore{store: store}
}

// Save upserts one provider link on the user's document.
func (s *LinkStore) Save(ctx context.Context, userID string, link Link) error {
	if link.Provider == "" {
		return fmt.Errorf("calendar link requires a provider")
	}
	fields := map[string]any{
		link.Provider: encodeLink(link),
		"updatedAt":   docstore.ServerTimestamp,
	}
	if err := s.store.Set(ctx, CollectionLinks, userID, fields, docstore.WithMerge()); err != nil {
		return fmt.Errorf("failed to save calendar link: %w", err)
	}
	return nil
}

// List returns the user's linked calendars.
func (s *LinkStore) List(ctx context.Context, userID string) ([]Link, error) {
	doc, err := s.store.Get(ctx, CollectionLinks, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar links: %w", err)
	}

	var out []Link
	for provider, value := range doc.Fields {
		fields, ok := value.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, decodeLink(provider, fields))
	}
	return out, nil
}

// Clear deletes every calendar reference the user holds. Membership
// transitions call this when a user leaves, is removed, or their family
// is deleted.
func (s *LinkStore) Clear(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, CollectionLinks, userID); err != nil {
		return fmt.Errorf("failed to clear calendar links: %w", err)
	}
	return nil
}

func encodeLink(link Link) map[string]any {
	fields := map[string]any{
		"calendarId": link.CalendarID,
	}
	if link.Token != nil {
		fields["accessToken"] = link.Token.AccessToken
		fields["refreshToken"] = link.Token.RefreshToken
		fields["tokenType"] = link.Token.TokenType
		fields["expiry"] = link.Token.Expiry.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

func decodeLink(provider string, fields map[string]any) Link {
	link := Link{Provider: provider}
	if id, ok := fields["calendarId"].(string); ok {
		link.CalendarID = id
	}
	access, _ := fields["accessToken"].(string)
	if access != "" {
		token := &oauth2.Token{AccessToken: access}
		if refresh, ok := fields["refreshToken"].(string); ok {
			token.RefreshToken = refresh
		}
		if typ, ok := fields["tokenType"].(string); ok {
			token.TokenType = typ
		}
		if raw, ok := fields["expiry"].(string); ok {
			if expiry, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				token.Expiry = expiry
			}
		}
		link.Token = token
	}
	return link
}
