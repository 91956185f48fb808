// Package docstore is the document-store collaborator for the rest of
// the system: keyed documents in named collections with merge writes,
// field-deletion and server-timestamp sentinels, array-membership
// queries, optimistic version checks, and advisory change subscriptions.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when no document exists under the id.
	ErrNotFound = errors.New("document not found")

	// ErrVersionConflict is returned by Set when the expected version no
	// longer matches the stored document. Nothing is written.
	ErrVersionConflict = errors.New("document version conflict")
)

// Document is a snapshot of a stored record. Version increases by one on
// every successful write and backs the compare-and-swap in Set.
type Document struct {
	Collection string
	ID         string
	Fields     map[string]any
	Version    int64
	UpdatedAt  time.Time
}

type deleteField struct{}

type serverTimestamp struct{}

// DeleteField is a sentinel value: placed in a merge write it removes
// the field from the stored document.
var DeleteField any = deleteField{}

// ServerTimestamp is a sentinel value resolved by the store into the
// write time.
var ServerTimestamp any = serverTimestamp{}

// Unsubscribe stops delivery of change notifications.
type Unsubscribe func()

// Store is the external document store contract. Subscriptions are
// advisory, eventually-consistent snapshots for observer refresh; they
// must never be used as a synchronization primitive.
type Store interface {
	// Get returns a snapshot of the document, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Set writes fields under the id, creating the document if absent.
	// With WithMerge, unnamed fields are preserved and DeleteField
	// sentinels remove their key; without it the document is replaced.
	// With WithExpectedVersion, the write fails with ErrVersionConflict
	// unless the stored version matches (0 expects absence).
	Set(ctx context.Context, collection, id string, fields map[string]any, opts ...SetOption) error

	// Delete removes the document. Deleting an absent document is not an
	// error.
	Delete(ctx context.Context, collection, id string) error

	// QueryContains returns every document whose named field is a string
	// list containing value.
	QueryContains(ctx context.Context, collection, field, value string) ([]*Document, error)

	// Subscribe registers onChange for writes to the document. The
	// callback receives a snapshot, or nil when the document is deleted.
	Subscribe(ctx context.Context, collection, id string, onChange func(*Document)) (Unsubscribe, error)
}

// Lister is an optional capability for store backends that can
// enumerate a whole collection. Operational tooling uses it; the
// application itself never does.
type Lister interface {
	ListCollection(ctx context.Context, collection string) ([]*Document, error)
}

type setOptions struct {
	merge           bool
	expectedVersion int64
	hasExpected     bool
}

// SetOption configures a Set call.
type SetOption func(*setOptions)

// WithMerge merges fields into the existing document instead of
// replacing it.
func WithMerge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

// WithExpectedVersion makes the write conditional on the stored version.
// Expecting version 0 asserts the document does not exist yet.
func WithExpectedVersion(version int64) SetOption {
	return func(o *setOptions) {
		o.expectedVersion = version
		o.hasExpected = true
	}
}

func applyOptions(opts []SetOption) setOptions {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// resolveWrite computes the stored field map for a write: merge
// semantics against the existing fields, sentinel resolution, and a
// defensive copy of everything retained.
func resolveWrite(existing, incoming map[string]any, merge bool, now time.Time) map[string]any {
	out := make(map[string]any)
	if merge {
		for k, v := range existing {
			out[k] = copyValue(v)
		}
	}
	for k, v := range incoming {
		switch v.(type) {
		case deleteField:
			delete(out, k)
		case serverTimestamp:
			out[k] = now
		default:
			out[k] = copyValue(v)
		}
	}
	return out
}

// copyValue deep-copies the JSON-ish values documents are built from.
func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item).(map[string]any)
		}
		return out
	default:
		return v
	}
}

// stringList coerces a stored field into a string slice for membership
// queries; JSON decoding yields []any while in-memory writes keep
// []string.
func stringList(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
