// Package store defines the document-store contract the quiz core is built
// on: hierarchical path-addressed JSON documents with equality queries and
// realtime change subscriptions. Backends live in internal/infra.
package store

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when no document exists at the path.
var ErrNotFound = errors.New("document not found")

// Document is one query result: the final path segment (the document id)
// plus its raw JSON payload.
type Document struct {
	ID   string
	Data []byte
}

// Filter restricts a query. Op is "==" or "in".
type Filter struct {
	Field string
	Op    string
	Value any
}

// Eq builds an equality filter on a top-level field.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: "==", Value: value}
}

// In builds a membership filter on a top-level field.
func In(field string, values ...any) Filter {
	return Filter{Field: field, Op: "in", Value: values}
}

// Query describes a filtered, ordered, limited read over one collection.
// A zero Query returns every document in the collection.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Snapshot receives the document payload on every change; nil means the
// document was deleted (or does not exist yet).
type Snapshot func(data []byte)

// QuerySnapshot receives the full result set on every change to the
// collection.
type QuerySnapshot func(docs []Document)

// CancelFunc releases a subscription. Implementations must tolerate being
// called more than once.
type CancelFunc func()

// Store is the realtime document store every component talks to. Paths use
// "/" to separate alternating collection and document segments, e.g.
// rooms/{roomId}/participants/{userId}.
type Store interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Set(ctx context.Context, path string, doc any) error
	// Merge overwrites only the given top-level fields, creating the
	// document when absent.
	Merge(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	Watch(ctx context.Context, path string, fn Snapshot) (CancelFunc, error)
	WatchQuery(ctx context.Context, collection string, q Query, fn QuerySnapshot) (CancelFunc, error)
}

// ParentCollection returns the collection path a document path belongs to,
// and the document id.
func ParentCollection(path string) (collection, id string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// Join assembles a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}
