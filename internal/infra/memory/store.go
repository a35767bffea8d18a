// Package memory provides the in-process document store backend, used by
// tests and by server mode when no Redis is configured.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/store"
)

// Store keeps documents in a map and fans out change snapshots to watchers.
type Store struct {
	mu          sync.RWMutex
	docs        map[string]json.RawMessage
	nextID      int
	docWatchers map[string]map[int]store.Snapshot
	colWatchers map[string]map[int]*queryWatcher
}

type queryWatcher struct {
	query store.Query
	fn    store.QuerySnapshot
}

func NewStore() *Store {
	return &Store{
		docs:        make(map[string]json.RawMessage),
		docWatchers: make(map[string]map[int]store.Snapshot),
		colWatchers: make(map[string]map[int]*queryWatcher),
	}
}

func (s *Store) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[path]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *Store) Set(_ context.Context, path string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	s.mu.Lock()
	s.docs[path] = data
	notify := s.pendingNotificationsLocked(path, data)
	s.mu.Unlock()

	runNotifications(notify)
	return nil
}

func (s *Store) Merge(ctx context.Context, path string, fields map[string]any) error {
	s.mu.Lock()
	merged := map[string]any{}
	if existing, ok := s.docs[path]; ok {
		if err := json.Unmarshal(existing, &merged); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("merge %s: %w", path, err)
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("merge %s: %w", path, err)
	}
	s.docs[path] = data
	notify := s.pendingNotificationsLocked(path, data)
	s.mu.Unlock()

	runNotifications(notify)
	return nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	delete(s.docs, path)
	notify := s.pendingNotificationsLocked(path, nil)
	s.mu.Unlock()

	runNotifications(notify)
	return nil
}

func (s *Store) Query(_ context.Context, collection string, q store.Query) ([]store.Document, error) {
	s.mu.RLock()
	docs := s.collectionDocsLocked(collection)
	s.mu.RUnlock()
	return store.ApplyQuery(docs, q), nil
}

func (s *Store) Watch(_ context.Context, path string, fn store.Snapshot) (store.CancelFunc, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.docWatchers[path] == nil {
		s.docWatchers[path] = make(map[int]store.Snapshot)
	}
	s.docWatchers[path][id] = fn
	initial := s.docs[path]
	s.mu.Unlock()

	// Initial snapshot, mirroring the store's on-subscribe delivery.
	if initial != nil {
		fn(append([]byte(nil), initial...))
	} else {
		fn(nil)
	}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if watchers, ok := s.docWatchers[path]; ok {
			delete(watchers, id)
			if len(watchers) == 0 {
				delete(s.docWatchers, path)
			}
		}
	}
	return cancel, nil
}

func (s *Store) WatchQuery(_ context.Context, collection string, q store.Query, fn store.QuerySnapshot) (store.CancelFunc, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.colWatchers[collection] == nil {
		s.colWatchers[collection] = make(map[int]*queryWatcher)
	}
	s.colWatchers[collection][id] = &queryWatcher{query: q, fn: fn}
	initial := s.collectionDocsLocked(collection)
	s.mu.Unlock()

	fn(store.ApplyQuery(initial, q))

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if watchers, ok := s.colWatchers[collection]; ok {
			delete(watchers, id)
			if len(watchers) == 0 {
				delete(s.colWatchers, collection)
			}
		}
	}
	return cancel, nil
}

// collectionDocsLocked returns the direct children of a collection path.
func (s *Store) collectionDocsLocked(collection string) []store.Document {
	prefix := collection + "/"
	var docs []store.Document
	for path, data := range s.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		id := path[len(prefix):]
		if strings.Contains(id, "/") {
			continue
		}
		docs = append(docs, store.Document{ID: id, Data: append([]byte(nil), data...)})
	}
	return docs
}

// pendingNotificationsLocked gathers watcher callbacks to run after the lock
// is released, so a callback may safely call back into the store.
func (s *Store) pendingNotificationsLocked(path string, data []byte) []func() {
	var notify []func()
	for _, fn := range s.docWatchers[path] {
		fn := fn
		snapshot := data
		if snapshot != nil {
			snapshot = append([]byte(nil), snapshot...)
		}
		notify = append(notify, func() { fn(snapshot) })
	}
	collection, _ := store.ParentCollection(path)
	for _, w := range s.colWatchers[collection] {
		w := w
		docs := store.ApplyQuery(s.collectionDocsLocked(collection), w.query)
		notify = append(notify, func() { w.fn(docs) })
	}
	return notify
}

func runNotifications(notify []func()) {
	for _, fn := range notify {
		fn()
	}
}
