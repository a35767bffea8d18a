// Package redis provides the Redis-backed document store: JSON documents
// under doc:{path} keys, a membership set per collection, and change fan-out
// over Redis pub/sub so every subscribed process sees writes in realtime.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/store"
)

// Store implements store.Store on a Redis client. Individual document writes
// are serialized by Redis itself; Merge is read-modify-write with
// last-writer-wins semantics, which the room protocol's full-recompute
// discipline tolerates.
type Store struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewStore wraps a Redis client. ttl > 0 expires documents after the given
// duration; 0 keeps them until deleted.
func NewStore(client *goredis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) docKey(path string) string { return "doc:" + path }

func (s *Store) colKey(collection string) string { return "col:" + collection }

func (s *Store) channel(collection string) string { return "changes:" + collection }

func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.docKey(path)).Bytes()
	if err == goredis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, path string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return s.write(ctx, path, data)
}

func (s *Store) Merge(ctx context.Context, path string, fields map[string]any) error {
	merged := map[string]any{}
	existing, err := s.Get(ctx, path)
	if err != nil && err != store.ErrNotFound {
		return err
	}
	if existing != nil {
		if err := json.Unmarshal(existing, &merged); err != nil {
			return fmt.Errorf("merge %s: %w", path, err)
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("merge %s: %w", path, err)
	}
	return s.write(ctx, path, data)
}

func (s *Store) write(ctx context.Context, path string, data []byte) error {
	collection, id := store.ParentCollection(path)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.docKey(path), data, s.ttl)
	if collection != "" {
		pipe.SAdd(ctx, s.colKey(collection), id)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.colKey(collection), s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return s.client.Publish(ctx, s.channel(collection), path).Err()
}

func (s *Store) Delete(ctx context.Context, path string) error {
	collection, id := store.ParentCollection(path)
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.docKey(path))
	if collection != "" {
		pipe.SRem(ctx, s.colKey(collection), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return s.client.Publish(ctx, s.channel(collection), path).Err()
}

func (s *Store) Query(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	ids, err := s.client.SMembers(ctx, s.colKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	docs := make([]store.Document, 0, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, s.docKey(collection+"/"+id)).Bytes()
		if err == goredis.Nil {
			continue // expired member, skip
		}
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		docs = append(docs, store.Document{ID: id, Data: data})
	}
	return store.ApplyQuery(docs, q), nil
}

func (s *Store) Watch(ctx context.Context, path string, fn store.Snapshot) (store.CancelFunc, error) {
	collection, _ := store.ParentCollection(path)
	pubsub := s.client.Subscribe(ctx, s.channel(collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	deliver := func() {
		data, err := s.Get(context.Background(), path)
		if err == store.ErrNotFound {
			fn(nil)
			return
		}
		if err != nil {
			log.Printf("watch %s: %v", path, err)
			return
		}
		fn(data)
	}
	deliver()

	go func() {
		for msg := range pubsub.Channel() {
			if msg.Payload == path {
				deliver()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { _ = pubsub.Close() })
	}, nil
}

func (s *Store) WatchQuery(ctx context.Context, collection string, q store.Query, fn store.QuerySnapshot) (store.CancelFunc, error) {
	pubsub := s.client.Subscribe(ctx, s.channel(collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("watch %s: %w", collection, err)
	}

	deliver := func() {
		docs, err := s.Query(context.Background(), collection, q)
		if err != nil {
			log.Printf("watch %s: %v", collection, err)
			return
		}
		fn(docs)
	}
	deliver()

	go func() {
		for range pubsub.Channel() {
			deliver()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { _ = pubsub.Close() })
	}, nil
}
