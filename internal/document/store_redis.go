package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	docKeyPrefix        = "doc:"
	collectionKeyPrefix = "collection:"
)

// RedisStore persists documents as Redis hashes with a set per collection for
// listings. Each Set runs as one MULTI/EXEC transaction, so concurrent
// writers to the same ID are serialized by the server and the surviving hash
// is exactly one writer's value+owner pair.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, id string) (Document, error) {
	fields, err := s.client.HGetAll(ctx, docKeyPrefix+id).Result()
	if err != nil {
		return Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	if len(fields) == 0 {
		return Document{}, ErrNotFound
	}
	return documentFromHash(id, fields)
}

func (s *RedisStore) Set(ctx context.Context, collection, key string, value json.RawMessage, owner string) (Document, error) {
	id := DocumentID(collection, key)
	hashKey := docKeyPrefix + id
	now := time.Now().UTC()

	pipe := s.client.TxPipeline()
	// HSETNX preserves created_at across updates; the remaining fields are
	// replaced wholesale.
	pipe.HSetNX(ctx, hashKey, "created_at", now.Format(time.RFC3339Nano))
	pipe.HSet(ctx, hashKey,
		"collection", collection,
		"key", key,
		"value", string(value),
		"owner", owner,
	)
	pipe.SAdd(ctx, collectionKeyPrefix+collection, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return Document{}, fmt.Errorf("set document %s: %w", id, err)
	}

	return s.Get(ctx, id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	fields, err := s.client.HGetAll(ctx, docKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if len(fields) == 0 {
		return ErrNotFound
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, docKeyPrefix+id)
	pipe.SRem(ctx, collectionKeyPrefix+fields["collection"], id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, collection string) ([]Document, error) {
	ids, err := s.client.SMembers(ctx, collectionKeyPrefix+collection).Result()
	if err != nil {
		return nil, fmt.Errorf("list collection %s: %w", collection, err)
	}

	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Raced with a delete; skip.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	sortDocuments(out)
	return out, nil
}

func documentFromHash(id string, fields map[string]string) (Document, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return Document{}, fmt.Errorf("parse created_at for %s: %w", id, err)
	}
	return Document{
		ID:         id,
		Collection: fields["collection"],
		Key:        fields["key"],
		Value:      json.RawMessage(fields["value"]),
		Owner:      fields["owner"],
		CreatedAt:  createdAt,
	}, nil
}
