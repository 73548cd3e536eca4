package liststore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
)

// KeyPrefix is the Redis key namespace for list rows: LIST|<list>|<key>.
const KeyPrefix = "LIST"

// RedisStore keeps each list row as a Redis hash keyed by its key-column
// value, one field per column.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store on the given Redis address and database.
func NewRedisStore(addr string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
	}
}

// Connect tests the connection
func (s *RedisStore) Connect(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func rowKey(list, key string) string {
	return fmt.Sprintf("%s|%s|%s", KeyPrefix, list, key)
}

// PutRow writes a row under its keyColumn value. All fields are written in
// a single HSET.
func (s *RedisStore) PutRow(ctx context.Context, list, keyColumn string, row Row) error {
	key := row[keyColumn]
	if key == "" {
		return fmt.Errorf("row has no %q value", keyColumn)
	}
	args := make([]interface{}, 0, len(row)*2)
	for k, v := range row {
		args = append(args, k, v)
	}
	return s.client.HSet(ctx, rowKey(list, key), args...).Err()
}

// Lookup implements Store. The direct hash key is tried first; if the row
// was stored under a different key column, rows of the list are scanned.
func (s *RedisStore) Lookup(ctx context.Context, list, keyColumn, keyValue, valueColumn, notFound string) (string, error) {
	vals, err := s.client.HGetAll(ctx, rowKey(list, keyValue)).Result()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rowKey(list, keyValue), err)
	}
	if len(vals) > 0 && vals[keyColumn] == keyValue {
		return cell(vals, valueColumn, notFound), nil
	}

	keys, err := scanKeys(ctx, s.client, rowKey(list, "*"), 100)
	if err != nil {
		return "", fmt.Errorf("scanning list %q: %w", list, err)
	}
	for _, k := range keys {
		v, err := s.client.HGet(ctx, k, keyColumn).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", k, err)
		}
		if v != keyValue {
			continue
		}
		row, err := s.client.HGetAll(ctx, k).Result()
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", k, err)
		}
		return cell(row, valueColumn, notFound), nil
	}
	return notFound, nil
}

func cell(row map[string]string, column, notFound string) string {
	if v, ok := row[column]; ok {
		return v
	}
	return notFound
}

// ListKeys returns the key-column values of every row in a list.
func (s *RedisStore) ListKeys(ctx context.Context, list string) ([]string, error) {
	keys, err := scanKeys(ctx, s.client, rowKey(list, "*"), 100)
	if err != nil {
		return nil, err
	}
	prefix := rowKey(list, "")
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, prefix))
	}
	return out, nil
}

// scanKeys iterates Redis keys matching the given pattern using cursor-based
// SCAN instead of the blocking O(N) KEYS command.
func scanKeys(ctx context.Context, client *redis.Client, pattern string, countHint int64) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, nextCursor, err := client.Scan(ctx, cursor, pattern, countHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
