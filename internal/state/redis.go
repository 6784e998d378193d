package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "nexo:conv:"

// RedisBackend stores each conversation as one JSON value. Keys expire
// after the idle window so abandoned conversations clean themselves up.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

func redisKey(userID int64) string {
	return redisKeyPrefix + strconv.FormatInt(userID, 10)
}

func encodeConversation(conv Conversation) ([]byte, error) {
	data, err := json.Marshal(conv)
	if err != nil {
		return nil, fmt.Errorf("marshal conversation: %w", err)
	}
	return data, nil
}

func decodeConversation(data []byte) (Conversation, error) {
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return Conversation{}, fmt.Errorf("unmarshal conversation: %w", err)
	}
	return conv, nil
}

func (r *RedisBackend) Load(ctx context.Context, userID int64) (Conversation, bool, error) {
	data, err := r.client.Get(ctx, redisKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Conversation{}, false, nil
		}
		return Conversation{}, false, fmt.Errorf("redis get: %w", err)
	}
	conv, err := decodeConversation(data)
	if err != nil {
		return Conversation{}, false, err
	}
	return conv, true, nil
}

func (r *RedisBackend) Save(ctx context.Context, conv Conversation) error {
	data, err := encodeConversation(conv)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, redisKey(conv.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// NewRedisClient connects and pings the server.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
