package agentcore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/market-agent-gateway/internal/jsonx"
	"github.com/market-agent-gateway/internal/memory"
)

// DefaultRedisKeyPrefix namespaces memory lists in Redis.
const DefaultRedisKeyPrefix = "agentmemory"

// RedisMemory reads actor memory records from Redis lists written by the
// agent runtime. Each list element is one JSON-encoded RawRecord, newest
// first.
type RedisMemory struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisMemory creates a RedisMemory over an existing client.
func NewRedisMemory(client *redis.Client, prefix string, logger *zap.Logger) *RedisMemory {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisMemory{
		client: client,
		prefix: prefix,
		logger: logger.Named("redis_memory"),
	}
}

// Key returns the list key holding one actor's records.
func (m *RedisMemory) Key(memoryID, actorID string) string {
	return fmt.Sprintf("%s:%s:%s", m.prefix, memoryID, actorID)
}

// RetrieveMemory returns at most MaxResults records in list order.
// Elements that are not JSON records are taken as plain record text.
func (m *RedisMemory) RetrieveMemory(ctx context.Context, in *RetrieveMemoryInput) (*RetrieveMemoryOutput, error) {
	if in.MaxResults <= 0 {
		return &RetrieveMemoryOutput{Memories: []memory.RawRecord{}}, nil
	}

	key := m.Key(in.MemoryID, in.ActorID)
	items, err := m.client.LRange(ctx, key, 0, int64(in.MaxResults-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory list %s: %w", key, err)
	}

	records := make([]memory.RawRecord, 0, len(items))
	for _, item := range items {
		var rec memory.RawRecord
		if err := jsonx.Unmarshal([]byte(item), &rec); err != nil {
			m.logger.Debug("Memory record is not JSON, using raw text",
				zap.String("key", key),
				zap.Error(err))
			rec = memory.RawRecord{Content: &memory.RawContent{Text: memory.String(item)}}
		}
		records = append(records, rec)
	}

	return &RetrieveMemoryOutput{Memories: records}, nil
}
