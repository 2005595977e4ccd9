package planner

import (
	"context"
	"sync"
	"time"

	"manasa/backend/pkg/redis"
)

// Store 设备侧键值存储：值为 JSON 数组的原始字节，键不存在时返回 (nil, nil)
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// ── Redis 实现 ──

type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore 基于 Redis 的存储，ttl<=0 表示不过期
func NewRedisStore(rdb *redis.Client, ttl time.Duration) Store {
	return &redisStore{rdb: rdb, ttl: ttl}
}

func (s *redisStore) Load(ctx context.Context, key string) ([]byte, error) {
	return s.rdb.GetBytes(ctx, key)
}

func (s *redisStore) Save(ctx context.Context, key string, data []byte) error {
	return s.rdb.SetBytes(ctx, key, data, s.ttl)
}

// ── 进程内实现（未配置 Redis 时使用） ──

type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore 进程内存储
func NewMemoryStore() Store {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), b...), nil
}

func (s *memoryStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}
