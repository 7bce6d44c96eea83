package sync

import (
	"hash/fnv"
	"sync"
)

const defaultShards = 32

// ShardedMutex serializes work per key without a global lock. Keys hash onto
// a fixed set of mutexes, so unrelated keys may share a shard but the same key
// always maps to the same one.
type ShardedMutex struct {
	shards []sync.Mutex
}

// NewShardedMutex creates a ShardedMutex with n shards (32 when n <= 0).
func NewShardedMutex(n int) *ShardedMutex {
	if n <= 0 {
		n = defaultShards
	}
	return &ShardedMutex{shards: make([]sync.Mutex, n)}
}

// Lock acquires the shard for key.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the shard for key.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// WithLock runs fn while holding the shard for key.
func (m *ShardedMutex) WithLock(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(m.shards)))
}
