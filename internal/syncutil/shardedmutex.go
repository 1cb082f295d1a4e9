// Package syncutil provides keyed locking primitives for serializing
// per-vendor and per-department work.
package syncutil

import (
	"hash/fnv"
	"sync"
)

// ShardedMutex provides a fixed-size pool of mutexes keyed by string.
// Unlike sync.Map-based per-key locks, this uses bounded memory regardless
// of how many keys are seen, at the cost of occasional false sharing between
// keys that hash to the same shard.
type ShardedMutex struct {
	shards [256]sync.Mutex
}

// Lock acquires the mutex for the given key and returns an unlock function.
func (s *ShardedMutex) Lock(key string) func() {
	mu := &s.shards[s.index(key)]
	mu.Lock()
	return mu.Unlock
}

// LockPair acquires the mutexes for both keys and returns a single unlock
// function. Shards are always taken in index order, so two goroutines locking
// the same pair in opposite order cannot deadlock. When both keys land on the
// same shard it is locked once.
func (s *ShardedMutex) LockPair(a, b string) func() {
	i, j := s.index(a), s.index(b)
	if i == j {
		mu := &s.shards[i]
		mu.Lock()
		return mu.Unlock
	}
	if i > j {
		i, j = j, i
	}
	first, second := &s.shards[i], &s.shards[j]
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}

func (s *ShardedMutex) index(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % 256
}
