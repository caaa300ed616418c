package learning

import (
	"hash/fnv"
	"sync"
)

// keyedMutex serializes work per string key with a fixed shard array, so two
// concurrent updates to the same (owner, ingredient) pair cannot interleave
// while unrelated pairs proceed in parallel.
type keyedMutex struct {
	shards [64]sync.Mutex
}

func (k *keyedMutex) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	m := &k.shards[h.Sum32()%uint32(len(k.shards))]
	m.Lock()
	return m
}
