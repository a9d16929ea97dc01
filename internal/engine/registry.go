package engine

import (
	"hash/fnv"
	"sync"

	"github.com/abhisek/adaptiq/internal/session"
)

// DefaultShards is the shard count of the session registry.
const DefaultShards = 64

// entry owns one live session. mu serializes every mutation of s.
type entry struct {
	mu sync.Mutex
	s  *session.Session
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// sessionRegistry is a sharded map of live sessions. Shard locks are held
// only for map access, never while a session is mutated.
type sessionRegistry struct {
	shards []shard
}

func newSessionRegistry(n int) *sessionRegistry {
	if n <= 0 {
		n = DefaultShards
	}
	r := &sessionRegistry{shards: make([]shard, n)}
	for i := range r.shards {
		r.shards[i].entries = make(map[string]*entry)
	}
	return r
}

func (r *sessionRegistry) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &r.shards[h.Sum32()%uint32(len(r.shards))]
}

func (r *sessionRegistry) get(id string) (*entry, bool) {
	sh := r.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[id]
	return e, ok
}

// putIfAbsent stores e unless an entry for the same id exists, and returns
// the entry that ends up registered.
func (r *sessionRegistry) putIfAbsent(e *entry) (*entry, bool) {
	sh := r.shardFor(e.s.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.entries[e.s.ID]; ok {
		return cur, false
	}
	sh.entries[e.s.ID] = e
	return e, true
}

// remove deletes id only if it still maps to e.
func (r *sessionRegistry) remove(id string, e *entry) {
	sh := r.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.entries[id] == e {
		delete(sh.entries, id)
	}
}

func (r *sessionRegistry) all() []*entry {
	var out []*entry
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for _, e := range sh.entries {
			out = append(out, e)
		}
		sh.mu.RUnlock()
	}
	return out
}

func (r *sessionRegistry) len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
