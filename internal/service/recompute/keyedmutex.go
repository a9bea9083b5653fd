package recompute

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes work per chunk. Recomputations of different chunks
// run freely in parallel; two recomputations of the same chunk would both
// read a stale transcription set and race on the stored result, so the
// second waits for the first.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*chunkLock
}

type chunkLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*chunkLock)}
}

// Lock acquires the lock for a chunk, creating it on first use.
func (k *keyedMutex) Lock(chunkID uuid.UUID) {
	k.mu.Lock()
	l, ok := k.locks[chunkID]
	if !ok {
		l = &chunkLock{}
		k.locks[chunkID] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
}

// Unlock releases the lock for a chunk and frees it once nobody waits.
func (k *keyedMutex) Unlock(chunkID uuid.UUID) {
	k.mu.Lock()
	l := k.locks[chunkID]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, chunkID)
	}
	k.mu.Unlock()

	l.Unlock()
}
