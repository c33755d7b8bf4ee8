package locks

import "sync"

// Keyed hands out one mutex per key. Entries are never evicted; the key
// space is the set of conversations, which only grows with provisioning.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// returns mutex for given key (creates if needed)
func (k *Keyed) Get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	if l, ok := k.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	k.locks[key] = l
	return l
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *Keyed) Lock(key string) func() {
	l := k.Get(key)
	l.Lock()
	return l.Unlock
}
