package utils

import "sync"

type keyedLock struct {
	sync.RWMutex
	refs int
}

// KeyedRWMutex hands out one RWMutex per key.
// An entry lives while someone holds or waits on it and is dropped on the last release.
type KeyedRWMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

func NewKeyedRWMutex() *KeyedRWMutex {
	return &KeyedRWMutex{locks: make(map[string]*keyedLock)}
}

func (k *KeyedRWMutex) acquire(key string) *keyedLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	return l
}

func (k *KeyedRWMutex) release(key string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// Lock acquires the exclusive lock for key and returns its release func
func (k *KeyedRWMutex) Lock(key string) func() {
	l := k.acquire(key)
	l.Lock()
	return func() {
		l.Unlock()
		k.release(key, l)
	}
}

// RLock acquires the shared lock for key and returns its release func
func (k *KeyedRWMutex) RLock(key string) func() {
	l := k.acquire(key)
	l.RLock()
	return func() {
		l.RUnlock()
		k.release(key, l)
	}
}

// Len reports how many keys currently have a live lock
func (k *KeyedRWMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
