// Package kv abstracts the key value store the surveillance controller
// persists its state in. Backends register themselves by URL scheme; callers
// pick one with New.
package kv

import (
	"fmt"
	"net/url"
	"sync"
)

// Value is a stored value along with the index it was last modified at.
// Index is the token for atomic updates: pass it back to Update or Remove to
// refuse clobbering a newer write.
type Value struct {
	Data  []byte
	Index uint64
}

var register = struct {
	sync.RWMutex
	kvs map[string]func(string) (KV, error)
}{
	kvs: map[string]func(string) (KV, error){},
}

// Register is called by KV implementors to register their scheme to be used
// with New
func Register(name string, fn func(string) (KV, error)) {
	register.Lock()
	defer register.Unlock()

	if _, dup := register.kvs[name]; dup {
		panic("kv: Register called twice for " + name)
	}
	register.kvs[name] = fn
}

// New will return a KV implementation according to the connection string addr.
// addr is a URL where the scheme is used to determine which kv implementation
// to return. The special `http` and `https` schemes are deemed generic, the
// first implementation that supports them will be returned.
func New(addr string) (KV, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}

	register.RLock()
	defer register.RUnlock()

	fn := register.kvs[u.Scheme]
	if fn != nil {
		return fn(addr)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unknown kv store %s (forgotten import?)", u.Scheme)
	}

	for _, constructor := range register.kvs {
		kv, err := constructor(addr)
		if err != nil {
			return nil, err
		}
		if kv != nil {
			return kv, nil
		}
	}
	return nil, fmt.Errorf("unknown kv store")
}

// KV is the interface for key value store interaction
type KV interface {
	Delete(key string, recurse bool) error
	Get(key string) (Value, error)
	GetAll(prefix string) (map[string]Value, error)
	Keys(prefix string) ([]string, error)
	Set(key, value string) error

	// Atomic operations
	// Update will set key=value while ensuring that newer values are not clobbered
	Update(key string, value Value) (uint64, error)
	// Remove will delete key only if it has not been modified since index
	Remove(key string, index uint64) error

	// IsKeyNotFound is a helper to determine if the error is a key not found error
	IsKeyNotFound(err error) bool
}
