// Package mock provides an in-memory kv implementation for tests. Each call
// to New returns an independent empty store, so suites get isolation without
// spawning an etcd or consul process.
package mock

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Iram04hack/network-management-system-sub001/pkg/kv"
)

// ErrKeyNotFound is returned for lookups of missing keys
var ErrKeyNotFound = errors.New("key not found")

// ErrCASFailed is returned when an atomic operation loses the race
var ErrCASFailed = errors.New("CAS failed")

func init() {
	kv.Register("mock", New)
}

type mkv struct {
	mu    sync.Mutex
	index uint64
	data  map[string]kv.Value
}

// New instantiates a fresh empty in-memory kv. The addr parameter is ignored
// beyond scheme selection.
func New(addr string) (kv.KV, error) {
	return &mkv{data: map[string]kv.Value{}}, nil
}

func (m *mkv) Delete(key string, recurse bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !recurse {
		if _, ok := m.data[key]; !ok {
			return ErrKeyNotFound
		}
		delete(m.data, key)
		return nil
	}

	prefix := strings.TrimSuffix(key, "/") + "/"
	found := false
	for k := range m.data {
		if k == key || strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			found = true
		}
	}
	if !found {
		return ErrKeyNotFound
	}
	return nil
}

func (m *mkv) Get(key string) (kv.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	if !ok {
		return kv.Value{}, ErrKeyNotFound
	}
	return v, nil
}

func (m *mkv) GetAll(prefix string) (map[string]kv.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := strings.TrimSuffix(prefix, "/") + "/"
	many := map[string]kv.Value{}
	for k, v := range m.data {
		if strings.HasPrefix(k, p) {
			many[k] = v
		}
	}
	return many, nil
}

// Keys returns the immediate children of prefix as full key paths, the way
// the etcd backend lists a directory node.
func (m *mkv) Keys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := strings.TrimSuffix(prefix, "/") + "/"
	children := map[string]struct{}{}
	for k := range m.data {
		if !strings.HasPrefix(k, p) {
			continue
		}
		rest := strings.TrimPrefix(k, p)
		child := strings.SplitN(rest, "/", 2)[0]
		children[filepath.Join(p, child)] = struct{}{}
	}
	if len(children) == 0 {
		return nil, ErrKeyNotFound
	}

	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *mkv) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.index++
	m.data[key] = kv.Value{Data: []byte(value), Index: m.index}
	return nil
}

func (m *mkv) Update(key string, value kv.Value) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.data[key]
	if value.Index == 0 {
		if ok {
			return 0, ErrCASFailed
		}
	} else if !ok || existing.Index != value.Index {
		return 0, ErrCASFailed
	}

	m.index++
	m.data[key] = kv.Value{Data: value.Data, Index: m.index}
	return m.index, nil
}

func (m *mkv) Remove(key string, index uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.data[key]
	if !ok || existing.Index != index {
		return ErrCASFailed
	}
	delete(m.data, key)
	return nil
}

func (m *mkv) IsKeyNotFound(err error) bool {
	return err == ErrKeyNotFound
}
