package surveillance

import (
	"sync"

	"github.com/Iram04hack/network-management-system-sub001/pkg/kv"
)

// Context carries around data/structs needed for operations. activeMu
// serializes every active-flag transition so at most one selection is active
// at any time, even while probes run concurrently.
type Context struct {
	kv       kv.KV
	activeMu sync.Mutex
}

// NewContext creates a Context from a kv
func NewContext(k kv.KV) *Context {
	return &Context{
		kv: k,
	}
}

// IsKeyNotFound is a convenience wrapper around the kv helper
func (c *Context) IsKeyNotFound(err error) bool {
	return c.kv.IsKeyNotFound(err)
}
