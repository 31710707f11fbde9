// Package etcd provides the etcd backed kv implementation
package etcd

import (
	"errors"

	"github.com/Iram04hack/network-management-system-sub001/pkg/kv"
	"github.com/coreos/go-etcd/etcd"
)

// error code etcd returns for a missing key
const ecodeKeyNotFound = 100

func init() {
	kv.Register("etcd", New)
}

type ekv struct {
	e *etcd.Client
}

// New instantiates an etcd kv implementation for addr.
func New(addr string) (kv.KV, error) {
	return &ekv{e: etcd.NewClient([]string{addr})}, nil
}

func (e *ekv) Delete(key string, recurse bool) error {
	_, err := e.e.Delete(key, recurse)
	return err
}

func (e *ekv) Get(key string) (kv.Value, error) {
	resp, err := e.e.Get(key, false, false)
	if err != nil {
		return kv.Value{}, err
	}

	if resp.Node.Dir {
		return kv.Value{}, errors.New("key is a directory")
	}

	return kv.Value{Data: []byte(resp.Node.Value), Index: resp.Node.ModifiedIndex}, nil
}

func (e *ekv) GetAll(prefix string) (map[string]kv.Value, error) {
	resp, err := e.e.Get(prefix, false, true)
	if err != nil {
		return nil, err
	}

	if !resp.Node.Dir {
		return map[string]kv.Value{
			resp.Node.Key: {Data: []byte(resp.Node.Value), Index: resp.Node.ModifiedIndex},
		}, nil
	}

	many := map[string]kv.Value{}
	var recursive func(etcd.Nodes)
	recursive = func(nodes etcd.Nodes) {
		for _, node := range nodes {
			if node.Dir {
				recursive(node.Nodes)
			} else {
				many[node.Key] = kv.Value{Data: []byte(node.Value), Index: node.ModifiedIndex}
			}
		}
	}
	recursive(resp.Node.Nodes)

	return many, nil
}

func (e *ekv) Keys(prefix string) ([]string, error) {
	resp, err := e.e.Get(prefix, true, false)
	if err != nil {
		return nil, err
	}

	if !resp.Node.Dir {
		return nil, errors.New("key is not a directory")
	}

	nodes := resp.Node.Nodes
	keys := make([]string, len(nodes))
	for i := range nodes {
		keys[i] = nodes[i].Key
	}

	return keys, err
}

func (e *ekv) Set(key, value string) error {
	_, err := e.e.Set(key, value, 0)
	return err
}

func (e *ekv) Update(key string, value kv.Value) (uint64, error) {
	var err error
	var resp *etcd.Response
	if value.Index == 0 {
		resp, err = e.e.Create(key, string(value.Data), 0)
	} else {
		resp, err = e.e.CompareAndSwap(key, string(value.Data), 0, "", value.Index)
	}
	if err != nil {
		return 0, err
	}
	return resp.Node.ModifiedIndex, nil
}

func (e *ekv) Remove(key string, index uint64) error {
	_, err := e.e.CompareAndDelete(key, "", index)
	return err
}

func (e *ekv) IsKeyNotFound(err error) bool {
	eErr, ok := err.(*etcd.EtcdError)
	return ok && eErr.ErrorCode == ecodeKeyNotFound
}
