// Package consul provides the consul backed kv implementation
package consul

import (
	"errors"
	"net/url"

	"github.com/Iram04hack/network-management-system-sub001/pkg/kv"
	consul "github.com/hashicorp/consul/api"
)

var err404 = errors.New("key not found")

func init() {
	kv.Register("consul", New)
}

type ckv struct {
	c      *consul.KV
	client *consul.Client
	config *consul.Config
}

// New instantiates a consul kv implementation.
// The parameter addr may be the empty string or a valid URL.
// If addr is not empty it must be a valid URL with schemes http, https or
// consul; consul is synonymous with http.
// If addr is the empty string the consul client will connect to the default
// address, which may be influenced by the environment.
func New(addr string) (kv.KV, error) {
	config := consul.DefaultConfig()
	if addr == "" {
		addr = config.Scheme + "://" + config.Address
	} else {
		u, err := url.Parse(addr)
		if err != nil {
			return nil, err
		}

		if u.Scheme != "consul" {
			config.Scheme = u.Scheme
		}
		config.Address = u.Host
	}

	client, err := consul.NewClient(config)
	if err != nil {
		return nil, err
	}

	return &ckv{c: client.KV(), client: client, config: config}, nil
}

func (c *ckv) Delete(key string, recurse bool) error {
	var err error
	if recurse {
		_, err = c.c.DeleteTree(key, nil)
	} else {
		_, err = c.c.Delete(key, nil)
	}
	return err
}

func (c *ckv) Get(key string) (kv.Value, error) {
	kvp, _, err := c.c.Get(key, nil)
	if err != nil {
		return kv.Value{}, err
	}
	if kvp == nil || kvp.Value == nil {
		return kv.Value{}, err404
	}
	return kv.Value{Data: kvp.Value, Index: kvp.ModifyIndex}, nil
}

func (c *ckv) GetAll(prefix string) (map[string]kv.Value, error) {
	pairs, _, err := c.c.List(prefix, nil)
	if err != nil {
		return nil, err
	}
	many := make(map[string]kv.Value, len(pairs))
	for _, kvp := range pairs {
		many[kvp.Key] = kv.Value{Data: kvp.Value, Index: kvp.ModifyIndex}
	}
	return many, nil
}

func (c *ckv) Keys(prefix string) ([]string, error) {
	keys, _, err := c.c.Keys(prefix, "/", nil)
	return keys, err
}

func (c *ckv) Set(key, value string) error {
	_, err := c.c.Put(&consul.KVPair{Key: key, Value: []byte(value)}, nil)
	return err
}

func (c *ckv) cas(key string, value kv.Value) error {
	kvp := consul.KVPair{
		Key:         key,
		Value:       value.Data,
		ModifyIndex: value.Index,
	}

	valid, _, err := c.c.CAS(&kvp, nil)
	if err != nil {
		return err
	}

	if !valid {
		return errors.New("CAS failed")
	}

	return nil
}

// Update is racy with other modifiers since the consul KV API does not return
// the new modified index.
// See https://github.com/hashicorp/consul/issues/304
func (c *ckv) Update(key string, value kv.Value) (uint64, error) {
	if err := c.cas(key, value); err != nil {
		return 0, err
	}

	v, err := c.Get(key)
	return v.Index, err
}

func (c *ckv) Remove(key string, index uint64) error {
	ok, _, err := c.c.DeleteCAS(&consul.KVPair{Key: key, ModifyIndex: index}, nil)
	if err != nil {
		return err
	}

	if !ok {
		err = errors.New("failed to delete atomically")
	}

	return err
}

func (c *ckv) IsKeyNotFound(err error) bool {
	return err == err404
}
