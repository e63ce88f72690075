// Package consul implements kv.Store on the HashiCorp Consul KV API.
//
// Consul limits values to 512KB, which is far above the size of a
// serialized metadata record.
package consul

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/consul/api"
	"github.com/marmos91/keepfs/pkg/store/kv"
)

// ConsulStore stores every record under Prefix in Consul KV.
type ConsulStore struct {
	client *api.Client
	kv     *api.KV
	prefix string
}

// ConsulStoreConfig contains configuration options for the Consul store.
type ConsulStoreConfig struct {
	// Address of the Consul agent (default: "127.0.0.1:8500")
	Address string `mapstructure:"address"`

	// Token for Consul ACL authentication (optional)
	Token string `mapstructure:"token"`

	// Datacenter to use (optional)
	Datacenter string `mapstructure:"datacenter"`

	// Namespace for Consul Enterprise (optional)
	Namespace string `mapstructure:"namespace"`

	// Prefix for all keys (default: "keepfs/")
	Prefix string `mapstructure:"prefix"`
}

// NewConsulStore creates a client and checks that the agent answers.
func NewConsulStore(ctx context.Context, cfg ConsulStoreConfig) (*ConsulStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:8500"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "keepfs/"
	}
	if !strings.HasSuffix(cfg.Prefix, "/") {
		cfg.Prefix += "/"
	}

	clientConfig := api.DefaultConfig()
	clientConfig.Address = cfg.Address
	if cfg.Token != "" {
		clientConfig.Token = cfg.Token
	}
	if cfg.Datacenter != "" {
		clientConfig.Datacenter = cfg.Datacenter
	}
	if cfg.Namespace != "" {
		clientConfig.Namespace = cfg.Namespace
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	if _, err := client.Status().Leader(); err != nil {
		return nil, fmt.Errorf("failed to reach consul at %s: %w", cfg.Address, err)
	}

	return &ConsulStore{
		client: client,
		kv:     client.KV(),
		prefix: cfg.Prefix,
	}, nil
}

func (s *ConsulStore) buildKey(key string) string {
	return s.prefix + key
}

func (s *ConsulStore) Get(ctx context.Context, key string) ([]byte, error) {
	pair, _, err := s.kv.Get(s.buildKey(key), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	if pair == nil {
		return nil, fmt.Errorf("get %q: %w", key, kv.ErrKeyNotFound)
	}
	if pair.Value == nil {
		return []byte{}, nil
	}
	return pair.Value, nil
}

func (s *ConsulStore) Set(ctx context.Context, key string, value []byte) error {
	pair := &api.KVPair{
		Key:   s.buildKey(key),
		Value: value,
	}
	if _, err := s.kv.Put(pair, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

func (s *ConsulStore) Delete(ctx context.Context, key string) error {
	if _, err := s.kv.Delete(s.buildKey(key), (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (s *ConsulStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	raw, _, err := s.kv.Keys(s.buildKey(prefix), "", (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list keys with prefix %q: %w", prefix, err)
	}

	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, s.prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op; the consul client holds only pooled HTTP connections.
func (s *ConsulStore) Close() error {
	return nil
}
