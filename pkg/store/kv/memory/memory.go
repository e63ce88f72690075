// Package memory implements kv.Store on an in-process ordered map.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/marmos91/keepfs/pkg/store/kv"
	"github.com/tidwall/btree"
)

// MemoryStore keeps every key in a B-tree so Keys returns ordered results
// without sorting. Values are copied on the way in and out.
type MemoryStore struct {
	mu   sync.RWMutex
	data *btree.Map[string, []byte]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: btree.NewMap[string, []byte](0),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data.Get(key)
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, kv.ErrKeyNotFound)
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Set(key, append([]byte(nil), value...))
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Delete(key)
	return nil
}

func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := []string{}
	s.data.Ascend(prefix, func(key string, _ []byte) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		keys = append(keys, key)
		return true
	})
	return keys, nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Len()
}

func (s *MemoryStore) Close() error {
	return nil
}
