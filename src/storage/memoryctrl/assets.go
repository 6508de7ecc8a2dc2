package memoryctrl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"alphogen/src/core/job"
)

type asset struct {
	data        []byte
	contentType string
}

// AssetStore is the process-local blob store used when no object store is
// configured. SignedURL returns plain relative paths since there is no
// signer; the TTL is accepted for interface parity only.
type AssetStore struct {
	mu     sync.RWMutex
	assets map[string]asset
}

func NewAssetStore() *AssetStore {
	return &AssetStore{
		assets: make(map[string]asset),
	}
}

var _ job.AssetStore = (*AssetStore)(nil)

func (s *AssetStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = job.InferContentType(key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.assets[key] = asset{data: stored, contentType: contentType}
	return nil
}

func (s *AssetStore) Get(_ context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[key]
	if !ok {
		return nil, "", job.ErrAssetNotFound
	}
	return a.data, a.contentType, nil
}

func (s *AssetStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.assets[key]; !ok {
		return "", job.ErrAssetNotFound
	}
	return fmt.Sprintf("/assets/%s", key), nil
}
