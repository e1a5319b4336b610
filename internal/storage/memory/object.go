// Package memory contains in-memory sink implementations used by tests and
// by local runs that have no real backing services.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ObjectStore keeps uploaded objects in a map. URLs follow the same
// virtual-hosted layout the S3 store produces so downstream rows look
// identical in either mode.
type ObjectStore struct {
	bucket string
	region string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewObjectStore returns an empty ObjectStore.
func NewObjectStore(bucket, region string) *ObjectStore {
	if bucket == "" {
		bucket = "catalog-local"
	}
	if region == "" {
		region = "us-east-1"
	}
	return &ObjectStore{bucket: bucket, region: region, objects: make(map[string][]byte)}
}

// Put stores data under key and returns its URL.
func (s *ObjectStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// List returns the stored keys under prefix in sorted order.
func (s *ObjectStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Get returns the stored bytes for key, for test assertions.
func (s *ObjectStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}

// Ping always succeeds.
func (s *ObjectStore) Ping(context.Context) error {
	return nil
}
