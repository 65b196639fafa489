package objstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockStore is an in-memory Store for tests. Locations use the same
// s3://bucket/key form as the real store so locator behavior can be
// exercised without credentials.
type MockStore struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	deletes int
}

// NewMockStore creates an empty in-memory store
func NewMockStore(bucket string) *MockStore {
	return &MockStore{
		bucket:  bucket,
		objects: make(map[string][]byte),
	}
}

// Put stores an artifact in memory
func (s *MockStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = buf
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Delete removes a stored artifact, tolerating missing objects
func (s *MockStore) Delete(_ context.Context, location string) error {
	_, key, err := ParseLocation(location)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deletes++
	return nil
}

// Sign returns a fake signed URL with the requested expiry
func (s *MockStore) Sign(_ context.Context, location string, ttl time.Duration) (string, error) {
	_, key, err := ParseLocation(location)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return "", ErrNotFound
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("https://%s.example.com/%s?expires=%d", s.bucket, key, expires), nil
}

// Has reports whether an object exists, for test assertions
func (s *MockStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Deletes reports the number of delete calls, for test assertions
func (s *MockStore) Deletes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes
}
