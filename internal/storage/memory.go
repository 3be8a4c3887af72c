package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrNoObject is returned for an unknown key.
var ErrNoObject = errors.New("no such object")

type object struct {
	data        []byte
	contentType string
}

// MemoryStorage keeps avatars in process. URLs point at BaseURL + key.
type MemoryStorage struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string]object
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{BaseURL: baseURL, objects: map[string]object{}}
}

func (m *MemoryStorage) Put(ctx context.Context, identityID string, r io.Reader, size int64, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	key := AvatarKey(identityID)
	m.mu.Lock()
	m.objects[key] = object{data: buf.Bytes(), contentType: contentType}
	m.mu.Unlock()
	return key, nil
}

func (m *MemoryStorage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	m.mu.Lock()
	_, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return "", ErrNoObject
	}
	return m.BaseURL + "/" + key, nil
}

// Get returns the stored bytes and content type.
func (m *MemoryStorage) Get(key string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o.data, o.contentType, ok
}
