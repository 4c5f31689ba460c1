// Package storage provides the key-value backends behind the history store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bodycheck/internal/config"
)

var (
	ErrNotFound      = errors.New("storage: key not found")
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// KV is a single-key read/write store. Get returns ErrNotFound for keys
// that were never written.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Open builds the backend selected by STORAGE_BACKEND. The returned close
// function releases client connections.
func Open(ctx context.Context, cfg config.Config) (KV, func(), error) {
	noop := func() {}
	switch cfg.StorageBackend {
	case "memory":
		return NewMemory(cfg.StorageQuotaBytes), noop, nil
	case "file", "":
		kv, err := NewFile(cfg.StorageDir, cfg.StorageQuotaBytes)
		if err != nil {
			return nil, noop, err
		}
		return kv, noop, nil
	case "mongo":
		kv, err := NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, noop, err
		}
		return kv, func() { kv.Close(context.Background()) }, nil
	case "postgres":
		kv, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return kv, kv.Close, nil
	case "s3":
		kv, err := NewS3(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, noop, err
		}
		return kv, noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}

// Memory keeps values in process. A positive quota caps the total bytes
// held, like a browser origin's local storage.
type Memory struct {
	mu     sync.Mutex
	quota  int
	values map[string][]byte
}

func NewMemory(quota int) *Memory {
	return &Memory{quota: quota, values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		used := len(value)
		for k, v := range m.values {
			if k != key {
				used += len(v)
			}
		}
		if used > m.quota {
			return ErrQuotaExceeded
		}
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}
