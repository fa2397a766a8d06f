// Package cache stores upstream catalog responses in memory and on disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/animequote/internal/model"
)

const keyPrefix = "animequote:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a namespace and a request URL
func Key(namespace, rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return keyPrefix + namespace + ":" + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg: nothing, memory only, or memory
// backed by disk when a directory is configured
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Noop{}
	}

	memoryTTL := seconds(cfg.MemoryTTLSeconds, 10*time.Minute)
	if cfg.Dir == "" {
		return NewMemoryCache(memoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(memoryTTL, cfg.Dir, seconds(cfg.DiskTTLSeconds, 24*time.Hour))
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(string) ([]byte, bool)               { return nil, false }
func (Noop) Set(string, []byte, time.Duration) error { return nil }
func (Noop) Delete(string) error                     { return nil }
func (Noop) Clear() error                            { return nil }

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
