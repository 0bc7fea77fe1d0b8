package fastf1

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sweep interval for the cache cleanup worker.
const cleanupInterval = 2 * time.Hour

// The response cache is process-wide: enabled once at startup, shared by
// every client. Reads are safe under concurrent requests; writes are
// best-effort.
var cacheState struct {
	mu  sync.RWMutex
	dir string
	ttl time.Duration
}

// EnableCache enables the on-disk response cache under dir. Entries older
// than ttl are treated as absent and eventually removed by the cleanup
// worker; a ttl of zero disables expiry.
func EnableCache(dir string, ttl time.Duration) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	cacheState.mu.Lock()
	defer cacheState.mu.Unlock()
	cacheState.dir = dir
	cacheState.ttl = ttl
	return nil
}

func cacheSettings() (string, time.Duration) {
	cacheState.mu.RLock()
	defer cacheState.mu.RUnlock()
	return cacheState.dir, cacheState.ttl
}

func cachePath(dir, key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(dir, hex.EncodeToString(sum[:])+".json")
}

func cacheRead(key string) ([]byte, bool) {
	dir, ttl := cacheSettings()
	if dir == "" {
		return nil, false
	}

	path := cachePath(dir, key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if ttl > 0 && time.Since(info.ModTime()) > ttl {
		return nil, false
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return body, true
}

func cacheWrite(key string, body []byte) {
	dir, _ := cacheSettings()
	if dir == "" {
		return
	}

	path := cachePath(dir, key)
	if err := os.WriteFile(path, body, 0644); err != nil {
		slog.Error("Failed to write cache entry", "path", path, "error", err)
	}
}

// StartCacheCleanup starts a background worker that removes expired cache
// entries. It is a no-op sweep while the cache is disabled or has no TTL.
func StartCacheCleanup() {
	ticker := time.NewTicker(cleanupInterval)
	go func() {
		defer ticker.Stop()
		for range ticker.C {
			cleanupCache()
		}
	}()
	slog.Info("Cache cleanup worker started", "interval", cleanupInterval)
}

func cleanupCache() {
	dir, ttl := cacheSettings()
	if dir == "" || ttl <= 0 {
		return
	}

	cutoff := time.Now().Add(-ttl)
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Error("Failed to read cache directory", "dir", dir, "error", err)
		return
	}

	cleaned := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				slog.Error("Failed to remove cache entry", "path", path, "error", err)
			} else {
				cleaned++
			}
		}
	}

	if cleaned > 0 {
		slog.Info("Cache cleanup completed", "entries_removed", cleaned)
	}
}
