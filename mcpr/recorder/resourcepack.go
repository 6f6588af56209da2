package recorder

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ResourcePackCache stores resource packs sent to the client during a
// recording, deduplicated by SHA-1 of their content. Every request id is
// remembered so the archive can map requests back to the stored packs.
type ResourcePackCache struct {
	dir string
	log *slog.Logger

	requests sync.Map // int -> string

	mu    sync.Mutex
	blobs map[string]string // hash -> file
}

// NewResourcePackCache creates a cache backed by a fresh temporary directory
// under base (os.TempDir when empty).
func NewResourcePackCache(base string, log *slog.Logger) (*ResourcePackCache, error) {
	dir, err := os.MkdirTemp(base, "mcpr-resourcepacks-")
	if err != nil {
		return nil, fmt.Errorf("create resource pack dir: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &ResourcePackCache{dir: dir, log: log, blobs: map[string]string{}}, nil
}

// Dir returns the cache's private temporary directory.
func (c *ResourcePackCache) Dir() string { return c.dir }

// Record stores data as the pack for requestID. Failures are logged; the pack
// is then missing from the archive.
func (c *ResourcePackCache) Record(requestID int, data []byte) {
	sum := sha1.Sum(data)
	hash := hex.EncodeToString(sum[:])
	c.requests.Store(requestID, hash)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.blobs[hash]; ok {
		return
	}
	path := filepath.Join(c.dir, hash)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		c.log.Warn("failed to save resource pack", "request", requestID, "hash", hash, "err", err)
		return
	}
	c.blobs[hash] = path
}

// RecordFile reads the pack at path and records it like Record.
func (c *ResourcePackCache) RecordFile(requestID int, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		c.log.Warn("failed to read resource pack", "request", requestID, "path", path, "err", err)
		return
	}
	c.Record(requestID, data)
}

// Blobs returns a snapshot of stored packs keyed by hash.
func (c *ResourcePackCache) Blobs() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.blobs))
	for h, p := range c.blobs {
		out[h] = p
	}
	return out
}

// Requests returns a snapshot of the request id to hash mapping.
func (c *ResourcePackCache) Requests() map[int]string {
	out := map[int]string{}
	c.requests.Range(func(k, v any) bool {
		out[k.(int)] = v.(string)
		return true
	})
	return out
}

// Remove deletes the temporary directory and everything in it.
func (c *ResourcePackCache) Remove() error {
	return os.RemoveAll(c.dir)
}
