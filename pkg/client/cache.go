package client

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Key identifies the transaction a cached session belongs to. A buyer
// returning for the same resource and quantity can resume the session
// instead of starting over.
type Key struct {
	ResourceID string
	Quantity   int
}

// Cache remembers session IDs for resumption. Entries are advisory: a hit
// must still be verified against the server, which owns session lifetime.
type Cache interface {
	// Store remembers the session ID for a key, replacing any previous entry.
	Store(key Key, sessionID string)
	// Get returns the remembered session ID, or false when absent or stale.
	Get(key Key) (string, bool)
	// Clear forgets the entry for a key.
	Clear(key Key)
}

// MemoryCache is an in-process Cache with per-entry TTL.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[Key]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	sessionID string
	storedAt  time.Time
}

// NewMemoryCache creates a MemoryCache. Entries older than ttl are treated
// as misses; use the server's session TTL so the cache never outlives the
// sessions it points at.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[Key]cacheEntry),
		ttl:     ttl,
	}
}

// Store remembers the session ID for a key.
func (c *MemoryCache) Store(key Key, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{sessionID: sessionID, storedAt: time.Now()}
}

// Get returns the remembered session ID. Stale entries are deleted and
// reported as misses.
func (c *MemoryCache) Get(key Key) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Since(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return entry.sessionID, true
}

// Clear forgets the entry for a key.
func (c *MemoryCache) Clear(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// FileCache is a Cache persisted as a JSON file, so resumption survives
// client restarts. Writes are atomic (write-tmp-then-rename) and the file
// is created with 0600 permissions.
type FileCache struct {
	mu   sync.Mutex
	path string
	ttl  time.Duration
}

// fileEntry is one persisted cache record. Keys are hashed so resource IDs
// never appear in the file name of the entry.
type fileEntry struct {
	SessionID string    `json:"session_id"`
	StoredAt  time.Time `json:"stored_at"`
}

// NewFileCache creates a FileCache at path. The file is created lazily on
// the first Store.
func NewFileCache(path string, ttl time.Duration) *FileCache {
	return &FileCache{path: path, ttl: ttl}
}

// hashKey produces a stable string key for the JSON map.
func hashKey(key Key) string {
	h := xxhash.New()
	_, _ = h.WriteString(key.ResourceID)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(strconv.Itoa(key.Quantity))
	return strconv.FormatUint(h.Sum64(), 16)
}

// Store remembers the session ID for a key.
// Load or write errors drop the entry silently; the cache is best-effort.
func (c *FileCache) Store(key Key, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load()
	entries[hashKey(key)] = fileEntry{SessionID: sessionID, StoredAt: time.Now()}
	_ = c.save(entries)
}

// Get returns the remembered session ID. Stale entries are removed from the
// file and reported as misses.
func (c *FileCache) Get(key Key) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load()
	k := hashKey(key)
	entry, ok := entries[k]
	if !ok {
		return "", false
	}
	if time.Since(entry.StoredAt) >= c.ttl {
		delete(entries, k)
		_ = c.save(entries)
		return "", false
	}
	return entry.SessionID, true
}

// Clear forgets the entry for a key.
func (c *FileCache) Clear(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load()
	k := hashKey(key)
	if _, ok := entries[k]; !ok {
		return
	}
	delete(entries, k)
	_ = c.save(entries)
}

// load reads the cache file. A missing or corrupt file yields an empty map.
func (c *FileCache) load() map[string]fileEntry {
	entries := make(map[string]fileEntry)
	data, err := os.ReadFile(c.path)
	if err != nil {
		return entries
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return make(map[string]fileEntry)
	}
	return entries
}

// save writes the cache file atomically: write to path+".tmp", then rename
// over the destination so readers never observe a partial file.
func (c *FileCache) save(entries map[string]fileEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp cache: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp cache: %w", err)
	}
	return nil
}

// Compile-time interface verification.
var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*FileCache)(nil)
)
