// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"slices"
	"sync"
)

// shaderCacheLimit is the number of compiled sources kept.
const shaderCacheLimit = 64

// compiled caches CompileWGSL results of program sources. Several passes
// share the same blit source, and every rebuild of a renderer recreates
// its programs.
var compiled = newShaderCache(shaderCacheLimit)

// shaderCache is a thread-safe cache of compiled WGSL with a soft limit.
// When it grows past the limit the least recently used quarter is evicted.
// Failed compilations are cached too, so a source naga cannot translate is
// reported once.
type shaderCache struct {
	mu      sync.Mutex
	entries map[string]*shaderEntry
	limit   int
	tick    int64 // monotonic access counter

	hits, misses uint64
}

type shaderEntry struct {
	words []uint32
	err   error
	atime int64
}

func newShaderCache(limit int) *shaderCache {
	return &shaderCache{
		entries: make(map[string]*shaderEntry),
		limit:   limit,
	}
}

// compile returns the SPIR-V of source, compiling it on a miss. The second
// result reports whether the entry was already cached.
func (c *shaderCache) compile(source string) ([]uint32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if e, ok := c.entries[source]; ok {
		e.atime = c.tick
		c.hits++
		return e.words, true, e.err
	}
	c.misses++

	words, err := CompileWGSL(source)
	c.entries[source] = &shaderEntry{words: words, err: err, atime: c.tick}
	if c.limit > 0 && len(c.entries) > c.limit {
		c.evict()
	}
	return words, false, err
}

// evict removes the oldest entries until a quarter of the limit is free.
// Caller must hold c.mu.
func (c *shaderCache) evict() {
	target := max(c.limit*3/4, 1)
	if len(c.entries) <= target {
		return
	}
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return int(c.entries[a].atime - c.entries[b].atime)
	})
	for _, k := range keys[:len(keys)-target] {
		delete(c.entries, k)
	}
}

// len returns the number of cached sources.
func (c *shaderCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// stats returns the hit and miss counts.
func (c *shaderCache) stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
